package notification

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/handler/handlertest"
	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type mockReminders struct{ mock.Mock }

func (m *mockReminders) SendAppointmentReminder(ctx context.Context, id uuid.UUID) (*model.ReminderResult, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*model.ReminderResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func setup() (*gin.Engine, *mockReminders) {
	svc := new(mockReminders)
	r := handlertest.NewEngine()
	NewHandler(svc, handlertest.NewSession().Auth).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

const path = "/api/v1/notifications/whatsapp/appointment-reminder"

func TestSendAppointmentReminder(t *testing.T) {
	r, svc := setup()
	ok, missing, broken := uuid.New(), uuid.New(), uuid.New()
	svc.On("SendAppointmentReminder", mock.Anything, ok).Return(&model.ReminderResult{
		OK: true, SID: "SM123", Mode: "sandbox", SentTo: "whatsapp:+972521234567",
	}, nil)
	svc.On("SendAppointmentReminder", mock.Anything, missing).Return(nil, apperrors.NotFound("Appointment", nil))
	svc.On("SendAppointmentReminder", mock.Anything, broken).
		Return(nil, apperrors.InternalMessage("Missing TWILIO_SID or TWILIO_AUTH_TOKEN", nil))

	w := handlertest.Do(t, r, http.MethodPost, path, gin.H{"appointmentId": ok.String()}, "patient")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = handlertest.Do(t, r, http.MethodPost, path, gin.H{"appointmentId": ok.String()}, "doctor")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"sid":"SM123","mode":"sandbox","sentTo":"whatsapp:+972521234567"}`,
		string(handlertest.Decode(t, w).Data))

	w = handlertest.Do(t, r, http.MethodPost, path, gin.H{"appointmentId": missing.String()}, "doctor")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = handlertest.Do(t, r, http.MethodPost, path, gin.H{"appointmentId": broken.String()}, "doctor")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Missing TWILIO_SID or TWILIO_AUTH_TOKEN", handlertest.Decode(t, w).Message)

	w = handlertest.Do(t, r, http.MethodPost, path, gin.H{}, "doctor")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "appointmentId is required", handlertest.Decode(t, w).Message)
}
