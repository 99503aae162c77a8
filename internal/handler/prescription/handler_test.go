package prescription

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

type mockService struct{ mock.Mock }

func (m *mockService) Create(ctx context.Context, doctorID uuid.UUID, req *model.CreatePrescriptionRequest) (*model.Prescription, error) {
	args := m.Called(ctx, doctorID, req)
	if r := args.Get(0); r != nil {
		return r.(*model.Prescription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockService) ListForPatient(ctx context.Context, doctorID, patientID uuid.UUID) ([]*model.Prescription, error) {
	args := m.Called(ctx, doctorID, patientID)
	if r := args.Get(0); r != nil {
		return r.([]*model.Prescription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockService) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	return m.Called(ctx, doctorID, id).Error(0)
}

func setup() (*gin.Engine, *mockService, *handlertest.Session) {
	svc := new(mockService)
	session := handlertest.NewSession()
	r := handlertest.NewEngine()
	NewHandler(svc, session.Auth).RegisterRoutes(r.Group("/api/v1"))
	return r, svc, session
}

func TestCreatePrescription(t *testing.T) {
	r, svc, session := setup()
	patientID := uuid.New()
	created := &model.Prescription{DoctorID: session.Doctor.UserID, PatientID: patientID,
		Title: model.DefaultPrescriptionTitle, Notes: "Rest"}

	svc.On("Create", mock.Anything, session.Doctor.UserID, &model.CreatePrescriptionRequest{
		PatientID: patientID.String(), Notes: "Rest",
	}).Return(created, nil)

	body := gin.H{"patientId": patientID.String(), "notes": "Rest"}

	w := handlertest.Do(t, r, http.MethodPost, "/api/v1/prescriptions", body, "patient")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = handlertest.Do(t, r, http.MethodPost, "/api/v1/prescriptions", body, "doctor")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), model.DefaultPrescriptionTitle)

	w = handlertest.Do(t, r, http.MethodPost, "/api/v1/prescriptions", gin.H{"patientId": patientID.String()}, "doctor")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "notes is required", handlertest.Decode(t, w).Message)

	w = handlertest.Do(t, r, http.MethodPost, "/api/v1/prescriptions", gin.H{"patientId": "x", "notes": "Rest"}, "doctor")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid id", handlertest.Decode(t, w).Message)
}

func TestListPrescriptions(t *testing.T) {
	r, svc, session := setup()
	patientID := uuid.New()
	svc.On("ListForPatient", mock.Anything, session.Doctor.UserID, patientID).Return([]*model.Prescription(nil), nil)

	w := handlertest.Do(t, r, http.MethodGet, "/api/v1/prescriptions/"+patientID.String(), nil, "doctor")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","data":[]}`, w.Body.String())
}

func TestDeletePrescription(t *testing.T) {
	r, svc, session := setup()
	mine, theirs, missing := uuid.New(), uuid.New(), uuid.New()
	svc.On("Delete", mock.Anything, session.Doctor.UserID, mine).Return(nil)
	svc.On("Delete", mock.Anything, session.Doctor.UserID, theirs).Return(apperrors.Forbidden("Not allowed", nil))
	svc.On("Delete", mock.Anything, session.Doctor.UserID, missing).Return(apperrors.NotFound("Prescription", nil))

	w := handlertest.Do(t, r, http.MethodDelete, "/api/v1/prescriptions/item/"+mine.String(), nil, "doctor")
	assert.Equal(t, http.StatusOK, w.Code)

	w = handlertest.Do(t, r, http.MethodDelete, "/api/v1/prescriptions/item/"+theirs.String(), nil, "doctor")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = handlertest.Do(t, r, http.MethodDelete, "/api/v1/prescriptions/item/"+missing.String(), nil, "doctor")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Prescription not found", handlertest.Decode(t, w).Message)
}
