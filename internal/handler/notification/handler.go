package notification

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
)

type ReminderSender interface {
	SendAppointmentReminder(ctx context.Context, appointmentID uuid.UUID) (*model.ReminderResult, error)
}

type Handler struct {
	reminders ReminderSender
	auth      *middleware.AuthMiddleware
}

func NewHandler(reminders ReminderSender, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{reminders: reminders, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications", h.auth.Authenticate(), h.auth.RequireRole(model.RoleDoctor))
	{
		notifications.POST("/whatsapp/appointment-reminder", h.SendAppointmentReminder)
	}
}

func (h *Handler) SendAppointmentReminder(c *gin.Context) {
	var req model.WhatsAppReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	// Binding already checked the format.
	id := uuid.MustParse(req.AppointmentID)
	result, err := h.reminders.SendAppointmentReminder(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
