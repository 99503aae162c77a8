package appointment

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
)

type Service interface {
	Treatments() []model.TreatmentType
	AvailableSlots(ctx context.Context, doctorID uuid.UUID, day string) ([]time.Time, error)
	Book(ctx context.Context, caller model.Principal, req *model.CreateAppointmentRequest) (*model.Appointment, error)
	ListMine(ctx context.Context, caller model.Principal) ([]*model.AppointmentDetails, error)
	ListScheduledForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AppointmentDetails, error)
	PatientHistory(ctx context.Context, doctorID, patientID uuid.UUID) ([]*model.AppointmentDetails, error)
	Update(ctx context.Context, caller model.Principal, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error)
	Cancel(ctx context.Context, caller model.Principal, id uuid.UUID) (*model.Appointment, error)
}

type Handler struct {
	service Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctorOnly := h.auth.RequireRole(model.RoleDoctor)

	appointments := r.Group("/appointments", h.auth.Authenticate())
	{
		appointments.GET("/treatments", h.ListTreatments)
		appointments.GET("/available", h.AvailableSlots)
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/doctor", doctorOnly, h.ListDoctorSchedule)
		appointments.GET("/history/:patientId", doctorOnly, h.PatientHistory)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", h.CancelAppointment)
	}
}

func (h *Handler) ListTreatments(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.service.Treatments()))
}

func (h *Handler) AvailableSlots(c *gin.Context) {
	doctorID := strings.TrimSpace(c.Query("doctorId"))
	day := strings.TrimSpace(c.Query("day"))
	if doctorID == "" || day == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("doctorId and day are required"))
		return
	}
	id, err := uuid.Parse(doctorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	slots, err := h.service.AvailableSlots(c.Request.Context(), id, day)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	if slots == nil {
		slots = []time.Time{}
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	caller, _ := middleware.CurrentPrincipal(c)
	appointment, err := h.service.Book(c.Request.Context(), caller, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(appointment))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	caller, _ := middleware.CurrentPrincipal(c)
	list, err := h.service.ListMine(c.Request.Context(), caller)
	respondList(c, list, err)
}

func (h *Handler) ListDoctorSchedule(c *gin.Context) {
	caller, _ := middleware.CurrentPrincipal(c)
	list, err := h.service.ListScheduledForDoctor(c.Request.Context(), caller.UserID)
	respondList(c, list, err)
}

func (h *Handler) PatientHistory(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	caller, _ := middleware.CurrentPrincipal(c)
	list, err := h.service.PatientHistory(c.Request.Context(), caller.UserID, patientID)
	respondList(c, list, err)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	caller, _ := middleware.CurrentPrincipal(c)
	appointment, err := h.service.Update(c.Request.Context(), caller, id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointment))
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	caller, _ := middleware.CurrentPrincipal(c)
	appointment, err := h.service.Cancel(c.Request.Context(), caller, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointment))
}

func respondList(c *gin.Context, list []*model.AppointmentDetails, err error) {
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	if list == nil {
		list = []*model.AppointmentDetails{}
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(list))
}
