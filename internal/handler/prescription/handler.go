package prescription

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
)

type Service interface {
	Create(ctx context.Context, doctorID uuid.UUID, req *model.CreatePrescriptionRequest) (*model.Prescription, error)
	ListForPatient(ctx context.Context, doctorID, patientID uuid.UUID) ([]*model.Prescription, error)
	Delete(ctx context.Context, doctorID, id uuid.UUID) error
}

type Handler struct {
	service Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	prescriptions := r.Group("/prescriptions", h.auth.Authenticate(), h.auth.RequireRole(model.RoleDoctor))
	{
		prescriptions.POST("", h.CreatePrescription)
		prescriptions.GET("/:patientId", h.ListPrescriptions)
		prescriptions.DELETE("/item/:id", h.DeletePrescription)
	}
}

func (h *Handler) CreatePrescription(c *gin.Context) {
	var req model.CreatePrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	caller, _ := middleware.CurrentPrincipal(c)
	p, err := h.service.Create(c.Request.Context(), caller.UserID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	caller, _ := middleware.CurrentPrincipal(c)
	list, err := h.service.ListForPatient(c.Request.Context(), caller.UserID, patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	if list == nil {
		list = []*model.Prescription{}
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(list))
}

func (h *Handler) DeletePrescription(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid prescription ID"))
		return
	}

	caller, _ := middleware.CurrentPrincipal(c)
	if err := h.service.Delete(c.Request.Context(), caller.UserID, id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": true}))
}
