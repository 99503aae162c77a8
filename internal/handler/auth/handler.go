package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/user"
)

// OTPService is the sign-in flow the handler drives.
type OTPService interface {
	RequestPhoneOTP(ctx context.Context, phone string) (*model.RequestOTPResponse, error)
	VerifyPhoneOTP(ctx context.Context, phone, code, name string) (*model.TokenResponse, error)
	RequestEmailOTP(ctx context.Context, phone string) (*model.RequestOTPResponse, error)
	VerifyEmailOTP(ctx context.Context, phone, code string) (*model.TokenResponse, error)
	UserExists(ctx context.Context, phone string) (bool, error)
}

type Handler struct {
	svc     OTPService
	doctors user.DoctorServicer
	auth    *middleware.AuthMiddleware
	limit   gin.HandlerFunc
}

// NewHandler wires the auth routes. limit guards the code endpoints and may
// be nil.
func NewHandler(svc OTPService, doctors user.DoctorServicer, auth *middleware.AuthMiddleware, limit gin.HandlerFunc) *Handler {
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}
	return &Handler{svc: svc, doctors: doctors, auth: auth, limit: limit}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/request-otp", h.limit, h.RequestOTP)
		auth.POST("/verify-otp", h.limit, h.VerifyOTP)
		auth.POST("/request-otp-email-by-phone", h.limit, h.RequestEmailOTP)
		auth.POST("/verify-otp-email-by-phone", h.limit, h.VerifyEmailOTP)
		auth.GET("/user-exists/:phone", h.UserExists)
	}

	doctors := auth.Group("/doctors", h.auth.Authenticate())
	{
		doctors.GET("", h.ListDoctors)
		doctors.GET("/:id", h.GetDoctor)
		doctors.PUT("/me/availability", h.auth.RequireRole(model.RoleDoctor), h.UpdateAvailability)
	}
}

func (h *Handler) RequestOTP(c *gin.Context) {
	var req model.RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	resp, err := h.svc.RequestPhoneOTP(c.Request.Context(), req.Phone)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req model.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	tokens, err := h.svc.VerifyPhoneOTP(c.Request.Context(), req.Phone, req.OTP, req.Name)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

func (h *Handler) RequestEmailOTP(c *gin.Context) {
	var req model.RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	resp, err := h.svc.RequestEmailOTP(c.Request.Context(), req.Phone)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) VerifyEmailOTP(c *gin.Context) {
	var req model.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	tokens, err := h.svc.VerifyEmailOTP(c.Request.Context(), req.Phone, req.OTP)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

func (h *Handler) UserExists(c *gin.Context) {
	exists, err := h.svc.UserExists(c.Request.Context(), c.Param("phone"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"exists": exists}))
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.doctors.ListDoctors(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(doctors))
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("doctor not found"))
		return
	}

	doctor, err := h.doctors.GetDoctor(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(doctor))
}

func (h *Handler) UpdateAvailability(c *gin.Context) {
	var req model.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	caller, _ := middleware.CurrentPrincipal(c)
	doctor, err := h.doctors.SetAvailability(c.Request.Context(), caller.UserID, req.Availability)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(doctor))
}
