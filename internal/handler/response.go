package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError writes err with the status its AppError code maps to.
// Anything else is a 500 with a generic message.
func RespondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	if appErr, ok := apperrors.As(err); ok {
		status = appErr.HTTPStatus()
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("request_id", c.GetString("request_id")).
			Msg("Request failed")
	}

	c.AbortWithStatusJSON(status, NewErrorResponse(message))
}

// RespondBindError reports a request that failed binding or validation.
func RespondBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponse(bindMessage(err)))
}

var fieldMessages = map[string]string{
	"il_mobile": "Invalid phone (expected 05XXXXXXXX)",
	"otp_code":  "Invalid code (expected 6 digits)",
	"weekday":   "Invalid day",
	"clock":     "Invalid time (expected HH:MM)",
	"treatment": "Invalid treatment type",
	"uuid":      "Invalid id",
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}
	fe := verrs[0]
	if msg, ok := fieldMessages[fe.Tag()]; ok {
		return msg
	}
	if fe.Tag() == "required" {
		return fe.Field() + " is required"
	}
	return "Invalid " + fe.Field()
}
