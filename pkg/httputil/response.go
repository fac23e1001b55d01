package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a 201 response
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError maps an application error to an HTTP status.
func RespondWithError(c *gin.Context, err error) {
	RespondWithErrorDetails(c, err, nil)
}

// RespondWithErrorDetails attaches structured details (e.g. the list of
// conflicting appointments) to the error payload.
func RespondWithErrorDetails(c *gin.Context, err error, details interface{}) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch appErr.Code {
		case apperrors.ErrNotFound:
			status = http.StatusNotFound
		case apperrors.ErrBadRequest:
			status = http.StatusBadRequest
		case apperrors.ErrUnauthorized:
			status = http.StatusUnauthorized
		case apperrors.ErrForbidden:
			status = http.StatusForbidden
		case apperrors.ErrConflict:
			status = http.StatusConflict
		case apperrors.ErrUnprocessable:
			status = http.StatusUnprocessableEntity
		case apperrors.ErrRateLimited:
			status = http.StatusTooManyRequests
		}
	}

	c.JSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    status,
			Message: message,
			Details: details,
		},
	})
}
