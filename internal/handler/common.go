package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/middleware"
	"fueldelivery/internal/service"
	"fueldelivery/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrInvalidPrice),
		errors.Is(err, apperror.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrCapacityExceeded), errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the standard envelope. Internal errors are logged and not echoed.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "Internal server error"
	}
	var ve *apperror.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		c.JSON(status, response.FieldError(status, ve.Field, msg))
		return
	}
	c.JSON(status, response.Error(status, msg))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// actor reads the caller set by middleware.RequireRole.
func actor(c *gin.Context) (service.Actor, bool) {
	id, role, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return service.Actor{}, false
	}
	return service.Actor{UserID: id, Role: role}, true
}

// sendFile streams a rendered document as an attachment.
func sendFile(c *gin.Context, out service.ExportedFile) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Content)
}
