package handlers

import (
	"errors"
	"net/http"

	"wa-relay-server/internal/models"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var (
		ve *models.ValidationError
		pe *models.ProviderError
		se *models.StoreError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &pe):
		switch {
		case pe.Timeout:
			return http.StatusGatewayTimeout
		case pe.HTTPStatus >= 400 && pe.HTTPStatus < 500:
			return http.StatusBadRequest
		default:
			return http.StatusBadGateway
		}
	case errors.As(err, &se):
		switch se.Code {
		case models.StorePermissionDenied:
			return http.StatusForbidden
		case models.StoreUnavailable:
			return http.StatusServiceUnavailable
		case models.StoreNotFound:
			return http.StatusNotFound
		default:
			return http.StatusInternalServerError
		}
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body. Internal failures get a generic message.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	switch status {
	case http.StatusInternalServerError:
		message = "Internal server error"
	case http.StatusServiceUnavailable:
		message = "Store unavailable"
	case http.StatusForbidden:
		message = "Store permission denied"
	case http.StatusNotFound:
		message = "Not found"
	}
	c.JSON(status, gin.H{"error": message})
}
