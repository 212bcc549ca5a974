package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"wa-relay-server/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", models.NewValidationError("x", "bad"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("dispatch: %w", models.NewValidationError("x", "bad")), http.StatusBadRequest},
		{"provider rejected", &models.ProviderError{Code: 100, HTTPStatus: 400}, http.StatusBadRequest},
		{"provider timeout", &models.ProviderError{Timeout: true}, http.StatusGatewayTimeout},
		{"provider server error", &models.ProviderError{HTTPStatus: 500}, http.StatusBadGateway},
		{"provider transport", &models.ProviderError{Message: "connection refused"}, http.StatusBadGateway},
		{"store permission", &models.StoreError{Code: models.StorePermissionDenied}, http.StatusForbidden},
		{"store unavailable", &models.StoreError{Code: models.StoreUnavailable}, http.StatusServiceUnavailable},
		{"store not found", &models.StoreError{Code: models.StoreNotFound}, http.StatusNotFound},
		{"store internal", &models.StoreError{Code: models.StoreInternal}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
