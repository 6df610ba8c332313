package api

import (
	"errors"
	"net/http"

	"marketplace-service/internal/geo"
	"marketplace-service/internal/reservation"
	"marketplace-service/internal/service"
	"marketplace-service/internal/store"

	"github.com/gin-gonic/gin"
)

// respondError writes err with the status its kind maps to
func respondError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	body := gin.H{
		"error":   message,
		"details": err.Error(),
	}

	switch {
	case errors.Is(err, geo.ErrLocationUnavailable):
		status = http.StatusUnprocessableEntity
		body["fallback"] = "manual"
	case errors.Is(err, geo.ErrCityNotFound):
		status = http.StatusNotFound
		body["examples"] = geo.ExampleCities()
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, reservation.ErrStatusConflict):
		status = http.StatusConflict
	case errors.Is(err, reservation.ErrInvalidTransition), errors.Is(err, service.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrPersistence):
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, body)
}
