package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"marketplace-service/internal/geo"
	"marketplace-service/internal/models"
	"marketplace-service/internal/service"

	"github.com/gin-gonic/gin"
)

var errBadCoordinates = errors.New("lat and lng must both be numbers")

// positionFromQuery turns ?lat&lng into the position the client reported.
// Both missing means the client could not report one.
func positionFromQuery(c *gin.Context) (geo.PositionProvider, error) {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" && lngStr == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, errBadCoordinates
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, errBadCoordinates
	}

	coord := models.Coordinate{Latitude: lat, Longitude: lng}
	return geo.PositionFunc(func(context.Context) (models.Coordinate, error) {
		return coord, nil
	}), nil
}

func (h *Handler) locationQuery(c *gin.Context) (service.LocationQuery, bool) {
	position, err := positionFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid coordinates",
			"details": err.Error(),
		})
		return service.LocationQuery{}, false
	}
	return service.LocationQuery{Position: position, City: c.Query("city")}, true
}

// currentLocation resolves the position reported by the client
func (h *Handler) currentLocation(c *gin.Context) {
	position, err := positionFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid coordinates",
			"details": err.Error(),
		})
		return
	}

	loc, err := h.stores.Locate(c.Request.Context(), service.LocationQuery{Position: position})
	if err != nil {
		respondError(c, err, "Could not determine your location")
		return
	}

	c.JSON(http.StatusOK, loc)
}

// cityLocation resolves a manually entered city
func (h *Handler) cityLocation(c *gin.Context) {
	loc, err := h.stores.Locate(c.Request.Context(), service.LocationQuery{City: c.Param("name")})
	if err != nil {
		respondError(c, err, "Unknown city")
		return
	}

	c.JSON(http.StatusOK, loc)
}

func (h *Handler) nearbyStores(c *gin.Context) {
	h.rankedStores(c, h.stores.Nearby)
}

func (h *Handler) sortedStores(c *gin.Context) {
	h.rankedStores(c, h.stores.Sorted)
}

func (h *Handler) rankedStores(c *gin.Context, rank func(context.Context, models.Coordinate) ([]models.Seller, error)) {
	q, ok := h.locationQuery(c)
	if !ok {
		return
	}

	loc, err := h.stores.Locate(c.Request.Context(), q)
	if err != nil {
		respondError(c, err, "Could not determine your location")
		return
	}

	sellers, err := rank(c.Request.Context(), loc.Coordinate)
	if err != nil {
		respondError(c, err, "Failed to load stores")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"location": loc,
		"stores":   sellers,
	})
}
