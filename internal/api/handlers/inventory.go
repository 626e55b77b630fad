package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "bloodbank.io/becs/internal/pkg/errors"
	"bloodbank.io/becs/internal/service"
)

// CreateDonation handles POST /api/v1/donations.
func (s *Server) CreateDonation(c *gin.Context) {
	var in service.DonationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	unit, err := s.inventory.AddDonation(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, unit)
}

// ListUnits handles GET /api/v1/units. Issued units are included; the unit
// record outlives the stock.
func (s *Server) ListUnits(c *gin.Context) {
	units, err := s.inventory.Units(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"units": units, "count": len(units)})
}

// ListAvailableUnits handles GET /api/v1/units/available.
func (s *Server) ListAvailableUnits(c *gin.Context) {
	units, err := s.inventory.AvailableUnits(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"units": units, "count": len(units)})
}

// ListIssuances handles GET /api/v1/issuances.
func (s *Server) ListIssuances(c *gin.Context) {
	history, err := s.inventory.Issuances(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issuances": history, "count": len(history)})
}
