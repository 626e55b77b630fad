package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bloodbank.io/becs/internal/ml"
	apperrors "bloodbank.io/becs/internal/pkg/errors"
)

type demandRequest struct {
	Month int `json:"month" binding:"required"`
}

// PredictDemand handles POST /api/v1/ai/demand.
func (s *Server) PredictDemand(c *gin.Context) {
	var req demandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}
	if req.Month < 1 || req.Month > 12 {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "month must be 1-12").
			WithParams(map[string]interface{}{"month": req.Month}))
		return
	}

	forecasts, err := s.forecaster.PredictDemand(c.Request.Context(), time.Month(req.Month))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"month": req.Month, "forecasts": forecasts})
}

// PredictEligibility handles POST /api/v1/ai/eligibility. The verdict is
// advisory; intake staff make the call.
func (s *Server) PredictEligibility(c *gin.Context) {
	var metrics ml.HealthMetrics
	if err := c.ShouldBindJSON(&metrics); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	result, err := s.eligibility.PredictEligibility(c.Request.Context(), metrics)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
