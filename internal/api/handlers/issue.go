package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bloodbank.io/becs/internal/domain"
	apperrors "bloodbank.io/becs/internal/pkg/errors"
)

type selectRequest struct {
	BloodType string `json:"blood_type" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type confirmRequest struct {
	UnitIDs   []string `json:"unit_ids" binding:"required"`
	IssueType string   `json:"issue_type"`
}

// SelectRoutine handles POST /api/v1/issue/select. It proposes units without
// reserving them; the client confirms the ids it accepts.
func (s *Server) SelectRoutine(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	requested, err := domain.ParseBloodType(req.BloodType)
	if err != nil {
		_ = c.Error(apperrors.ErrInvalidBloodTypef(req.BloodType))
		return
	}

	result, err := s.allocation.SelectForRoutine(c.Request.Context(), requested, req.Quantity)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ConfirmIssue handles POST /api/v1/issue/confirm.
func (s *Server) ConfirmIssue(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	issued, err := s.allocation.ConfirmIssue(c.Request.Context(), req.UnitIDs, domain.IssueType(req.IssueType))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issued": issued, "count": len(issued)})
}

// EmergencyIssue handles POST /api/v1/issue/emergency. It takes no body: an
// emergency issue always means every available O- unit.
func (s *Server) EmergencyIssue(c *gin.Context) {
	issued, err := s.allocation.IssueEmergencyONeg(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issued": issued, "count": len(issued)})
}

// ONegStock handles GET /api/v1/stock/oneg.
func (s *Server) ONegStock(c *gin.Context) {
	n, err := s.allocation.CountONeg(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blood_type": domain.ONeg.String(), "available": n})
}
