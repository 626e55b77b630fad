package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches all API routes under /api/v1.
func (s *Server) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/api/v1")

	v1.POST("/donations", s.CreateDonation)
	v1.GET("/units", s.ListUnits)
	v1.GET("/units/available", s.ListAvailableUnits)
	v1.GET("/issuances", s.ListIssuances)

	v1.POST("/issue/select", s.SelectRoutine)
	v1.POST("/issue/confirm", s.ConfirmIssue)
	v1.POST("/issue/emergency", s.EmergencyIssue)
	v1.GET("/stock/oneg", s.ONegStock)

	v1.GET("/audit-logs", s.ListAuditLogs)
	v1.POST("/audit-logs/verify", s.VerifyAuditChain)

	v1.POST("/ai/demand", s.PredictDemand)
	v1.POST("/ai/eligibility", s.PredictEligibility)

	v1.GET("/health/live", s.HealthLive)
	v1.GET("/health/ready", s.HealthReady)
}
