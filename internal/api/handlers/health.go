package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthLive handles GET /api/v1/health/live.
func (s *Server) HealthLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthReady handles GET /api/v1/health/ready. Ready means the database
// answers a ping.
func (s *Server) HealthReady(c *gin.Context) {
	if s.pool != nil {
		if err := s.pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"reason": "database unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
