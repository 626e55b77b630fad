package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "bloodbank.io/becs/internal/pkg/errors"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 500
)

// ListAuditLogs handles GET /api/v1/audit-logs, newest first.
func (s *Server) ListAuditLogs(c *gin.Context) {
	limit := intQuery(c, "limit", defaultAuditPageSize)
	if limit < 1 || limit > maxAuditPageSize {
		limit = defaultAuditPageSize
	}
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := s.ledger.List(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(apperrors.ErrStorageUnavailable(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// VerifyAuditChain handles POST /api/v1/audit-logs/verify. A broken chain is
// not a transport error; the report says what broke, with status 200.
func (s *Server) VerifyAuditChain(c *gin.Context) {
	report, err := s.ledger.Verify(c.Request.Context())
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeAuditVerifyFailed,
			"audit chain could not be verified", http.StatusServiceUnavailable))
		return
	}
	c.JSON(http.StatusOK, report)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
