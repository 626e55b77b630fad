package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bloodbank.io/becs/internal/governance/audit"
)

type contextKey string

const (
	// RequestIDHeader is the HTTP header for request tracing.
	RequestIDHeader = "X-Request-ID"

	ctxKeyRequestID contextKey = "request_id"
	ctxKeyAuditMeta contextKey = "audit_meta"
)

// RequestID injects a unique request ID into the context and response header,
// and captures the request metadata the audit ledger attaches to entries.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, _ := uuid.NewV7()
			rid = id.String()
		}
		c.Set(string(ctxKeyRequestID), rid)
		c.Writer.Header().Set(RequestIDHeader, rid)

		meta := audit.Meta{
			CorrelationID: rid,
			IP:            c.ClientIP(),
			UserAgent:     c.Request.UserAgent(),
			Method:        c.Request.Method,
			Path:          c.Request.URL.Path,
		}

		ctx := context.WithValue(c.Request.Context(), ctxKeyRequestID, rid)
		ctx = context.WithValue(ctx, ctxKeyAuditMeta, meta)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// GetAuditMeta extracts request metadata from context. Wired into the ledger
// as its MetaExtractor at bootstrap.
func GetAuditMeta(ctx context.Context) audit.Meta {
	if v, ok := ctx.Value(ctxKeyAuditMeta).(audit.Meta); ok {
		return v
	}
	return audit.Meta{}
}
