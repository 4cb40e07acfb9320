package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/jmarins/boat-tour-reservation/internal/model"
)

// Context key holding the request's AuditInfo.
const CtxAudit = "audit"

// ClientAudit captures the caller's IP and User-Agent into the request
// context so handlers can attach them to consent records.  Both fields are
// best-effort enrichment; an empty value is valid.
func ClientAudit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(CtxAudit, model.AuditInfo{
				IP:        c.RealIP(),
				UserAgent: c.Request().UserAgent(),
			})
			return next(c)
		}
	}
}

// AuditFrom returns the AuditInfo captured by ClientAudit, or a zero value
// when the middleware did not run.
func AuditFrom(c echo.Context) model.AuditInfo {
	if a, ok := c.Get(CtxAudit).(model.AuditInfo); ok {
		return a
	}
	return model.AuditInfo{}
}
