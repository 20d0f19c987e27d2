package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"metadirectory/src/core/domain"
	"metadirectory/src/core/ports"
)

const targetDomainKey = "target_domain"

// DomainFromParam loads the domain named by the path parameter and stores
// it on the context. A missing domain is not an error here; handlers report
// it in the form the endpoint requires.
func DomainFromParam(repo ports.DomainRepository, param string, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param(param)
		if id != "" {
			d, err := repo.GetDomain(c.Request.Context(), id)
			switch {
			case err == nil:
				c.Set(targetDomainKey, d)
			case !domain.IsNotFound(err):
				log.Warn("domain lookup failed", "request_id", GetRequestID(c), "domain_id", id, "error", err)
			}
		}
		c.Next()
	}
}

// GetDomain returns the domain loaded by DomainFromParam, or nil.
func GetDomain(c *gin.Context) *domain.Domain {
	if v, ok := c.Get(targetDomainKey); ok {
		if d, ok := v.(*domain.Domain); ok {
			return d
		}
	}
	return nil
}
