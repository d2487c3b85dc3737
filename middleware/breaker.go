// Package middleware provides gin middleware that guards HTTP routes with
// the resilience core.
package middleware

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/southerncoder/faultkit/errors"
	"github.com/southerncoder/faultkit/manager"
	"github.com/southerncoder/faultkit/resilience"
)

// BreakerConfig configures the circuit breaker middleware.
type BreakerConfig struct {
	// Name identifies the breaker guarding this route group.
	Name string
	// Breaker overrides the manager's default breaker settings. Only the
	// first middleware to reference Name wins the config.
	Breaker *resilience.CircuitBreakerConfig
	// Component tags the error context for failures recorded here.
	// Defaults to "http".
	Component string
}

// Breaker returns middleware that runs the downstream chain through the
// named circuit breaker owned by m. A response status of 500 or higher, or
// an error attached to the gin context, counts as a failure. While the
// circuit is open, requests are rejected with 503 before reaching the
// handlers.
func Breaker(m *manager.Manager, cfg BreakerConfig) gin.HandlerFunc {
	if cfg.Component == "" {
		cfg.Component = "http"
	}

	return func(c *gin.Context) {
		cb := m.GetCircuitBreaker(cfg.Name, cfg.Breaker)

		err := cb.Execute(func() error {
			c.Next()
			if len(c.Errors) > 0 {
				return c.Errors.Last().Err
			}
			if status := c.Writer.Status(); status >= http.StatusInternalServerError {
				return errors.FromStatusCode(status, "")
			}
			return nil
		})
		if err == nil {
			return
		}

		ectx := errors.NewContext(cfg.Component, c.Request.Method+" "+c.FullPath())
		if id := c.GetString("request_id"); id != "" {
			ectx.WithCorrelationID(id)
		}

		if stderrors.Is(err, errors.ErrCircuitOpen) {
			m.HandleError(err, ectx)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Service temporarily unavailable",
				"breaker": cfg.Name,
			})
			return
		}

		// The downstream handlers already produced the response; just record
		// the failure against the breaker's context.
		m.HandleError(err, ectx)
	}
}
