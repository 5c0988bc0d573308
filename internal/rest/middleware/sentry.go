package middleware

import (
	"time"

	"github.com/condohub/billing/internal/config"
	"github.com/condohub/billing/internal/types"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware reports panics and request traces when Sentry is enabled.
// It must run after RequestIDMiddleware so events carry the request id.
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic: true,
		Timeout: 2 * time.Second,
	})
}

// SentryScopeMiddleware tags the request hub with the route and request id.
// Webhook routes also carry the gateway name.
func SentryScopeMiddleware(c *gin.Context) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("route", c.FullPath())
			scope.SetTag("request_id", types.GetRequestID(c.Request.Context()))
			if gateway := c.Param("gateway"); gateway != "" {
				scope.SetTag("gateway", gateway)
			}
		})
	}
	c.Next()
}
