// Package httpapi exposes the supervisor's own observability surface
// (health and metrics) over HTTP, using gin for the mux the way the
// teacher's internal/server package does for its management API.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haribo256/process-orchestrator/internal/engine"
	"github.com/haribo256/process-orchestrator/internal/metrics"
)

// NewHandler returns an http.Handler serving:
//
//	GET /healthz  -> 200 with live process count once the engine has run
//	GET /metrics  -> Prometheus exposition format
//
// It never touches engine internals beyond LiveCount, so it is safe to
// mount regardless of whether metrics.Register was ever called; /metrics
// simply reports whatever the default gatherer currently holds.
func NewHandler(eng *engine.Engine) http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())

	g.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "live_processes": eng.LiveCount()})
	})
	g.GET("/metrics", gin.WrapH(metrics.Handler()))

	return g
}
