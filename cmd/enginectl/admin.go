package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/poitch/engine/internal/engine"
	"github.com/poitch/engine/internal/observability"
)

// newAdminRouter serves the operational surface: health, a stats snapshot,
// and the Prometheus scrape endpoint.
func newAdminRouter(node string, eng *engine.Engine, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log))
	r.Use(observability.RequestMetricsMiddleware(node))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "node": node})
	})

	r.GET("/status", func(c *gin.Context) {
		st := eng.Stats()
		c.JSON(http.StatusOK, gin.H{
			"app": st.App,
			"pipeline": gin.H{
				"depth":                  st.Pipeline.Depth,
				"scene_version":          st.Pipeline.SceneVersion,
				"deferred_pending":       st.Pipeline.DeferredPending,
				"invalidation_pending":   st.Pipeline.InvalidationPending,
				"frames_started":         st.Pipeline.FramesStarted,
				"frames_submitted":       st.Pipeline.FramesSubmitted,
				"frames_empty":           st.Pipeline.FramesEmpty,
				"frames_completed":       st.Pipeline.FramesCompleted,
				"renders_dropped":        st.Pipeline.RendersDropped,
				"invalidations_deferred": st.Pipeline.InvalidationsDeferred,
				"invalidations_drained":  st.Pipeline.InvalidationsDrained,
				"violations":             st.Pipeline.Violations,
			},
			"rasterizer": gin.H{
				"frames_presented": st.Rasterizer.FramesPresented,
				"last_frame_size":  st.Rasterizer.LastFrameSize,
				"last_layer_count": st.Rasterizer.LastLayerCount,
			},
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
