package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "engine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "engine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)

	pipelineDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "engine",
			Subsystem: "pipeline",
			Name:      "depth",
			Help:      "Frames begun but not yet completed.",
		},
	)
	framesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "engine",
			Subsystem: "pipeline",
			Name:      "frames_started_total",
			Help:      "Frames begun by the controller.",
		},
	)
	framesCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "engine",
			Subsystem: "pipeline",
			Name:      "frames_completed_total",
			Help:      "Frames completed, by outcome.",
		},
		[]string{"outcome"},
	)
	rendersDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "engine",
			Subsystem: "pipeline",
			Name:      "renders_dropped_total",
			Help:      "Scene submissions outside the ready-to-draw window.",
		},
	)
	invalidationsDeferred = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "engine",
			Subsystem: "pipeline",
			Name:      "invalidations_deferred_total",
			Help:      "Invalidations parked while the pipeline was saturated.",
		},
	)
	invalidationsDrained = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "engine",
			Subsystem: "pipeline",
			Name:      "invalidations_drained_total",
			Help:      "Deferred invalidations acknowledged after recovery.",
		},
	)
	pipelineViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "engine",
			Subsystem: "pipeline",
			Name:      "violations_total",
			Help:      "Pipeline protocol or precondition violations.",
		},
	)
	frameConstruction = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "engine",
			Subsystem: "pipeline",
			Name:      "frame_construction_seconds",
			Help:      "Time from frame begin to scene submission.",
			Buckets:   []float64{.001, .002, .004, .008, .016, .033, .066, .1, .25, .5},
		},
	)

	framesPresented = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "engine",
			Subsystem: "rasterizer",
			Name:      "frames_presented_total",
			Help:      "Scenes presented by the rendering backend.",
		},
	)
	drawDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "engine",
			Subsystem: "rasterizer",
			Name:      "draw_duration_seconds",
			Help:      "Backend draw duration in seconds.",
			Buckets:   []float64{.001, .002, .004, .008, .016, .033, .066, .1, .25, .5},
		},
	)

	platformMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "engine",
			Subsystem: "platform",
			Name:      "messages_total",
			Help:      "Platform messages dispatched, by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			pipelineDepth, framesStarted, framesCompleted, rendersDropped,
			invalidationsDeferred, invalidationsDrained, pipelineViolations,
			frameConstruction,
			framesPresented, drawDuration,
			platformMessages,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func SetPipelineDepth(depth int) {
	RegisterMetrics()
	pipelineDepth.Set(float64(depth))
}

func RecordFrameStarted() {
	RegisterMetrics()
	framesStarted.Inc()
}

// RecordFrameCompleted takes outcome "submitted" or "empty".
func RecordFrameCompleted(outcome string) {
	RegisterMetrics()
	framesCompleted.WithLabelValues(outcome).Inc()
}

func RecordRenderDropped() {
	RegisterMetrics()
	rendersDropped.Inc()
}

func RecordInvalidationDeferred() {
	RegisterMetrics()
	invalidationsDeferred.Inc()
}

func RecordInvalidationDrained() {
	RegisterMetrics()
	invalidationsDrained.Inc()
}

func RecordPipelineViolation() {
	RegisterMetrics()
	pipelineViolations.Inc()
}

func RecordFrameConstruction(d time.Duration) {
	RegisterMetrics()
	frameConstruction.Observe(d.Seconds())
}

func RecordFramePresented(d time.Duration) {
	RegisterMetrics()
	framesPresented.Inc()
	drawDuration.Observe(d.Seconds())
}

// RecordPlatformMessage takes outcome "handled", "unhandled" or "malformed".
func RecordPlatformMessage(channel, outcome string) {
	RegisterMetrics()
	platformMessages.WithLabelValues(channel, outcome).Inc()
}
