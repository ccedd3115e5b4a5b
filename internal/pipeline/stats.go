package pipeline

// counters is the control-context tally behind Stats.
type counters struct {
	FramesStarted         uint64
	FramesSubmitted       uint64
	FramesEmpty           uint64
	FramesCompleted       uint64
	RendersDropped        uint64
	InvalidationsDeferred uint64
	InvalidationsDrained  uint64
	Violations            uint64
}

// Stats is a point-in-time snapshot of the controller.
type Stats struct {
	// Depth counts frames begun but not yet completed.
	// Invariant: 0 <= Depth <= MaxPipelineDepth.
	Depth int

	// SceneVersion is the most recent version seen from the host.
	SceneVersion uint64

	// DeferredPending is true while an unacknowledged invalidation is parked
	// in the deferred slot (only possible at saturation).
	DeferredPending bool

	// InvalidationPending is true while a schedule-frame request is
	// outstanding with the host.
	InvalidationPending bool

	FramesStarted         uint64
	FramesSubmitted       uint64
	FramesEmpty           uint64
	FramesCompleted       uint64
	RendersDropped        uint64
	InvalidationsDeferred uint64
	InvalidationsDrained  uint64
	Violations            uint64
}

func (c *Controller) snapshot() Stats {
	return Stats{
		Depth:                 c.depth,
		SceneVersion:          c.sceneVersion,
		DeferredPending:       c.deferred != nil,
		InvalidationPending:   c.pending,
		FramesStarted:         c.counters.FramesStarted,
		FramesSubmitted:       c.counters.FramesSubmitted,
		FramesEmpty:           c.counters.FramesEmpty,
		FramesCompleted:       c.counters.FramesCompleted,
		RendersDropped:        c.counters.RendersDropped,
		InvalidationsDeferred: c.counters.InvalidationsDeferred,
		InvalidationsDrained:  c.counters.InvalidationsDrained,
		Violations:            c.counters.Violations,
	}
}
