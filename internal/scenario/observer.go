package scenario

// Observer receives synchronous callbacks from a Scenario for tracing and
// metrics. Implementations must be fast and must not mutate the scenario:
// callbacks may fire in the middle of a graph walk.
type Observer interface {
	OnIntervalStarted(itv *TimeInterval)
	OnIntervalStopped(itv *TimeInterval)

	// OnComponentReset is called once per ResetComponent with the number of
	// syncs reset and of running intervals that were stopped.
	OnComponentReset(root SyncID, syncs, intervals int)

	// OnCleanup is called for every sync when the scenario is closed, so an
	// externally attached execution component can be released.
	OnCleanup(sync *TimeSync)
}

// NoopObserver is the default Observer.
type NoopObserver struct{}

func (NoopObserver) OnIntervalStarted(*TimeInterval)   {}
func (NoopObserver) OnIntervalStopped(*TimeInterval)   {}
func (NoopObserver) OnComponentReset(SyncID, int, int) {}
func (NoopObserver) OnCleanup(*TimeSync)               {}

// CompositeObserver fans out callbacks to several observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver forwards to every non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnIntervalStarted(itv *TimeInterval) {
	for _, o := range c.observers {
		o.OnIntervalStarted(itv)
	}
}

func (c *CompositeObserver) OnIntervalStopped(itv *TimeInterval) {
	for _, o := range c.observers {
		o.OnIntervalStopped(itv)
	}
}

func (c *CompositeObserver) OnComponentReset(root SyncID, syncs, intervals int) {
	for _, o := range c.observers {
		o.OnComponentReset(root, syncs, intervals)
	}
}

func (c *CompositeObserver) OnCleanup(sync *TimeSync) {
	for _, o := range c.observers {
		o.OnCleanup(sync)
	}
}
