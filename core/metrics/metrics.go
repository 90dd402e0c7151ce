// Package metrics declares the backend-neutral instrumentation port used
// by the cache. Backends such as adapters/prometheus implement the
// per-component metric interfaces on top of it.
package metrics

// Timer records the time elapsed since it was started.
type Timer interface {
	ObserveDuration()
}

// TimerFunc starts a Timer:
//
//	defer m.SweepDuration().ObserveDuration()
type TimerFunc func() Timer
