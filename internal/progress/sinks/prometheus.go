package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nichelabs/discovery-engine/internal/progress"
)

// PrometheusSink exports discovery progress metrics via Prometheus. It owns
// all collectors for sessions started/completed/running and per-session grid
// and import counters.
type PrometheusSink struct {
	sessionsStarted   prometheus.Counter
	sessionsCompleted *prometheus.CounterVec
	sessionsRunning   prometheus.Gauge
	sessionRuntime    *prometheus.HistogramVec

	gridsCompleted *prometheus.CounterVec
	gridDuration   prometheus.Histogram
	found          prometheus.Gauge
	imported       prometheus.Gauge
	etaSeconds     prometheus.Gauge

	tracker *sessionTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "discovery_sessions_started_total",
			Help: "Total discovery sessions that have started or resumed.",
		}),
		sessionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "discovery_sessions_completed_total",
			Help: "Total sessions finished partitioned by result.",
		}, []string{"result"}),
		sessionsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discovery_sessions_running",
			Help: "Current number of running sessions.",
		}),
		sessionRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "discovery_session_runtime_seconds",
			Help:    "Wall time per finished session.",
			Buckets: []float64{30, 60, 300, 600, 1800, 3600, 7200, 14400},
		}, []string{"result"}),
		gridsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "discovery_grids_completed_total",
			Help: "Grid searches finished partitioned by result.",
		}, []string{"result"}),
		gridDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "discovery_grid_duration_seconds",
			Help:    "Search duration per grid.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		found: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discovery_businesses_found",
			Help: "Businesses found by the most recently reporting session.",
		}),
		imported: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discovery_businesses_imported",
			Help: "Businesses imported by the most recently reporting session.",
		}),
		etaSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discovery_session_eta_seconds",
			Help: "Projected remaining runtime of the reporting session.",
		}),
		tracker: newSessionTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.sessionsStarted,
		s.sessionsCompleted,
		s.sessionsRunning,
		s.sessionRuntime,
		s.gridsCompleted,
		s.gridDuration,
		s.found,
		s.imported,
		s.etaSeconds,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageSessionStart, progress.StageSessionResume:
		s.sessionsStarted.Inc()
		if s.tracker.start(evt.SessionID) {
			s.sessionsRunning.Inc()
		}
	case progress.StageSessionPause:
		if s.tracker.complete(evt.SessionID) {
			s.sessionsRunning.Dec()
		}
	case progress.StageSessionDone:
		s.finishSession(evt, "success")
	case progress.StageSessionError:
		s.finishSession(evt, "error")
	case progress.StageGridDone:
		s.handleGridEvent(evt)
	}
}

func (s *PrometheusSink) finishSession(evt progress.Event, result string) {
	s.sessionsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.sessionRuntime.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
	if s.tracker.complete(evt.SessionID) {
		s.sessionsRunning.Dec()
	}
	s.etaSeconds.Set(0)
}

func (s *PrometheusSink) handleGridEvent(evt progress.Event) {
	result := "success"
	if evt.Note != "" {
		result = "error"
	}
	s.gridsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.gridDuration.Observe(evt.Dur.Seconds())
	}
	s.found.Set(float64(evt.Snapshot.Found))
	s.imported.Set(float64(evt.Snapshot.Imported))
	s.etaSeconds.Set(evt.Snapshot.ETA.Seconds())
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type sessionTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newSessionTracker() *sessionTracker {
	return &sessionTracker{running: make(map[[16]byte]struct{})}
}

func (t *sessionTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *sessionTracker) complete(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
