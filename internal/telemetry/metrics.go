// Package telemetry exports session activity as Prometheus metrics.
//
// Metrics is a session.Observer: the controller reports every event and the
// collectors are updated in place. Each Metrics owns its registry, so tests and
// multiple consoles never collide on the global default registry.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"quantumbreach/internal/session"
)

const metricsNamespace = "quantum_breach"

// Metrics holds all collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	// ChallengesTotal counts breach attempts by difficulty and result.
	// Labels: difficulty, result (opened, succeeded, failed, cancelled, aborted)
	ChallengesTotal *prometheus.CounterVec

	// StageClearsTotal counts intermediate stages cleared.
	// Labels: difficulty
	StageClearsTotal *prometheus.CounterVec

	// BonusSecondsTotal sums time granted by stage clears.
	BonusSecondsTotal prometheus.Counter

	// PayloadFallbacksTotal counts challenges that used the fallback table.
	PayloadFallbacksTotal prometheus.Counter

	// GamesTotal counts finished sessions.
	// Labels: difficulty, outcome (VICTORY, DEFEAT)
	GamesTotal *prometheus.CounterVec

	// DetectionLevel is the latest meter value.
	DetectionLevel prometheus.Gauge

	// TargetsCompromised is the number of nodes taken in the current session.
	TargetsCompromised prometheus.Gauge

	// NodesSuppressed is the number of suppressed nodes in the current session.
	NodesSuppressed prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ChallengesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "challenge",
				Name:      "total",
				Help:      "Breach attempts by difficulty and result",
			},
			[]string{"difficulty", "result"},
		),

		StageClearsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "challenge",
				Name:      "stage_clears_total",
				Help:      "Intermediate stages cleared",
			},
			[]string{"difficulty"},
		),

		BonusSecondsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "challenge",
			Name:      "bonus_seconds_total",
			Help:      "Time granted by stage clears",
		}),

		PayloadFallbacksTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "payload",
			Name:      "fallbacks_total",
			Help:      "Challenges that used the fallback stage table",
		}),

		GamesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "session",
				Name:      "games_total",
				Help:      "Finished sessions by difficulty and outcome",
			},
			[]string{"difficulty", "outcome"},
		),

		DetectionLevel: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "detection_level",
			Help:      "Current detection meter value (0-100)",
		}),

		TargetsCompromised: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "targets_compromised",
			Help:      "Nodes compromised in the current session",
		}),

		NodesSuppressed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "nodes_suppressed",
			Help:      "Suppressed nodes in the current session",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe implements session.Observer.
func (m *Metrics) Observe(e session.Event) {
	diff := e.Difficulty.String()
	m.DetectionLevel.Set(e.Detection)

	switch e.Kind {
	case session.EventChallengeReady:
		m.ChallengesTotal.WithLabelValues(diff, "opened").Inc()
		if e.FromFallback {
			m.PayloadFallbacksTotal.Inc()
		}
	case session.EventStageCleared:
		m.StageClearsTotal.WithLabelValues(diff).Inc()
		m.BonusSecondsTotal.Add(float64(e.Bonus))
	case session.EventChallengeSucceeded:
		m.ChallengesTotal.WithLabelValues(diff, "succeeded").Inc()
		m.TargetsCompromised.Inc()
	case session.EventChallengeFailed:
		m.ChallengesTotal.WithLabelValues(diff, "failed").Inc()
	case session.EventChallengeCancelled:
		m.ChallengesTotal.WithLabelValues(diff, "cancelled").Inc()
	case session.EventChallengeAborted:
		m.ChallengesTotal.WithLabelValues(diff, "aborted").Inc()
	case session.EventSuppressionToggled:
		if e.Suppressed {
			m.NodesSuppressed.Inc()
		} else {
			m.NodesSuppressed.Dec()
		}
	case session.EventGameOver:
		m.GamesTotal.WithLabelValues(diff, e.Outcome.String()).Inc()
	case session.EventReset:
		m.TargetsCompromised.Set(0)
		m.NodesSuppressed.Set(0)
	}
}
