// Package metrics exports episode telemetry to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wricardo/shapegrid/game/engine"
)

const namespace = "shapegrid"

// Recorder implements service.Recorder with Prometheus collectors.
type Recorder struct {
	steps          *prometheus.CounterVec
	terminations   *prometheus.CounterVec
	rewards        *prometheus.HistogramVec
	resets         *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Total number of agent steps by outcome",
			},
			[]string{"config", "outcome"},
		),
		terminations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "episodes_ended_total",
				Help:      "Episodes that ended, by reason",
			},
			[]string{"config", "reason"},
		),
		rewards: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "episode_reward",
				Help:      "Reward of the final step of each episode",
				Buckets:   []float64{-1, -0.5, 0, 0.25, 0.5, 0.75, 0.9, 1},
			},
			[]string{"config"},
		),
		resets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "episode_resets_total",
				Help:      "Total number of episode resets",
			},
			[]string{"config"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Sessions currently held by the server",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(r.steps, r.terminations, r.rewards, r.resets, r.activeSessions)
	}
	return r
}

func (r *Recorder) SessionCreated(configID string) {
	r.activeSessions.Inc()
}

func (r *Recorder) SessionDeleted(configID string) {
	r.activeSessions.Dec()
}

// SetActiveSessions overwrites the gauge, e.g. after loading stored sessions.
func (r *Recorder) SetActiveSessions(n int) {
	r.activeSessions.Set(float64(n))
}

func (r *Recorder) StepTaken(configID string, result engine.StepResult) {
	r.steps.WithLabelValues(configID, string(result.Outcome)).Inc()
	if !result.Done() {
		return
	}

	reason := "truncated"
	if result.Terminated {
		reason = string(result.Outcome)
	}
	r.terminations.WithLabelValues(configID, reason).Inc()
	r.rewards.WithLabelValues(configID).Observe(result.Reward)
}

func (r *Recorder) EpisodeReset(configID string) {
	r.resets.WithLabelValues(configID).Inc()
}
