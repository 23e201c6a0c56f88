package macpp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Proposal outcomes used as the "outcome" label.
const (
	outcomeAccepted    = "accepted"
	outcomeRejected    = "rejected"
	outcomeNonPositive = "non_positive"
)

// Metrics are chain progress counters. A batch run typically exports them
// once at the end with prometheus.WriteToTextfile.
type Metrics struct {
	Iterations        prometheus.Counter
	Proposals         *prometheus.CounterVec
	Bandwidth         *prometheus.GaugeVec
	CheckpointFlushes prometheus.Counter
	CheckpointRows    prometheus.Counter
}

// NewMetrics registers the chain metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Iterations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "macpp",
			Name:      "iterations_total",
			Help:      "MCMC iterations completed.",
		}),
		Proposals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "macpp",
			Name:      "bandwidth_proposals_total",
			Help:      "Metropolis bandwidth proposals by offspring type and outcome.",
		}, []string{"offspring", "outcome"}),
		Bandwidth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "macpp",
			Name:      "bandwidth",
			Help:      "Current bandwidth per offspring type.",
		}, []string{"offspring"}),
		CheckpointFlushes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "macpp",
			Name:      "checkpoint_flushes_total",
			Help:      "Checkpoint buffer flushes.",
		}),
		CheckpointRows: f.NewCounter(prometheus.CounterOpts{
			Namespace: "macpp",
			Name:      "checkpoint_rows_total",
			Help:      "Rows written to the checkpoint sink.",
		}),
	}
}
