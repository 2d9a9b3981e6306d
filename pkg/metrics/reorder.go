package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReorderMetrics counts trigger lifecycle transitions by type and outcome.
type ReorderMetrics struct {
	triggersCreated  *prometheus.CounterVec
	triggersResolved *prometheus.CounterVec
}

// NewReorderMetrics registers the reorder pipeline metrics.
func NewReorderMetrics(reg prometheus.Registerer) *ReorderMetrics {
	if reg == nil {
		return &ReorderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reorder_triggers_created_total",
		Help: "Reorder triggers enqueued, by trigger type.",
	}, []string{"trigger_type"})
	resolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reorder_triggers_resolved_total",
		Help: "Reorder triggers resolved, by terminal status.",
	}, []string{"status"})
	reg.MustRegister(created, resolved)
	return &ReorderMetrics{
		triggersCreated:  created,
		triggersResolved: resolved,
	}
}

// IncTriggerCreated counts a newly enqueued trigger.
func (r *ReorderMetrics) IncTriggerCreated(triggerType string) {
	if r == nil || r.triggersCreated == nil {
		return
	}
	r.triggersCreated.WithLabelValues(normalizeLabel(triggerType)).Inc()
}

// IncTriggerResolved counts a trigger reaching a terminal status.
func (r *ReorderMetrics) IncTriggerResolved(status string) {
	if r == nil || r.triggersResolved == nil {
		return
	}
	r.triggersResolved.WithLabelValues(normalizeLabel(status)).Inc()
}
