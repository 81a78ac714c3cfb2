package lake

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "statelake"
	lakeSubsystem    = "lake"
)

// Metrics holds the Prometheus collectors for lake activity. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	WritesTotal          *prometheus.CounterVec
	RejectedTotal        *prometheus.CounterVec
	NotificationsTotal   prometheus.Counter
	MaterializedTotal    prometheus.Counter
	DetachedTotal        prometheus.Counter
	ChangedBranchesPerOp prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// Pass nil to create unregistered collectors.
//
// Collectors already registered on reg by an earlier call are reused, so
// lakes sharing a registry add to the same series.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		WritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: lakeSubsystem,
			Name:      "writes_total",
			Help:      "Total writes by kind (noop, local, in_place, structural)",
		}, []string{"kind"}),
		RejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: lakeSubsystem,
			Name:      "rejected_writes_total",
			Help:      "Total rejected writes by error code",
		}, []string{"code"}),
		NotificationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: lakeSubsystem,
			Name:      "notifications_total",
			Help:      "Total observer callbacks delivered",
		}),
		MaterializedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: lakeSubsystem,
			Name:      "branches_materialized_total",
			Help:      "Total branches created by path resolution",
		}),
		DetachedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: lakeSubsystem,
			Name:      "branches_detached_total",
			Help:      "Total branches detached from their parent",
		}),
		ChangedBranchesPerOp: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: lakeSubsystem,
			Name:      "changed_branches_per_write",
			Help:      "Number of branches whose state a single write applied",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		}),
	}

	if reg == nil {
		return m, nil
	}
	var err error
	if m.WritesTotal, err = register(reg, m.WritesTotal); err != nil {
		return nil, err
	}
	if m.RejectedTotal, err = register(reg, m.RejectedTotal); err != nil {
		return nil, err
	}
	if m.NotificationsTotal, err = register(reg, m.NotificationsTotal); err != nil {
		return nil, err
	}
	if m.MaterializedTotal, err = register(reg, m.MaterializedTotal); err != nil {
		return nil, err
	}
	if m.DetachedTotal, err = register(reg, m.DetachedTotal); err != nil {
		return nil, err
	}
	if m.ChangedBranchesPerOp, err = register(reg, m.ChangedBranchesPerOp); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, or returns the equivalent collector reg already has.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("failed to register lake metrics: %w", err)
	}
	existing, ok := are.ExistingCollector.(C)
	if !ok {
		return c, fmt.Errorf("failed to register lake metrics: existing collector is %T", are.ExistingCollector)
	}
	return existing, nil
}

func (m *Metrics) writeApplied(tx *writeTx) {
	if m == nil {
		return
	}
	m.WritesTotal.WithLabelValues(string(tx.kind)).Inc()
	m.NotificationsTotal.Add(float64(len(tx.deliveries)))
	m.ChangedBranchesPerOp.Observe(float64(len(tx.changed)))
}

func (m *Metrics) writeRejected(err error) {
	if m == nil {
		return
	}
	code := "unknown"
	switch {
	case IsNotContainer(err):
		code = string(ErrCodeNotContainer)
	case IsUpdaterFailed(err):
		code = string(ErrCodeUpdaterFailed)
	}
	m.RejectedTotal.WithLabelValues(code).Inc()
}

func (m *Metrics) branchMaterialized() {
	if m == nil {
		return
	}
	m.MaterializedTotal.Inc()
}

func (m *Metrics) branchDetached() {
	if m == nil {
		return
	}
	m.DetachedTotal.Inc()
}
