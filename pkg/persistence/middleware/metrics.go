package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/ports"
)

type metricsMiddleware struct {
	next     ports.SnapshotStore
	duration *prometheus.HistogramVec
}

// NewMetricsMiddleware records the latency and outcome of every store
// operation in seltree_store_operation_seconds{op,result}. result is ok,
// not_found or error.
func NewMetricsMiddleware(reg prometheus.Registerer) (Middleware, error) {
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "seltree",
			Subsystem: "store",
			Name:      "operation_seconds",
			Help:      "Latency of snapshot store operations",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"op", "result"},
	)
	if reg != nil {
		if err := reg.Register(duration); err != nil {
			return nil, err
		}
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &metricsMiddleware{next: next, duration: duration}
	}, nil
}

func (m *metricsMiddleware) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	m.duration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

func (m *metricsMiddleware) Save(ctx context.Context, agentID string, snap *domain.Snapshot) error {
	start := time.Now()
	err := m.next.Save(ctx, agentID, snap)
	m.observe("save", start, err)
	return err
}

func (m *metricsMiddleware) Load(ctx context.Context, agentID string) (*domain.Snapshot, error) {
	start := time.Now()
	snap, err := m.next.Load(ctx, agentID)
	m.observe("load", start, err)
	return snap, err
}

func (m *metricsMiddleware) Delete(ctx context.Context, agentID string) error {
	start := time.Now()
	err := m.next.Delete(ctx, agentID)
	m.observe("delete", start, err)
	return err
}

func (m *metricsMiddleware) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.next.List(ctx)
	m.observe("list", start, err)
	return ids, err
}
