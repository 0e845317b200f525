package metrics

import (
	"github.com/Layr-Labs/eigensdk-go/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MigrationRecorder is what the migration engine reports to.
type MigrationRecorder interface {
	IncMigration(migrationType, status string)
	IncBatch(target, status string)
	ObserveBatchDuration(target string, seconds float64)
}

type MetricsGenerator interface {
	metrics.Metrics
	MigrationRecorder
}

// MigratorMetrics contains the migration metrics, served through the eigen
// metrics endpoint.
type MigratorMetrics struct {
	metrics.Metrics

	migrationsExecuted *prometheus.CounterVec
	batches            *prometheus.CounterVec
	batchDuration      *prometheus.HistogramVec
}

const bmNamespace = "bm"

func NewMigratorMetrics(eigenMetrics *metrics.EigenMetrics, reg prometheus.Registerer) *MigratorMetrics {
	return &MigratorMetrics{
		Metrics: eigenMetrics,

		migrationsExecuted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: bmNamespace,
				Name:      "migrations_executed_total",
				Help:      "The number of migrations executed, by type and outcome",
			}, []string{"type", "status"}),

		batches: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: bmNamespace,
				Name:      "migration_batches_total",
				Help:      "The number of migration batches run for bots and core",
			}, []string{"target", "status"}),

		batchDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: bmNamespace,
				Name:      "migration_batch_duration_seconds",
				Help:      "Time spent running a migration batch",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			}, []string{"target"}),
	}
}

func (m *MigratorMetrics) IncMigration(migrationType, status string) {
	m.migrationsExecuted.WithLabelValues(migrationType, status).Inc()
}

func (m *MigratorMetrics) IncBatch(target, status string) {
	m.batches.WithLabelValues(target, status).Inc()
}

func (m *MigratorMetrics) ObserveBatchDuration(target string, seconds float64) {
	m.batchDuration.WithLabelValues(target).Observe(seconds)
}

// Noop discards everything, used when metrics are disabled and in tests.
type Noop struct{}

func (Noop) IncMigration(string, string)           {}
func (Noop) IncBatch(string, string)               {}
func (Noop) ObserveBatchDuration(string, float64) {}
