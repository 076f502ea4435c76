package monitoring

import (
	"fmt"
	"os"
	"path/filepath"
)

// PartitionHealthChecker checks that the directory holding the SQLite
// store file (one file with a table per month) is present and writable —
// the store-availability check for the search process. Its
// "partition_count" detail counts the *.sqlite3 files in that directory.
type PartitionHealthChecker struct {
	dir string
}

// NewPartitionHealthChecker creates a checker bound to the partition
// template's directory.
func NewPartitionHealthChecker(dir string) *PartitionHealthChecker {
	return &PartitionHealthChecker{dir: dir}
}

func (p *PartitionHealthChecker) Name() string { return "partitions" }

func (p *PartitionHealthChecker) Check() (*ComponentHealth, error) {
	health := &ComponentHealth{Name: p.Name(), Status: HealthStatusOK, Details: make(map[string]interface{})}

	info, err := os.Stat(p.dir)
	if err != nil {
		health.Status = HealthStatusDown
		return health, fmt.Errorf("partition directory not accessible: %w", err)
	}
	if !info.IsDir() {
		health.Status = HealthStatusDown
		return health, fmt.Errorf("partition path %s is not a directory", p.dir)
	}

	probe := filepath.Join(p.dir, ".health_check")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		health.Status = HealthStatusDown
		return health, fmt.Errorf("partition directory not writable: %w", err)
	}
	os.Remove(probe)

	matches, _ := filepath.Glob(filepath.Join(p.dir, "*.sqlite3"))
	health.Details["partition_count"] = len(matches)
	health.Details["dir"] = p.dir
	return health, nil
}

// QueueHealthChecker reports the ingest queue's current depth against its
// capacity, flagging a depth above 90% of capacity at check time as
// degraded — a queue
// that is consistently near capacity is dropping incoming datagrams per
// spec.md §4.6's resolved policy.
type QueueHealthChecker struct {
	depth    func() int
	capacity int
}

// NewQueueHealthChecker binds a checker to a depth accessor (typically
// ingestion.Queue.Len) and the queue's configured capacity.
func NewQueueHealthChecker(depth func() int, capacity int) *QueueHealthChecker {
	return &QueueHealthChecker{depth: depth, capacity: capacity}
}

func (q *QueueHealthChecker) Name() string { return "ingest_queue" }

func (q *QueueHealthChecker) Check() (*ComponentHealth, error) {
	health := &ComponentHealth{Name: q.Name(), Status: HealthStatusOK, Details: make(map[string]interface{})}

	depth := q.depth()
	health.Details["depth"] = depth
	health.Details["capacity"] = q.capacity

	if q.capacity > 0 && float64(depth)/float64(q.capacity) > 0.9 {
		health.Status = HealthStatusDegraded
		health.Message = "ingest queue is near capacity; datagrams may be dropping"
	}
	return health, nil
}

// IngestionHealthChecker checks log ingestion health
type IngestionHealthChecker struct {
	metrics *MetricsCollector
}

// NewIngestionHealthChecker creates a new ingestion health checker
func NewIngestionHealthChecker(metrics *MetricsCollector) *IngestionHealthChecker {
	return &IngestionHealthChecker{
		metrics: metrics,
	}
}

// Name returns the name of the checker
func (i *IngestionHealthChecker) Name() string {
	return "ingestion"
}

// Check performs the health check
func (i *IngestionHealthChecker) Check() (*ComponentHealth, error) {
	health := &ComponentHealth{
		Name:    i.Name(),
		Status:  HealthStatusOK,
		Details: make(map[string]interface{}),
	}

	metrics := i.metrics.GetMetrics()

	var ingestionRate, totalIngested, dropped float64
	for _, m := range metrics {
		switch m.Name {
		case "ingestion_rate_per_second":
			ingestionRate = m.Value
		case "total_logs_ingested":
			totalIngested = m.Value
		case "datagrams_dropped":
			dropped = m.Value
		}
	}

	health.Details["rate_per_second"] = ingestionRate
	health.Details["total_ingested"] = totalIngested
	health.Details["dropped"] = dropped

	if totalIngested == 0 {
		health.Status = HealthStatusDegraded
		health.Message = "no logs have been ingested"
	}

	return health, nil
}

// QueryEngineHealthChecker checks query engine health
type QueryEngineHealthChecker struct {
	metrics *MetricsCollector
}

// NewQueryEngineHealthChecker creates a new query engine health checker
func NewQueryEngineHealthChecker(metrics *MetricsCollector) *QueryEngineHealthChecker {
	return &QueryEngineHealthChecker{
		metrics: metrics,
	}
}

// Name returns the name of the checker
func (q *QueryEngineHealthChecker) Name() string {
	return "query_runner"
}

// Check performs the health check
func (q *QueryEngineHealthChecker) Check() (*ComponentHealth, error) {
	health := &ComponentHealth{
		Name:    q.Name(),
		Status:  HealthStatusOK,
		Details: make(map[string]interface{}),
	}

	metrics := q.metrics.GetMetrics()

	var queryRate, avgDuration, p99Duration float64
	for _, m := range metrics {
		switch m.Name {
		case "query_rate_per_second":
			queryRate = m.Value
		case "query_duration_ms_avg":
			avgDuration = m.Value
		case "query_duration_ms_p99":
			p99Duration = m.Value
		}
	}

	health.Details["rate_per_second"] = queryRate
	health.Details["avg_duration_ms"] = avgDuration
	health.Details["p99_duration_ms"] = p99Duration

	if p99Duration > 5000 {
		health.Status = HealthStatusDegraded
		health.Message = "query performance is degraded"
	}

	return health, nil
}
