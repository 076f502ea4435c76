// Package monitoring tracks ingest and query counters in-process and
// exposes them over Prometheus text exposition and a JSON health endpoint.
// It carries no Prometheus client dependency by design — see DESIGN.md for
// why the teacher's own hand-rolled collector and exporter are kept rather
// than swapped for prometheus/client_golang.
package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

// Metric represents a single metric
type Metric struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Value       float64           `json:"value"`
	Labels      map[string]string `json:"labels,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Description string            `json:"description,omitempty"`
}

// latencyBucketsMS tiers query durations. The tiers below the
// 1s mark follow roughly the same expanding ratio as the Boundary Finder's
// own probe schedule (internal/boundary's 5/15/30/60 schedule) since both
// are measuring the cost of widening a SQLite scan; above 1s the query path
// is already in "this is slow" territory so the tiers coarsen.
var latencyBucketsMS = []float64{5, 15, 30, 60, 120, 250, 500, 1000, 2500, 5000}

// MetricsCollector collects and manages metrics
type MetricsCollector struct {
	mu           sync.RWMutex
	counters     map[string]*int64
	gauges       map[string]*float64
	histograms   map[string]*Histogram
	descriptions map[string]string

	// Each rate is tracked over a window sized to how bursty its signal
	// is. Ingestion and query volume are steady traffic, so a one-second
	// bucket over a one-minute window tracks them responsively. Drops
	// happen in short bursts when the ingest queue briefly saturates, so
	// they're tracked over a coarser, longer window — a one-second
	// bucketing would make the rate spike to its max and back within a
	// couple of samples, which is noisy for an alert condition to key off.
	ingestionRate *RateCounter
	queryRate     *RateCounter
	dropRate      *RateCounter
}

// Histogram tracks distribution of values
type Histogram struct {
	mu      sync.Mutex
	count   int64
	sum     float64
	min     float64
	max     float64
	buckets []float64
	values  []int64
}

// RateCounter tracks rate over time
type RateCounter struct {
	mu            sync.Mutex
	windowSize    time.Duration
	buckets       []int64
	bucketTime    time.Duration
	currentBucket int
	lastUpdate    time.Time
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:      make(map[string]*int64),
		gauges:        make(map[string]*float64),
		histograms:    make(map[string]*Histogram),
		descriptions:  make(map[string]string),
		ingestionRate: NewRateCounter(time.Minute, time.Second),
		queryRate:     NewRateCounter(time.Minute, time.Second),
		dropRate:      NewRateCounter(5*time.Minute, 5*time.Second),
	}
}

// IncrementCounter increments a counter metric
func (m *MetricsCollector) IncrementCounter(name string, delta int64) {
	m.mu.Lock()
	counter, exists := m.counters[name]
	if !exists {
		var c int64
		m.counters[name] = &c
		counter = &c
	}
	m.mu.Unlock()

	atomic.AddInt64(counter, delta)
}

// SetGauge sets a gauge metric value
func (m *MetricsCollector) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gauges[name]; !exists {
		m.gauges[name] = new(float64)
	}
	*m.gauges[name] = value
}

// RecordHistogram records a value in a histogram, against the shared
// latency-tier buckets (see latencyBucketsMS) — every histogram this
// collector tracks is a duration in milliseconds.
func (m *MetricsCollector) RecordHistogram(name string, value float64) {
	m.mu.Lock()
	hist, exists := m.histograms[name]
	if !exists {
		hist = NewHistogram(latencyBucketsMS)
		m.histograms[name] = hist
	}
	m.mu.Unlock()

	hist.Record(value)
}

// SetDescription sets description for a metric
func (m *MetricsCollector) SetDescription(name string, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.descriptions[name] = description
}

// GetMetrics returns all current metrics
func (m *MetricsCollector) GetMetrics() []Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var metrics []Metric
	timestamp := time.Now()

	for name, counter := range m.counters {
		value := atomic.LoadInt64(counter)
		metrics = append(metrics, Metric{
			Name:        name,
			Type:        string(MetricTypeCounter),
			Value:       float64(value),
			Timestamp:   timestamp,
			Description: m.descriptions[name],
		})
	}

	for name, gauge := range m.gauges {
		metrics = append(metrics, Metric{
			Name:        name,
			Type:        string(MetricTypeGauge),
			Value:       *gauge,
			Timestamp:   timestamp,
			Description: m.descriptions[name],
		})
	}

	for name, hist := range m.histograms {
		stats := hist.GetStats()
		for statName, value := range stats {
			metrics = append(metrics, Metric{
				Name:        name + "_" + statName,
				Type:        string(MetricTypeGauge),
				Value:       value,
				Timestamp:   timestamp,
				Description: m.descriptions[name],
			})
		}
	}

	metrics = append(metrics,
		Metric{
			Name:        "ingestion_rate_per_second",
			Type:        string(MetricTypeGauge),
			Value:       m.ingestionRate.GetRate(),
			Timestamp:   timestamp,
			Description: "Rate of syslog records committed to a partition, per second",
		},
		Metric{
			Name:        "query_rate_per_second",
			Type:        string(MetricTypeGauge),
			Value:       m.queryRate.GetRate(),
			Timestamp:   timestamp,
			Description: "Rate of search requests executed, per second",
		},
		Metric{
			Name:        "drop_rate_per_second",
			Type:        string(MetricTypeGauge),
			Value:       m.dropRate.GetRate(),
			Timestamp:   timestamp,
			Description: "Rate of datagrams dropped because the ingest queue was full, per second, averaged over 5 minutes",
		},
	)

	return metrics
}

// RecordIngestion records one batch-writer commit: count records landed in
// a partition table. Driven by an IngestMetricsListener hung off the batch
// writer's FlushListener hook, so every real commit is reflected here.
func (m *MetricsCollector) RecordIngestion(count int) {
	m.IncrementCounter("total_logs_ingested", int64(count))
	m.ingestionRate.Increment(count)
}

// RecordQuery records a query execution
func (m *MetricsCollector) RecordQuery(duration time.Duration) {
	m.IncrementCounter("total_queries_executed", 1)
	m.RecordHistogram("query_duration_ms", float64(duration.Milliseconds()))
	m.queryRate.Increment(1)
}

// RecordDrops records n datagrams dropped by the UDP Receiver because the
// ingest queue was full (spec.md §4.6). n may be a batched delta rather
// than 1 at a time — the receiver only exposes a running total, so the
// caller reports the increase since it last sampled.
func (m *MetricsCollector) RecordDrops(n int64) {
	if n <= 0 {
		return
	}
	m.IncrementCounter("datagrams_dropped", n)
	m.dropRate.Increment(int(n))
}

// RecordQueueDepth records the ingest queue's current length, sampled
// periodically by the caller.
func (m *MetricsCollector) RecordQueueDepth(depth int) {
	m.SetGauge("queue_depth", float64(depth))
}

// NewHistogram creates a new histogram
func NewHistogram(buckets []float64) *Histogram {
	return &Histogram{
		buckets: buckets,
		values:  make([]int64, len(buckets)+1),
		min:     1e9,
		max:     -1e9,
	}
}

// Record records a value in the histogram
func (h *Histogram) Record(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.count++
	h.sum += value

	if value < h.min {
		h.min = value
	}
	if value > h.max {
		h.max = value
	}

	bucketIndex := len(h.buckets)
	for i, threshold := range h.buckets {
		if value <= threshold {
			bucketIndex = i
			break
		}
	}
	h.values[bucketIndex]++
}

// GetStats returns histogram statistics, including the p50, p95 and p99
// percentiles. alerts.go's slow_boundary_probes rule and the query-runner
// health checker both key off p99.
func (h *Histogram) GetStats() map[string]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return map[string]float64{
			"count": 0, "sum": 0, "avg": 0, "min": 0, "max": 0,
			"p50": 0, "p95": 0, "p99": 0,
		}
	}

	return map[string]float64{
		"count": float64(h.count),
		"sum":   h.sum,
		"avg":   h.sum / float64(h.count),
		"min":   h.min,
		"max":   h.max,
		"p50":   h.getPercentile(0.5),
		"p95":   h.getPercentile(0.95),
		"p99":   h.getPercentile(0.99),
	}
}

func (h *Histogram) getPercentile(p float64) float64 {
	target := int64(float64(h.count) * p)
	cumulative := int64(0)

	for i, count := range h.values {
		cumulative += count
		if cumulative >= target {
			if i < len(h.buckets) {
				return h.buckets[i]
			}
			return h.max
		}
	}

	return h.max
}

// NewRateCounter creates a new rate counter
func NewRateCounter(windowSize, bucketTime time.Duration) *RateCounter {
	numBuckets := int(windowSize / bucketTime)
	return &RateCounter{
		windowSize: windowSize,
		buckets:    make([]int64, numBuckets),
		bucketTime: bucketTime,
		lastUpdate: time.Now(),
	}
}

// Increment increments the counter
func (r *RateCounter) Increment(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rotateBuckets()
	r.buckets[r.currentBucket] += int64(count)
}

// GetRate returns the current rate per second
func (r *RateCounter) GetRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rotateBuckets()

	sum := int64(0)
	for _, count := range r.buckets {
		sum += count
	}

	return float64(sum) / r.windowSize.Seconds()
}

func (r *RateCounter) rotateBuckets() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate)

	bucketsToRotate := int(elapsed / r.bucketTime)
	if bucketsToRotate > 0 {
		if bucketsToRotate >= len(r.buckets) {
			for i := range r.buckets {
				r.buckets[i] = 0
			}
			r.currentBucket = 0
		} else {
			for i := 0; i < bucketsToRotate; i++ {
				r.currentBucket = (r.currentBucket + 1) % len(r.buckets)
				r.buckets[r.currentBucket] = 0
			}
		}
		r.lastUpdate = now
	}
}
