package monitoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AlertSeverity represents the severity level of an alert
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus represents the status of an alert
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusResolved AlertStatus = "resolved"
)

// Alert represents a system alert
type Alert struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Severity    AlertSeverity `json:"severity"`
	Status      AlertStatus   `json:"status"`
	Message     string        `json:"message"`
	Source      string        `json:"source"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
	LastUpdated time.Time     `json:"last_updated"`
	Count       int           `json:"count"`
	Details     interface{}   `json:"details,omitempty"`
}

// AlertRule defines a rule for generating alerts
type AlertRule struct {
	Name        string
	Description string
	Severity    AlertSeverity
	Condition   func(metrics []Metric) (bool, string)
	Cooldown    time.Duration

	// MinConsecutiveBreaches suppresses a single sampled blip: the
	// condition must hold for this many consecutive CheckAlerts calls
	// before an alert is raised. Treated as 1 (fire on first breach) if
	// zero.
	MinConsecutiveBreaches int

	// EscalateAfter bumps an already-active alert to SeverityCritical
	// once its trigger Count reaches this value — a rule whose condition
	// keeps re-triggering is a sustained problem, not a blip, regardless
	// of the severity it started at. Zero disables escalation.
	EscalateAfter int
}

// AlertManager manages system alerts
type AlertManager struct {
	mu          sync.RWMutex
	alerts      map[string]*Alert
	rules       []AlertRule
	lastChecked map[string]time.Time
	consecutive map[string]int
	listeners   []AlertListener
	metrics     *MetricsCollector
}

// AlertListener interface for alert notifications
type AlertListener interface {
	OnAlert(alert *Alert)
}

// NewAlertManager creates a new alert manager
func NewAlertManager(metrics *MetricsCollector) *AlertManager {
	am := &AlertManager{
		alerts:      make(map[string]*Alert),
		rules:       make([]AlertRule, 0),
		lastChecked: make(map[string]time.Time),
		consecutive: make(map[string]int),
		metrics:     metrics,
	}

	am.registerDefaultRules()

	return am
}

// AddListener adds an alert listener
func (am *AlertManager) AddListener(listener AlertListener) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.listeners = append(am.listeners, listener)
}

// AddRule adds a custom alert rule
func (am *AlertManager) AddRule(rule AlertRule) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.rules = append(am.rules, rule)
}

// CheckAlerts evaluates all alert rules against the current metric
// snapshot, honoring each rule's consecutive-breach floor, cooldown, and
// escalation threshold.
func (am *AlertManager) CheckAlerts() {
	am.mu.Lock()
	defer am.mu.Unlock()

	metrics := am.metrics.GetMetrics()
	now := time.Now()

	for _, rule := range am.rules {
		triggered, message := rule.Condition(metrics)

		if !triggered {
			am.consecutive[rule.Name] = 0
			if existingAlert := am.findActiveAlert(rule.Name); existingAlert != nil {
				existingAlert.Status = AlertStatusResolved
				existingAlert.EndTime = &now
				existingAlert.LastUpdated = now
				am.notifyListeners(existingAlert)
			}
			continue
		}

		am.consecutive[rule.Name]++
		floor := rule.MinConsecutiveBreaches
		if floor < 1 {
			floor = 1
		}
		if am.consecutive[rule.Name] < floor {
			continue
		}

		if lastCheck, exists := am.lastChecked[rule.Name]; exists && now.Sub(lastCheck) < rule.Cooldown {
			continue
		}
		am.lastChecked[rule.Name] = now

		alertID := fmt.Sprintf("%s_%d", rule.Name, now.Unix())
		if existingAlert := am.findActiveAlert(rule.Name); existingAlert != nil {
			existingAlert.Count++
			existingAlert.LastUpdated = now
			existingAlert.Message = message
			if rule.EscalateAfter > 0 && existingAlert.Count >= rule.EscalateAfter && existingAlert.Severity != SeverityCritical {
				existingAlert.Severity = SeverityCritical
				existingAlert.Message = "sustained: " + message
				am.notifyListeners(existingAlert)
			}
		} else {
			alert := &Alert{
				ID:          alertID,
				Name:        rule.Name,
				Severity:    rule.Severity,
				Status:      AlertStatusActive,
				Message:     message,
				Source:      "syslogd",
				StartTime:   now,
				LastUpdated: now,
				Count:       1,
			}
			am.alerts[alertID] = alert
			am.notifyListeners(alert)
		}
	}
}

// GetActiveAlerts returns all active alerts
func (am *AlertManager) GetActiveAlerts() []*Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	var activeAlerts []*Alert
	for _, alert := range am.alerts {
		if alert.Status == AlertStatusActive {
			activeAlerts = append(activeAlerts, alert)
		}
	}

	return activeAlerts
}

// GetAllAlerts returns all alerts (active and resolved)
func (am *AlertManager) GetAllAlerts() []*Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	var allAlerts []*Alert
	for _, alert := range am.alerts {
		allAlerts = append(allAlerts, alert)
	}

	return allAlerts
}

func (am *AlertManager) findActiveAlert(name string) *Alert {
	for _, alert := range am.alerts {
		if alert.Name == name && alert.Status == AlertStatusActive {
			return alert
		}
	}
	return nil
}

func (am *AlertManager) notifyListeners(alert *Alert) {
	for _, listener := range am.listeners {
		go listener.OnAlert(alert)
	}
}

// registerDefaultRules registers the alert conditions that matter for a
// single-process UDP collector: a saturating ingest path and a query path
// that's started costing real probe time. Generic host-level rules the
// teacher carried (memory pressure, raw ingestion-rate ceilings) aren't
// reintroduced here — nothing in this collector's own operational model
// gives them a grounded threshold (see DESIGN.md).
func (am *AlertManager) registerDefaultRules() {
	am.AddRule(AlertRule{
		Name:                   "datagrams_dropping",
		Description:            "The ingest queue is full and incoming datagrams are being dropped",
		Severity:               SeverityCritical,
		Cooldown:               time.Minute,
		MinConsecutiveBreaches: 1,
		Condition: func(metrics []Metric) (bool, string) {
			for _, m := range metrics {
				if m.Name == "drop_rate_per_second" && m.Value > 0 {
					return true, fmt.Sprintf("dropping datagrams at %.1f/sec (5-minute average)", m.Value)
				}
			}
			return false, ""
		},
	})

	am.AddRule(AlertRule{
		Name:        "queue_near_capacity",
		Description: "The ingest queue is close to full",
		Severity:    SeverityWarning,
		Cooldown:    2 * time.Minute,
		// A single sampled spike crosses this every few seconds under
		// bursty traffic; require two consecutive samples so the alert
		// reflects sustained pressure, not one queued burst.
		MinConsecutiveBreaches: 2,
		// Repeated firing means the queue never drained back down —
		// that's worse than a warning.
		EscalateAfter: 5,
		Condition: func(metrics []Metric) (bool, string) {
			var depth, capacity float64
			for _, m := range metrics {
				switch m.Name {
				case "queue_depth":
					depth = m.Value
				case "queue_capacity":
					capacity = m.Value
				}
			}
			if capacity > 0 && depth/capacity > 0.9 {
				return true, fmt.Sprintf("ingest queue depth %.0f/%.0f (%.0f%% full)", depth, capacity, 100*depth/capacity)
			}
			return false, ""
		},
	})

	am.AddRule(AlertRule{
		Name:                   "slow_boundary_probes",
		Description:            "Search requests are spending too long narrowing a time window to an ID range",
		Severity:               SeverityWarning,
		Cooldown:               5 * time.Minute,
		MinConsecutiveBreaches: 2,
		Condition: func(metrics []Metric) (bool, string) {
			for _, m := range metrics {
				if m.Name == "query_duration_ms_p99" && m.Value > 5000 {
					return true, fmt.Sprintf("p99 search duration is %.0fms (threshold 5000ms)", m.Value)
				}
			}
			return false, ""
		},
	})

	am.AddRule(AlertRule{
		Name:        "ingest_stalled",
		Description: "No records have been committed to a partition recently",
		Severity:    SeverityInfo,
		Cooldown:    10 * time.Minute,
		// A cold-start process legitimately reports zero for a few
		// sampling ticks before the first datagram arrives; require
		// three consecutive zero-rate samples before treating it as a
		// real stall.
		MinConsecutiveBreaches: 3,
		Condition: func(metrics []Metric) (bool, string) {
			for _, m := range metrics {
				if m.Name == "ingestion_rate_per_second" && m.Value == 0 {
					return true, "no records committed in the last sampling window"
				}
			}
			return false, ""
		},
	})
}

// LogAlertListener forwards alert notifications to a zerolog logger at a
// level matched to the alert's severity.
type LogAlertListener struct {
	logger zerolog.Logger
}

// NewLogAlertListener creates a listener that logs through logger.
func NewLogAlertListener(logger zerolog.Logger) *LogAlertListener {
	return &LogAlertListener{logger: logger}
}

// OnAlert handles alert notifications
func (l *LogAlertListener) OnAlert(alert *Alert) {
	event := l.logger.Info()
	switch alert.Severity {
	case SeverityWarning:
		event = l.logger.Warn()
	case SeverityCritical:
		event = l.logger.Error()
	}
	event.Str("alert", alert.Name).Str("status", string(alert.Status)).Int("count", alert.Count).
		Msg(alert.Message)
}
