package monitoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Metrics struct {
	ScrapingRuns    int                      `json:"scraping_runs"`
	TotalPosts      int                      `json:"total_posts"`
	ProfileAttempts int                      `json:"profile_attempts"`
	ProfileFailures int                      `json:"profile_failures"`
	LastRun         time.Time                `json:"last_run"`
	LastRunID       string                   `json:"last_run_id"`
	AverageRunTime  time.Duration            `json:"average_run_time"`
	ErrorRate       float64                  `json:"error_rate"`
	ProfileMetrics  map[string]ProfileMetric `json:"profile_metrics"`
}

type ProfileMetric struct {
	PostsScraped   int           `json:"posts_scraped"`
	LastScraped    time.Time     `json:"last_scraped"`
	AverageRunTime time.Duration `json:"average_run_time"`
	ErrorCount     int           `json:"error_count"`
	LastError      string        `json:"last_error,omitempty"`
}

// Monitor keeps run metrics in a JSON file. It is safe for concurrent use.
type Monitor struct {
	mu          sync.Mutex
	metrics     *Metrics
	logger      *logrus.Logger
	metricsFile string
}

func NewMonitor(logger *logrus.Logger, metricsFile string) *Monitor {
	monitor := &Monitor{
		metrics: &Metrics{
			ProfileMetrics: make(map[string]ProfileMetric),
		},
		logger:      logger,
		metricsFile: metricsFile,
	}

	monitor.loadMetrics()
	return monitor
}

func (m *Monitor) RecordProfile(profileURL string, posts int, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.ProfileAttempts++
	metric := m.metrics.ProfileMetrics[profileURL]
	metric.PostsScraped += posts
	metric.LastScraped = time.Now()
	if err != nil {
		m.metrics.ProfileFailures++
		metric.ErrorCount++
		metric.LastError = err.Error()
	}
	if metric.AverageRunTime == 0 {
		metric.AverageRunTime = duration
	} else {
		metric.AverageRunTime = (metric.AverageRunTime + duration) / 2
	}
	m.metrics.ProfileMetrics[profileURL] = metric
	m.updateErrorRate()

	m.saveMetrics()
}

func (m *Monitor) RecordRun(runID string, profiles, failures, posts int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.ScrapingRuns++
	m.metrics.TotalPosts += posts
	m.metrics.LastRun = time.Now()
	m.metrics.LastRunID = runID

	if m.metrics.ScrapingRuns > 1 {
		m.metrics.AverageRunTime = (m.metrics.AverageRunTime + duration) / 2
	} else {
		m.metrics.AverageRunTime = duration
	}

	m.saveMetrics()

	m.logger.Infof("Recorded run %s: %d posts, %d/%d profiles failed, %v duration",
		runID, posts, failures, profiles, duration.Round(time.Millisecond))
}

func (m *Monitor) updateErrorRate() {
	if m.metrics.ProfileAttempts > 0 {
		m.metrics.ErrorRate = float64(m.metrics.ProfileFailures) / float64(m.metrics.ProfileAttempts) * 100
	}
}

// GetMetrics returns a copy of the current metrics.
func (m *Monitor) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := *m.metrics
	snapshot.ProfileMetrics = make(map[string]ProfileMetric, len(m.metrics.ProfileMetrics))
	for k, v := range m.metrics.ProfileMetrics {
		snapshot.ProfileMetrics[k] = v
	}
	return snapshot
}

func (m *Monitor) GetHealthStatus() map[string]interface{} {
	metrics := m.GetMetrics()

	status := map[string]interface{}{
		"status":          "healthy",
		"last_run":        metrics.LastRun.Format(time.RFC3339),
		"total_runs":      metrics.ScrapingRuns,
		"total_posts":     metrics.TotalPosts,
		"error_rate":      fmt.Sprintf("%.2f%%", metrics.ErrorRate),
		"average_runtime": metrics.AverageRunTime.String(),
	}

	if metrics.ScrapingRuns == 0 {
		status["status"] = "idle"
		return status
	}
	if time.Since(metrics.LastRun) > 24*time.Hour {
		status["status"] = "warning"
		status["warning"] = "No scraping runs in the last 24 hours"
	}
	if metrics.ErrorRate > 10 {
		status["status"] = "warning"
		status["warning"] = "High profile error rate detected"
	}

	return status
}

func (m *Monitor) GenerateReport() string {
	metrics := m.GetMetrics()

	var b strings.Builder
	fmt.Fprintf(&b, `
LinkedIn Scraper Monitoring Report
==================================
Generated: %s

Overall Statistics:
- Total Runs: %d
- Total Posts Scraped: %d
- Profile Attempts: %d
- Profile Failures: %d
- Error Rate: %.2f%%
- Average Run Time: %s
- Last Run: %s (%s)

Profile Performance:
`,
		time.Now().Format("2006-01-02 15:04:05"),
		metrics.ScrapingRuns,
		metrics.TotalPosts,
		metrics.ProfileAttempts,
		metrics.ProfileFailures,
		metrics.ErrorRate,
		metrics.AverageRunTime,
		metrics.LastRun.Format("2006-01-02 15:04:05"),
		metrics.LastRunID,
	)

	profiles := make([]string, 0, len(metrics.ProfileMetrics))
	for profile := range metrics.ProfileMetrics {
		profiles = append(profiles, profile)
	}
	sort.Strings(profiles)

	for _, profile := range profiles {
		metric := metrics.ProfileMetrics[profile]
		fmt.Fprintf(&b, `
- %s:
  Posts Scraped: %d
  Last Scraped: %s
  Average Runtime: %s
  Errors: %d
`,
			profile,
			metric.PostsScraped,
			metric.LastScraped.Format("2006-01-02 15:04:05"),
			metric.AverageRunTime,
			metric.ErrorCount,
		)
	}

	return b.String()
}

func (m *Monitor) loadMetrics() {
	if m.metricsFile == "" {
		return
	}
	if _, err := os.Stat(m.metricsFile); os.IsNotExist(err) {
		m.logger.Info("No existing metrics file found, starting fresh")
		return
	}

	data, err := os.ReadFile(m.metricsFile)
	if err != nil {
		m.logger.Warnf("Failed to read metrics file: %v", err)
		return
	}

	if err := json.Unmarshal(data, m.metrics); err != nil {
		m.logger.Warnf("Failed to parse metrics file: %v", err)
		return
	}
	if m.metrics.ProfileMetrics == nil {
		m.metrics.ProfileMetrics = make(map[string]ProfileMetric)
	}

	m.logger.Debug("Loaded existing metrics from file")
}

// saveMetrics must be called with m.mu held.
func (m *Monitor) saveMetrics() {
	if m.metricsFile == "" {
		return
	}

	data, err := json.MarshalIndent(m.metrics, "", "  ")
	if err != nil {
		m.logger.Errorf("Failed to marshal metrics: %v", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(m.metricsFile), 0755); err != nil {
		m.logger.Errorf("Failed to create metrics directory: %v", err)
		return
	}
	if err := os.WriteFile(m.metricsFile, data, 0644); err != nil {
		m.logger.Errorf("Failed to save metrics: %v", err)
	}
}

// AlertManager handles alerting based on metrics
type AlertManager struct {
	monitor *Monitor
	logger  *logrus.Logger
}

func NewAlertManager(monitor *Monitor, logger *logrus.Logger) *AlertManager {
	return &AlertManager{
		monitor: monitor,
		logger:  logger,
	}
}

func (am *AlertManager) CheckAlerts() []string {
	var alerts []string
	metrics := am.monitor.GetMetrics()

	if metrics.ScrapingRuns == 0 {
		return []string{"ALERT: Scraper has never run"}
	}
	if time.Since(metrics.LastRun) > 25*time.Hour {
		alerts = append(alerts, "ALERT: Scraper hasn't run in over 24 hours")
	}
	if metrics.ErrorRate > 15 {
		alerts = append(alerts, fmt.Sprintf("ALERT: High profile error rate: %.2f%%", metrics.ErrorRate))
	}
	if metrics.TotalPosts == 0 {
		alerts = append(alerts, "ALERT: No posts have been scraped")
	}

	return alerts
}

func (am *AlertManager) SendAlerts(alerts []string) {
	for _, alert := range alerts {
		am.logger.Warn(alert)
	}
}
