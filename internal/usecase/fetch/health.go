package fetch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
)

// Status is a source's last crawl outcome.
type Status string

const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

// Report file names inside the logs directory.
const (
	statsCSVFile     = "rss_stats.csv"
	statusJSONFile   = "rss_status_report.json"
	healthReportFile = "rss_health_report.md"
)

// SourceHealth is the per-source crawl ledger. The retry policy escalates
// for sources whose LastStatus is ERROR.
type SourceHealth struct {
	URL              string    `json:"url"`
	Category         string    `json:"category"`
	Priority         int       `json:"priority"`
	SuccessCount     int       `json:"success_count"`
	ErrorCount       int       `json:"error_count"`
	LastStatus       Status    `json:"last_status"`
	LastError        string    `json:"last_error,omitempty"`
	LastErrorType    string    `json:"last_error_type,omitempty"`
	LastEntriesCount int       `json:"last_entries_count"`
	LastChecked      time.Time `json:"last_checked"`
}

// HealthTracker accumulates per-source crawl outcomes across invocations and
// renders them as CSV rows, a JSON snapshot, and a markdown report under the
// logs directory. Safe for concurrent use.
type HealthTracker struct {
	mu      sync.RWMutex
	stats   map[string]*SourceHealth
	logsDir string
}

// NewHealthTracker creates a tracker writing its reports under logsDir.
func NewHealthTracker(logsDir string) *HealthTracker {
	return &HealthTracker{
		stats:   make(map[string]*SourceHealth),
		logsDir: logsDir,
	}
}

func (h *HealthTracker) ensure(src entity.FeedSource) *SourceHealth {
	s, ok := h.stats[src.Name]
	if !ok {
		s = &SourceHealth{}
		h.stats[src.Name] = s
	}
	s.URL = src.URL
	s.Category = src.Category
	s.Priority = src.Priority
	return s
}

// RecordSuccess registers a successful crawl.
func (h *HealthTracker) RecordSuccess(src entity.FeedSource, entries int, took time.Duration) {
	h.mu.Lock()
	s := h.ensure(src)
	s.SuccessCount++
	s.LastStatus = StatusOK
	s.LastError = ""
	s.LastErrorType = ""
	s.LastEntriesCount = entries
	s.LastChecked = time.Now()
	h.mu.Unlock()

	h.appendStatsRow(src, string(StatusOK), took, entries, "")
}

// RecordError registers a failed crawl with its classified error type.
func (h *HealthTracker) RecordError(src entity.FeedSource, errType, message string, took time.Duration) {
	h.mu.Lock()
	s := h.ensure(src)
	s.ErrorCount++
	s.LastStatus = StatusError
	s.LastError = message
	s.LastErrorType = errType
	s.LastEntriesCount = 0
	s.LastChecked = time.Now()
	h.mu.Unlock()

	h.appendStatsRow(src, string(StatusError), took, 0, message)
}

// LastStatus returns the last recorded status of a source, or the empty
// string for a source never seen.
func (h *HealthTracker) LastStatus(name string) Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.stats[name]; ok {
		return s.LastStatus
	}
	return ""
}

// Snapshot returns a copy of the ledger keyed by source name.
func (h *HealthTracker) Snapshot() map[string]SourceHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]SourceHealth, len(h.stats))
	for name, s := range h.stats {
		out[name] = *s
	}
	return out
}

// appendStatsRow appends one crawl outcome to the CSV ledger. Report writing
// is an observability side effect; failures are logged, never propagated.
func (h *HealthTracker) appendStatsRow(src entity.FeedSource, status string, took time.Duration, entries int, errMsg string) {
	if h.logsDir == "" {
		return
	}
	path := filepath.Join(h.logsDir, statsCSVFile)

	writeHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		writeHeader = true
	}

	if err := os.MkdirAll(h.logsDir, 0o750); err != nil {
		slog.Warn("cannot create logs directory", slog.String("dir", h.logsDir), slog.Any("error", err))
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		slog.Warn("cannot open stats file", slog.String("path", path), slog.Any("error", err))
		return
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if writeHeader {
		_ = w.Write([]string{"timestamp", "source", "url", "status", "time_taken_ms", "entries_count", "error"})
	}
	_ = w.Write([]string{
		time.Now().Format("2006-01-02 15:04:05"),
		src.Name,
		src.URL,
		status,
		fmt.Sprintf("%.2f", float64(took.Microseconds())/1000),
		strconv.Itoa(entries),
		errMsg,
	})
	w.Flush()
}

type statusReport struct {
	Timestamp    string                  `json:"timestamp"`
	TotalSources int                     `json:"total_sources"`
	Sources      map[string]SourceHealth `json:"sources"`
}

// WriteStatusReport dumps the current ledger as JSON.
func (h *HealthTracker) WriteStatusReport() error {
	snapshot := h.Snapshot()
	report := statusReport{
		Timestamp:    time.Now().Format(time.RFC3339),
		TotalSources: len(snapshot),
		Sources:      snapshot,
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("WriteStatusReport: %w", err)
	}
	if err := os.MkdirAll(h.logsDir, 0o750); err != nil {
		return fmt.Errorf("WriteStatusReport: %w", err)
	}
	path := filepath.Join(h.logsDir, statusJSONFile)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("WriteStatusReport: %w", err)
	}
	return nil
}

// WriteHealthReport renders the ledger as the markdown report the operators
// read, healthy-count summary first, one section per source in name order.
func (h *HealthTracker) WriteHealthReport() error {
	snapshot := h.Snapshot()

	names := make([]string, 0, len(snapshot))
	healthy := 0
	for name, s := range snapshot {
		names = append(names, name)
		if s.LastStatus == StatusOK {
			healthy++
		}
	}
	sort.Strings(names)

	percent := func(n int) float64 {
		if len(snapshot) == 0 {
			return 0
		}
		return float64(n) * 100 / float64(len(snapshot))
	}

	lines := []string{
		"# Отчет о состоянии RSS-источников",
		"",
		fmt.Sprintf("- Всего источников: %d", len(snapshot)),
		fmt.Sprintf("- Работают нормально: %d (%.1f%%)", healthy, percent(healthy)),
		fmt.Sprintf("- С ошибками: %d (%.1f%%)", len(snapshot)-healthy, percent(len(snapshot)-healthy)),
		"",
	}
	for _, name := range names {
		s := snapshot[name]
		lines = append(lines,
			fmt.Sprintf("### %s", name),
			fmt.Sprintf("- URL: %s", s.URL),
			fmt.Sprintf("- Статус: %s", s.LastStatus),
			fmt.Sprintf("- Успешных запросов: %d", s.SuccessCount),
			fmt.Sprintf("- Ошибок: %d", s.ErrorCount),
			fmt.Sprintf("- Количество записей: %d", s.LastEntriesCount))
		if s.LastError != "" {
			lines = append(lines, fmt.Sprintf("- Ошибка: %s (%s)", s.LastError, s.LastErrorType))
		}
		lines = append(lines, "")
	}

	if err := os.MkdirAll(h.logsDir, 0o750); err != nil {
		return fmt.Errorf("WriteHealthReport: %w", err)
	}
	path := filepath.Join(h.logsDir, healthReportFile)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o640); err != nil {
		return fmt.Errorf("WriteHealthReport: %w", err)
	}
	return nil
}
