package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunStats aggregates one job's throughput counters.
type RunStats struct {
	Fetched    int `json:"fetched"`
	Inserted   int `json:"inserted"`
	Relevant   int `json:"relevant"`
	Classified int `json:"classified"`
	Summarized int `json:"summarized"`
}

func (s RunStats) add(other RunStats) RunStats {
	return RunStats{
		Fetched:    s.Fetched + other.Fetched,
		Inserted:   s.Inserted + other.Inserted,
		Relevant:   s.Relevant + other.Relevant,
		Classified: s.Classified + other.Classified,
		Summarized: s.Summarized + other.Summarized,
	}
}

type statsFile struct {
	Days       map[string]RunStats `json:"days"`
	MonthTotal RunStats            `json:"month_total"`
}

// StatsCollector persists month-keyed run statistics under the logs
// directory, one file per month (`stats_YYYY-MM.json`), accumulating across
// job runs. Safe for concurrent use.
type StatsCollector struct {
	mu      sync.Mutex
	logsDir string
}

// NewStatsCollector creates a collector writing under logsDir. An empty
// logsDir disables persistence.
func NewStatsCollector(logsDir string) *StatsCollector {
	return &StatsCollector{logsDir: logsDir}
}

// Flush merges the run's counters into the day entry for the given instant
// and recomputes the month total. Writes are atomic (tmp file + rename).
func (s *StatsCollector) Flush(at time.Time, stats RunStats) error {
	if s.logsDir == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	at = at.In(moscow)
	path := filepath.Join(s.logsDir, fmt.Sprintf("stats_%s.json", at.Format("2006-01")))

	data := statsFile{Days: make(map[string]RunStats)}
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("Flush: corrupt stats file %s: %w", path, err)
		}
		if data.Days == nil {
			data.Days = make(map[string]RunStats)
		}
	}

	dayKey := at.Format("2006-01-02")
	data.Days[dayKey] = data.Days[dayKey].add(stats)

	total := RunStats{}
	for _, day := range data.Days {
		total = total.add(day)
	}
	data.MonthTotal = total

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("Flush: %w", err)
	}
	if err := os.MkdirAll(s.logsDir, 0o750); err != nil {
		return fmt.Errorf("Flush: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o640); err != nil {
		return fmt.Errorf("Flush: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("Flush: %w", err)
	}
	return nil
}
