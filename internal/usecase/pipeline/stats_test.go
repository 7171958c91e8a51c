package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCollector_Flush(t *testing.T) {
	dir := t.TempDir()
	c := NewStatsCollector(dir)
	day := time.Date(2026, 8, 24, 10, 0, 0, 0, moscow)

	require.NoError(t, c.Flush(day, RunStats{Fetched: 100, Inserted: 40, Relevant: 30}))
	require.NoError(t, c.Flush(day, RunStats{Fetched: 50, Inserted: 10, Classified: 8}))
	require.NoError(t, c.Flush(day.AddDate(0, 0, 1), RunStats{Fetched: 20, Summarized: 5}))

	raw, err := os.ReadFile(filepath.Join(dir, "stats_2026-08.json"))
	require.NoError(t, err)

	var data statsFile
	require.NoError(t, json.Unmarshal(raw, &data))

	assert.Equal(t, RunStats{Fetched: 150, Inserted: 50, Relevant: 30, Classified: 8}, data.Days["2026-08-24"])
	assert.Equal(t, RunStats{Fetched: 20, Summarized: 5}, data.Days["2026-08-25"])
	assert.Equal(t, RunStats{Fetched: 170, Inserted: 50, Relevant: 30, Classified: 8, Summarized: 5}, data.MonthTotal)
}

func TestStatsCollector_MonthRollover(t *testing.T) {
	dir := t.TempDir()
	c := NewStatsCollector(dir)

	require.NoError(t, c.Flush(time.Date(2026, 8, 31, 23, 0, 0, 0, moscow), RunStats{Fetched: 1}))
	require.NoError(t, c.Flush(time.Date(2026, 9, 1, 1, 0, 0, 0, moscow), RunStats{Fetched: 2}))

	_, err := os.Stat(filepath.Join(dir, "stats_2026-08.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "stats_2026-09.json"))
	assert.NoError(t, err)
}

func TestStatsCollector_DisabledWithoutDir(t *testing.T) {
	c := NewStatsCollector("")
	assert.NoError(t, c.Flush(time.Now(), RunStats{Fetched: 1}))
}
