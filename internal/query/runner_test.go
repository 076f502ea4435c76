package query

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syslogpipe/syslogd/internal/database"
	"github.com/syslogpipe/syslogd/internal/partition"
	"github.com/syslogpipe/syslogd/internal/querybuilder"
)

// seedRow is one fixture row inserted by setupTestPartition.
type seedRow struct {
	receivedAt time.Time
	fromHost   string
	message    string
}

// setupTestPartition builds a real on-disk SQLite partition file with the
// base table, ReceivedAt index, and FTS5 index, seeds it with rows, and
// returns the file path and YYYYMM key ready for Runner.Search.
func setupTestPartition(t *testing.T, ym string, rows []seedRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs_"+ym+".sqlite3")

	db, err := database.OpenWriter(path)
	require.NoError(t, err)
	defer db.Close()

	mgr := partition.New(db)
	_, err = mgr.Ensure(ym)
	require.NoError(t, err)

	base := partition.BaseTable(ym)
	insert := fmt.Sprintf(`INSERT INTO %s
		(Facility, Priority, FromHost, InfoUnitID, ReceivedAt, DeviceReportedTime, SysLogTag, ProcessID, Message)
		VALUES (4, 34, ?, 1, ?, ?, 'sshd', '100', ?)`, base)

	for _, r := range rows {
		_, err := db.Exec(insert, r.fromHost, r.receivedAt, r.receivedAt, r.message)
		require.NoError(t, err)
	}

	require.NoError(t, mgr.Rebuild(ym))
	return path
}

func TestSearchBoundaryNarrowsIDRange(t *testing.T) {
	ym := "202506"
	base := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)

	var rows []seedRow
	for i := 0; i < 6; i++ {
		rows = append(rows, seedRow{
			receivedAt: base.Add(time.Duration(i) * 30 * time.Minute),
			fromHost:   "web-01",
			message:    "heartbeat",
		})
	}
	path := setupTestPartition(t, ym, rows)

	tMin := base.Add(60 * time.Minute) // 11:00 -> row index 2 (id 3)
	tMax := base.Add(120 * time.Minute) // 12:00 -> row index 4 (id 5)

	runner := NewRunner()
	result := runner.Search(Request{
		PartitionFile: path,
		YM:            ym,
		TMin:          &tMin,
		TMax:          &tMax,
		PageSize:      50,
		Direction:     querybuilder.Next,
	})

	require.Empty(t, result.Error)
	require.Len(t, result.Logs, 3) // ids 3,4,5
	require.Equal(t, int64(3), result.TotalLogs)
}

func TestSearchApproximateCountUsesArithmetic(t *testing.T) {
	ym := "202506"
	base := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)

	var rows []seedRow
	for i := 0; i < 100; i++ {
		rows = append(rows, seedRow{
			receivedAt: base.Add(time.Duration(i) * time.Minute),
			fromHost:   "web-01",
			message:    "heartbeat",
		})
	}
	path := setupTestPartition(t, ym, rows)

	tMin := base
	tMax := base.Add(99 * time.Minute)

	runner := NewRunner()
	result := runner.Search(Request{
		PartitionFile: path,
		YM:            ym,
		TMin:          &tMin,
		TMax:          &tMax,
		PageSize:      10,
		Direction:     querybuilder.Next,
	})

	require.Empty(t, result.Error)
	require.Equal(t, int64(100), result.TotalLogs)
	require.Len(t, result.Logs, 10)
	// fast-path: first page should be the most recent 10 rows (ids 91..100)
	require.Equal(t, int64(100), result.Logs[0].ID)
}

func TestSearchFullTextMatch(t *testing.T) {
	ym := "202506"
	base := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)

	rows := []seedRow{
		{receivedAt: base, fromHost: "web-01", message: "connection refused"},
		{receivedAt: base.Add(time.Minute), fromHost: "web-01", message: "all is well"},
		{receivedAt: base.Add(2 * time.Minute), fromHost: "web-01", message: "connection reset by peer"},
	}
	path := setupTestPartition(t, ym, rows)

	runner := NewRunner()
	result := runner.Search(Request{
		PartitionFile: path,
		YM:            ym,
		SearchQuery:   "connection",
		PageSize:      50,
		Direction:     querybuilder.Next,
	})

	require.Empty(t, result.Error)
	require.Len(t, result.Logs, 2)
	require.Equal(t, int64(2), result.TotalLogs)
}

func TestSearchFromHostFilter(t *testing.T) {
	ym := "202506"
	base := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)

	rows := []seedRow{
		{receivedAt: base, fromHost: "web-01", message: "a"},
		{receivedAt: base.Add(time.Minute), fromHost: "web-02", message: "b"},
	}
	path := setupTestPartition(t, ym, rows)

	runner := NewRunner()
	result := runner.Search(Request{
		PartitionFile: path,
		YM:            ym,
		Filters:       querybuilder.Filters{FromHost: "web-02"},
		PageSize:      50,
		Direction:     querybuilder.Next,
	})

	require.Empty(t, result.Error)
	require.Len(t, result.Logs, 1)
	require.Equal(t, "web-02", result.Logs[0].FromHost)
}

func TestSearchPrevDirectionReordersAscendingFetchIntoDescending(t *testing.T) {
	ym := "202506"
	base := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)

	var rows []seedRow
	for i := 0; i < 5; i++ {
		rows = append(rows, seedRow{receivedAt: base.Add(time.Duration(i) * time.Minute), fromHost: "web-01", message: "x"})
	}
	path := setupTestPartition(t, ym, rows)

	runner := NewRunner()
	result := runner.Search(Request{
		PartitionFile: path,
		YM:            ym,
		LastID:        int64Ptr(2),
		PageSize:      50,
		Direction:     querybuilder.Prev,
	})

	require.Empty(t, result.Error)
	require.True(t, result.Logs[0].ID > result.Logs[len(result.Logs)-1].ID)
	require.False(t, result.PageInfo.HasPrevPage)
}

func TestSearchMissingPartitionFileReturnsError(t *testing.T) {
	runner := NewRunner()
	result := runner.Search(Request{
		PartitionFile: filepath.Join(t.TempDir(), "nonexistent.sqlite3"),
		YM:            "202506",
		PageSize:      50,
		Direction:     querybuilder.Next,
	})
	require.NotEmpty(t, result.Error)
}

func int64Ptr(i int64) *int64 { return &i }
