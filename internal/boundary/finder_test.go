package boundary

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syslogpipe/syslogd/internal/database"
	"github.com/syslogpipe/syslogd/internal/partition"
)

func TestChunkScheduleClamps(t *testing.T) {
	if chunkFor(0).Minutes() != 5 {
		t.Fatalf("expected first chunk 5m, got %v", chunkFor(0))
	}
	if chunkFor(3).Minutes() != 60 {
		t.Fatalf("expected fourth chunk 60m, got %v", chunkFor(3))
	}
	if chunkFor(10).Minutes() != 60 {
		t.Fatalf("expected clamp to 60m beyond schedule, got %v", chunkFor(10))
	}
}

// seedPartition builds a real on-disk SQLite partition with six rows spaced
// 30 minutes apart starting at 10:00, and returns a Finder bound to it.
func seedPartition(t *testing.T, ym string, base time.Time) *Finder {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs_"+ym+".sqlite3")

	db, err := database.OpenWriter(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mgr := partition.New(db)
	table, err := mgr.Ensure(ym)
	require.NoError(t, err)

	insert := fmt.Sprintf(`INSERT INTO %s
		(Facility, Priority, FromHost, InfoUnitID, ReceivedAt, DeviceReportedTime, SysLogTag, ProcessID, Message)
		VALUES (4, 34, 'web-01', 1, ?, ?, 'sshd', '100', 'heartbeat')`, table)

	for i := 0; i < 6; i++ {
		ts := base.Add(time.Duration(i) * 30 * time.Minute)
		_, err := db.Exec(insert, ts, ts)
		require.NoError(t, err)
	}

	return New(db, table)
}

// TestFindNarrowsToWindow exercises scenario S5: six rows 30 minutes apart
// starting at 10:00, a window of [11:00, 12:00] brackets rows at 11:00
// (id 3), 11:30 (id 4) and 12:00 (id 5); the smallest ID strictly after
// 12:00 is id 6 (12:30), minus one gives idHi=5 — idLo=3, idHi=5 per
// spec.md scenario S5.
func TestFindNarrowsToWindow(t *testing.T) {
	ym := "202506"
	base := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)
	finder := seedPartition(t, ym, base)

	tMin := base.Add(60 * time.Minute)  // 11:00
	tMax := base.Add(120 * time.Minute) // 12:00

	idLo, idHi, traces, err := finder.Find(&tMin, &tMax)
	require.NoError(t, err)
	require.NotEmpty(t, traces)
	require.NotNil(t, idLo)
	require.NotNil(t, idHi)
	require.Equal(t, int64(3), *idLo)
	require.Equal(t, int64(5), *idHi)
}

// TestFindUnboundedMinWithMax covers spec.md §4.8's special case: tMax set,
// tMin unset, so idLo must be forced to 1 regardless of what rows exist.
func TestFindUnboundedMinWithMax(t *testing.T) {
	ym := "202506"
	base := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)
	finder := seedPartition(t, ym, base)

	tMax := base.Add(90 * time.Minute) // 11:30

	idLo, idHi, _, err := finder.Find(nil, &tMax)
	require.NoError(t, err)
	require.NotNil(t, idLo)
	require.Equal(t, int64(1), *idLo)
	require.NotNil(t, idHi)
	require.Equal(t, int64(4), *idHi)
}
