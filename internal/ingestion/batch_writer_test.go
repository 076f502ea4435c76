package ingestion

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syslogpipe/syslogd/internal/database"
	"github.com/syslogpipe/syslogd/internal/models"
)

func TestFlushGroupsByYearMonth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.sqlite3")
	db, err := database.OpenWriter(path)
	require.NoError(t, err)
	defer db.Close()

	queue := NewQueue(16)
	w := NewWriter(db, queue, 1000, 5*time.Second)

	var batch []*models.Record
	// 2 records at end of May, 3 at start of June — scenario S3.
	for i := 0; i < 2; i++ {
		ts := time.Date(2025, 5, 31, 23, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
		rec := w.safeParse(datagramAt(ts))
		require.NotNil(t, rec)
		batch = append(batch, rec)
	}
	for i := 0; i < 3; i++ {
		ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
		rec := w.safeParse(datagramAt(ts))
		require.NotNil(t, rec)
		batch = append(batch, rec)
	}

	w.flush(batch)

	var count202505, count202506 int
	require.NoError(t, db.Get(&count202505, "SELECT COUNT(*) FROM SystemEvents202505"))
	require.NoError(t, db.Get(&count202506, "SELECT COUNT(*) FROM SystemEvents202506"))
	require.Equal(t, 2, count202505)
	require.Equal(t, 3, count202506)
}

func TestFlushFlushesOnBatchSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.sqlite3")
	db, err := database.OpenWriter(path)
	require.NoError(t, err)
	defer db.Close()

	queue := NewQueue(16)
	w := NewWriter(db, queue, 2, 5*time.Second)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		queue.TryEnqueue(datagramAt(base.Add(time.Duration(i) * time.Second)))
	}

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	require.Eventually(t, func() bool {
		var count int
		_ = db.Get(&count, "SELECT COUNT(*) FROM SystemEvents202506")
		return count == 2
	}, 2*time.Second, 10*time.Millisecond)

	w.RequestShutdown()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not shut down")
	}
}

func TestFlushAssignsDenseIDsPerPartition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.sqlite3")
	db, err := database.OpenWriter(path)
	require.NoError(t, err)
	defer db.Close()

	queue := NewQueue(16)
	w := NewWriter(db, queue, 1000, 5*time.Second)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var batch []*models.Record
	for i := 0; i < 5; i++ {
		rec := w.safeParse(datagramAt(base.Add(time.Duration(i) * time.Minute)))
		require.NotNil(t, rec)
		batch = append(batch, rec)
	}
	w.flush(batch)

	var ids []int64
	require.NoError(t, db.Select(&ids, "SELECT ID FROM SystemEvents202506 ORDER BY ID"))
	require.Equal(t, []int64{1, 2, 3, 4, 5}, ids)
}

func datagramAt(ts time.Time) Datagram {
	payload := fmt.Sprintf("<34>1 %s testhost testapp 1234 - - hello", ts.Format(time.RFC3339))
	return Datagram{Payload: []byte(payload), Peer: "127.0.0.1", ReceivedAt: ts}
}
