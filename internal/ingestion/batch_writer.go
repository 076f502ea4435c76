package ingestion

import (
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/syslogpipe/syslogd/internal/models"
	"github.com/syslogpipe/syslogd/internal/parsing"
	"github.com/syslogpipe/syslogd/internal/partition"
)

// FlushListener is notified after every successful per-group commit, so
// the live-tail hub can broadcast newly-committed records without being a
// second consumer of the ingest queue (SPEC_FULL.md §6.7).
type FlushListener interface {
	OnFlush(ym string, records []*models.Record)
}

// Writer is the Batch Writer (C5): the single long-running task that
// drains the queue, groups records by year-month, and commits each group
// to its own SQLite partition.
type Writer struct {
	db           *sqlx.DB
	partitions   *partition.Manager
	queue        *Queue
	batchSize    int
	batchTimeout time.Duration
	listeners    []FlushListener

	shuttingDown bool
	done         chan struct{}
}

// NewWriter constructs a Writer bound to a writable database handle and
// the queue it drains.
func NewWriter(db *sqlx.DB, queue *Queue, batchSize int, batchTimeout time.Duration) *Writer {
	return &Writer{
		db:           db,
		partitions:   partition.New(db),
		queue:        queue,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		done:         make(chan struct{}),
	}
}

// AddListener registers a FlushListener. Must be called before Run starts.
func (w *Writer) AddListener(l FlushListener) {
	w.listeners = append(w.listeners, l)
}

// RequestShutdown tells the writer's loop to exit once the queue drains,
// after performing its final flush. It does not block.
func (w *Writer) RequestShutdown() {
	w.shuttingDown = true
}

// Done is closed once the writer has performed its final flush and
// returned from Run.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

// Run implements the loop contract from spec.md §4.5: wait for one item
// with a timeout, parse it, flush on size or timeout, and recover from any
// per-item panic so a single bad datagram never stops the writer.
func (w *Writer) Run() {
	defer close(w.done)

	var batch []*models.Record
	timer := time.NewTimer(w.batchTimeout)
	defer timer.Stop()

	for {
		select {
		case d, ok := <-w.queue.Chan():
			if !ok {
				w.flush(batch)
				return
			}
			if rec := w.safeParse(d); rec != nil {
				batch = append(batch, rec)
			}
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = nil
				resetTimer(timer, w.batchTimeout)
			}

		case <-timer.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = nil
			}
			resetTimer(timer, w.batchTimeout)

			if w.shuttingDown && w.queue.Len() == 0 {
				w.flush(batch)
				return
			}
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// safeParse recovers a panic from a single malformed datagram so the loop
// never stops, per spec.md §4.5 step 5.
func (w *Writer) safeParse(d Datagram) (rec *models.Record) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("ingestion: recovered panic parsing datagram")
			rec = nil
		}
	}()
	text, ok := parsing.Decode(d.Payload, d.Peer)
	if !ok {
		return nil
	}
	return parsing.ParseDatagram(text, d.Peer, d.ReceivedAt)
}

// flush groups batch by ReceivedAt's year-month and commits each group
// independently, per spec.md §4.5's flush algorithm. A failure in one
// group rolls back only that group.
func (w *Writer) flush(batch []*models.Record) {
	if len(batch) == 0 {
		return
	}

	groups := make(map[string][]*models.Record)
	for _, r := range batch {
		ym := r.PartitionKey()
		groups[ym] = append(groups[ym], r)
	}

	var keys []string
	for ym := range groups {
		keys = append(keys, ym)
	}
	sort.Strings(keys)

	for _, ym := range keys {
		records := groups[ym]
		if err := w.commitGroup(ym, records); err != nil {
			log.Error().Err(err).Str("partition", ym).Int("count", len(records)).
				Msg("ingestion: flush group failed, rolled back")
			continue
		}
		for _, l := range w.listeners {
			l.OnFlush(ym, records)
		}
	}
}

func (w *Writer) commitGroup(ym string, records []*models.Record) error {
	table, err := w.partitions.Ensure(ym)
	if err != nil {
		return fmt.Errorf("ingestion: ensure partition %s: %w", ym, err)
	}

	tx, err := w.db.Beginx()
	if err != nil {
		return fmt.Errorf("ingestion: begin: %w", err)
	}
	defer tx.Rollback()

	insert := fmt.Sprintf(`INSERT INTO %s
		(Facility, Priority, FromHost, InfoUnitID, ReceivedAt, DeviceReportedTime, SysLogTag, ProcessID, Message)
		VALUES (:facility, :priority, :fromhost, :infounitid, :receivedat, :devicereportedtime, :syslogtag, :processid, :message)`, table)

	for _, r := range records {
		args := map[string]any{
			"facility":           r.Facility,
			"priority":           r.Priority,
			"fromhost":           r.FromHost,
			"infounitid":         r.InfoUnitID,
			"receivedat":         r.ReceivedAt,
			"devicereportedtime": r.DeviceReportedTime,
			"syslogtag":          r.SysLogTag,
			"processid":          r.ProcessID,
			"message":            r.Message,
		}
		if _, err := tx.NamedExec(insert, args); err != nil {
			return fmt.Errorf("ingestion: insert into %s: %w", table, err)
		}
	}

	if err := w.partitions.RebuildTx(tx, ym); err != nil {
		return fmt.Errorf("ingestion: rebuild fts for %s: %w", ym, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ingestion: commit %s: %w", ym, err)
	}
	return nil
}
