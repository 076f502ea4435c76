// Package boundary converts a time window into an ID range by probing the
// ReceivedAt index in small expanding chunks, so large time-range searches
// avoid a full table scan. This is the Boundary Finder (C8) from spec.md.
package boundary

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// chunkSchedule is the probe-window schedule from spec.md §4.8, clamped to
// its last value for any probe beyond the fourth.
var chunkSchedule = []time.Duration{
	5 * time.Minute, 15 * time.Minute, 30 * time.Minute, 60 * time.Minute,
}

// maxHiSearch bounds how far FindHi probes forward before falling back to a
// single full-range query, per spec.md §4.8.
const maxHiSearch = 24 * time.Hour

func chunkFor(probe int) time.Duration {
	if probe >= len(chunkSchedule) {
		return chunkSchedule[len(chunkSchedule)-1]
	}
	return chunkSchedule[probe]
}

// Trace records one probe for operator diagnostics, concatenated by the
// query runner into a single debug_info blob per request.
type Trace struct {
	SQL       string
	Params    []any
	ElapsedMS int64
}

// Finder probes one partition's base table.
type Finder struct {
	db    *sqlx.DB
	table string
}

// New binds a Finder to a read-only connection and the partition's base
// table name.
func New(db *sqlx.DB, table string) *Finder {
	return &Finder{db: db, table: table}
}

// Find computes [idLo, idHi] for the window [tMin, tMax]; either bound may
// be nil. A nil return for a bound means "unbounded on that side": no row
// constrains it, or the corresponding input bound was absent.
func (f *Finder) Find(tMin, tMax *time.Time) (idLo, idHi *int64, traces []Trace, err error) {
	// Special case from spec.md §4.8: tMax set, tMin unset ⇒ idLo = 1.
	if tMin == nil && tMax != nil {
		one := int64(1)
		idLo = &one
	}

	if tMin != nil {
		upper := time.Now().UTC()
		if tMax != nil {
			upper = *tMax
		}
		lo, loTraces, loErr := f.findLo(*tMin, upper)
		traces = append(traces, loTraces...)
		if loErr != nil {
			return nil, nil, traces, loErr
		}
		idLo = lo
	}

	if tMax != nil {
		hi, hiTraces, hiErr := f.findHi(*tMax, tMin)
		traces = append(traces, hiTraces...)
		if hiErr != nil {
			return idLo, nil, traces, hiErr
		}
		idHi = hi
	}

	return idLo, idHi, traces, nil
}

// findLo probes forward from tMin in expanding chunks, stopping at the
// first chunk containing at least one row. The loop terminates once cursor
// reaches upper (tMax, or now when tMax is absent).
func (f *Finder) findLo(tMin, upper time.Time) (*int64, []Trace, error) {
	var traces []Trace
	cursor := tMin
	probe := 0

	for cursor.Before(upper) {
		delta := chunkFor(probe)
		end := cursor.Add(delta)
		if end.After(upper) {
			end = upper
		}

		id, trace, err := f.probeMin(cursor, end)
		traces = append(traces, trace)
		if err != nil {
			return nil, traces, err
		}
		if id != nil {
			return id, traces, nil
		}

		cursor = end
		probe++
	}

	return nil, traces, nil
}

// findHi looks for the smallest ID strictly after tMax, probing forward in
// expanding chunks capped at maxHiSearch of total search, then falls back to
// a single bounded MAX(ID) query.
func (f *Finder) findHi(tMax time.Time, tMin *time.Time) (*int64, []Trace, error) {
	var traces []Trace
	cursor := tMax
	probe := 0
	searched := time.Duration(0)

	for searched < maxHiSearch {
		delta := chunkFor(probe)
		end := cursor.Add(delta)

		successor, trace, err := f.probeMinAfter(cursor, end, tMax)
		traces = append(traces, trace)
		if err != nil {
			return nil, traces, err
		}
		if successor != nil {
			hi := *successor - 1
			return &hi, traces, nil
		}

		cursor = end
		searched += delta
		probe++
	}

	hi, trace, err := f.probeMaxUpTo(tMax, tMin)
	traces = append(traces, trace)
	if err != nil {
		return nil, traces, err
	}
	return hi, traces, nil
}

func (f *Finder) probeMin(start, end time.Time) (*int64, Trace, error) {
	query := fmt.Sprintf(`SELECT MIN(ID) FROM %s WHERE ReceivedAt >= ? AND ReceivedAt < ?`, f.table)
	return f.scanNullableID(query, start, end)
}

func (f *Finder) probeMinAfter(start, end, strictlyAfter time.Time) (*int64, Trace, error) {
	query := fmt.Sprintf(`SELECT MIN(ID) FROM %s WHERE ReceivedAt > ? AND ReceivedAt >= ? AND ReceivedAt < ?`, f.table)
	t0 := time.Now()
	var id *int64
	err := f.db.Get(&id, query, strictlyAfter, start, end)
	trace := Trace{SQL: query, Params: []any{strictlyAfter, start, end}, ElapsedMS: time.Since(t0).Milliseconds()}
	if err != nil {
		return nil, trace, fmt.Errorf("boundary: probe min-after: %w", err)
	}
	return id, trace, nil
}

func (f *Finder) probeMaxUpTo(tMax time.Time, tMin *time.Time) (*int64, Trace, error) {
	query := fmt.Sprintf(`SELECT MAX(ID) FROM %s WHERE ReceivedAt <= ?`, f.table)
	args := []any{tMax}
	if tMin != nil {
		query += ` AND ReceivedAt >= ?`
		args = append(args, *tMin)
	}

	t0 := time.Now()
	var id *int64
	err := f.db.Get(&id, query, args...)
	trace := Trace{SQL: query, Params: args, ElapsedMS: time.Since(t0).Milliseconds()}
	if err != nil {
		return nil, trace, fmt.Errorf("boundary: probe max-up-to: %w", err)
	}
	return id, trace, nil
}

func (f *Finder) scanNullableID(query string, args ...any) (*int64, Trace, error) {
	t0 := time.Now()
	var id *int64
	err := f.db.Get(&id, query, args...)
	trace := Trace{SQL: query, Params: args, ElapsedMS: time.Since(t0).Milliseconds()}
	if err != nil {
		return nil, trace, fmt.Errorf("boundary: probe: %w", err)
	}
	return id, trace, nil
}
