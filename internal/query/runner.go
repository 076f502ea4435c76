// Package query orchestrates a single search request end to end: open a
// read-only connection, compute an ID range via the Boundary Finder,
// decide exact vs. approximate counting, fetch one page, and derive
// pagination cursors. This is the Log Query Runner (C10) from spec.md.
package query

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/syslogpipe/syslogd/internal/boundary"
	"github.com/syslogpipe/syslogd/internal/database"
	"github.com/syslogpipe/syslogd/internal/partition"
	"github.com/syslogpipe/syslogd/internal/querybuilder"
)

// Row is one result row of a page fetch — a narrower projection of
// models.Record than the full persisted row, matching spec.md §4.9's page
// query column list.
type Row struct {
	ID         int64     `db:"ID"`
	FromHost   string    `db:"FromHost"`
	ReceivedAt time.Time `db:"ReceivedAt"`
	Message    string    `db:"Message"`
}

// PageInfo carries the cursors and more-pages flags the caller needs to
// render forward/backward navigation.
type PageInfo struct {
	HasNextPage bool
	HasPrevPage bool
	NextLastID  *int64
	PrevLastID  *int64
}

// Result is the bundle returned to every caller — a complete result or an
// error, never a partial one (spec.md §7: "the query path is biased toward
// truth").
type Result struct {
	Logs      []Row
	TotalLogs int64
	PageInfo  PageInfo
	DebugInfo []boundary.Trace
	Error     string
}

// Request describes one search.
type Request struct {
	// PartitionFile is the path to the SQLite file backing the YYYYMM
	// partition being searched.
	PartitionFile string
	YM            string

	TMin *time.Time
	TMax *time.Time

	SearchQuery string
	Filters     querybuilder.Filters

	LastID    *int64
	PageSize  int
	Direction querybuilder.Direction
}

// Runner executes Request values against independent read-only
// connections — one per request, never shared across concurrent queries
// (spec.md §5).
type Runner struct{}

// NewRunner constructs a Runner. It holds no state: every call to Search is
// fully self-contained.
func NewRunner() *Runner { return &Runner{} }

// Search runs the full C8→C9 orchestration described in spec.md §4.10.
// It never returns an error to the caller — failures are captured in
// Result.Error so HTTP handlers can always serialize a response.
func (r *Runner) Search(req Request) (result *Result) {
	result = &Result{}
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("query: recovered panic during search")
			result = &Result{Error: fmt.Sprintf("internal error: %v", rec)}
		}
	}()

	db, err := database.OpenReader(req.PartitionFile)
	if err != nil {
		return &Result{Error: err.Error()}
	}
	defer db.Close()

	table := partition.BaseTable(req.YM)
	ftsTable := "SystemEventsFTS" + req.YM

	var idLo, idHi *int64
	var traces []boundary.Trace
	if req.TMin != nil || req.TMax != nil {
		finder := boundary.New(db, table)
		idLo, idHi, traces, err = finder.Find(req.TMin, req.TMax)
		if err != nil {
			return &Result{Error: err.Error(), DebugInfo: traces}
		}
	}

	useApprox := req.SearchQuery == "" && req.Filters.FromHost == "" &&
		(req.TMin != nil || req.TMax != nil) && idHi != nil

	var total int64
	if useApprox {
		lo := int64(1)
		if idLo != nil {
			lo = *idLo
		}
		total = (*idHi - lo) + 1
	} else {
		countReq := querybuilder.Request{
			Table: table, FTSTable: ftsTable,
			SearchQuery: req.SearchQuery, Filters: req.Filters,
			PageSize: req.PageSize, Direction: req.Direction,
			IDLo: idLo, IDHi: idHi,
		}
		built := querybuilder.Build(countReq)
		if err := db.Get(&total, built.CountSQL, built.CountArgs...); err != nil {
			return &Result{Error: fmt.Sprintf("count query failed: %v", err), DebugInfo: traces}
		}
	}

	effectiveIDLo := idLo
	if useApprox && req.LastID == nil {
		lo := int64(1)
		if idLo != nil {
			lo = *idLo
		}
		tightened := *idHi - int64(req.PageSize) - 50
		if tightened > lo {
			effectiveIDLo = &tightened
		} else {
			effectiveIDLo = &lo
		}
	}

	pageReq := querybuilder.Request{
		Table: table, FTSTable: ftsTable,
		SearchQuery: req.SearchQuery, Filters: req.Filters,
		LastID: req.LastID, PageSize: req.PageSize, Direction: req.Direction,
		IDLo: effectiveIDLo, IDHi: idHi,
	}
	built := querybuilder.Build(pageReq)

	var rows []Row
	if err := db.Select(&rows, built.PageSQL, built.PageArgs...); err != nil {
		return &Result{Error: fmt.Sprintf("page query failed: %v", err), TotalLogs: total, DebugInfo: traces}
	}

	if req.Direction == querybuilder.Prev {
		reverseRows(rows)
	}

	hasMore := len(rows) > req.PageSize
	if hasMore {
		rows = rows[:req.PageSize]
	}

	var nextLastID, prevLastID *int64
	if len(rows) > 0 {
		n := rows[len(rows)-1].ID
		p := rows[0].ID
		nextLastID, prevLastID = &n, &p
	}

	var hasNext, hasPrev bool
	if req.Direction == querybuilder.Prev {
		hasNext = req.LastID != nil
		hasPrev = hasMore
	} else {
		hasNext = hasMore
		hasPrev = req.LastID != nil
	}

	return &Result{
		Logs:      rows,
		TotalLogs: total,
		PageInfo: PageInfo{
			HasNextPage: hasNext,
			HasPrevPage: hasPrev,
			NextLastID:  nextLastID,
			PrevLastID:  prevLastID,
		},
		DebugInfo: traces,
	}
}

func reverseRows(rows []Row) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
