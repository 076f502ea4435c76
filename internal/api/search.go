// Package api wires the query-side read API named in SPEC_FULL.md §6.6:
// a thin HTTP front for the Log Query Runner (C10), partition discovery,
// and the hand-rolled monitoring stack, served by the `syslogd query`
// subcommand.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/syslogpipe/syslogd/internal/database"
	"github.com/syslogpipe/syslogd/internal/monitoring"
	"github.com/syslogpipe/syslogd/internal/partition"
	"github.com/syslogpipe/syslogd/internal/query"
	"github.com/syslogpipe/syslogd/internal/querybuilder"
)

const defaultPageSize = 50

// SearchLogs fronts the Log Query Runner (C10): a required month partition
// key, an optional time window resolved through the Boundary Finder, an
// optional FTS5 query and host filter, and keyset pagination. dbPath is the
// single store file the batch writer holds open for its whole lifetime
// (spec.md §9 design rationale) — every month's table lives in it, so the
// reader opens that same file rather than a per-month path.
func SearchLogs(dbPath string, runner *query.Runner, metrics *monitoring.MetricsCollector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()

		ym := params.Get("ym")
		if ym == "" {
			http.Error(w, "ym (partition key, YYYYMM) is required", http.StatusBadRequest)
			return
		}

		req := query.Request{
			PartitionFile: dbPath,
			YM:            ym,
			SearchQuery:   params.Get("q"),
			Filters:       querybuilder.Filters{FromHost: params.Get("from_host")},
			PageSize:      defaultPageSize,
			Direction:     querybuilder.Next,
		}

		if v := params.Get("t_min"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "invalid t_min, expected RFC3339", http.StatusBadRequest)
				return
			}
			req.TMin = &t
		}
		if v := params.Get("t_max"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "invalid t_max, expected RFC3339", http.StatusBadRequest)
				return
			}
			req.TMax = &t
		}
		if v := params.Get("last_id"); v != "" {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				req.LastID = &id
			}
		}
		if v := params.Get("page_size"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				req.PageSize = n
			}
		}
		if params.Get("direction") == string(querybuilder.Prev) {
			req.Direction = querybuilder.Prev
		}

		start := time.Now()
		result := runner.Search(req)
		if metrics != nil {
			metrics.RecordQuery(time.Since(start))
			if result.Error != "" {
				metrics.IncrementCounter("failed_queries", 1)
			}
		}

		if result.Error != "" {
			log.Error().Str("ym", ym).Str("error", result.Error).Msg("api: search query failed")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

// ListPartitions returns the YYYYMM keys of every partition table present
// in the store file, newest first.
func ListPartitions(dbPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		db, err := database.OpenReader(dbPath)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer db.Close()

		keys, err := partition.Discover(db)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"partitions": keys,
			"count":      len(keys),
		})
	}
}
