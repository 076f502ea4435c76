// Package querybuilder assembles the count and page SQL statements used by
// the Log Query Runner (C10), composing an ID range (from the Boundary
// Finder), an optional full-text MATCH subquery, an optional host filter,
// and keyset pagination. This is the Query Builder (C9) from spec.md.
package querybuilder

// Direction selects which way a page request navigates relative to its
// cursor.
type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

// Filters holds the attribute filters the query accepts beyond full text
// and time range.
type Filters struct {
	FromHost string
}

// Request bundles everything the builder needs to assemble SQL.
type Request struct {
	Table       string // base table, e.g. SystemEvents202506
	FTSTable    string // FTS5 table, e.g. SystemEventsFTS202506
	SearchQuery string
	Filters     Filters
	LastID      *int64
	PageSize    int
	Direction   Direction
	IDLo        *int64
	IDHi        *int64
}

// Built holds the assembled SQL and bound parameters, ready for
// sqlx.(Select|Get) with the given args in order.
type Built struct {
	CountSQL  string
	CountArgs []any
	PageSQL   string
	PageArgs  []any
}

// Build assembles the count and page queries sharing one WHERE clause, per
// spec.md §4.9. Clause order is significant only for readability — it
// mirrors the order named in the spec: ID >= idLo, ID <= idHi, FromHost =
// ?, then the FTS subquery with idLo/idHi copied into it (the optimization
// that bounds the FTS search space to the already-computed ID range).
func Build(req Request) Built {
	var clauses []string
	var args []any

	if req.IDLo != nil {
		clauses = append(clauses, "ID >= ?")
		args = append(args, *req.IDLo)
	}
	if req.IDHi != nil {
		clauses = append(clauses, "ID <= ?")
		args = append(args, *req.IDHi)
	}
	if req.Filters.FromHost != "" {
		clauses = append(clauses, "FromHost = ?")
		args = append(args, req.Filters.FromHost)
	}
	if req.SearchQuery != "" {
		ftsClause, ftsArgs := buildFTSSubquery(req)
		clauses = append(clauses, ftsClause)
		args = append(args, ftsArgs...)
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + join(clauses, " AND ")
	}

	countSQL := "SELECT COUNT(*) FROM " + req.Table + where
	countArgs := append([]any{}, args...)

	pageArgs := append([]any{}, args...)
	pageWhere := where
	orderBy := " ORDER BY ID DESC"

	switch req.Direction {
	case Prev:
		orderBy = " ORDER BY ID ASC"
		if req.LastID != nil {
			pageWhere = appendClause(pageWhere, "ID > ?")
			pageArgs = append(pageArgs, *req.LastID)
		}
	default: // Next
		if req.LastID != nil {
			pageWhere = appendClause(pageWhere, "ID < ?")
			pageArgs = append(pageArgs, *req.LastID)
		}
	}

	pageSQL := "SELECT ID, FromHost, ReceivedAt, Message FROM " + req.Table + pageWhere + orderBy +
		" LIMIT ?"
	pageArgs = append(pageArgs, req.PageSize+1)

	return Built{
		CountSQL:  countSQL,
		CountArgs: countArgs,
		PageSQL:   pageSQL,
		PageArgs:  pageArgs,
	}
}

// buildFTSSubquery builds the `ID IN (SELECT rowid FROM <fts> WHERE Message
// MATCH ? [AND rowid >= idLo] [AND rowid <= idHi])` clause, copying idLo and
// idHi into the FTS query so it never has to scan outside the already-
// computed ID range — the critical optimization named in spec.md §4.9.
func buildFTSSubquery(req Request) (string, []any) {
	inner := "SELECT rowid FROM " + req.FTSTable + " WHERE Message MATCH ?"
	args := []any{req.SearchQuery}

	if req.IDLo != nil {
		inner += " AND rowid >= ?"
		args = append(args, *req.IDLo)
	}
	if req.IDHi != nil {
		inner += " AND rowid <= ?"
		args = append(args, *req.IDHi)
	}

	return "ID IN (" + inner + ")", args
}

func appendClause(where, clause string) string {
	if where == "" {
		return " WHERE " + clause
	}
	return where + " AND " + clause
}

func join(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
