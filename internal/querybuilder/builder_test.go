package querybuilder

import (
	"strings"
	"testing"
)

func ptr(i int64) *int64 { return &i }

func TestBuildBasicCountAndPage(t *testing.T) {
	req := Request{
		Table:     "SystemEvents202506",
		FTSTable:  "SystemEventsFTS202506",
		PageSize:  50,
		Direction: Next,
		IDLo:      ptr(1),
		IDHi:      ptr(1000),
	}
	built := Build(req)

	if !strings.Contains(built.CountSQL, "ID >= ?") || !strings.Contains(built.CountSQL, "ID <= ?") {
		t.Fatalf("expected bounded count query, got %q", built.CountSQL)
	}
	if !strings.Contains(built.PageSQL, "ORDER BY ID DESC") {
		t.Fatalf("expected DESC order for next direction, got %q", built.PageSQL)
	}
	if built.PageArgs[len(built.PageArgs)-1] != 51 {
		t.Fatalf("expected LIMIT page_size+1 = 51, got %v", built.PageArgs[len(built.PageArgs)-1])
	}
}

func TestBuildPrevDirectionOrdersAscending(t *testing.T) {
	req := Request{
		Table:     "SystemEvents202506",
		FTSTable:  "SystemEventsFTS202506",
		PageSize:  50,
		Direction: Prev,
		LastID:    ptr(100),
	}
	built := Build(req)

	if !strings.Contains(built.PageSQL, "ORDER BY ID ASC") {
		t.Fatalf("expected ASC order for prev direction, got %q", built.PageSQL)
	}
	if !strings.Contains(built.PageSQL, "ID > ?") {
		t.Fatalf("expected ID > ? cursor clause for prev, got %q", built.PageSQL)
	}
}

func TestBuildNextDirectionWithCursor(t *testing.T) {
	req := Request{
		Table:     "SystemEvents202506",
		FTSTable:  "SystemEventsFTS202506",
		PageSize:  50,
		Direction: Next,
		LastID:    ptr(100),
	}
	built := Build(req)
	if !strings.Contains(built.PageSQL, "ID < ?") {
		t.Fatalf("expected ID < ? cursor clause for next, got %q", built.PageSQL)
	}
}

func TestBuildFTSSubqueryBoundedByIDRange(t *testing.T) {
	req := Request{
		Table:       "SystemEvents202506",
		FTSTable:    "SystemEventsFTS202506",
		SearchQuery: "error*",
		PageSize:    50,
		Direction:   Next,
		IDLo:        ptr(1),
		IDHi:        ptr(1000),
	}
	built := Build(req)

	if !strings.Contains(built.PageSQL, "SELECT rowid FROM SystemEventsFTS202506 WHERE Message MATCH ?") {
		t.Fatalf("expected FTS subquery, got %q", built.PageSQL)
	}
	if !strings.Contains(built.PageSQL, "AND rowid >= ?") || !strings.Contains(built.PageSQL, "AND rowid <= ?") {
		t.Fatalf("expected id_lo/id_hi copied into FTS subquery, got %q", built.PageSQL)
	}
}

func TestBuildFromHostFilter(t *testing.T) {
	req := Request{
		Table:     "SystemEvents202506",
		FTSTable:  "SystemEventsFTS202506",
		PageSize:  50,
		Direction: Next,
		Filters:   Filters{FromHost: "web-01"},
	}
	built := Build(req)
	if !strings.Contains(built.PageSQL, "FromHost = ?") {
		t.Fatalf("expected FromHost filter, got %q", built.PageSQL)
	}
	if built.PageArgs[0] != "web-01" {
		t.Fatalf("expected web-01 bound first, got %v", built.PageArgs[0])
	}
}

func TestBuildNoFiltersNoWhere(t *testing.T) {
	req := Request{
		Table:     "SystemEvents202506",
		FTSTable:  "SystemEventsFTS202506",
		PageSize:  50,
		Direction: Next,
	}
	built := Build(req)
	if strings.Contains(built.CountSQL, "WHERE") {
		t.Fatalf("expected no WHERE clause when unfiltered, got %q", built.CountSQL)
	}
}
