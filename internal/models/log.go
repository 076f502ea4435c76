// Package models holds the data types shared across the ingestion and query
// sides of the collector.
package models

import "time"

// Record is the canonical unit persisted and returned by the pipeline. It
// mirrors the columns of a SystemEvents<YYYYMM> table.
type Record struct {
	// ID is populated by SQLite (AUTOINCREMENT) after insert; zero before.
	ID                 int64
	Facility           int
	Priority           int
	FromHost           string
	InfoUnitID         int
	ReceivedAt         time.Time
	DeviceReportedTime time.Time
	SysLogTag          string
	ProcessID          string
	Message            string
}

// UnknownTag and UnknownPID are substituted whenever the wire format carries
// a literal "-" or an empty value for the app-name / process-id fields.
const (
	UnknownTag = "UNKNOWN"
	UnknownPID = "0"
)

// PartitionKey returns the YYYYMM key a record belongs to, derived from
// ReceivedAt per the partitioning invariant in spec.md.
func (r Record) PartitionKey() string {
	return PartitionKeyFor(r.ReceivedAt)
}

// PartitionKeyFor derives a YYYYMM key from an arbitrary timestamp.
func PartitionKeyFor(t time.Time) string {
	return t.UTC().Format("200601")
}
