package models

import "time"

// AuditAction enumerates the mutations recorded in the change log.
type AuditAction string

const (
	ActionInsert AuditAction = "INSERT"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"
)

// AuditLogEntry is one immutable line of the change log: who did what to
// which record. Detail is the natural-language key rendering, Note free
// text describing the change.
type AuditLogEntry struct {
	Timestamp time.Time
	UserID    int64
	Username  string
	Action    AuditAction
	SheetName string
	Detail    string
	Note      string
}

// ConsumptionLogEntry records one stock draw-down.
type ConsumptionLogEntry struct {
	Timestamp time.Time
	UserID    int64
	Username  string
	ItemType  string
	Detail    string
	Quantity  int
	ItemNote  string
	Reason    string
}
