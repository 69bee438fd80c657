package entity

import "time"

// EventType classifies an audit entry.
type EventType string

const (
	EventUpdate   EventType = "update"
	EventKeyword  EventType = "keyword"
	EventError    EventType = "error"
	EventRecovery EventType = "recovery"
)

// SiteLog mirrors the `site_logs` table. Entries are append-only and removed
// only by retention trimming or when their site is deleted.
type SiteLog struct {
	ID        int64
	SiteID    int64
	EventType EventType
	Message   string
	OldHash   string // optional
	NewHash   string // optional
	Timestamp time.Time
}
