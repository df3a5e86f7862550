// Package models contains the persisted row types.
package models

import (
	"time"
)

// EventRow is one row of the events table.
type EventRow struct {
	ID       int64     `json:"id"`
	Position int       `json:"position"`
	Title    string    `json:"title"`
	StartAt  time.Time `json:"start_at"`
	EndAt    time.Time `json:"end_at"`
	Category string    `json:"category"`
	Detail   string    `json:"detail"`
}

// Meta keys.
const (
	MetaNextEventID = "next_event_id"
)
