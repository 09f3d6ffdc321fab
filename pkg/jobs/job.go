// Package jobs implements the at-least-once delayed job queue and the
// per-class retry/discard runtime that drives it (spec.md §4.11).
package jobs

import (
	"encoding/json"
	"time"
)

// Job classes the ingestion pipeline enqueues.
const (
	ClassHandleEvent   = "handle_event"
	ClassFetchUser     = "fetch_user"
	ClassFetchRepo     = "fetch_repo"
	ClassFetchOrg      = "fetch_org"
	ClassProcessAvatar = "process_avatar"
)

// Job is a unit of work on the queue. Args is the class-specific payload,
// kept as raw JSON so the queue itself stays class-agnostic.
type Job struct {
	ID        string          `json:"id"`
	Class     string          `json:"class"`
	Args      json.RawMessage `json:"args"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"created_at"`
	RunAt     time.Time       `json:"run_at"`
}
