package model

import "time"

// Evidence is a monitored legislative source snapshot. The content hash
// is taken over normalized text; a hash change marks the mapping built on
// it for re-analysis.
type Evidence struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	HashSHA256      string    `json:"hash_sha256"`
	HashChanged     bool      `json:"hash_changed"`
	ContentSnapshot string    `json:"content_snapshot,omitempty"`
	TaskID          int64     `json:"task_id,omitempty"`
	Agent           string    `json:"agent,omitempty"`
	UF              string    `json:"uf,omitempty"`
	CapturedAt      time.Time `json:"captured_at"`
	LastCheckedAt   time.Time `json:"last_checked_at"`
}
