package models

import "time"

type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeWarning Outcome = "warning"
	OutcomeError   Outcome = "error"
)

// UsageRecord captures request metadata for the usage ledger. It never holds
// prompt or response content.
type UsageRecord struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	App        string    `json:"app"`
	HasText    bool      `json:"has_text"`
	HasImage   bool      `json:"has_image"`
	Streamed   bool      `json:"streamed"`
	Outcome    Outcome   `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// UsageSummary aggregates usage records per app and outcome.
type UsageSummary struct {
	App     string  `json:"app"`
	Outcome Outcome `json:"outcome"`
	Count   int64   `json:"count"`
}
