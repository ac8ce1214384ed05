package domain

import "time"

// Outcome of a reconciliation trigger.
type Outcome string

const (
	OutcomeIgnored Outcome = "ignored"
	OutcomeDone    Outcome = "done"
	OutcomeFailed  Outcome = "failed"

	// OutcomeRejected is for event payloads that could not be decoded.
	OutcomeRejected Outcome = "rejected"
)

// Report describes one finished reconciliation pass.
//
// Reports exist for observability only; nothing reads them back to decide
// what to push.
type Report struct {
	RunID          string        `json:"run_id"`
	Trigger        string        `json:"trigger"`
	Outcome        Outcome       `json:"outcome"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	Attempts       int           `json:"attempts"`
	LoadBalancerID string        `json:"load_balancer_id,omitempty"`
	ServiceLinks   int           `json:"service_links"`
	Certificates   int           `json:"certificates"`
	Skipped        int           `json:"skipped"`
	Error          string        `json:"error,omitempty"`
}
