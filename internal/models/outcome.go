// internal/models/outcome.go
package models

import "time"

// OutcomeStatus is the per-subject result of one escalation pass.
type OutcomeStatus string

const (
	StatusAlerted           OutcomeStatus = "alerted"
	StatusSkippedNoContacts OutcomeStatus = "skipped_no_contacts"
	StatusError             OutcomeStatus = "error"
)

// EscalationOutcome is created fresh every run and never persisted.
type EscalationOutcome struct {
	SubjectID        string        `json:"subjectId"`
	Status           OutcomeStatus `json:"status"`
	ContactsNotified int           `json:"contactsNotified"`
}

// RunResult is the aggregate of one watchdog run.
type RunResult struct {
	RunID        string              `json:"runId"`
	Timestamp    time.Time           `json:"timestamp"`
	Evaluated    int                 `json:"usersEvaluated"`
	UsersOverdue int                 `json:"usersOverdue"`
	Outcomes     []EscalationOutcome `json:"results"`
}

// CountByStatus tallies outcomes, used for logging and metrics.
func (r *RunResult) CountByStatus() map[OutcomeStatus]int {
	counts := make(map[OutcomeStatus]int, 3)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}
