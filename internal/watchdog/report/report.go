// Package report renders a run into the JSON document returned to triggers.
package report

import (
	"encoding/json"
	"time"

	"overdue-watchdog/internal/models"
)

// TimestampFormat is ISO-8601 in UTC with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Report is the run result shape. A failed run carries only success, timestamp and error.
type Report struct {
	Success        bool                       `json:"success"`
	RunID          string                     `json:"runId,omitempty"`
	Timestamp      string                     `json:"timestamp"`
	UsersEvaluated int                        `json:"usersEvaluated"`
	UsersOverdue   int                        `json:"usersOverdue"`
	Results        []models.EscalationOutcome `json:"results"`
	Error          string                     `json:"error,omitempty"`
}

type failureView struct {
	Success   bool   `json:"success"`
	RunID     string `json:"runId,omitempty"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(failureView{
			Success:   false,
			RunID:     r.RunID,
			Timestamp: r.Timestamp,
			Error:     r.Error,
		})
	}
	type plain Report
	p := plain(r)
	if p.Results == nil {
		p.Results = []models.EscalationOutcome{}
	}
	return json.Marshal(p)
}

// FormatTimestamp renders t in the report format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Build renders a run. runErr marks the whole run as failed.
func Build(result *models.RunResult, runErr error) Report {
	if runErr != nil {
		return Failure(result, runErr)
	}
	return Report{
		Success:        true,
		RunID:          result.RunID,
		Timestamp:      FormatTimestamp(result.Timestamp),
		UsersEvaluated: result.Evaluated,
		UsersOverdue:   result.UsersOverdue,
		Results:        result.Outcomes,
	}
}

// Failure renders a run that never produced outcomes. result may be nil when the run
// did not start.
func Failure(result *models.RunResult, err error) Report {
	r := Report{Success: false, Error: "Unknown error"}
	if err != nil {
		r.Error = err.Error()
	}
	if result != nil {
		r.RunID = result.RunID
		r.Timestamp = FormatTimestamp(result.Timestamp)
	} else {
		r.Timestamp = FormatTimestamp(time.Now())
	}
	return r
}
