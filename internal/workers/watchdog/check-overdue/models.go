// internal/workers/watchdog/check-overdue/models.go
package checkoverdue

import "overdue-watchdog/internal/watchdog/report"

// Input is the job variables. Now overrides the evaluation instant, mainly for replays.
type Input struct {
	Now string `json:"now,omitempty"`
}

// Output is completed onto the process instance as variables.
type Output = report.Report

const inputSchema = `{
	"type": "object",
	"properties": {
		"now": {"type": "string", "format": "date-time"}
	}
}`
