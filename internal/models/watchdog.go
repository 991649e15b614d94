// internal/models/watchdog.go
package models

import "time"

// AlertState is the two-state watchdog per subject. A subject moves armed -> alerted
// when it is escalated; only a fresh check-in, written outside this service, moves it back.
type AlertState string

const (
	AlertStateArmed   AlertState = "armed"
	AlertStateAlerted AlertState = "alerted"
)

// AlertStateFromFlag maps the persisted alert_sent column onto the state.
func AlertStateFromFlag(alertSent bool) AlertState {
	if alertSent {
		return AlertStateAlerted
	}
	return AlertStateArmed
}

// Placeholder tokens recognised in alert message templates.
const (
	TokenUserName = "{user_name}"
	TokenInterval = "{interval}"
)

// WatchdogState is one subject's check-in settings.
type WatchdogState struct {
	SubjectID            string     `json:"subjectId"`
	IntervalHours        int        `json:"intervalHours"`
	AlertMessageTemplate string     `json:"alertMessageTemplate"`
	LastCheckIn          *time.Time `json:"lastCheckIn,omitempty"`
	State                AlertState `json:"state"`
}

// AlertSent reports whether the current overdue episode has already been escalated.
func (s WatchdogState) AlertSent() bool {
	return s.State == AlertStateAlerted
}

// Deadline is lastCheckIn + intervalHours. ok is false when the subject never checked in.
func (s WatchdogState) Deadline() (deadline time.Time, ok bool) {
	if s.LastCheckIn == nil {
		return time.Time{}, false
	}
	return s.LastCheckIn.Add(time.Duration(s.IntervalHours) * time.Hour), true
}

// IsOverdue is strict: a subject exactly at its deadline is not overdue.
func (s WatchdogState) IsOverdue(now time.Time) bool {
	deadline, ok := s.Deadline()
	if !ok {
		return false
	}
	return now.After(deadline)
}

// Contact is one emergency contact of a subject. Lower priority is notified first.
type Contact struct {
	ID          string `json:"id"`
	SubjectID   string `json:"subjectId"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Priority    int    `json:"priority"`
}

// Profile is a subject's display identity. Both fields may be empty.
type Profile struct {
	SubjectID   string `json:"subjectId"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}
