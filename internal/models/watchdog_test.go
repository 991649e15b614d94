package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatchdogState_IsOverdue(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		lastCheckIn *time.Time
		interval    int
		now         time.Time
		want        bool
	}{
		{"never checked in", nil, 1, t0.Add(1000 * time.Hour), false},
		{"well past deadline", &t0, 24, t0.Add(25 * time.Hour), true},
		{"exactly at deadline", &t0, 24, t0.Add(24 * time.Hour), false},
		{"one nanosecond past", &t0, 24, t0.Add(24*time.Hour + time.Nanosecond), true},
		{"inside interval", &t0, 24, t0.Add(23 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := WatchdogState{SubjectID: "s", IntervalHours: tt.interval, LastCheckIn: tt.lastCheckIn}
			assert.Equal(t, tt.want, s.IsOverdue(tt.now))
		})
	}
}

func TestAlertStateFromFlag(t *testing.T) {
	assert.Equal(t, AlertStateAlerted, AlertStateFromFlag(true))
	assert.Equal(t, AlertStateArmed, AlertStateFromFlag(false))
	assert.True(t, WatchdogState{State: AlertStateAlerted}.AlertSent())
	assert.False(t, WatchdogState{State: AlertStateArmed}.AlertSent())
}
