// Package escalation decides which subjects are overdue and notifies their contacts.
package escalation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"overdue-watchdog/internal/common/config"
	"overdue-watchdog/internal/common/errors"
	"overdue-watchdog/internal/common/logger"
	"overdue-watchdog/internal/common/metrics"
	"overdue-watchdog/internal/models"
	"overdue-watchdog/internal/watchdog/notify"

	"github.com/sourcegraph/conc/pool"
)

// DefaultDisplayName is used when a subject has neither a name nor an email.
const DefaultDisplayName = "A user"

// AlertFlagger persists the alerted state of a subject.
type AlertFlagger interface {
	SetAlerted(ctx context.Context, subjectID string) error
}

// Engine escalates overdue subjects. It is safe for concurrent use across subjects.
type Engine struct {
	transport          notify.Transport
	flags              AlertFlagger
	logger             logger.Logger
	contactConcurrency int
	fallbackName       string
}

func NewEngine(transport notify.Transport, flags AlertFlagger, cfg config.WatchdogConfig, log logger.Logger) *Engine {
	concurrency := cfg.ContactConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	fallback := cfg.FallbackDisplayName
	if fallback == "" {
		fallback = DefaultDisplayName
	}
	return &Engine{
		transport:          transport,
		flags:              flags,
		logger:             log.WithFields(map[string]interface{}{"component": "escalation"}),
		contactConcurrency: concurrency,
		fallbackName:       fallback,
	}
}

// EvaluateOverdue returns the armed states whose deadline is strictly before now,
// preserving input order. It has no side effects.
func EvaluateOverdue(states []models.WatchdogState, now time.Time) []models.WatchdogState {
	var overdue []models.WatchdogState
	for _, st := range states {
		if st.AlertSent() {
			continue
		}
		if st.IsOverdue(now) {
			overdue = append(overdue, st)
		}
	}
	return overdue
}

// ResolveDisplayName prefers the profile name, then the email, then fallback.
func ResolveDisplayName(profile *models.Profile, fallback string) string {
	if profile != nil {
		if name := strings.TrimSpace(profile.DisplayName); name != "" {
			return name
		}
		if email := strings.TrimSpace(profile.Email); email != "" {
			return email
		}
	}
	return fallback
}

// RenderMessage replaces every occurrence of both tokens. Either may be absent.
func RenderMessage(template, displayName string, intervalHours int) string {
	r := strings.NewReplacer(
		models.TokenUserName, displayName,
		models.TokenInterval, strconv.Itoa(intervalHours),
	)
	return r.Replace(template)
}

// SortByPriority orders contacts ascending by priority, keeping input order for ties.
func SortByPriority(contacts []models.Contact) []models.Contact {
	sorted := make([]models.Contact, len(contacts))
	copy(sorted, contacts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

// Escalate notifies every contact of an overdue subject and marks it alerted.
//
// With no contacts the subject is left armed and reported as skipped_no_contacts.
// Otherwise the flag is set regardless of how many sends succeeded, so a broken
// transport cannot cause the same episode to be re-alerted on every run. Only a
// failure to persist the flag turns the outcome into an error.
func (e *Engine) Escalate(ctx context.Context, state models.WatchdogState, profile *models.Profile, contacts []models.Contact) (models.EscalationOutcome, error) {
	outcome := models.EscalationOutcome{SubjectID: state.SubjectID}
	log := e.logger.WithFields(map[string]interface{}{"subjectId": state.SubjectID})

	if len(contacts) == 0 {
		log.Warn("overdue subject has no emergency contacts", nil)
		outcome.Status = models.StatusSkippedNoContacts
		metrics.EscalationsTotal.WithLabelValues(string(outcome.Status)).Inc()
		return outcome, nil
	}

	message := RenderMessage(state.AlertMessageTemplate, ResolveDisplayName(profile, e.fallbackName), state.IntervalHours)
	notified := e.notifyAll(ctx, log, SortByPriority(contacts), message)

	if err := e.flags.SetAlerted(ctx, state.SubjectID); err != nil {
		stdErr := errors.NewAlertFlagUpdateFailedError(state.SubjectID, err)
		log.Error("failed to persist alert flag", map[string]interface{}{
			"error":            stdErr,
			"contactsNotified": notified,
		})
		outcome.Status = models.StatusError
		metrics.EscalationsTotal.WithLabelValues(string(outcome.Status)).Inc()
		return outcome, stdErr
	}

	outcome.Status = models.StatusAlerted
	outcome.ContactsNotified = notified
	metrics.EscalationsTotal.WithLabelValues(string(outcome.Status)).Inc()

	log.Info("subject escalated", map[string]interface{}{
		"contacts":         len(contacts),
		"contactsNotified": notified,
		"mode":             e.transport.Mode(),
	})
	return outcome, nil
}

// notifyAll fans out to contacts and returns the number of successful sends. With a
// concurrency of one the sends happen in the order given.
func (e *Engine) notifyAll(ctx context.Context, log logger.Logger, contacts []models.Contact, message string) int {
	var notified atomic.Int64
	mode := e.transport.Mode()

	p := pool.New().WithMaxGoroutines(e.contactConcurrency)
	for _, c := range contacts {
		c := c
		p.Go(func() {
			if err := e.send(ctx, c, message); err != nil {
				metrics.NotificationsTotal.WithLabelValues(mode, "failure").Inc()
				log.Error("failed to notify contact", map[string]interface{}{
					"contactId": c.ID,
					"contact":   c.Name,
					"priority":  c.Priority,
					"error":     err,
				})
				return
			}
			metrics.NotificationsTotal.WithLabelValues(mode, "success").Inc()
			notified.Add(1)
			log.Info("contact notified", map[string]interface{}{
				"contactId": c.ID,
				"contact":   c.Name,
				"priority":  c.Priority,
				"mode":      mode,
			})
		})
	}
	p.Wait()

	return int(notified.Load())
}

func (e *Engine) send(ctx context.Context, c models.Contact, message string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()
	if strings.TrimSpace(c.PhoneNumber) == "" {
		return fmt.Errorf("contact %s has no phone number", c.ID)
	}
	return e.transport.Send(ctx, c.PhoneNumber, message)
}
