// Package runner orchestrates one overdue run: load, evaluate, escalate, report.
package runner

import (
	"context"
	"fmt"
	"time"

	"overdue-watchdog/internal/common/config"
	"overdue-watchdog/internal/common/errors"
	"overdue-watchdog/internal/common/logger"
	"overdue-watchdog/internal/common/metrics"
	"overdue-watchdog/internal/models"
	"overdue-watchdog/internal/watchdog/escalation"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

type StateSource interface {
	QueryUnalertedWithCheckIn(ctx context.Context) ([]models.WatchdogState, error)
}

type ProfileSource interface {
	GetProfile(ctx context.Context, subjectID string) (*models.Profile, error)
}

type ContactSource interface {
	GetContactsOrderedByPriority(ctx context.Context, subjectID string) ([]models.Contact, error)
}

type Escalator interface {
	Escalate(ctx context.Context, state models.WatchdogState, profile *models.Profile, contacts []models.Contact) (models.EscalationOutcome, error)
}

// RunRecorder receives one observation per run.
type RunRecorder interface {
	RecordRun(ctx context.Context, trigger, status string, duration time.Duration)
}

// AuditSink stores the outcome of a run. runErr is set when the run failed as a whole.
type AuditSink interface {
	Record(ctx context.Context, result *models.RunResult, runErr error) error
}

type Option func(*Runner)

func WithRecorder(rec RunRecorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func WithAuditSink(sink AuditSink) Option {
	return func(r *Runner) { r.audit = sink }
}

type Runner struct {
	states    StateSource
	profiles  ProfileSource
	contacts  ContactSource
	escalator Escalator
	logger    logger.Logger
	poolSize  int
	recorder  RunRecorder
	audit     AuditSink
}

func NewRunner(states StateSource, profiles ProfileSource, contacts ContactSource, escalator Escalator, cfg config.WatchdogConfig, log logger.Logger, opts ...Option) *Runner {
	size := cfg.WorkerPoolSize
	if size <= 0 {
		size = 1
	}
	r := &Runner{
		states:    states,
		profiles:  profiles,
		contacts:  contacts,
		escalator: escalator,
		logger:    log.WithFields(map[string]interface{}{"component": "runner"}),
		poolSize:  size,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type triggerKey struct{}

// WithTrigger tags ctx with what started the run ("http", "zeebe", "schedule", "cli").
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func triggerFrom(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok && t != "" {
		return t
	}
	return "unknown"
}

// Run evaluates every armed subject against now and escalates the overdue ones.
//
// Only a failure to load the initial states fails the run. Every per-subject failure
// is reported as an error outcome and the rest of the batch carries on.
func (r *Runner) Run(ctx context.Context, now time.Time) (*models.RunResult, error) {
	start := time.Now()
	trigger := triggerFrom(ctx)
	result := &models.RunResult{
		RunID:     uuid.NewString(),
		Timestamp: now.UTC(),
	}
	log := r.logger.WithFields(map[string]interface{}{"runId": result.RunID, "trigger": trigger})

	log.Info("overdue run started", map[string]interface{}{"now": result.Timestamp.Format(time.RFC3339)})

	states, err := r.states.QueryUnalertedWithCheckIn(ctx)
	if err != nil {
		runErr := errors.NewStateLoadFailedError(err)
		log.Error("overdue run failed", map[string]interface{}{"error": runErr})
		r.finish(ctx, log, trigger, result, runErr, start)
		return result, runErr
	}

	overdue := escalation.EvaluateOverdue(states, now)
	result.Evaluated = len(states)
	result.UsersOverdue = len(overdue)
	metrics.SubjectsOverdue.Set(float64(len(overdue)))

	log.Info("overdue subjects found", map[string]interface{}{
		"overdue":   len(overdue),
		"evaluated": len(states),
	})

	result.Outcomes = make([]models.EscalationOutcome, len(overdue))
	p := pool.New().WithMaxGoroutines(r.poolSize)
	for i, st := range overdue {
		i, st := i, st
		p.Go(func() {
			result.Outcomes[i] = r.processSubject(ctx, log, st)
		})
	}
	p.Wait()

	r.finish(ctx, log, trigger, result, nil, start)
	return result, nil
}

func (r *Runner) processSubject(ctx context.Context, log logger.Logger, st models.WatchdogState) (outcome models.EscalationOutcome) {
	log = log.WithFields(map[string]interface{}{"subjectId": st.SubjectID})
	failed := models.EscalationOutcome{SubjectID: st.SubjectID, Status: models.StatusError}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("subject escalation panicked", map[string]interface{}{
				"error": errors.NewInternalError(fmt.Errorf("panic: %v", rec)),
			})
			metrics.EscalationsTotal.WithLabelValues(string(models.StatusError)).Inc()
			outcome = failed
		}
	}()

	profile, err := r.profiles.GetProfile(ctx, st.SubjectID)
	if err != nil {
		log.Error("subject escalation failed", map[string]interface{}{
			"error": errors.NewProfileLookupFailedError(st.SubjectID, err),
		})
		metrics.EscalationsTotal.WithLabelValues(string(models.StatusError)).Inc()
		return failed
	}

	contacts, err := r.contacts.GetContactsOrderedByPriority(ctx, st.SubjectID)
	if err != nil {
		log.Error("subject escalation failed", map[string]interface{}{
			"error": errors.NewContactLookupFailedError(st.SubjectID, err),
		})
		metrics.EscalationsTotal.WithLabelValues(string(models.StatusError)).Inc()
		return failed
	}

	// the engine logs and counts its own failures
	outcome, _ = r.escalator.Escalate(ctx, st, profile, contacts)
	return outcome
}

func (r *Runner) finish(ctx context.Context, log logger.Logger, trigger string, result *models.RunResult, runErr error, start time.Time) {
	elapsed := time.Since(start)
	status := "success"
	if runErr != nil {
		status = "failure"
	}

	metrics.RunsTotal.WithLabelValues(status).Inc()
	metrics.RunDuration.Observe(elapsed.Seconds())
	if r.recorder != nil {
		r.recorder.RecordRun(ctx, trigger, status, elapsed)
	}

	if runErr == nil {
		counts := result.CountByStatus()
		log.Info("overdue run completed", map[string]interface{}{
			"overdue":           result.UsersOverdue,
			"alerted":           counts[models.StatusAlerted],
			"skippedNoContacts": counts[models.StatusSkippedNoContacts],
			"errors":            counts[models.StatusError],
			"durationMs":        elapsed.Milliseconds(),
		})
	}

	if r.audit != nil {
		if err := r.audit.Record(ctx, result, runErr); err != nil {
			log.Warn("failed to record run audit", map[string]interface{}{"error": err})
		}
	}
}
