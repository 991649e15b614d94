// internal/workers/watchdog/check-overdue/handler.go
package checkoverdue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"overdue-watchdog/internal/common/errors"
	"overdue-watchdog/internal/common/logger"
	"overdue-watchdog/internal/models"
	"overdue-watchdog/internal/watchdog/report"
	"overdue-watchdog/internal/watchdog/runner"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/xeipuuv/gojsonschema"
)

const TaskType = "check-overdue"

// Runner is the part of runner.Runner the worker needs.
type Runner interface {
	Run(ctx context.Context, now time.Time) (*models.RunResult, error)
}

type Handler struct {
	config       *Config
	runner       Runner
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	schema       *gojsonschema.Schema
	clock        func() time.Time
}

func NewHandler(config *Config, r Runner, log logger.Logger) (*Handler, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(inputSchema))
	if err != nil {
		return nil, fmt.Errorf("compile input schema: %w", err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		runner:       r,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
		schema:       schema,
		clock:        time.Now,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// parseInput validates the raw variables before decoding them.
func (h *Handler) parseInput(variables string) (*Input, error) {
	if strings.TrimSpace(variables) == "" {
		variables = "{}"
	}

	result, err := h.schema.Validate(gojsonschema.NewStringLoader(variables))
	if err != nil {
		return nil, errors.NewInvalidTriggerInputError(fmt.Sprintf("parse variables: %v", err))
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, errors.NewInvalidTriggerInputError(strings.Join(errs, "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidTriggerInputError(fmt.Sprintf("parse variables: %v", err))
	}
	return &input, nil
}

// Execute runs one overdue pass. A failed run is returned as an error so the job is
// retried or thrown; per-subject failures are part of a successful output.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	now := h.clock()
	if input != nil && input.Now != "" {
		parsed, err := time.Parse(time.RFC3339, input.Now)
		if err != nil {
			return nil, errors.NewInvalidTriggerInputError(fmt.Sprintf("now: %v", err))
		}
		now = parsed
	}

	result, err := h.runner.Run(runner.WithTrigger(ctx, "zeebe"), now)
	if err != nil {
		return nil, err
	}

	out := report.Build(result, nil)
	return &out, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
