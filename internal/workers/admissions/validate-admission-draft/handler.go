// internal/workers/admissions/validate-admission-draft/handler.go
package validateadmissiondraft

import (
	"context"
	"fmt"

	"admissions-portal/internal/admissions/validation"
	"admissions-portal/internal/admissions/wire"
	apperrors "admissions-portal/internal/common/errors"
	"admissions-portal/internal/common/logger"
	"admissions-portal/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/goccy/go-json"
)

const (
	TaskType = "validate-admission-draft"
)

type Handler struct {
	config     *Config
	engine     *validation.Engine
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, engine *validation.Engine, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		engine:     engine,
		logger:     log,
		errHandler: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

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
		h.logger.Error("failed to complete job", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

// execute never fails on an invalid draft; the verdict is the job's output.
func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	d := &input.Draft
	if d.ApplicantID == "" || !d.Level.Valid() {
		return nil, apperrors.NewInvalidInputError("draft needs an applicantId and a known level")
	}
	mode, err := wire.ParseMode(input.Mode)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	out := &Output{IsValid: true, Mode: mode.String(), Missing: []string{}}

	var fe *validation.FieldError
	if mode == wire.ModeFinal {
		fe = h.engine.Validate(d)
		missing, err := h.engine.Missing(d)
		if err != nil {
			return nil, fmt.Errorf("check required fields: %w", err)
		}
		if len(missing) > 0 {
			out.Missing = missing
		}
	} else {
		fe = h.engine.ValidateForDraft(d)
	}

	if fe != nil {
		out.IsValid = false
		out.Field = fe.Field
		out.Code = fe.Code
		out.Message = fe.Message
		metrics.ValidationFailures.WithLabelValues(string(d.Level), fe.Field).Inc()
	}

	h.logger.Info("validation completed", map[string]interface{}{
		"applicantId":  d.ApplicantID,
		"level":        string(d.Level),
		"mode":         out.Mode,
		"isValid":      out.IsValid,
		"missingCount": len(out.Missing),
	})
	return out, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
