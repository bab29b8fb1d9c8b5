// internal/workers/admissions/confirm-admission-payment/handler.go
package confirmadmissionpayment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"admissions-portal/internal/admissions/snapshot"
	apperrors "admissions-portal/internal/common/errors"
	"admissions-portal/internal/common/logger"
	"admissions-portal/internal/common/metrics"
	"admissions-portal/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/goccy/go-json"
)

const (
	TaskType = "confirm-admission-payment"
)

type Handler struct {
	config     *Config
	store      snapshot.Store
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, store snapshot.Store, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		store:      store,
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

// execute records the payment and builds the status page from the cached
// snapshot. The paid flag is forced even when no snapshot exists.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicantID == "" || !input.Level.Valid() {
		return nil, apperrors.NewInvalidInputError("applicantId and a known level are required")
	}
	if strings.TrimSpace(input.Reference) == "" {
		return nil, apperrors.NewInvalidInputError("paymentReference is required")
	}
	log := logger.ForApplication(h.logger, input.ApplicantID, string(input.Level))

	if err := h.store.MarkPaid(ctx, input.ApplicantID, input.Level, input.Reference); err != nil {
		metrics.SnapshotWrites.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, apperrors.NewSnapshotStoreFailedError("mark-paid", err)
	}
	metrics.SnapshotWrites.WithLabelValues(metrics.OutcomeSuccess).Inc()

	rec := models.ApplicationRecord{}
	snap, err := h.store.Load(ctx, input.ApplicantID, input.Level)
	switch {
	case err == nil:
		rec = snap.Record
	case errors.Is(err, snapshot.ErrNotFound):
		log.Warn("no cached application after payment", nil)
	default:
		return nil, apperrors.NewSnapshotStoreFailedError("load", err)
	}

	log.Info("payment confirmed", map[string]interface{}{
		"applicationId": rec.ID(),
		"reference":     input.Reference,
	})
	return &Output{
		ApplicationID:    rec.ID(),
		Level:            string(input.Level),
		HasPaid:          true,
		PaymentReference: input.Reference,
		RedirectTo:       RedirectStatus,
		Referees:         rec.RefereeStatuses(),
	}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
