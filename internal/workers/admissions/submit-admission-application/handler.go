// internal/workers/admissions/submit-admission-application/handler.go
package submitadmissionapplication

import (
	"context"
	"fmt"
	"time"

	"admissions-portal/internal/admissions/payment"
	"admissions-portal/internal/admissions/snapshot"
	"admissions-portal/internal/admissions/validation"
	"admissions-portal/internal/admissions/wire"
	apperrors "admissions-portal/internal/common/errors"
	"admissions-portal/internal/common/logger"
	"admissions-portal/internal/common/metrics"
	"admissions-portal/internal/common/observability"
	"admissions-portal/internal/common/portalapi"
	"admissions-portal/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/goccy/go-json"
)

const (
	TaskType = "submit-admission-application"
)

type Handler struct {
	config     *Config
	api        *portalapi.Client
	store      snapshot.Store
	gateway    payment.Gateway
	engine     *validation.Engine
	fees       payment.FeeSchedule
	obs        *observability.Observability
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(
	config *Config,
	api *portalapi.Client,
	store snapshot.Store,
	gateway payment.Gateway,
	engine *validation.Engine,
	fees payment.FeeSchedule,
	log logger.Logger,
) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		api:        api,
		store:      store,
		gateway:    gateway,
		engine:     engine,
		fees:       fees,
		logger:     log,
		errHandler: apperrors.NewErrorHandler(log),
	}
}

// WithObservability also reports submissions through obs.
func (h *Handler) WithObservability(obs *observability.Observability) *Handler {
	h.obs = obs
	return h
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	d := &input.Draft
	if d.ApplicantID == "" || !d.Level.Valid() {
		return nil, apperrors.NewInvalidInputError("draft needs an applicantId and a known level")
	}
	mode, err := wire.ParseMode(input.Mode)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	log := logger.ForApplication(h.logger, d.ApplicantID, string(d.Level)).
		WithFields(map[string]interface{}{"mode": mode.String(), "version": input.Version})

	fe := h.engine.ValidateForDraft(d)
	if mode == wire.ModeFinal {
		fe = h.engine.Validate(d)
	}
	if fe != nil {
		metrics.ValidationFailures.WithLabelValues(string(d.Level), fe.Field).Inc()
		log.Info("submission blocked by validation", map[string]interface{}{"field": fe.Field})
		return nil, apperrors.NewValidationFailedError(fe.Field, fe.Message)
	}

	api := h.api
	if input.Token != "" {
		api = api.WithToken(input.Token)
	}

	start := time.Now()
	env, err := api.SubmitApplication(ctx, d.Level, wire.Encode(d, mode))
	metrics.SubmissionDuration.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		h.recordSubmission(ctx, d.Level, mode, metrics.OutcomeFailure)
		if _, ok := apperrors.As(err); !ok && mode == wire.ModeDraft {
			err = apperrors.NewDraftSaveFailedError(err)
		}
		return nil, err
	}
	rec, ok := env.First()
	if !ok {
		h.recordSubmission(ctx, d.Level, mode, metrics.OutcomeFailure)
		return nil, apperrors.NewInvalidResponseError("response carries no application")
	}
	h.recordSubmission(ctx, d.Level, mode, metrics.OutcomeSuccess)

	out := &Output{
		ApplicationID: rec.ID(),
		Level:         string(d.Level),
		Mode:          mode.String(),
		HasPaid:       rec.HasPaid(),
		NextStep:      NextStepEditing,
		Referees:      rec.RefereeStatuses(),
	}
	out.SnapshotApplied = h.cache(ctx, d, mode, input.Version, rec, log)

	if mode == wire.ModeDraft {
		log.Info("draft saved", map[string]interface{}{"applicationId": out.ApplicationID})
		return out, nil
	}

	if out.HasPaid {
		out.NextStep = NextStepStatus
		log.Info("application already paid", map[string]interface{}{"applicationId": out.ApplicationID})
		return out, nil
	}

	out.NextStep = NextStepPayment
	out.AmountMinor, out.Currency = h.fees.For(d.ApplicantType)
	if !h.config.OpenPayment || h.gateway == nil {
		return out, nil
	}

	handle, err := h.gateway.Open(ctx, payment.Checkout{
		AmountMinor: out.AmountMinor,
		Currency:    out.Currency,
		Email:       d.PersonalDetails.Email,
		Metadata: map[string]string{
			payment.MetaApplicantID:   d.ApplicantID,
			payment.MetaApplicationID: out.ApplicationID,
			payment.MetaLevel:         string(d.Level),
			payment.MetaApplicantType: string(d.ApplicantType),
		},
	})
	if err != nil {
		return nil, apperrors.NewPaymentFailedError(err)
	}
	metrics.PaymentsOpened.WithLabelValues(out.Currency).Inc()

	out.PaymentReference = handle.Reference
	out.PaymentToken = handle.Token
	out.PaymentURL = handle.RedirectURL
	log.Info("payment checkout opened", map[string]interface{}{
		"applicationId": out.ApplicationID,
		"reference":     handle.Reference,
		"amount":        out.AmountMinor,
		"currency":      out.Currency,
	})
	return out, nil
}

func (h *Handler) recordSubmission(ctx context.Context, level models.Level, mode wire.Mode, outcome string) {
	metrics.Submissions.WithLabelValues(string(level), mode.String(), outcome).Inc()
	if h.obs != nil {
		h.obs.RecordSubmission(ctx, mode.String(), outcome)
	}
}

// cache stores rec as the applicant's snapshot. A final submission always
// replaces the held snapshot; a draft loses to a higher version. Store
// failures do not fail the submission, which the backend has already
// accepted.
func (h *Handler) cache(ctx context.Context, d *models.ApplicationDraft, mode wire.Mode, version uint64, rec models.ApplicationRecord, log logger.Logger) bool {
	snap := &snapshot.Snapshot{
		ApplicantID: d.ApplicantID,
		Level:       d.Level,
		Version:     version,
		Record:      rec,
	}
	var (
		applied bool
		err     error
	)
	if mode == wire.ModeFinal {
		_, err = snapshot.SaveLatest(ctx, h.store, snap)
		applied = err == nil
	} else {
		applied, err = h.store.Save(ctx, snap)
	}
	switch {
	case err != nil:
		metrics.SnapshotWrites.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.Warn("failed to cache application snapshot", map[string]interface{}{"error": err})
	case !applied:
		metrics.SnapshotWrites.WithLabelValues(metrics.OutcomeStale).Inc()
		log.Debug("stale snapshot discarded", nil)
	default:
		metrics.SnapshotWrites.WithLabelValues(metrics.OutcomeSuccess).Inc()
	}
	return applied
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
