// Package session sequences one applicant's work on a draft: edits,
// background autosave, explicit draft saves, final submission and the fee
// payment that follows it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"admissions-portal/internal/admissions/autosave"
	"admissions-portal/internal/admissions/payment"
	"admissions-portal/internal/admissions/snapshot"
	"admissions-portal/internal/admissions/validation"
	"admissions-portal/internal/admissions/wire"
	apperrors "admissions-portal/internal/common/errors"
	"admissions-portal/internal/common/logger"
	"admissions-portal/internal/common/metrics"
	"admissions-portal/internal/common/portalapi"
	"admissions-portal/internal/models"
)

var (
	ErrBusy           = errors.New("SUBMISSION_IN_PROGRESS")
	ErrPaymentPending = errors.New("PAYMENT_PENDING")
	ErrNoPayment      = errors.New("NO_PAYMENT_OPEN")
	ErrClosed         = errors.New("SESSION_CLOSED")
)

// Notification texts shown to the applicant.
const (
	MsgDraftSaved       = "Draft saved successfully"
	MsgDraftSaveFailed  = "Failed to save draft. Please try again."
	MsgSubmitFailed     = "Failed to submit application. Please try again."
	MsgPaymentFailed    = "Could not start payment. Please try again."
	MsgPaymentSucceeded = "Payment successful"
	MsgPaymentCancelled = "Payment cancelled. Your application has been saved and you can pay later."
	MsgAlreadyPaid      = "Your application fee has already been paid"
)

// Backend submits encoded applications.
type Backend interface {
	SubmitApplication(ctx context.Context, level models.Level, payload *wire.Payload) (*portalapi.Envelope, error)
}

type Notifier interface {
	NotifyError(message string)
	NotifySuccess(message string)
	NotifyInfo(message string)
}

// StatusPage is where the applicant lands once the fee is settled.
type StatusPage struct {
	ApplicationID    string                 `json:"applicationId"`
	Level            models.Level           `json:"level"`
	HasPaid          bool                   `json:"hasPaid"`
	PaymentReference string                 `json:"paymentReference,omitempty"`
	Referees         []models.RefereeStatus `json:"referees"`
}

type Navigator interface {
	ShowStatus(page StatusPage)
}

type Options struct {
	Backend   Backend
	Store     snapshot.Store
	Gateway   payment.Gateway
	Navigator Navigator
	Notifier  Notifier
	Engine    *validation.Engine
	Fees      payment.FeeSchedule
	// BaseVersion is the version of the snapshot the draft was restored
	// from. The session's saves start above it.
	BaseVersion uint64
	// Autosave enables background saves when non-nil.
	Autosave *autosave.Config
	Logger   logger.Logger
}

type Session struct {
	opts Options
	log  logger.Logger

	mu          sync.Mutex
	draft       *models.ApplicationDraft
	version     uint64
	state       State
	busy        bool
	refereeErrs [2]string
	checkout    *payment.Handle

	autosave *autosave.Controller
}

// New starts a session over draft, which the session owns from then on.
func New(opts Options, draft *models.ApplicationDraft) *Session {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	s := &Session{
		opts:  opts,
		log:   logger.ForApplication(opts.Logger, draft.ApplicantID, string(draft.Level)),
		draft:   draft,
		version: opts.BaseVersion,
		state:   StateEditing,
	}
	if opts.Autosave != nil {
		s.autosave = autosave.New(*opts.Autosave, s, s.autosaveDraft, s.log)
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	s.log.Debug("session state changed", map[string]interface{}{"from": prev.String(), "to": st.String()})
}

// Latest returns a copy of the current draft and its version.
func (s *Session) Latest() (*models.ApplicationDraft, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone(), s.version
}

func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Update applies fn to the draft, bumps the version and schedules an
// autosave. Edits are accepted while a submission is in flight, and refused
// once a final submission has been accepted unless the payment is cancelled.
func (s *Session) Update(fn func(d *models.ApplicationDraft)) error {
	s.mu.Lock()
	switch {
	case s.state == StatePaymentModalOpen:
		s.mu.Unlock()
		return ErrPaymentPending
	case s.state.submitted():
		s.mu.Unlock()
		return ErrClosed
	case s.state == StateDraftSaved || s.state == StateSubmitError:
		s.state = StateEditing
	}
	fn(s.draft)
	s.version++
	s.mu.Unlock()

	if s.autosave != nil {
		s.autosave.Trigger()
	}
	return nil
}

// SetRefereeEmail stores the email of referee slot i (0 or 1) and checks it
// immediately. The outcome is available from RefereeError.
func (s *Session) SetRefereeEmail(i int, email string) error {
	if i < 0 || i > 1 {
		return fmt.Errorf("referee slot %d out of range", i)
	}
	res := s.opts.Engine.Referees().Validate(email)
	s.mu.Lock()
	if res.Valid {
		s.refereeErrs[i] = ""
	} else {
		s.refereeErrs[i] = res.Reason
	}
	s.mu.Unlock()

	return s.Update(func(d *models.ApplicationDraft) {
		d.References[i].Email = email
	})
}

// RefereeError is the last problem found with referee slot i's email, or "".
func (s *Session) RefereeError(i int) string {
	if i < 0 || i > 1 {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refereeErrs[i]
}

// begin claims the single submission slot and takes a fresh version so the
// response outranks any autosave already in flight.
func (s *Session) begin() (*models.ApplicationDraft, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.busy:
		return nil, 0, ErrBusy
	case s.state == StateRedirected:
		return nil, 0, ErrClosed
	case s.state == StatePaymentModalOpen:
		return nil, 0, ErrPaymentPending
	}
	s.busy = true
	s.version++
	return s.draft.Clone(), s.version, nil
}

// raiseVersion lifts the counter to at least v.
func (s *Session) raiseVersion(v uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v > s.version {
		s.version = v
	}
}

func (s *Session) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// autosaveDraft skips saves scheduled before a final submission was
// accepted.
func (s *Session) autosaveDraft(ctx context.Context, d *models.ApplicationDraft, version uint64) error {
	if st := s.State(); st == StatePaymentModalOpen || st.submitted() {
		s.log.Debug("autosave skipped after final submission", map[string]interface{}{"version": version})
		return autosave.ErrNothingToSave
	}
	_, err := s.persist(ctx, d, version, wire.ModeDraft)
	return err
}

// persist encodes and submits d, then caches the backend's record under
// version. A final submission's record always becomes the cached one.
func (s *Session) persist(ctx context.Context, d *models.ApplicationDraft, version uint64, mode wire.Mode) (models.ApplicationRecord, error) {
	level := string(d.Level)
	start := time.Now()
	env, err := s.opts.Backend.SubmitApplication(ctx, d.Level, wire.Encode(d, mode))
	metrics.SubmissionDuration.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Submissions.WithLabelValues(level, mode.String(), metrics.OutcomeFailure).Inc()
		return nil, err
	}
	rec, ok := env.First()
	if !ok {
		metrics.Submissions.WithLabelValues(level, mode.String(), metrics.OutcomeFailure).Inc()
		return nil, apperrors.NewInvalidResponseError("response carries no application")
	}
	metrics.Submissions.WithLabelValues(level, mode.String(), metrics.OutcomeSuccess).Inc()

	snap := &snapshot.Snapshot{
		ApplicantID: d.ApplicantID,
		Level:       d.Level,
		Version:     version,
		Record:      rec,
	}
	var applied bool
	if mode == wire.ModeFinal {
		var written uint64
		written, err = snapshot.SaveLatest(ctx, s.opts.Store, snap)
		applied = err == nil
		if applied {
			s.raiseVersion(written)
		}
	} else {
		applied, err = s.opts.Store.Save(ctx, snap)
	}
	switch {
	case err != nil:
		metrics.SnapshotWrites.WithLabelValues(metrics.OutcomeFailure).Inc()
		s.log.Warn("failed to cache application snapshot", map[string]interface{}{"error": err, "version": version})
	case !applied:
		metrics.SnapshotWrites.WithLabelValues(metrics.OutcomeStale).Inc()
		s.log.Debug("stale snapshot discarded", map[string]interface{}{"version": version})
	default:
		metrics.SnapshotWrites.WithLabelValues(metrics.OutcomeSuccess).Inc()
	}
	return rec, nil
}

func (s *Session) fail(msg string, err error) error {
	s.setState(StateSubmitError)
	s.opts.Notifier.NotifyError(msg)
	s.log.Warn(msg, map[string]interface{}{"error": err})
	s.setState(StateEditing)
	return err
}

func (s *Session) rejectInvalid(fe *validation.FieldError, d *models.ApplicationDraft) error {
	metrics.ValidationFailures.WithLabelValues(string(d.Level), fe.Field).Inc()
	s.opts.Notifier.NotifyError(fe.Message)
	s.setState(StateEditing)
	return apperrors.NewValidationFailedError(fe.Field, fe.Message)
}

// SaveDraft saves the draft on request and reports the outcome to the
// applicant. Only the referee email gate applies.
func (s *Session) SaveDraft(ctx context.Context) error {
	d, version, err := s.begin()
	if err != nil {
		return err
	}
	defer s.end()

	s.setState(StateValidating)
	if fe := s.opts.Engine.ValidateForDraft(d); fe != nil {
		return s.rejectInvalid(fe, d)
	}

	s.setState(StateSubmittingDraft)
	if _, err := s.persist(ctx, d, version, wire.ModeDraft); err != nil {
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.NewDraftSaveFailedError(err)
		}
		return s.fail(MsgDraftSaveFailed, err)
	}

	s.setState(StateDraftSaved)
	s.opts.Notifier.NotifySuccess(MsgDraftSaved)
	return nil
}

// Submit validates the whole draft and sends it as final. An application the
// backend already reports as paid goes straight to the status page;
// otherwise the fee checkout is opened.
func (s *Session) Submit(ctx context.Context) error {
	d, version, err := s.begin()
	if err != nil {
		return err
	}
	defer s.end()

	if s.autosave != nil {
		s.autosave.Cancel()
	}

	s.setState(StateValidating)
	if fe := s.opts.Engine.Validate(d); fe != nil {
		return s.rejectInvalid(fe, d)
	}

	s.setState(StateSubmittingFinal)
	rec, err := s.persist(ctx, d, version, wire.ModeFinal)
	if err != nil {
		return s.fail(MsgSubmitFailed, err)
	}

	if rec.HasPaid() {
		s.setState(StateAlreadyPaid)
		s.opts.Notifier.NotifyInfo(MsgAlreadyPaid)
		s.redirect(statusPage(d.Level, rec, ""))
		return nil
	}

	amount, currency := s.opts.Fees.For(d.ApplicantType)
	h, err := s.opts.Gateway.Open(ctx, payment.Checkout{
		AmountMinor: amount,
		Currency:    currency,
		Email:       d.PersonalDetails.Email,
		Metadata: map[string]string{
			payment.MetaApplicantID:   d.ApplicantID,
			payment.MetaApplicationID: rec.ID(),
			payment.MetaLevel:         string(d.Level),
			payment.MetaApplicantType: string(d.ApplicantType),
		},
	})
	if err != nil {
		return s.fail(MsgPaymentFailed, apperrors.NewPaymentFailedError(err))
	}
	metrics.PaymentsOpened.WithLabelValues(currency).Inc()

	s.mu.Lock()
	s.checkout = h
	s.state = StatePaymentModalOpen
	s.mu.Unlock()
	if s.autosave != nil {
		s.autosave.Cancel()
	}
	s.log.Info("payment checkout opened", map[string]interface{}{
		"reference": h.Reference,
		"amount":    amount,
		"currency":  currency,
	})
	return nil
}

// Checkout is the open payment, if any.
func (s *Session) Checkout() *payment.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout
}

func (s *Session) takeCheckout(next State) (*models.ApplicationDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaymentModalOpen {
		return nil, ErrNoPayment
	}
	s.checkout = nil
	s.state = next
	return s.draft.Clone(), nil
}

// PaymentSucceeded is called by the payment widget's host once the fee is
// paid. The applicant is redirected using the most recently cached
// snapshot rather than the submission response.
func (s *Session) PaymentSucceeded(ctx context.Context, reference string) error {
	d, err := s.takeCheckout(StatePaymentSuccess)
	if err != nil {
		return err
	}

	if err := s.opts.Store.MarkPaid(ctx, d.ApplicantID, d.Level, reference); err != nil {
		s.log.Error("failed to record payment", map[string]interface{}{"error": err, "reference": reference})
	}

	rec := models.ApplicationRecord{"has_paid": true}
	snap, err := s.opts.Store.Load(ctx, d.ApplicantID, d.Level)
	switch {
	case err == nil:
		rec = snap.Record
	case errors.Is(err, snapshot.ErrNotFound):
		s.log.Warn("no cached application after payment", nil)
	default:
		s.log.Error("failed to load application snapshot", map[string]interface{}{"error": err})
	}

	s.opts.Notifier.NotifySuccess(MsgPaymentSucceeded)
	page := statusPage(d.Level, rec, reference)
	page.HasPaid = true
	s.redirect(page)
	return nil
}

// PaymentCancelled returns to editing. The submitted application stays on
// the backend.
func (s *Session) PaymentCancelled() error {
	if _, err := s.takeCheckout(StatePaymentCancelled); err != nil {
		return err
	}
	s.opts.Notifier.NotifyInfo(MsgPaymentCancelled)
	s.log.Info("payment cancelled", nil)
	s.setState(StateEditing)
	return nil
}

func (s *Session) redirect(page StatusPage) {
	s.setState(StateRedirected)
	if s.autosave != nil {
		s.autosave.Stop()
	}
	s.opts.Navigator.ShowStatus(page)
}

// Close stops background saves, waiting for one in flight.
func (s *Session) Close() {
	if s.autosave != nil {
		s.autosave.Stop()
	}
}

func statusPage(level models.Level, rec models.ApplicationRecord, reference string) StatusPage {
	return StatusPage{
		ApplicationID:    rec.ID(),
		Level:            level,
		HasPaid:          rec.HasPaid(),
		PaymentReference: reference,
		Referees:         rec.RefereeStatuses(),
	}
}
