// Package snapshot keeps the last application record the backend returned
// for each applicant and level. Writes are guarded by a draft version so an
// older response never replaces a newer one.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"admissions-portal/internal/models"

	"github.com/goccy/go-json"
)

var (
	ErrNotFound       = errors.New("SNAPSHOT_NOT_FOUND")
	ErrInvalidKey     = errors.New("SNAPSHOT_INVALID_KEY")
	ErrCorruptPayload = errors.New("SNAPSHOT_CORRUPT")
	ErrConflict       = errors.New("SNAPSHOT_CONFLICT")
)

// latestAttempts bounds SaveLatest's retries against concurrent writers.
const latestAttempts = 3

// Payment marks an application as paid.
type Payment struct {
	Reference string    `json:"reference"`
	PaidAt    time.Time `json:"paidAt"`
}

type Snapshot struct {
	ApplicantID string                   `json:"applicantId"`
	Level       models.Level             `json:"level"`
	Version     uint64                   `json:"version"`
	Record      models.ApplicationRecord `json:"record"`
	Payment     *Payment                 `json:"payment,omitempty"`
	SavedAt     time.Time                `json:"savedAt"`
}

// Paid reports whether the backend or a recorded payment says so.
func (s *Snapshot) Paid() bool {
	return s.Payment != nil || s.Record.HasPaid()
}

type Store interface {
	Load(ctx context.Context, applicantID string, level models.Level) (*Snapshot, error)
	// Save stores s unless a snapshot with a higher version is already held.
	// applied is false when the write was rejected as stale.
	Save(ctx context.Context, s *Snapshot) (applied bool, err error)
	Clear(ctx context.Context, applicantID string, level models.Level) error
	MarkPaid(ctx context.Context, applicantID string, level models.Level, reference string) error
	PaymentMarker(ctx context.Context, applicantID string, level models.Level) (*Payment, error)
}

// SaveLatest stores s as the newest snapshot whatever is held, raising its
// version above the stored one when needed. It returns the version written.
func SaveLatest(ctx context.Context, store Store, s *Snapshot) (uint64, error) {
	next := *s
	for attempt := 0; attempt < latestAttempts; attempt++ {
		prev, err := store.Load(ctx, s.ApplicantID, s.Level)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return 0, err
		case prev.Version > next.Version:
			next.Version = prev.Version + 1
		}

		applied, err := store.Save(ctx, &next)
		if err != nil {
			return 0, err
		}
		if applied {
			return next.Version, nil
		}
	}
	return 0, fmt.Errorf("%w: applicant %q level %q", ErrConflict, s.ApplicantID, s.Level)
}

// Key is the storage key of an applicant's snapshot for level.
func Key(applicantID string, level models.Level) string {
	return fmt.Sprintf("applicationData:%s:%s", applicantID, level)
}

func checkKey(applicantID string, level models.Level) error {
	if applicantID == "" || !level.Valid() {
		return fmt.Errorf("%w: applicant %q level %q", ErrInvalidKey, applicantID, level)
	}
	return nil
}

func encode(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

func decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return &s, nil
}

// merge prepares next for storage over prev. ok is false when next is stale.
// A payment marker survives later saves that do not carry one.
func merge(prev, next *Snapshot, now time.Time) (*Snapshot, bool) {
	if prev != nil && prev.Version > next.Version {
		return nil, false
	}
	out := *next
	if out.SavedAt.IsZero() {
		out.SavedAt = now
	}
	if out.Payment == nil && prev != nil {
		out.Payment = prev.Payment
	}
	return &out, true
}

// markPaid returns prev with the payment recorded, or a fresh snapshot.
func markPaid(prev *Snapshot, applicantID string, level models.Level, reference string, now time.Time) *Snapshot {
	var out Snapshot
	if prev != nil {
		out = *prev
	} else {
		out = Snapshot{ApplicantID: applicantID, Level: level, SavedAt: now}
	}
	rec := make(models.ApplicationRecord, len(out.Record)+1)
	for k, v := range out.Record {
		rec[k] = v
	}
	rec["has_paid"] = true
	out.Record = rec
	out.Payment = &Payment{Reference: reference, PaidAt: now}
	return &out
}
