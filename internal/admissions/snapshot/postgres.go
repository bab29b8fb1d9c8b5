package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"admissions-portal/internal/models"

	"github.com/goccy/go-json"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS application_snapshots (
	applicant_id TEXT NOT NULL,
	level TEXT NOT NULL,
	version BIGINT NOT NULL DEFAULT 0,
	record JSONB NOT NULL DEFAULT '{}'::jsonb,
	payment JSONB,
	saved_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (applicant_id, level)
)`

const selectSQL = `SELECT version, record, payment, saved_at FROM application_snapshots WHERE applicant_id = $1 AND level = $2`

// The WHERE clause on the conflict branch is the version guard: a stale row
// leaves the stored one untouched and affects zero rows.
const upsertSQL = `INSERT INTO application_snapshots (applicant_id, level, version, record, payment, saved_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (applicant_id, level) DO UPDATE SET
	version = EXCLUDED.version,
	record = EXCLUDED.record,
	payment = COALESCE(EXCLUDED.payment, application_snapshots.payment),
	saved_at = EXCLUDED.saved_at
WHERE application_snapshots.version <= EXCLUDED.version`

const markPaidSQL = `INSERT INTO application_snapshots (applicant_id, level, version, record, payment, saved_at)
VALUES ($1, $2, 0, '{"has_paid": true}'::jsonb, $3, $4)
ON CONFLICT (applicant_id, level) DO UPDATE SET
	record = application_snapshots.record || '{"has_paid": true}'::jsonb,
	payment = EXCLUDED.payment`

const deleteSQL = `DELETE FROM application_snapshots WHERE applicant_id = $1 AND level = $2`

const selectPaymentSQL = `SELECT payment FROM application_snapshots WHERE applicant_id = $1 AND level = $2`

// PostgresStore keeps snapshots in the application_snapshots table.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// EnsureSchema creates the snapshot table when missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create application_snapshots: %w", err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context, applicantID string, level models.Level) (*Snapshot, error) {
	if err := checkKey(applicantID, level); err != nil {
		return nil, err
	}

	var (
		version    int64
		record     []byte
		paymentRaw []byte
		savedAt    time.Time
	)
	err := p.db.QueryRowContext(ctx, selectSQL, applicantID, string(level)).
		Scan(&version, &record, &paymentRaw, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	s := &Snapshot{
		ApplicantID: applicantID,
		Level:       level,
		Version:     uint64(version),
		SavedAt:     savedAt,
	}
	if err := json.Unmarshal(record, &s.Record); err != nil {
		return nil, fmt.Errorf("%w: record: %v", ErrCorruptPayload, err)
	}
	if s.Payment, err = decodePayment(paymentRaw); err != nil {
		return nil, err
	}
	return s, nil
}

func decodePayment(raw []byte) (*Payment, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var pm Payment
	if err := json.Unmarshal(raw, &pm); err != nil {
		return nil, fmt.Errorf("%w: payment: %v", ErrCorruptPayload, err)
	}
	return &pm, nil
}

func (p *PostgresStore) Save(ctx context.Context, s *Snapshot) (bool, error) {
	if err := checkKey(s.ApplicantID, s.Level); err != nil {
		return false, err
	}

	record := s.Record
	if record == nil {
		record = models.ApplicationRecord{}
	}
	recordRaw, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("failed to encode record: %w", err)
	}
	var paymentRaw interface{}
	if s.Payment != nil {
		b, err := json.Marshal(s.Payment)
		if err != nil {
			return false, fmt.Errorf("failed to encode payment: %w", err)
		}
		paymentRaw = b
	}
	savedAt := s.SavedAt
	if savedAt.IsZero() {
		savedAt = p.now()
	}

	res, err := p.db.ExecContext(ctx, upsertSQL,
		s.ApplicantID, string(s.Level), int64(s.Version), recordRaw, paymentRaw, savedAt)
	if err != nil {
		return false, fmt.Errorf("failed to save snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (p *PostgresStore) Clear(ctx context.Context, applicantID string, level models.Level) error {
	if err := checkKey(applicantID, level); err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, deleteSQL, applicantID, string(level)); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}

func (p *PostgresStore) MarkPaid(ctx context.Context, applicantID string, level models.Level, reference string) error {
	if err := checkKey(applicantID, level); err != nil {
		return err
	}
	now := p.now()
	raw, err := json.Marshal(Payment{Reference: reference, PaidAt: now})
	if err != nil {
		return fmt.Errorf("failed to encode payment: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, markPaidSQL, applicantID, string(level), raw, now); err != nil {
		return fmt.Errorf("failed to mark paid: %w", err)
	}
	return nil
}

func (p *PostgresStore) PaymentMarker(ctx context.Context, applicantID string, level models.Level) (*Payment, error) {
	if err := checkKey(applicantID, level); err != nil {
		return nil, err
	}
	var raw []byte
	err := p.db.QueryRowContext(ctx, selectPaymentSQL, applicantID, string(level)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment marker: %w", err)
	}
	pm, err := decodePayment(raw)
	if err != nil {
		return nil, err
	}
	if pm == nil {
		return nil, ErrNotFound
	}
	return pm, nil
}
