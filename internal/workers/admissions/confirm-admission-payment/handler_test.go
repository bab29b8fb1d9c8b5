// internal/workers/admissions/confirm-admission-payment/handler_test.go
package confirmadmissionpayment

import (
	"context"
	"errors"
	"testing"

	"admissions-portal/internal/admissions/snapshot"
	"admissions-portal/internal/common/config"
	apperrors "admissions-portal/internal/common/errors"
	"admissions-portal/internal/common/logger"
	"admissions-portal/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Load(ctx context.Context, applicantID string, level models.Level) (*snapshot.Snapshot, error) {
	args := m.Called(ctx, applicantID, level)
	snap, _ := args.Get(0).(*snapshot.Snapshot)
	return snap, args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, s *snapshot.Snapshot) (bool, error) {
	args := m.Called(ctx, s)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) Clear(ctx context.Context, applicantID string, level models.Level) error {
	return m.Called(ctx, applicantID, level).Error(0)
}

func (m *mockStore) MarkPaid(ctx context.Context, applicantID string, level models.Level, reference string) error {
	return m.Called(ctx, applicantID, level, reference).Error(0)
}

func (m *mockStore) PaymentMarker(ctx context.Context, applicantID string, level models.Level) (*snapshot.Payment, error) {
	args := m.Called(ctx, applicantID, level)
	p, _ := args.Get(0).(*snapshot.Payment)
	return p, args.Error(1)
}

func newTestHandler(t *testing.T, store snapshot.Store) *Handler {
	return NewHandler(LoadConfig(config.WorkerConfig{}), store, logger.NewTestLogger(t))
}

func TestHandler_Execute_UsesCachedSnapshot(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	_, err := store.Save(ctx, &snapshot.Snapshot{
		ApplicantID: "applicant-1",
		Level:       models.LevelPostgraduate,
		Version:     4,
		Record: models.ApplicationRecord{
			"id":              "31",
			"has_paid":        false,
			"referee_1_name":  "Prof. Adeyemi",
			"referee_1_email": "adeyemi@unilag.edu.ng",
		},
	})
	require.NoError(t, err)

	out, err := newTestHandler(t, store).Execute(ctx, &Input{
		ApplicantID: "applicant-1",
		Level:       models.LevelPostgraduate,
		Reference:   "APP-123",
	})
	require.NoError(t, err)

	assert.Equal(t, "31", out.ApplicationID)
	assert.True(t, out.HasPaid)
	assert.Equal(t, "APP-123", out.PaymentReference)
	assert.Equal(t, RedirectStatus, out.RedirectTo)
	require.Len(t, out.Referees, 2)
	assert.Equal(t, "Prof. Adeyemi", out.Referees[0].Name)

	marker, err := store.PaymentMarker(ctx, "applicant-1", models.LevelPostgraduate)
	require.NoError(t, err)
	assert.Equal(t, "APP-123", marker.Reference)

	snap, err := store.Load(ctx, "applicant-1", models.LevelPostgraduate)
	require.NoError(t, err)
	assert.True(t, snap.Paid())
}

func TestHandler_Execute_NoSnapshotStillRedirects(t *testing.T) {
	out, err := newTestHandler(t, snapshot.NewMemoryStore()).Execute(context.Background(), &Input{
		ApplicantID: "applicant-9",
		Level:       models.LevelUndergraduate,
		Reference:   "APP-9",
	})
	require.NoError(t, err)
	assert.True(t, out.HasPaid)
	assert.Empty(t, out.ApplicationID)
	assert.Equal(t, RedirectStatus, out.RedirectTo)
}

func TestHandler_Execute_StoreFailures(t *testing.T) {
	ctx := context.Background()
	input := &Input{ApplicantID: "applicant-1", Level: models.LevelPostgraduate, Reference: "APP-1"}

	t.Run("mark paid fails", func(t *testing.T) {
		store := &mockStore{}
		store.On("MarkPaid", mock.Anything, "applicant-1", models.LevelPostgraduate, "APP-1").
			Return(errors.New("connection refused"))

		_, err := newTestHandler(t, store).Execute(ctx, input)
		stdErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeSnapshotStoreFailed, stdErr.Code)
		assert.True(t, stdErr.Retryable)
		store.AssertNotCalled(t, "Load", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("load fails", func(t *testing.T) {
		store := &mockStore{}
		store.On("MarkPaid", mock.Anything, "applicant-1", models.LevelPostgraduate, "APP-1").Return(nil)
		store.On("Load", mock.Anything, "applicant-1", models.LevelPostgraduate).
			Return(nil, snapshot.ErrCorruptPayload)

		_, err := newTestHandler(t, store).Execute(ctx, input)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSnapshotStoreFailed))
		store.AssertExpectations(t)
	})
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	h := newTestHandler(t, snapshot.NewMemoryStore())
	tests := []struct {
		name  string
		input *Input
	}{
		{"missing applicant", &Input{Level: models.LevelPostgraduate, Reference: "APP-1"}},
		{"unknown level", &Input{ApplicantID: "a", Level: "diploma", Reference: "APP-1"}},
		{"missing reference", &Input{ApplicantID: "a", Level: models.LevelPostgraduate, Reference: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), tt.input)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
		})
	}
}

func TestParseInput(t *testing.T) {
	input, err := parseInput(entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       5,
		Type:      TaskType,
		Variables: `{"applicantId":"applicant-1","level":"postgraduate","paymentReference":"APP-5"}`,
		Retries:   3,
	}})
	require.NoError(t, err)
	assert.Equal(t, "applicant-1", input.ApplicantID)
	assert.Equal(t, models.LevelPostgraduate, input.Level)
	assert.Equal(t, "APP-5", input.Reference)
}
