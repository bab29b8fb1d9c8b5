package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"admissions-portal/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(version uint64, id string) *Snapshot {
	return &Snapshot{
		ApplicantID: "applicant-1",
		Level:       models.LevelPostgraduate,
		Version:     version,
		Record:      models.ApplicationRecord{"id": id, "surname": "Okafor", "has_paid": false},
	}
}

// storeContract runs the behaviour every backend must share.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("load missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(ctx, "applicant-1", models.LevelPostgraduate)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		s := newStore(t)
		applied, err := s.Save(ctx, snap(1, "42"))
		require.NoError(t, err)
		assert.True(t, applied)

		got, err := s.Load(ctx, "applicant-1", models.LevelPostgraduate)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), got.Version)
		assert.Equal(t, "42", got.Record.ID())
		assert.False(t, got.SavedAt.IsZero())
		assert.False(t, got.Paid())
	})

	t.Run("stale save rejected", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Save(ctx, snap(5, "newer"))
		require.NoError(t, err)

		applied, err := s.Save(ctx, snap(3, "older"))
		require.NoError(t, err)
		assert.False(t, applied)

		got, err := s.Load(ctx, "applicant-1", models.LevelPostgraduate)
		require.NoError(t, err)
		assert.Equal(t, "newer", got.Record.ID())
	})

	t.Run("equal version overwrites", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Save(ctx, snap(2, "first"))
		require.NoError(t, err)
		applied, err := s.Save(ctx, snap(2, "second"))
		require.NoError(t, err)
		assert.True(t, applied)

		got, err := s.Load(ctx, "applicant-1", models.LevelPostgraduate)
		require.NoError(t, err)
		assert.Equal(t, "second", got.Record.ID())
	})

	t.Run("levels are separate", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Save(ctx, snap(1, "pg"))
		require.NoError(t, err)
		_, err = s.Load(ctx, "applicant-1", models.LevelUndergraduate)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("payment marker survives later saves", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Save(ctx, snap(1, "42"))
		require.NoError(t, err)
		require.NoError(t, s.MarkPaid(ctx, "applicant-1", models.LevelPostgraduate, "PAY-123"))

		pm, err := s.PaymentMarker(ctx, "applicant-1", models.LevelPostgraduate)
		require.NoError(t, err)
		assert.Equal(t, "PAY-123", pm.Reference)

		_, err = s.Save(ctx, snap(2, "42"))
		require.NoError(t, err)
		got, err := s.Load(ctx, "applicant-1", models.LevelPostgraduate)
		require.NoError(t, err)
		require.NotNil(t, got.Payment)
		assert.Equal(t, "PAY-123", got.Payment.Reference)
		assert.True(t, got.Paid())
	})

	t.Run("draft save after mark paid", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Save(ctx, snap(4, "42"))
		require.NoError(t, err)
		require.NoError(t, s.MarkPaid(ctx, "applicant-1", models.LevelPostgraduate, "PAY-4"))

		got, err := s.Load(ctx, "applicant-1", models.LevelPostgraduate)
		require.NoError(t, err)
		assert.Equal(t, uint64(4), got.Version)

		applied, err := s.Save(ctx, snap(3, "older"))
		require.NoError(t, err)
		assert.False(t, applied)

		applied, err = s.Save(ctx, snap(5, "42"))
		require.NoError(t, err)
		assert.True(t, applied)
		got, err = s.Load(ctx, "applicant-1", models.LevelPostgraduate)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), got.Version)
		require.NotNil(t, got.Payment)
		assert.Equal(t, "PAY-4", got.Payment.Reference)
	})

	t.Run("save latest outranks held version", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Save(ctx, snap(9, "old"))
		require.NoError(t, err)

		v, err := SaveLatest(ctx, s, snap(0, "new"))
		require.NoError(t, err)
		assert.Equal(t, uint64(10), v)

		got, err := s.Load(ctx, "applicant-1", models.LevelPostgraduate)
		require.NoError(t, err)
		assert.Equal(t, "new", got.Record.ID())
		assert.Equal(t, uint64(10), got.Version)

		v, err = SaveLatest(ctx, s, snap(12, "newer"))
		require.NoError(t, err)
		assert.Equal(t, uint64(12), v)
	})

	t.Run("save latest on empty store", func(t *testing.T) {
		s := newStore(t)
		v, err := SaveLatest(ctx, s, snap(2, "42"))
		require.NoError(t, err)
		assert.Equal(t, uint64(2), v)
	})

	t.Run("mark paid without snapshot", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.MarkPaid(ctx, "applicant-1", models.LevelUndergraduate, "PAY-9"))
		got, err := s.Load(ctx, "applicant-1", models.LevelUndergraduate)
		require.NoError(t, err)
		assert.True(t, got.Record.HasPaid())
	})

	t.Run("no marker", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Save(ctx, snap(1, "42"))
		require.NoError(t, err)
		_, err = s.PaymentMarker(ctx, "applicant-1", models.LevelPostgraduate)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("clear", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Save(ctx, snap(1, "42"))
		require.NoError(t, err)
		require.NoError(t, s.Clear(ctx, "applicant-1", models.LevelPostgraduate))
		_, err = s.Load(ctx, "applicant-1", models.LevelPostgraduate)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid key", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(ctx, "", models.LevelPostgraduate)
		assert.ErrorIs(t, err, ErrInvalidKey)
		_, err = s.Save(ctx, &Snapshot{ApplicantID: "a", Level: "masters"})
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

// rejectingStore loses every write to a concurrent writer.
type rejectingStore struct {
	*MemoryStore
	saves int
}

func (r *rejectingStore) Save(ctx context.Context, s *Snapshot) (bool, error) {
	r.saves++
	return false, nil
}

func TestSaveLatest_GivesUpUnderContention(t *testing.T) {
	store := &rejectingStore{MemoryStore: NewMemoryStore()}
	_, err := SaveLatest(context.Background(), store, snap(1, "42"))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, latestAttempts, store.saves)
}

func TestSaveLatest_LoadFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectGet("applicationData:applicant-1:postgraduate").SetErr(errors.New("connection refused"))

	_, err := SaveLatest(context.Background(), NewRedisStore(client, 0), snap(1, "42"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Save(ctx, snap(1, "42"))
	require.NoError(t, err)

	got, err := s.Load(ctx, "applicant-1", models.LevelPostgraduate)
	require.NoError(t, err)
	got.Record["id"] = "mutated"

	again, err := s.Load(ctx, "applicant-1", models.LevelPostgraduate)
	require.NoError(t, err)
	assert.Equal(t, "42", again.Record.ID())
}

func TestRedisStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)

		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedisStore(client, 0)
	})
}

func TestRedisStore_KeyAndTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, time.Hour)
	_, err = store.Save(context.Background(), snap(1, "42"))
	require.NoError(t, err)

	assert.True(t, mr.Exists("applicationData:applicant-1:postgraduate"))
	assert.Equal(t, time.Hour, mr.TTL("applicationData:applicant-1:postgraduate"))
}

func TestRedisStore_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("get failure wrapped", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectGet("applicationData:applicant-1:postgraduate").SetErr(errors.New("connection refused"))

		_, err := NewRedisStore(client, 0).Load(ctx, "applicant-1", models.LevelPostgraduate)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt payload", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectGet("applicationData:applicant-1:postgraduate").SetVal("{not json")

		_, err := NewRedisStore(client, 0).Load(ctx, "applicant-1", models.LevelPostgraduate)
		assert.ErrorIs(t, err, ErrCorruptPayload)
	})

	t.Run("clear failure wrapped", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectDel("applicationData:applicant-1:postgraduate").SetErr(errors.New("readonly"))

		err := NewRedisStore(client, 0).Clear(ctx, "applicant-1", models.LevelPostgraduate)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "readonly")
	})
}

func newPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewPostgresStore(db)
	store.now = func() time.Time { return time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC) }
	return store, mock
}

func TestPostgresStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		store, mock := newPostgres(t)
		savedAt := time.Date(2025, 4, 30, 9, 0, 0, 0, time.UTC)
		mock.ExpectQuery(selectSQL).
			WithArgs("applicant-1", "postgraduate").
			WillReturnRows(sqlmock.NewRows([]string{"version", "record", "payment", "saved_at"}).
				AddRow(int64(7), []byte(`{"id":"42","has_paid":false}`), []byte(`{"reference":"PAY-1","paidAt":"2025-04-30T09:00:00Z"}`), savedAt))

		s, err := store.Load(ctx, "applicant-1", models.LevelPostgraduate)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), s.Version)
		assert.Equal(t, "42", s.Record.ID())
		require.NotNil(t, s.Payment)
		assert.Equal(t, "PAY-1", s.Payment.Reference)
		assert.Equal(t, savedAt, s.SavedAt)
		assert.True(t, s.Paid())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		store, mock := newPostgres(t)
		mock.ExpectQuery(selectSQL).
			WithArgs("applicant-1", "postgraduate").
			WillReturnRows(sqlmock.NewRows([]string{"version", "record", "payment", "saved_at"}))

		_, err := store.Load(ctx, "applicant-1", models.LevelPostgraduate)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		store, mock := newPostgres(t)
		mock.ExpectQuery(selectSQL).
			WithArgs("applicant-1", "postgraduate").
			WillReturnError(errors.New("connection reset"))

		_, err := store.Load(ctx, "applicant-1", models.LevelPostgraduate)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestPostgresStore_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("applied", func(t *testing.T) {
		store, mock := newPostgres(t)
		mock.ExpectExec(upsertSQL).
			WithArgs("applicant-1", "postgraduate", int64(3), sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		applied, err := store.Save(ctx, snap(3, "42"))
		require.NoError(t, err)
		assert.True(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale rejected by version guard", func(t *testing.T) {
		store, mock := newPostgres(t)
		mock.ExpectExec(upsertSQL).
			WithArgs("applicant-1", "postgraduate", int64(1), sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		applied, err := store.Save(ctx, snap(1, "42"))
		require.NoError(t, err)
		assert.False(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec error", func(t *testing.T) {
		store, mock := newPostgres(t)
		mock.ExpectExec(upsertSQL).WillReturnError(errors.New("deadlock detected"))

		_, err := store.Save(ctx, snap(1, "42"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "deadlock detected")
	})
}

func TestPostgresStore_MarkPaidAndClear(t *testing.T) {
	ctx := context.Background()
	store, mock := newPostgres(t)

	mock.ExpectExec(markPaidSQL).
		WithArgs("applicant-1", "postgraduate", sqlmock.AnyArg(), store.now()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(selectPaymentSQL).
		WithArgs("applicant-1", "postgraduate").
		WillReturnRows(sqlmock.NewRows([]string{"payment"}).AddRow([]byte(`{"reference":"PAY-7","paidAt":"2025-05-01T10:00:00Z"}`)))
	mock.ExpectExec(deleteSQL).
		WithArgs("applicant-1", "postgraduate").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.MarkPaid(ctx, "applicant-1", models.LevelPostgraduate, "PAY-7"))
	pm, err := store.PaymentMarker(ctx, "applicant-1", models.LevelPostgraduate)
	require.NoError(t, err)
	assert.Equal(t, "PAY-7", pm.Reference)
	require.NoError(t, store.Clear(ctx, "applicant-1", models.LevelPostgraduate))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAfterMarkPaid(t *testing.T) {
	ctx := context.Background()
	store, mock := newPostgres(t)

	// the paid upsert leaves version and saved_at to the guard
	assert.NotContains(t, markPaidSQL, "version =")
	assert.NotContains(t, markPaidSQL, "saved_at =")

	mock.ExpectExec(upsertSQL).
		WithArgs("applicant-1", "postgraduate", int64(4), sqlmock.AnyArg(), nil, store.now()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(markPaidSQL).
		WithArgs("applicant-1", "postgraduate", sqlmock.AnyArg(), store.now()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertSQL).
		WithArgs("applicant-1", "postgraduate", int64(3), sqlmock.AnyArg(), nil, store.now()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(upsertSQL).
		WithArgs("applicant-1", "postgraduate", int64(5), sqlmock.AnyArg(), nil, store.now()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := store.Save(ctx, snap(4, "42"))
	require.NoError(t, err)
	assert.True(t, applied)
	require.NoError(t, store.MarkPaid(ctx, "applicant-1", models.LevelPostgraduate, "PAY-4"))

	applied, err = store.Save(ctx, snap(3, "older"))
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = store.Save(ctx, snap(5, "42"))
	require.NoError(t, err)
	assert.True(t, applied)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	store, mock := newPostgres(t)
	mock.ExpectExec(createTableSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
