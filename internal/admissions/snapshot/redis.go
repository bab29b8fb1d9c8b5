package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"admissions-portal/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps snapshots under applicationData:<applicant>:<level>.
// Writes run in a WATCH/MULTI transaction so the version check and the
// write are atomic across processes.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// maxTxRetries bounds optimistic transaction retries on write conflicts.
const maxTxRetries = 5

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func (r *RedisStore) Load(ctx context.Context, applicantID string, level models.Level) (*Snapshot, error) {
	if err := checkKey(applicantID, level); err != nil {
		return nil, err
	}
	return r.get(ctx, r.client, Key(applicantID, level))
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) get(ctx context.Context, c getter, key string) (*Snapshot, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return decode(raw)
}

func (r *RedisStore) Save(ctx context.Context, s *Snapshot) (bool, error) {
	if err := checkKey(s.ApplicantID, s.Level); err != nil {
		return false, err
	}
	key := Key(s.ApplicantID, s.Level)

	applied := false
	err := r.update(ctx, key, func(prev *Snapshot) (*Snapshot, error) {
		next, ok := merge(prev, s, r.now())
		applied = ok
		if !ok {
			return nil, nil
		}
		return next, nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *RedisStore) MarkPaid(ctx context.Context, applicantID string, level models.Level, reference string) error {
	if err := checkKey(applicantID, level); err != nil {
		return err
	}
	return r.update(ctx, Key(applicantID, level), func(prev *Snapshot) (*Snapshot, error) {
		return markPaid(prev, applicantID, level, reference, r.now()), nil
	})
}

// update applies fn to the stored snapshot inside a transaction, retrying
// when another writer touched the key. A nil result writes nothing.
func (r *RedisStore) update(ctx context.Context, key string, fn func(prev *Snapshot) (*Snapshot, error)) error {
	txf := func(tx *redis.Tx) error {
		prev, err := r.get(ctx, tx, key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		next, err := fn(prev)
		if err != nil || next == nil {
			return err
		}
		raw, err := encode(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis update %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("redis update %s: %w", key, redis.TxFailedErr)
}

func (r *RedisStore) Clear(ctx context.Context, applicantID string, level models.Level) error {
	if err := checkKey(applicantID, level); err != nil {
		return err
	}
	key := Key(applicantID, level)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) PaymentMarker(ctx context.Context, applicantID string, level models.Level) (*Payment, error) {
	s, err := r.Load(ctx, applicantID, level)
	if err != nil {
		return nil, err
	}
	if s.Payment == nil {
		return nil, ErrNotFound
	}
	return s.Payment, nil
}
