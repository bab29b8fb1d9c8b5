package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "admissions-portal/internal/common/errors"
	"admissions-portal/internal/common/logger"
	"admissions-portal/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	attempts := 0
	res, err := executeWithRetry(context.Background(), fastRetry, func(context.Context) (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return "ok", nil
	}, "topology")

	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetry_GivesUp(t *testing.T) {
	attempts := 0
	_, err := executeWithRetry(context.Background(), fastRetry, func(context.Context) (interface{}, error) {
		attempts++
		return nil, errors.New("deadline exceeded")
	}, "complete-job")

	assert.Equal(t, 3, attempts)
	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeWorkflowEngine, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestExecuteWithRetry_PermanentErrorNotRetried(t *testing.T) {
	attempts := 0
	_, err := executeWithRetry(context.Background(), fastRetry, func(context.Context) (interface{}, error) {
		attempts++
		return nil, errors.New("job not found")
	}, "complete-job")

	assert.Equal(t, 1, attempts)
	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.False(t, stdErr.Retryable)
}

func TestExecuteWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second}

	_, err := executeWithRetry(ctx, slow, func(context.Context) (interface{}, error) {
		cancel()
		return nil, errors.New("unavailable")
	}, "topology")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInstrument(t *testing.T) {
	const taskType = "instrument-test"
	called := false
	h := Instrument(taskType, func(worker.JobClient, entities.Job) {
		called = true
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues(taskType)))
	}, nil)

	h(nil, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1}})
	assert.True(t, called)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues(taskType)))
}

func TestGuard_PassesValidJobs(t *testing.T) {
	var checked string
	called := false
	h := Guard(func(vars string) error {
		checked = vars
		return nil
	}, func(worker.JobClient, entities.Job) {
		called = true
	}, logger.NewTestLogger(t))

	h(nil, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 2, Variables: `{"query":"Lagos"}`}})
	assert.True(t, called)
	assert.Equal(t, `{"query":"Lagos"}`, checked)
}
