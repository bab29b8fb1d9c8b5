// internal/workers/admissions/lookup-university/handler_test.go
package lookupuniversity

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"admissions-portal/internal/admissions/lookup"
	"admissions-portal/internal/common/config"
	apperrors "admissions-portal/internal/common/errors"
	httpclient "admissions-portal/internal/common/http"
	"admissions-portal/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, handler http.HandlerFunc) *Handler {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewTestLogger(t)
	dir := lookup.NewHTTPDirectory(httpclient.NewClient(time.Second), srv.URL+"/search")
	l := lookup.New(dir, lookup.Config{MaxResults: 2}, log)
	t.Cleanup(l.Stop)

	cfg := LoadConfig(config.WorkerConfig{}, config.AppConfig{HomeCountry: "Nigeria"})
	return NewHandler(cfg, l, log)
}

func TestHandler_Execute_DefaultsToHomeCountry(t *testing.T) {
	var calls int32
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Univ", r.URL.Query().Get("name"))
		assert.Equal(t, "Nigeria", r.URL.Query().Get("country"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"name":"University of Lagos","country":"Nigeria"},
			{"name":"University of Ibadan","country":"Nigeria"},
			{"name":"University of Benin","country":"Nigeria"}
		]`)
	})

	out, err := h.Execute(context.Background(), &Input{Query: " Univ "})
	require.NoError(t, err)
	assert.Equal(t, "Univ", out.Query)
	assert.Equal(t, "Nigeria", out.Country)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "University of Lagos", out.Candidates[0].Name)

	_, err = h.Execute(context.Background(), &Input{Query: "Univ", Country: "Nigeria"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHandler_Execute_ShortQuery(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("directory called for short query %q", r.URL.RawQuery)
	})

	out, err := h.Execute(context.Background(), &Input{Query: "un", Country: "Ghana"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count)
	assert.NotNil(t, out.Candidates)
}

func TestHandler_Execute_DirectoryFailure(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	_, err := h.Execute(context.Background(), &Input{Query: "Covenant"})
	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeUniversityLookupFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}
