package portalapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"admissions-portal/internal/admissions/fixtures"
	"admissions-portal/internal/admissions/wire"
	apperrors "admissions-portal/internal/common/errors"
	"admissions-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okEnvelope = `{
	"applications": [{
		"id": 42,
		"has_paid": false,
		"submitted": true,
		"referee_1": {"name": "Dr. Ada Eze", "email": "ada@unn.edu.ng", "status": "pending"},
		"referee_2": {"name": "Prof. Bola Ajayi", "email": "bola@ui.edu.ng", "status": "submitted", "submitted": true}
	}]
}`

func TestSubmitApplication(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/applications/undergraduate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "waec", r.FormValue("exam_type_1"))
		assert.Equal(t, "false", r.FormValue("is_draft"))
		assert.Equal(t, "true", r.FormValue("submitted"))
		_, hasSecond := r.MultipartForm.Value["exam_type_2"]
		assert.False(t, hasSecond)
		require.Len(t, r.MultipartForm.File["passport_photo"], 1)
		assert.Equal(t, "image/jpeg", r.MultipartForm.File["passport_photo"][0].Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, okEnvelope)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/", "secret", time.Second)
	env, err := c.SubmitApplication(context.Background(), models.LevelUndergraduate,
		wire.Encode(fixtures.Undergraduate(), wire.ModeFinal))
	require.NoError(t, err)

	rec, ok := env.First()
	require.True(t, ok)
	assert.Equal(t, "42", rec.ID())
	assert.False(t, rec.HasPaid())
	assert.True(t, rec.Submitted())
	assert.Equal(t, "ada@unn.edu.ng", rec.Referee(1).Email)
	assert.True(t, rec.Referee(2).Submitted)
}

func TestSubmitApplication_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		code      apperrors.ErrorCode
		retryable bool
	}{
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, apperrors.ErrCodeSubmissionFailed, true},
		{"rejected", http.StatusUnprocessableEntity, `{"message":"invalid"}`, apperrors.ErrCodeSubmissionFailed, false},
		{"missing applications", http.StatusOK, `{"data": []}`, apperrors.ErrCodeInvalidResponse, false},
		{"applications not an array", http.StatusOK, `{"applications": {"id": 1}}`, apperrors.ErrCodeInvalidResponse, false},
		{"not json", http.StatusOK, `<html>`, apperrors.ErrCodeInvalidResponse, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "", time.Second)
			_, err := c.SubmitApplication(context.Background(), models.LevelPostgraduate,
				wire.Encode(fixtures.Postgraduate(), wire.ModeDraft))
			require.Error(t, err)

			stdErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

func TestSubmitApplication_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(w, okEnvelope)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 20*time.Millisecond)
	_, err := c.SubmitApplication(context.Background(), models.LevelPostgraduate,
		wire.Encode(fixtures.Postgraduate(), wire.ModeDraft))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAPITimeout))
}

func TestGetApplication(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer other", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"applications": []}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second).WithToken("other")
	env, err := c.GetApplication(context.Background(), models.LevelPostgraduate)
	require.NoError(t, err)
	_, ok := env.First()
	assert.False(t, ok)
}
