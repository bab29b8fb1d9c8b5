// internal/workers/admissions/validate-admission-draft/handler_test.go
package validateadmissiondraft

import (
	"context"
	"testing"

	"admissions-portal/internal/admissions/fixtures"
	"admissions-portal/internal/admissions/referee"
	"admissions-portal/internal/admissions/validation"
	"admissions-portal/internal/common/config"
	apperrors "admissions-portal/internal/common/errors"
	"admissions-portal/internal/common/logger"
	"admissions-portal/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *Handler {
	engine := validation.NewEngine(referee.New(config.DefaultAllowedRefereeDomains), fixtures.HomeCountry)
	return NewHandler(LoadConfig(config.WorkerConfig{}), engine, logger.NewTestLogger(t))
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name     string
		draft    func() *models.ApplicationDraft
		mode     string
		validate func(t *testing.T, out *Output)
	}{
		{
			name:  "complete postgraduate draft is valid",
			draft: fixtures.Postgraduate,
			mode:  "final",
			validate: func(t *testing.T, out *Output) {
				assert.True(t, out.IsValid)
				assert.Equal(t, "final", out.Mode)
				assert.Empty(t, out.Missing)
				assert.Empty(t, out.Field)
			},
		},
		{
			name: "first failing rule and every missing field are reported",
			draft: func() *models.ApplicationDraft {
				d := fixtures.Doctoral()
				d.PersonalDetails.Surname = ""
				d.Declaration = ""
				return d
			},
			mode: "final",
			validate: func(t *testing.T, out *Output) {
				assert.False(t, out.IsValid)
				assert.Equal(t, "surname", out.Field)
				assert.Equal(t, validation.CodeRequired, out.Code)
				assert.Equal(t, "Surname is required", out.Message)
				assert.Equal(t, []string{"surname", "declaration"}, out.Missing)
			},
		},
		{
			name: "draft mode only checks referee emails",
			draft: func() *models.ApplicationDraft {
				d := fixtures.Undergraduate()
				d.PersonalDetails.Surname = ""
				return d
			},
			mode: "draft",
			validate: func(t *testing.T, out *Output) {
				assert.True(t, out.IsValid)
				assert.Equal(t, "draft", out.Mode)
				assert.Empty(t, out.Missing)
			},
		},
		{
			name: "draft mode rejects a personal referee email",
			draft: func() *models.ApplicationDraft {
				d := fixtures.Undergraduate()
				d.References[0].Email = "adeyemi@gmail.com"
				return d
			},
			mode: "",
			validate: func(t *testing.T, out *Output) {
				assert.False(t, out.IsValid)
				assert.Equal(t, "referee_1_email", out.Field)
				assert.Equal(t, validation.CodeInvalidRefereeEmail, out.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t)
			out, err := h.Execute(context.Background(), &Input{Draft: *tt.draft(), Mode: tt.mode})
			require.NoError(t, err)
			tt.validate(t, out)
		})
	}
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	h := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{Draft: models.ApplicationDraft{Level: models.LevelPostgraduate}})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	_, err = h.Execute(context.Background(), &Input{Draft: *fixtures.Postgraduate(), Mode: "preview"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}

func TestParseInput(t *testing.T) {
	vars, err := json.Marshal(map[string]interface{}{
		"draft": fixtures.Undergraduate(),
		"mode":  "final",
	})
	require.NoError(t, err)

	job := entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       42,
		Type:      TaskType,
		Variables: string(vars),
		Retries:   3,
	}}
	input, err := parseInput(job)
	require.NoError(t, err)
	assert.Equal(t, "final", input.Mode)
	assert.Equal(t, "applicant-2", input.Draft.ApplicantID)
	assert.True(t, input.Draft.PassportPhoto.IsPending())

	out, err := newTestHandler(t).Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, out.IsValid)

	_, err = parseInput(entities.Job{ActivatedJob: &pb.ActivatedJob{Variables: "{not json"}})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}
