// Package portalapi is the client of the admissions REST backend.
package portalapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"admissions-portal/internal/admissions/wire"
	apperrors "admissions-portal/internal/common/errors"
	httpclient "admissions-portal/internal/common/http"
	"admissions-portal/internal/common/validation"
	"admissions-portal/internal/models"

	"github.com/goccy/go-json"
)

const envelopeSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["applications"],
	"properties": {
		"applications": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"has_paid": {"type": ["boolean", "string", "number", "null"]},
					"submitted": {"type": ["boolean", "string", "number", "null"]},
					"referee_1": {"type": ["object", "null"]},
					"referee_2": {"type": ["object", "null"]}
				}
			}
		}
	}
}`

// Envelope is the backend's response to a submission or fetch.
type Envelope struct {
	Applications []models.ApplicationRecord `json:"applications"`
}

// First is the application the response is about.
func (e *Envelope) First() (models.ApplicationRecord, bool) {
	if e == nil || len(e.Applications) == 0 {
		return nil, false
	}
	return e.Applications[0], true
}

type Client struct {
	baseURL    string
	token      string
	httpClient *httpclient.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpclient.NewClient(timeout),
	}
}

// WithToken returns a copy of c authenticating as the given bearer token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) applicationsURL(level models.Level) string {
	return fmt.Sprintf("%s/applications/%s", c.baseURL, level)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// SubmitApplication posts payload as multipart form data. Both drafts and
// final submissions use this call; the payload carries the mode flags.
func (c *Client) SubmitApplication(ctx context.Context, level models.Level, payload *wire.Payload) (*Envelope, error) {
	var body bytes.Buffer
	contentType, err := payload.WriteMultipart(&body)
	if err != nil {
		return nil, apperrors.NewSubmissionFailedError(0, fmt.Errorf("failed to encode payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.applicationsURL(level), &body)
	if err != nil {
		return nil, apperrors.NewSubmissionFailedError(0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(ctx, req)
}

// GetApplication fetches the applicant's current application for level.
func (c *Client) GetApplication(ctx context.Context, level models.Level) (*Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.applicationsURL(level), nil)
	if err != nil {
		return nil, apperrors.NewSubmissionFailedError(0, fmt.Errorf("failed to create request: %w", err))
	}
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) (*Envelope, error) {
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, apperrors.NewAPITimeoutError(err)
		}
		return nil, apperrors.NewSubmissionFailedError(0, fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewSubmissionFailedError(resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewSubmissionFailedError(resp.StatusCode,
			&httpclient.StatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	return decodeEnvelope(body)
}

func decodeEnvelope(body []byte) (*Envelope, error) {
	result, err := validation.Validate(envelopeSchema, body)
	if err != nil {
		return nil, apperrors.NewInvalidResponseError(err.Error())
	}
	if !result.Valid {
		return nil, apperrors.NewInvalidResponseError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperrors.NewInvalidResponseError(fmt.Sprintf("failed to unmarshal response: %v", err))
	}
	return &env, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
