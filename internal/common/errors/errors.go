// Package errors provides the standardized error taxonomy of the admissions
// core and its mapping onto BPMN errors for the job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// User-fixable, local. Never sent to the network.
	ErrCodeValidationFailed ErrorCode = "APPLICATION_VALIDATION_FAILED"

	// Backend / network.
	ErrCodeDraftSaveFailed  ErrorCode = "DRAFT_SAVE_FAILED"
	ErrCodeSubmissionFailed ErrorCode = "SUBMISSION_FAILED"
	ErrCodeInvalidResponse  ErrorCode = "INVALID_RESPONSE"
	ErrCodeAPITimeout       ErrorCode = "API_TIMEOUT"

	// Payment widget.
	ErrCodePaymentFailed    ErrorCode = "PAYMENT_FAILED"
	ErrCodePaymentCancelled ErrorCode = "PAYMENT_CANCELLED"

	// Local state.
	ErrCodeSnapshotStoreFailed ErrorCode = "SNAPSHOT_STORE_FAILED"
	ErrCodeSnapshotNotFound    ErrorCode = "SNAPSHOT_NOT_FOUND"
	ErrCodeSubmissionInFlight  ErrorCode = "SUBMISSION_IN_PROGRESS"

	ErrCodeUniversityLookupFailed ErrorCode = "UNIVERSITY_LOOKUP_FAILED"
	ErrCodeInvalidInput           ErrorCode = "INVALID_INPUT"

	// Zeebe gateway.
	ErrCodeWorkflowEngine ErrorCode = "WORKFLOW_ENGINE_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// NewValidationFailedError carries the single blocking message of a failed
// rule. field is the draft path of the offending value.
func NewValidationFailedError(field, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Details:   fmt.Sprintf("field: %s", field),
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewDraftSaveFailedError creates a retryable draft persistence error.
func NewDraftSaveFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDraftSaveFailed,
		Message:   "Could not save your draft",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewSubmissionFailedError creates a retryable submission error. status is the
// HTTP status returned by the backend, 0 when the request never completed.
func NewSubmissionFailedError(status int, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionFailed,
		Message:   "Application submission failed",
		Details:   err.Error(),
		Retryable: status == 0 || status >= 500,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidResponseError reports a backend envelope that does not match the
// expected shape.
func NewInvalidResponseError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidResponse,
		Message:   "Unexpected response from the admissions service",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAPITimeoutError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAPITimeout,
		Message:   "The admissions service did not respond in time",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewPaymentFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePaymentFailed,
		Message:   "Payment could not be started",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewPaymentCancelledError() *StandardError {
	return &StandardError{
		Code:      ErrCodePaymentCancelled,
		Message:   "Payment was cancelled",
		Details:   "applicant closed the payment dialog",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSnapshotStoreFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSnapshotStoreFailed,
		Message:   "Application snapshot store error",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewSnapshotNotFoundError(applicantID, level string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSnapshotNotFound,
		Message:   "No cached application found",
		Details:   fmt.Sprintf("applicantId: %s, level: %s", applicantID, level),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSubmissionInFlightError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionInFlight,
		Message:   "A submission is already in progress",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUniversityLookupFailedError(query string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUniversityLookupFailed,
		Message:   "University lookup failed",
		Details:   fmt.Sprintf("query: %s, error: %s", query, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid job input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWorkflowEngineError wraps a failed Zeebe command.
func NewWorkflowEngineError(operation string, err error, retryable bool) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkflowEngine,
		Message:   fmt.Sprintf("Workflow engine operation %s failed", operation),
		Details:   err.Error(),
		Retryable: retryable,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// As returns the StandardError in err's chain, if any.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:       "APPLICATION_VALIDATION_FAILED",
	ErrCodeDraftSaveFailed:        "DRAFT_SAVE_FAILED",
	ErrCodeSubmissionFailed:       "SUBMISSION_FAILED",
	ErrCodeInvalidResponse:        "INVALID_RESPONSE",
	ErrCodeAPITimeout:             "API_TIMEOUT",
	ErrCodePaymentFailed:          "PAYMENT_FAILED",
	ErrCodePaymentCancelled:       "PAYMENT_CANCELLED",
	ErrCodeSnapshotStoreFailed:    "SNAPSHOT_STORE_FAILED",
	ErrCodeSnapshotNotFound:       "SNAPSHOT_NOT_FOUND",
	ErrCodeSubmissionInFlight:     "SUBMISSION_IN_PROGRESS",
	ErrCodeUniversityLookupFailed: "UNIVERSITY_LOOKUP_FAILED",
	ErrCodeInvalidInput:           "INVALID_INPUT",
	ErrCodeWorkflowEngine:         "WORKFLOW_ENGINE_ERROR",
}

// GetRetryCount returns how many times the workflow engine should retry a
// job that failed with code. Nothing in the interactive session retries
// automatically; the applicant clicking Save or Submit again is the retry.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDraftSaveFailed,
		ErrCodeSubmissionFailed,
		ErrCodeSnapshotStoreFailed,
		ErrCodeUniversityLookupFailed,
		ErrCodeWorkflowEngine:
		return 3

	case ErrCodeAPITimeout,
		ErrCodePaymentFailed:
		return 2

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if field, ok := stdErr.Metadata["field"]; ok {
		vars["field"] = field
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes into the taxonomy used for logging:
// VALIDATION, BACKEND, PAYMENT, STATE, LOOKUP and INFRASTRUCTURE.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID_INPUT"):
		return "VALIDATION"
	case strings.Contains(codeStr, "PAYMENT"):
		return "PAYMENT"
	case strings.Contains(codeStr, "SNAPSHOT") || strings.Contains(codeStr, "IN_PROGRESS"):
		return "STATE"
	case strings.Contains(codeStr, "LOOKUP"):
		return "LOOKUP"
	case strings.Contains(codeStr, "WORKFLOW"):
		return "INFRASTRUCTURE"
	case strings.Contains(codeStr, "DRAFT") || strings.Contains(codeStr, "SUBMISSION") ||
		strings.Contains(codeStr, "RESPONSE") || strings.Contains(codeStr, "API"):
		return "BACKEND"
	default:
		return "OTHER"
	}
}
