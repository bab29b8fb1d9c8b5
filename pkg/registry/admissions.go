// pkg/registry/admissions.go
package registry

var draftSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"applicantId", "level"},
	"properties": map[string]interface{}{
		"applicantId": map[string]interface{}{"type": "string", "minLength": 1},
		"level":       map[string]interface{}{"enum": []string{"undergraduate", "postgraduate"}},
	},
}

var modeSchema = map[string]interface{}{"enum": []string{"", "draft", "final"}}

// Admissions describes the job workers of the admissions process.
func Admissions() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-10-01",
		Activities: []Activity{
			{
				ID:          "validate-admission-draft",
				DisplayName: "Validate Admission Draft",
				Description: "Runs the ordered required-field rules over a draft and lists missing fields",
				Category:    "admissions",
				Version:     "1.0.0",
				TaskType:    "validate-admission-draft",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []string{"draft"},
					"properties": map[string]interface{}{
						"draft": draftSchema,
						"mode":  modeSchema,
					},
				},
				ErrorCodes: []string{"INVALID_INPUT"},
				Timeout:    "10s",
				Retries:    0,
				Workflows:  []string{"admission-application"},
				Tags:       []string{"validation"},
			},
			{
				ID:          "submit-admission-application",
				DisplayName: "Submit Admission Application",
				Description: "Sends a draft or final application to the admissions backend and opens the fee checkout",
				Category:    "admissions",
				Version:     "1.0.0",
				TaskType:    "submit-admission-application",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []string{"draft"},
					"properties": map[string]interface{}{
						"draft":   draftSchema,
						"mode":    modeSchema,
						"version": map[string]interface{}{"type": "integer", "minimum": 0},
						"token":   map[string]interface{}{"type": "string"},
					},
				},
				ErrorCodes: []string{
					"INVALID_INPUT",
					"APPLICATION_VALIDATION_FAILED",
					"SUBMISSION_FAILED",
					"DRAFT_SAVE_FAILED",
					"INVALID_RESPONSE",
					"API_TIMEOUT",
					"PAYMENT_FAILED",
				},
				Timeout:   "45s",
				Retries:   3,
				Workflows: []string{"admission-application"},
				Tags:      []string{"backend", "payment"},
			},
			{
				ID:          "confirm-admission-payment",
				DisplayName: "Confirm Admission Payment",
				Description: "Records a settled application fee and builds the status page",
				Category:    "admissions",
				Version:     "1.0.0",
				TaskType:    "confirm-admission-payment",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []string{"applicantId", "level", "paymentReference"},
					"properties": map[string]interface{}{
						"applicantId":      map[string]interface{}{"type": "string", "minLength": 1},
						"level":            map[string]interface{}{"enum": []string{"undergraduate", "postgraduate"}},
						"paymentReference": map[string]interface{}{"type": "string", "minLength": 1},
					},
				},
				ErrorCodes: []string{"INVALID_INPUT", "SNAPSHOT_STORE_FAILED"},
				Timeout:    "10s",
				Retries:    3,
				Workflows:  []string{"admission-application"},
				Tags:       []string{"payment", "snapshot"},
			},
			{
				ID:          "lookup-university",
				DisplayName: "Lookup University",
				Description: "Searches the university directory for previous-institution candidates",
				Category:    "admissions",
				Version:     "1.0.0",
				TaskType:    "lookup-university",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []string{"query"},
					"properties": map[string]interface{}{
						"query":   map[string]interface{}{"type": "string"},
						"country": map[string]interface{}{"type": "string"},
					},
				},
				ErrorCodes: []string{"INVALID_INPUT", "UNIVERSITY_LOOKUP_FAILED"},
				Timeout:    "5s",
				Retries:    3,
				Workflows:  []string{"admission-application"},
				Tags:       []string{"lookup"},
			},
		},
	}
}
