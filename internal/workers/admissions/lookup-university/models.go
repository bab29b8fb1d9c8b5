// internal/workers/admissions/lookup-university/models.go
package lookupuniversity

import "admissions-portal/internal/admissions/lookup"

type Input struct {
	Query   string `json:"query"`
	Country string `json:"country,omitempty"`
}

type Output struct {
	Query      string              `json:"query"`
	Country    string              `json:"country"`
	Candidates []lookup.University `json:"candidates"`
	Count      int                 `json:"count"`
}
