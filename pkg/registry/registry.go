// pkg/registry/registry.go
package registry

import (
	"fmt"
	"os"
	"strings"

	"admissions-portal/internal/common/validation"

	"github.com/goccy/go-json"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// Find returns the activity implementing taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// CheckInput validates job variables against the activity's input schema.
func (a *Activity) CheckInput(variables interface{}) error {
	if len(a.InputSchema) == 0 {
		return nil
	}
	res, err := validation.Validate(a.InputSchema, variables)
	if err != nil {
		return fmt.Errorf("%s: %w", a.TaskType, err)
	}
	if !res.Valid {
		return fmt.Errorf("%s: invalid input: %s", a.TaskType, strings.Join(res.GetErrorMessages(), "; "))
	}
	return nil
}
