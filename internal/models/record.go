package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplicationRecord is one application as the backend returns it: the flat
// wire fields plus server-owned ones such as id, has_paid and the referee
// sub-objects. It is kept loosely typed because the backend owns its shape.
type ApplicationRecord map[string]interface{}

// RefereeStatus is the backend's view of one reference request.
type RefereeStatus struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Status    string `json:"status,omitempty"`
	Submitted bool   `json:"submitted"`
}

func (r ApplicationRecord) ID() string {
	return r.String("id")
}

func (r ApplicationRecord) HasPaid() bool {
	return r.Bool("has_paid")
}

func (r ApplicationRecord) Submitted() bool {
	return r.Bool("submitted")
}

func (r ApplicationRecord) IsDraft() bool {
	return r.Bool("is_draft")
}

// String renders the value at key as text; numbers keep their JSON form.
func (r ApplicationRecord) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// Bool accepts JSON booleans as well as "true"/"1" strings and 1.
func (r ApplicationRecord) Bool(key string) bool {
	switch t := r[key].(type) {
	case bool:
		return t
	case string:
		t = strings.ToLower(strings.TrimSpace(t))
		return t == "true" || t == "1"
	case float64:
		return t == 1
	case int:
		return t == 1
	}
	return false
}

// Referee returns referee slot 1 or 2. Flat referee_N_name/_email fields
// take precedence over the nested object.
func (r ApplicationRecord) Referee(slot int) RefereeStatus {
	key := fmt.Sprintf("referee_%d", slot)
	var out RefereeStatus
	if obj, ok := r[key].(map[string]interface{}); ok {
		sub := ApplicationRecord(obj)
		out = RefereeStatus{
			Name:      sub.String("name"),
			Email:     sub.String("email"),
			Status:    sub.String("status"),
			Submitted: sub.Bool("submitted") || sub.Bool("has_submitted"),
		}
	}
	if name := r.String(key + "_name"); name != "" {
		out.Name = name
	}
	if email := r.String(key + "_email"); email != "" {
		out.Email = email
	}
	return out
}

// RefereeStatuses returns both referee slots in order.
func (r ApplicationRecord) RefereeStatuses() []RefereeStatus {
	return []RefereeStatus{r.Referee(1), r.Referee(2)}
}
