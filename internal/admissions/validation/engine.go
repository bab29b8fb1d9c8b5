// Package validation holds the ordered required-field rules of an
// application and the engine evaluating them.
package validation

import (
	"sort"
	"strconv"
	"strings"

	"admissions-portal/internal/admissions/referee"
	commonvalidation "admissions-portal/internal/common/validation"
	"admissions-portal/internal/models"
)

// FieldError is the first blocking problem found in a draft.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Group   int    `json:"group"`
}

func (e *FieldError) Error() string {
	return e.Message
}

// Notifier receives the single message a failed validation surfaces.
type Notifier interface {
	NotifyError(message string)
}

type Engine struct {
	referee     *referee.Validator
	homeCountry string
}

func NewEngine(refereeValidator *referee.Validator, homeCountry string) *Engine {
	return &Engine{
		referee:     refereeValidator,
		homeCountry: homeCountry,
	}
}

func (e *Engine) HomeCountry() string {
	return e.homeCountry
}

func (e *Engine) Referees() *referee.Validator {
	return e.referee
}

// Validate runs every applicable rule in order and stops at the first
// failure. A nil result means the draft may be submitted.
func (e *Engine) Validate(d *models.ApplicationDraft) *FieldError {
	return e.run(d, ruleTable)
}

// ValidateForDraft applies only the referee email gate, which also guards
// explicit draft saves.
func (e *Engine) ValidateForDraft(d *models.ApplicationDraft) *FieldError {
	return e.run(d, refereeGate)
}

var refereeGate = func() []rule {
	var out []rule
	for _, r := range ruleTable {
		if r.group == 1 {
			out = append(out, r)
		}
	}
	return out
}()

func (e *Engine) run(d *models.ApplicationDraft, rules []rule) *FieldError {
	for _, r := range rules {
		if !r.applies(d) {
			continue
		}
		ok, msg := r.check(e, d)
		if ok {
			continue
		}
		if msg == "" {
			msg = r.message
		}
		return &FieldError{Field: r.field, Code: r.code, Message: msg, Group: r.group}
	}
	return nil
}

// IsFormValid reports whether d passes, surfacing exactly one message
// through n when it does not.
func (e *Engine) IsFormValid(d *models.ApplicationDraft, n Notifier) bool {
	fe := e.Validate(d)
	if fe == nil {
		return true
	}
	if n != nil {
		n.NotifyError(fe.Message)
	}
	return false
}

// RequiredFieldsSchema exports the rules applying to an applicant profile as
// a JSON Schema document over the draft's JSON form. Rules that cannot be
// expressed structurally (referee domains, exam sitting completeness,
// passport photo alternatives) are left to Validate.
func (e *Engine) RequiredFieldsSchema(level models.Level, programType string, applicantType models.ApplicantType) map[string]interface{} {
	profile := &models.ApplicationDraft{Level: level, ProgramType: programType, ApplicantType: applicantType}

	root := &schemaNode{}
	for _, r := range ruleTable {
		if len(r.path) == 0 || !r.applies(profile) {
			continue
		}
		c := r.constraint
		if r.constraintFor != nil {
			c = r.constraintFor(e)
		}
		root.insert(r.path, c)
	}

	doc := root.toMap()
	doc["$schema"] = "http://json-schema.org/draft-07/schema#"
	doc["title"] = "Application " + string(level) + " required fields"
	return doc
}

// Missing lists every required field the draft lacks according to
// RequiredFieldsSchema, by wire field name in rule order.
func (e *Engine) Missing(d *models.ApplicationDraft) ([]string, error) {
	schema := e.RequiredFieldsSchema(d.Level, d.ProgramType, d.ApplicantType)
	res, err := commonvalidation.Validate(schema, d)
	if err != nil {
		return nil, err
	}
	if res.Valid {
		return nil, nil
	}

	order := make(map[string]int, len(ruleTable))
	byPath := make(map[string]string, len(ruleTable))
	for i, r := range ruleTable {
		if len(r.path) == 0 || !r.applies(d) {
			continue
		}
		p := strings.Join(r.path, ".")
		byPath[p] = r.field
		if _, ok := order[r.field]; !ok {
			order[r.field] = i
		}
	}

	seen := make(map[string]bool)
	var fields []string
	for _, ve := range res.Errors {
		field, ok := resolveField(byPath, ve.Field)
		if !ok || seen[field] {
			continue
		}
		seen[field] = true
		fields = append(fields, field)
	}
	sort.SliceStable(fields, func(i, j int) bool { return order[fields[i]] < order[fields[j]] })
	return fields, nil
}

// resolveField maps a schema error path to a rule. A missing parent object
// resolves to the first rule below it.
func resolveField(byPath map[string]string, path string) (string, bool) {
	if f, ok := byPath[path]; ok {
		return f, true
	}
	best, bestPath := "", ""
	for p, f := range byPath {
		if strings.HasPrefix(p, path+".") && (bestPath == "" || p < bestPath) {
			best, bestPath = f, p
		}
	}
	return best, best != ""
}

type schemaNode struct {
	props    map[string]*schemaNode
	order    []string
	items    []*schemaNode
	leaf     map[string]interface{}
	isArray  bool
	required []string
}

func (n *schemaNode) insert(path []string, constraint map[string]interface{}) {
	if len(path) == 0 {
		n.leaf = constraint
		return
	}
	seg := path[0]
	var child *schemaNode
	if idx, err := strconv.Atoi(seg); err == nil {
		n.isArray = true
		for len(n.items) <= idx {
			n.items = append(n.items, &schemaNode{})
		}
		child = n.items[idx]
	} else {
		if n.props == nil {
			n.props = make(map[string]*schemaNode)
		}
		child = n.props[seg]
		if child == nil {
			child = &schemaNode{}
			n.props[seg] = child
			n.order = append(n.order, seg)
			n.required = append(n.required, seg)
		}
	}
	child.insert(path[1:], constraint)
}

func (n *schemaNode) toMap() map[string]interface{} {
	if n.leaf != nil {
		out := make(map[string]interface{}, len(n.leaf))
		for k, v := range n.leaf {
			out[k] = v
		}
		return out
	}
	if n.isArray {
		items := make([]interface{}, len(n.items))
		for i, it := range n.items {
			items[i] = it.toMap()
		}
		return map[string]interface{}{"type": "array", "items": items, "minItems": len(n.items)}
	}
	props := make(map[string]interface{}, len(n.props))
	for _, k := range n.order {
		props[k] = n.props[k].toMap()
	}
	out := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(n.required) > 0 {
		out["required"] = n.required
	}
	return out
}
