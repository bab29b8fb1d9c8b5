package validation

import (
	"fmt"
	"strconv"
	"strings"

	"admissions-portal/internal/models"
)

// Codes carried by FieldError.
const (
	CodeRequired            = "REQUIRED"
	CodeInvalidRefereeEmail = "INVALID_REFEREE_EMAIL"
	CodeNationalityMismatch = "NATIONALITY_MISMATCH"
	CodeIncompleteExam      = "INCOMPLETE_EXAM_SITTING"
	CodeDeclaration         = "DECLARATION_REQUIRED"
)

// rule is one blocking check. check returns "" on success, or a message
// overriding the rule's default one. path and constraint, when set, place
// the rule in the exported JSON Schema; constraintFor is used instead when
// the constraint depends on engine settings.
type rule struct {
	group         int
	field         string
	code          string
	message       string
	when          func(d *models.ApplicationDraft) bool
	check         func(e *Engine, d *models.ApplicationDraft) (bool, string)
	path          []string
	constraint    map[string]interface{}
	constraintFor func(e *Engine) map[string]interface{}
}

func (r rule) applies(d *models.ApplicationDraft) bool {
	return r.when == nil || r.when(d)
}

var (
	nonBlank   = map[string]interface{}{"type": "string", "pattern": `\S`}
	filePicked = map[string]interface{}{"type": "string", "enum": []string{string(models.FilePending), string(models.FileRemote)}}
)

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func required(group int, field, message string, get func(d *models.ApplicationDraft) string, path ...string) rule {
	return rule{
		group:   group,
		field:   field,
		code:    CodeRequired,
		message: message,
		check: func(_ *Engine, d *models.ApplicationDraft) (bool, string) {
			return !blank(get(d)), ""
		},
		path:       path,
		constraint: nonBlank,
	}
}

func requiredFile(group int, field, message string, get func(d *models.ApplicationDraft) models.FileRef, path ...string) rule {
	return rule{
		group:   group,
		field:   field,
		code:    CodeRequired,
		message: message,
		check: func(_ *Engine, d *models.ApplicationDraft) (bool, string) {
			return get(d).Present(), ""
		},
		path:       append(path, "kind"),
		constraint: filePicked,
	}
}

func postgraduate(d *models.ApplicationDraft) bool { return d.Level != models.LevelUndergraduate }
func undergraduate(d *models.ApplicationDraft) bool { return d.Level == models.LevelUndergraduate }
func domestic(d *models.ApplicationDraft) bool { return d.ApplicantType != models.ApplicantInternational }
func international(d *models.ApplicationDraft) bool { return d.ApplicantType == models.ApplicantInternational }
func doctoral(d *models.ApplicationDraft) bool { return postgraduate(d) && d.IsDoctoral() }

func with(r rule, when func(d *models.ApplicationDraft) bool) rule {
	r.when = when
	return r
}

// ruleTable is the full ordered rule set; earlier rules win.
var ruleTable = buildRules()

func buildRules() []rule {
	var rules []rule

	// 1. referee emails
	for i := 0; i < 2; i++ {
		i := i
		rules = append(rules, rule{
			group: 1,
			field: fmt.Sprintf("referee_%d_email", i+1),
			code:  CodeInvalidRefereeEmail,
			check: func(e *Engine, d *models.ApplicationDraft) (bool, string) {
				res := e.referee.Validate(d.References[i].Email)
				if res.Valid {
					return true, ""
				}
				return false, fmt.Sprintf("Referee %d email: %s", i+1, res.Reason)
			},
		})
	}

	// 2. personal details
	pd := func(f func(p *models.PersonalDetails) string, jsonName string) (func(d *models.ApplicationDraft) string, []string) {
		return func(d *models.ApplicationDraft) string { return f(&d.PersonalDetails) }, []string{"personalDetails", jsonName}
	}
	personal := []struct {
		field, message, json string
		get                  func(p *models.PersonalDetails) string
	}{
		{"surname", "Surname is required", "surname", func(p *models.PersonalDetails) string { return p.Surname }},
		{"first_name", "First name is required", "firstName", func(p *models.PersonalDetails) string { return p.FirstName }},
		{"gender", "Gender is required", "gender", func(p *models.PersonalDetails) string { return p.Gender }},
	}
	for _, f := range personal {
		get, path := pd(f.get, f.json)
		rules = append(rules, required(2, f.field, f.message, get, path...))
	}
	for _, part := range []string{"day", "month", "year"} {
		part := part
		rules = append(rules, rule{
			group:   2,
			field:   "date_of_birth",
			code:    CodeRequired,
			message: "Date of birth is required",
			check: func(_ *Engine, d *models.ApplicationDraft) (bool, string) {
				dob := d.PersonalDetails.DateOfBirth
				switch part {
				case "day":
					return !blank(dob.Day), ""
				case "month":
					return !blank(dob.Month), ""
				}
				return !blank(dob.Year), ""
			},
			path:       []string{"personalDetails", "dateOfBirth", part},
			constraint: nonBlank,
		})
	}
	personal = []struct {
		field, message, json string
		get                  func(p *models.PersonalDetails) string
	}{
		{"address", "Address is required", "address", func(p *models.PersonalDetails) string { return p.Address }},
		{"city", "City is required", "city", func(p *models.PersonalDetails) string { return p.City }},
		{"country", "Country is required", "country", func(p *models.PersonalDetails) string { return p.Country }},
		{"phone_number", "Phone number is required", "phone", func(p *models.PersonalDetails) string { return p.Phone }},
		{"email", "Email is required", "email", func(p *models.PersonalDetails) string { return p.Email }},
	}
	for _, f := range personal {
		get, path := pd(f.get, f.json)
		rules = append(rules, required(2, f.field, f.message, get, path...))
	}

	// 3. nationality
	rules = append(rules,
		rule{
			group: 3,
			field: "nationality",
			code:  CodeNationalityMismatch,
			when:  domestic,
			check: func(e *Engine, d *models.ApplicationDraft) (bool, string) {
				if strings.TrimSpace(d.PersonalDetails.Nationality) == e.homeCountry {
					return true, ""
				}
				return false, fmt.Sprintf("Nationality must be %s for domestic applicants", e.homeCountry)
			},
			path:          []string{"personalDetails", "nationality"},
			constraintFor: func(e *Engine) map[string]interface{} {
				return map[string]interface{}{"type": "string", "enum": []string{e.homeCountry}}
			},
		},
		with(required(3, "nationality", "Nationality is required",
			func(d *models.ApplicationDraft) string { return d.PersonalDetails.Nationality },
			"personalDetails", "nationality"), international),
	)

	// 4. state of origin
	rules = append(rules, with(required(4, "state_of_origin", "State of origin is required",
		func(d *models.ApplicationDraft) string { return d.PersonalDetails.StateOfOrigin },
		"personalDetails", "stateOfOrigin"), domestic))

	// 5. academic record
	rules = append(rules, qualificationRules(5, 0, "qualification", "First qualification", postgraduate)...)
	rules = append(rules, jambRules()...)
	for i := 0; i < 2; i++ {
		rules = append(rules, examSittingRule(i))
	}

	// 6. doctoral second qualification
	rules = append(rules, qualificationRules(6, 1, "second_qualification", "Second qualification", doctoral)...)

	// 7. statement of purpose
	rules = append(rules, rule{
		group: 7,
		field: "statement_of_purpose",
		code:  CodeRequired,
		check: func(_ *Engine, d *models.ApplicationDraft) (bool, string) {
			for _, f := range d.StatementOfPurpose {
				if f.Present() {
					return true, ""
				}
			}
			return false, d.DocumentLabel() + " is required"
		},
		path:       []string{"statementOfPurpose"},
		constraint: map[string]interface{}{"type": "array", "minItems": 1},
	})

	// 8. referees
	for i := 0; i < 2; i++ {
		i := i
		idx := strconv.Itoa(i)
		rules = append(rules,
			required(8, fmt.Sprintf("referee_%d_name", i+1), fmt.Sprintf("Referee %d name is required", i+1),
				func(d *models.ApplicationDraft) string { return d.References[i].Name }, "references", idx, "name"),
			required(8, fmt.Sprintf("referee_%d_email", i+1), fmt.Sprintf("Referee %d email is required", i+1),
				func(d *models.ApplicationDraft) string { return d.References[i].Email }, "references", idx, "email"),
		)
	}

	// 9. declaration
	rules = append(rules, rule{
		group:   9,
		field:   "declaration",
		code:    CodeDeclaration,
		message: "You must accept the declaration",
		check: func(_ *Engine, d *models.ApplicationDraft) (bool, string) {
			return d.Declaration == models.DeclarationAccepted, ""
		},
		path:       []string{"declaration"},
		constraint: map[string]interface{}{"type": "string", "enum": []string{models.DeclarationAccepted}},
	})

	// 10. passport photo, either fresh or from an earlier submission
	rules = append(rules, rule{
		group:   10,
		field:   "passport_photo",
		code:    CodeRequired,
		message: "Passport photo is required",
		check: func(_ *Engine, d *models.ApplicationDraft) (bool, string) {
			return d.HasSubmittedPhoto(), ""
		},
	})

	return rules
}

func qualificationRules(group, index int, prefix, label string, when func(d *models.ApplicationDraft) bool) []rule {
	idx := strconv.Itoa(index)
	q := func(d *models.ApplicationDraft) *models.Qualification { return &d.Qualifications[index] }
	text := []struct {
		suffix, name, json string
		get                func(q *models.Qualification) string
	}{
		{"type", "type", "type", func(q *models.Qualification) string { return q.Type }},
		{"grade", "grade", "grade", func(q *models.Qualification) string { return q.Grade }},
		{"cgpa", "CGPA", "cgpa", func(q *models.Qualification) string { return q.CGPA }},
		{"subject", "subject", "subject", func(q *models.Qualification) string { return q.Subject }},
		{"institution", "institution", "institution", func(q *models.Qualification) string { return q.Institution }},
		{"start_date", "start date", "startDate", func(q *models.Qualification) string { return q.StartDate }},
		{"end_date", "end date", "endDate", func(q *models.Qualification) string { return q.EndDate }},
	}

	rules := make([]rule, 0, len(text)+2)
	for _, f := range text {
		get := f.get
		rules = append(rules, with(required(group, prefix+"_"+f.suffix,
			fmt.Sprintf("%s: %s is required", label, f.name),
			func(d *models.ApplicationDraft) string { return get(q(d)) },
			"qualifications", idx, f.json), when))
	}
	rules = append(rules,
		with(requiredFile(group, prefix+"_certificate", label+": certificate is required",
			func(d *models.ApplicationDraft) models.FileRef { return q(d).Certificate },
			"qualifications", idx, "certificate"), when),
		with(requiredFile(group, prefix+"_transcript", label+": transcript is required",
			func(d *models.ApplicationDraft) models.FileRef { return q(d).Transcript },
			"qualifications", idx, "transcript"), when),
	)
	return rules
}

func jambRules() []rule {
	rules := []rule{
		with(required(5, "jamb_reg_number", "JAMB registration number is required",
			func(d *models.ApplicationDraft) string { return d.JAMB.RegNumber }, "jamb", "regNumber"), undergraduate),
		with(required(5, "jamb_score", "JAMB score is required",
			func(d *models.ApplicationDraft) string { return d.JAMB.Score }, "jamb", "score"), undergraduate),
		with(required(5, "jamb_year", "JAMB year is required",
			func(d *models.ApplicationDraft) string { return d.JAMB.Year }, "jamb", "year"), undergraduate),
		{
			group:   5,
			field:   "jamb_subjects",
			code:    CodeRequired,
			message: "JAMB subjects and scores are required",
			when:    undergraduate,
			check: func(_ *Engine, d *models.ApplicationDraft) (bool, string) {
				return len(d.JAMB.CompleteSubjects()) > 0, ""
			},
			path:       []string{"jamb", "subjects"},
			constraint: map[string]interface{}{"type": "array", "minItems": 1},
		},
		with(requiredFile(5, "jamb_result", "JAMB result is required",
			func(d *models.ApplicationDraft) models.FileRef { return d.JAMB.Result }, "jamb", "result"), undergraduate),
	}
	return rules
}

// examSittingRule requires every populated sitting to be complete. Untouched
// sittings are skipped.
func examSittingRule(i int) rule {
	slot := i + 1
	return rule{
		group: 5,
		field: fmt.Sprintf("exam_type_%d", slot),
		code:  CodeIncompleteExam,
		when:  undergraduate,
		check: func(_ *Engine, d *models.ApplicationDraft) (bool, string) {
			s := d.ExamSittings[i]
			if !s.Populated() && blank(s.ExamType) {
				return true, ""
			}
			switch {
			case !knownExamType(s.ExamType):
				return false, fmt.Sprintf("Exam result %d: choose WAEC, NECO or NABTEB", slot)
			case blank(s.ExamNumber):
				return false, fmt.Sprintf("Exam result %d: exam number is required", slot)
			case blank(s.ExamYear):
				return false, fmt.Sprintf("Exam result %d: exam year is required", slot)
			case len(s.CompleteSubjects()) == 0:
				return false, fmt.Sprintf("Exam result %d: at least one subject and grade is required", slot)
			case !s.Document.Present():
				return false, fmt.Sprintf("Exam result %d: result document is required", slot)
			}
			return true, ""
		},
	}
}

func knownExamType(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	for _, known := range models.ExamTypes {
		if t == known {
			return true
		}
	}
	return false
}
