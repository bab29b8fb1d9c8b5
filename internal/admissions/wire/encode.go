package wire

import (
	"fmt"
	"strconv"
	"strings"

	"admissions-portal/internal/models"

	"github.com/goccy/go-json"
)

type Mode int

const (
	ModeDraft Mode = iota
	ModeFinal
)

func (m Mode) String() string {
	if m == ModeFinal {
		return "final"
	}
	return "draft"
}

// ParseMode accepts "draft" and "final".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "draft":
		return ModeDraft, nil
	case "final":
		return ModeFinal, nil
	}
	return ModeDraft, fmt.Errorf("unknown submission mode %q", s)
}

// Encode flattens d into the backend field contract. Blank scalars are
// omitted, except how_did_you_hear which is always sent; files are sent only
// when they are fresh uploads.
func Encode(d *models.ApplicationDraft, mode Mode) *Payload {
	p := &Payload{}
	pd := d.PersonalDetails

	p.addText("academic_session", d.AcademicSession)
	p.addText("application_type", string(d.Level))
	p.addText("program_type", d.ProgramType)
	p.addText("program", d.Program)
	p.add("how_did_you_hear", strings.TrimSpace(d.HowDidYouHear))
	p.addText("applicant_type", string(d.ApplicantType))

	p.addText("surname", pd.Surname)
	p.addText("first_name", pd.FirstName)
	p.addText("other_names", pd.OtherNames)
	p.addText("gender", pd.Gender)
	if dob, ok := pd.DateOfBirth.ISO(); ok {
		p.add("date_of_birth", dob)
	}
	p.addText("address", pd.Address)
	p.addText("city", pd.City)
	p.addText("country", pd.Country)
	if d.ApplicantType != models.ApplicantInternational {
		p.addText("state_of_origin", pd.StateOfOrigin)
	}
	p.addText("nationality", pd.Nationality)
	p.addText("phone_number", pd.Phone)
	p.addText("email", pd.Email)
	if pd.HasDisability {
		p.add("has_disability", "true")
		p.addText("disability_description", pd.DisabilityDescription)
	}

	if d.Level == models.LevelUndergraduate {
		encodeExamSittings(p, d.ExamSittings)
		encodeJAMB(p, d.JAMB)
	} else {
		encodeQualification(p, "qualification", d.Qualifications[0])
		encodeQualification(p, "second_qualification", d.Qualifications[1])
	}

	for _, f := range d.StatementOfPurpose {
		p.addFile("statement_of_purpose", f)
	}

	for i, r := range d.References {
		p.addText(fmt.Sprintf("referee_%d_name", i+1), r.Name)
		p.addText(fmt.Sprintf("referee_%d_email", i+1), r.Email)
	}

	p.addText("declaration", d.Declaration)
	p.addFile("passport_photo", d.PassportPhoto)

	p.add("is_draft", strconv.FormatBool(mode == ModeDraft))
	if mode == ModeFinal {
		p.add("submitted", "true")
	}
	return p
}

func encodeQualification(p *Payload, prefix string, q models.Qualification) {
	p.addText(prefix+"_type", q.Type)
	p.addText(prefix+"_grade", q.Grade)
	p.addText(prefix+"_cgpa", q.CGPA)
	p.addText(prefix+"_subject", q.Subject)
	p.addText(prefix+"_institution", q.Institution)
	p.addText(prefix+"_start_date", q.StartDate)
	p.addText(prefix+"_end_date", q.EndDate)
	p.addFile(prefix+"_certificate", q.Certificate)
	p.addFile(prefix+"_transcript", q.Transcript)
}

// encodeExamSittings numbers each sitting by its own slot, so a sitting
// keeps its suffix whatever the other slot holds.
func encodeExamSittings(p *Payload, sittings [2]models.ExamSitting) {
	for i, s := range sittings {
		if !s.Populated() {
			continue
		}
		n := strconv.Itoa(i + 1)
		p.addText("exam_type_"+n, strings.ToLower(s.ExamType))
		p.addText("exam_number_"+n, s.ExamNumber)
		p.addText("exam_year_"+n, s.ExamYear)
		if subjects := s.CompleteSubjects(); len(subjects) > 0 {
			p.add("exam_subjects_"+n, mustJSON(subjects))
		}
		p.addFile("exam_document_"+n, s.Document)
	}
}

func encodeJAMB(p *Payload, j models.JAMBResult) {
	p.addText("jamb_reg_number", j.RegNumber)
	p.addText("jamb_score", j.Score)
	p.addText("jamb_year", j.Year)
	if subjects := j.CompleteSubjects(); len(subjects) > 0 {
		p.add("jamb_subjects", mustJSON(subjects))
	}
	p.addFile("jamb_result", j.Result)
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("wire: marshal %T: %v", v, err))
	}
	return string(b)
}

// HasMeaningfulContent reports whether d is worth an autosave: a name,
// an email, the first qualification type or certificate, or a statement.
func HasMeaningfulContent(d *models.ApplicationDraft) bool {
	if d == nil {
		return false
	}
	pd := d.PersonalDetails
	if strings.TrimSpace(pd.Surname) != "" || strings.TrimSpace(pd.FirstName) != "" || strings.TrimSpace(pd.Email) != "" {
		return true
	}
	if strings.TrimSpace(d.Qualifications[0].Type) != "" || d.Qualifications[0].Certificate.Present() {
		return true
	}
	for _, f := range d.StatementOfPurpose {
		if f.Present() {
			return true
		}
	}
	return false
}
