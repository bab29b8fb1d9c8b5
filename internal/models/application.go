package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is the admission level an application is made for. An applicant has
// at most one draft per level.
type Level string

const (
	LevelUndergraduate Level = "undergraduate"
	LevelPostgraduate  Level = "postgraduate"
)

func (l Level) Valid() bool {
	return l == LevelUndergraduate || l == LevelPostgraduate
}

// ApplicantType drives nationality, state-of-origin and fee rules.
type ApplicantType string

const (
	ApplicantDomestic      ApplicantType = "domestic"
	ApplicantInternational ApplicantType = "international"
)

// DeclarationAccepted is the only value of ApplicationDraft.Declaration that
// lets a submission proceed.
const DeclarationAccepted = "true"

// Exam bodies accepted for undergraduate result sittings.
const (
	ExamWAEC   = "waec"
	ExamNECO   = "neco"
	ExamNABTEB = "nabteb"
)

var ExamTypes = []string{ExamWAEC, ExamNECO, ExamNABTEB}

type ApplicationDraft struct {
	ApplicantID     string        `json:"applicantId"`
	AcademicSession string        `json:"academicSession"`
	Level           Level         `json:"level"`
	ProgramType     string        `json:"programType,omitempty"`
	Program         string        `json:"program"`
	HowDidYouHear   string        `json:"howDidYouHear,omitempty"`
	ApplicantType   ApplicantType `json:"applicantType"`

	PersonalDetails PersonalDetails `json:"personalDetails"`

	// Postgraduate. The second block is only mandatory for doctoral programs.
	Qualifications [2]Qualification `json:"qualifications"`

	// Undergraduate. The slot of a sitting is its index here.
	ExamSittings [2]ExamSitting `json:"examSittings"`
	JAMB         JAMBResult     `json:"jamb"`

	// A single document, kept as a list so upload handling is shared.
	StatementOfPurpose []FileRef `json:"statementOfPurpose,omitempty"`

	References [2]Referee `json:"references"`

	Declaration string `json:"declaration"`

	PassportPhoto    FileRef `json:"passportPhoto"`
	PassportPhotoURL string  `json:"passportPhotoUrl,omitempty"`
}

type PersonalDetails struct {
	Surname               string    `json:"surname"`
	FirstName             string    `json:"firstName"`
	OtherNames            string    `json:"otherNames,omitempty"`
	Gender                string    `json:"gender"`
	DateOfBirth           DateParts `json:"dateOfBirth"`
	Address               string    `json:"address"`
	City                  string    `json:"city"`
	Country               string    `json:"country"`
	StateOfOrigin         string    `json:"stateOfOrigin,omitempty"`
	Nationality           string    `json:"nationality"`
	Phone                 string    `json:"phone"`
	Email                 string    `json:"email"`
	EmailLocked           bool      `json:"emailLocked,omitempty"`
	HasDisability         bool      `json:"hasDisability,omitempty"`
	DisabilityDescription string    `json:"disabilityDescription,omitempty"`
}

// DateParts is a date held as the three strings of a day/month/year picker.
type DateParts struct {
	Day   string `json:"day"`
	Month string `json:"month"`
	Year  string `json:"year"`
}

func (d DateParts) Complete() bool {
	return strings.TrimSpace(d.Day) != "" && strings.TrimSpace(d.Month) != "" && strings.TrimSpace(d.Year) != ""
}

// ISO joins the parts as YYYY-MM-DD; ok is false unless all three are set.
func (d DateParts) ISO() (string, bool) {
	if !d.Complete() {
		return "", false
	}
	return fmt.Sprintf("%s-%s-%s", strings.TrimSpace(d.Year), pad2(d.Month), pad2(d.Day)), true
}

func pad2(s string) string {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < 10 {
		return fmt.Sprintf("%02d", n)
	}
	return s
}

type Qualification struct {
	Type        string  `json:"type"`
	Grade       string  `json:"grade"`
	CGPA        string  `json:"cgpa"`
	Subject     string  `json:"subject"`
	Institution string  `json:"institution"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	Certificate FileRef `json:"certificate"`
	Transcript  FileRef `json:"transcript"`
}

type SubjectGrade struct {
	Subject string `json:"subject"`
	Grade   string `json:"grade"`
}

func (s SubjectGrade) Complete() bool {
	return strings.TrimSpace(s.Subject) != "" && strings.TrimSpace(s.Grade) != ""
}

type ExamSitting struct {
	ExamType   string         `json:"examType"`
	ExamNumber string         `json:"examNumber"`
	ExamYear   string         `json:"examYear"`
	Subjects   []SubjectGrade `json:"subjects,omitempty"`
	Document   FileRef        `json:"document"`
}

// Populated reports whether any sub-field beyond the exam type was filled.
func (e ExamSitting) Populated() bool {
	if strings.TrimSpace(e.ExamNumber) != "" || strings.TrimSpace(e.ExamYear) != "" || e.Document.Present() {
		return true
	}
	for _, s := range e.Subjects {
		if strings.TrimSpace(s.Subject) != "" || strings.TrimSpace(s.Grade) != "" {
			return true
		}
	}
	return false
}

// CompleteSubjects returns only the subject/grade pairs with both halves set.
func (e ExamSitting) CompleteSubjects() []SubjectGrade {
	out := make([]SubjectGrade, 0, len(e.Subjects))
	for _, s := range e.Subjects {
		if s.Complete() {
			out = append(out, s)
		}
	}
	return out
}

type SubjectScore struct {
	Subject string `json:"subject"`
	Score   string `json:"score"`
}

func (s SubjectScore) Complete() bool {
	return strings.TrimSpace(s.Subject) != "" && strings.TrimSpace(s.Score) != ""
}

type JAMBResult struct {
	RegNumber string         `json:"regNumber"`
	Score     string         `json:"score"`
	Year      string         `json:"year"`
	Subjects  []SubjectScore `json:"subjects,omitempty"`
	Result    FileRef        `json:"result"`
}

func (j JAMBResult) CompleteSubjects() []SubjectScore {
	out := make([]SubjectScore, 0, len(j.Subjects))
	for _, s := range j.Subjects {
		if s.Complete() {
			out = append(out, s)
		}
	}
	return out
}

type Referee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewDraft returns an empty draft for applicant at level. Domestic is the
// default applicant type, so nationality starts fixed to homeCountry.
func NewDraft(applicantID string, level Level, homeCountry string) *ApplicationDraft {
	d := &ApplicationDraft{
		ApplicantID:   applicantID,
		Level:         level,
		ApplicantType: ApplicantDomestic,
	}
	d.PersonalDetails.Nationality = homeCountry
	return d
}

// IsDoctoral reports whether the program type is a doctorate.
func (d *ApplicationDraft) IsDoctoral() bool {
	switch strings.ToLower(strings.TrimSpace(d.ProgramType)) {
	case "phd", "doctoral", "doctorate":
		return true
	}
	return false
}

// DocumentLabel is the applicant-facing name of the statement document.
func (d *ApplicationDraft) DocumentLabel() string {
	if d.IsDoctoral() {
		return "Research proposal"
	}
	return "Statement of purpose"
}

// SetApplicantType switches the applicant type and keeps nationality
// consistent: domestic applicants are pinned to the home country,
// international ones choose freely and carry no state of origin.
func (d *ApplicationDraft) SetApplicantType(t ApplicantType, homeCountry string) {
	d.ApplicantType = t
	switch t {
	case ApplicantDomestic:
		d.PersonalDetails.Nationality = homeCountry
	case ApplicantInternational:
		if d.PersonalDetails.Nationality == homeCountry {
			d.PersonalDetails.Nationality = ""
		}
		d.PersonalDetails.StateOfOrigin = ""
	}
}

// HasSubmittedPhoto reports whether a passport photo is available, either as
// a fresh upload or from an earlier submission.
func (d *ApplicationDraft) HasSubmittedPhoto() bool {
	return d.PassportPhoto.Present() || strings.TrimSpace(d.PassportPhotoURL) != ""
}

// Clone returns a deep copy detached from d.
func (d *ApplicationDraft) Clone() *ApplicationDraft {
	c := *d
	for i := range c.Qualifications {
		c.Qualifications[i].Certificate = d.Qualifications[i].Certificate.clone()
		c.Qualifications[i].Transcript = d.Qualifications[i].Transcript.clone()
	}
	for i := range c.ExamSittings {
		c.ExamSittings[i].Subjects = append([]SubjectGrade(nil), d.ExamSittings[i].Subjects...)
		c.ExamSittings[i].Document = d.ExamSittings[i].Document.clone()
	}
	c.JAMB.Subjects = append([]SubjectScore(nil), d.JAMB.Subjects...)
	c.JAMB.Result = d.JAMB.Result.clone()
	if d.StatementOfPurpose != nil {
		c.StatementOfPurpose = make([]FileRef, len(d.StatementOfPurpose))
		for i, f := range d.StatementOfPurpose {
			c.StatementOfPurpose[i] = f.clone()
		}
	}
	c.PassportPhoto = d.PassportPhoto.clone()
	return &c
}
