package wire

import (
	"errors"
	"fmt"
	"strings"

	"admissions-portal/internal/admissions/fileref"
	"admissions-portal/internal/models"

	"github.com/goccy/go-json"
)

// ErrMalformedField marks a stored value that could not be decoded.
var ErrMalformedField = errors.New("MALFORMED_FIELD")

// Hydrate rebuilds a draft from a stored record. Document paths become
// remote references resolved against baseURL, and a non-empty userEmail
// replaces the stored email and locks it. The draft is always returned; the
// error lists fields that were malformed and left empty.
func Hydrate(rec models.ApplicationRecord, applicantID, baseURL, userEmail, homeCountry string) (*models.ApplicationDraft, error) {
	var errs []error
	level := models.Level(rec.String("application_type"))
	if !level.Valid() {
		level = models.LevelPostgraduate
	}
	d := models.NewDraft(applicantID, level, homeCountry)

	d.AcademicSession = rec.String("academic_session")
	d.ProgramType = rec.String("program_type")
	d.Program = rec.String("program")
	d.HowDidYouHear = rec.String("how_did_you_hear")

	pd := &d.PersonalDetails
	pd.Surname = rec.String("surname")
	pd.FirstName = rec.String("first_name")
	pd.OtherNames = rec.String("other_names")
	pd.Gender = rec.String("gender")
	pd.DateOfBirth = splitDate(rec.String("date_of_birth"))
	pd.Address = rec.String("address")
	pd.City = rec.String("city")
	pd.Country = rec.String("country")
	pd.StateOfOrigin = rec.String("state_of_origin")
	pd.Phone = rec.String("phone_number")
	pd.Email = rec.String("email")
	pd.HasDisability = rec.Bool("has_disability")
	pd.DisabilityDescription = rec.String("disability_description")

	switch models.ApplicantType(rec.String("applicant_type")) {
	case models.ApplicantInternational:
		d.ApplicantType = models.ApplicantInternational
		pd.Nationality = rec.String("nationality")
	default:
		nationality := rec.String("nationality")
		if nationality != "" && nationality != homeCountry {
			d.ApplicantType = models.ApplicantInternational
			pd.Nationality = nationality
		}
	}

	if userEmail = strings.TrimSpace(userEmail); userEmail != "" {
		pd.Email = userEmail
		pd.EmailLocked = true
	}

	d.Qualifications[0] = hydrateQualification(rec, "qualification", baseURL)
	d.Qualifications[1] = hydrateQualification(rec, "second_qualification", baseURL)

	for i := range d.ExamSittings {
		n := fmt.Sprint(i + 1)
		d.ExamSittings[i] = models.ExamSitting{
			ExamType:   strings.ToLower(rec.String("exam_type_" + n)),
			ExamNumber: rec.String("exam_number_" + n),
			ExamYear:   rec.String("exam_year_" + n),
			Document:   fileref.Placeholder(rec.String("exam_document_"+n), baseURL),
		}
		subjects, err := decodeList[models.SubjectGrade](rec, "exam_subjects_"+n)
		if err != nil {
			errs = append(errs, err)
		}
		d.ExamSittings[i].Subjects = subjects
	}

	d.JAMB = models.JAMBResult{
		RegNumber: rec.String("jamb_reg_number"),
		Score:     rec.String("jamb_score"),
		Year:      rec.String("jamb_year"),
		Result:    fileref.Placeholder(rec.String("jamb_result"), baseURL),
	}
	jamb, err := decodeList[models.SubjectScore](rec, "jamb_subjects")
	if err != nil {
		errs = append(errs, err)
	}
	d.JAMB.Subjects = jamb

	if sop := fileref.Placeholder(rec.String("statement_of_purpose"), baseURL); sop.Present() {
		d.StatementOfPurpose = []models.FileRef{sop}
	}

	for i := range d.References {
		r := rec.Referee(i + 1)
		d.References[i] = models.Referee{Name: r.Name, Email: r.Email}
	}

	d.Declaration = ""
	if rec.Bool("declaration") {
		d.Declaration = models.DeclarationAccepted
	}

	if photo := fileref.Placeholder(rec.String("passport_photo"), baseURL); photo.IsRemote() {
		d.PassportPhotoURL = fileref.OriginalPath(photo)
	}
	return d, errors.Join(errs...)
}

func hydrateQualification(rec models.ApplicationRecord, prefix, baseURL string) models.Qualification {
	return models.Qualification{
		Type:        rec.String(prefix + "_type"),
		Grade:       rec.String(prefix + "_grade"),
		CGPA:        rec.String(prefix + "_cgpa"),
		Subject:     rec.String(prefix + "_subject"),
		Institution: rec.String(prefix + "_institution"),
		StartDate:   rec.String(prefix + "_start_date"),
		EndDate:     rec.String(prefix + "_end_date"),
		Certificate: fileref.Placeholder(rec.String(prefix+"_certificate"), baseURL),
		Transcript:  fileref.Placeholder(rec.String(prefix+"_transcript"), baseURL),
	}
}

// splitDate parses YYYY-MM-DD, ignoring any time suffix.
func splitDate(s string) models.DateParts {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i > 0 {
		s = s[:i]
	}
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return models.DateParts{}
	}
	return models.DateParts{Year: parts[0], Month: parts[1], Day: parts[2]}
}

// decodeList reads the list at key, stored either as a JSON string or as an
// already decoded array. A malformed value yields nil and an error.
func decodeList[T any](rec models.ApplicationRecord, key string) ([]T, error) {
	var raw []byte
	switch t := rec[key].(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		raw = []byte(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedField, key, err)
		}
		raw = b
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedField, key, err)
	}
	return out, nil
}
