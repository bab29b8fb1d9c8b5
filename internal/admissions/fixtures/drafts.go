// Package fixtures builds complete drafts for tests.
package fixtures

import "admissions-portal/internal/models"

const HomeCountry = "Nigeria"

func pdf(name string) models.FileRef {
	return models.PendingFile(name, "application/pdf", []byte("%PDF-1.4 "+name))
}

func personal() models.PersonalDetails {
	return models.PersonalDetails{
		Surname:       "Okafor",
		FirstName:     "Chiamaka",
		Gender:        "female",
		DateOfBirth:   models.DateParts{Day: "7", Month: "3", Year: "2001"},
		Address:       "12 Marina Road",
		City:          "Lagos",
		Country:       "Nigeria",
		StateOfOrigin: "Anambra",
		Nationality:   HomeCountry,
		Phone:         "+2348012345678",
		Email:         "chiamaka@example.com",
		EmailLocked:   true,
	}
}

func referees() [2]models.Referee {
	return [2]models.Referee{
		{Name: "Prof. Adeyemi", Email: "adeyemi@unilag.edu.ng"},
		{Name: "Dr. Bello", Email: "bello@oau.edu.ng"},
	}
}

// Postgraduate returns a domestic masters draft passing every rule.
func Postgraduate() *models.ApplicationDraft {
	d := models.NewDraft("applicant-1", models.LevelPostgraduate, HomeCountry)
	d.AcademicSession = "2025/2026"
	d.ProgramType = "masters"
	d.Program = "MSc Computer Science"
	d.PersonalDetails = personal()
	d.Qualifications[0] = models.Qualification{
		Type:        "BSc",
		Grade:       "First Class",
		CGPA:        "4.6",
		Subject:     "Computer Science",
		Institution: "University of Lagos",
		StartDate:   "2018-09-01",
		EndDate:     "2022-07-30",
		Certificate: pdf("bsc-certificate.pdf"),
		Transcript:  pdf("bsc-transcript.pdf"),
	}
	d.StatementOfPurpose = []models.FileRef{pdf("statement.pdf")}
	d.References = referees()
	d.Declaration = models.DeclarationAccepted
	d.PassportPhoto = models.PendingFile("passport.jpg", "image/jpeg", []byte("jpeg"))
	return d
}

// Doctoral returns a PhD draft with both qualification blocks complete.
func Doctoral() *models.ApplicationDraft {
	d := Postgraduate()
	d.ProgramType = "phd"
	d.Program = "PhD Computer Science"
	d.Qualifications[1] = models.Qualification{
		Type:        "MSc",
		Grade:       "Distinction",
		CGPA:        "4.8",
		Subject:     "Computer Science",
		Institution: "University of Ibadan",
		StartDate:   "2022-09-01",
		EndDate:     "2024-07-30",
		Certificate: pdf("msc-certificate.pdf"),
		Transcript:  pdf("msc-transcript.pdf"),
	}
	return d
}

// Undergraduate returns a domestic draft with one WAEC sitting and a complete
// JAMB block.
func Undergraduate() *models.ApplicationDraft {
	d := models.NewDraft("applicant-2", models.LevelUndergraduate, HomeCountry)
	d.AcademicSession = "2025/2026"
	d.Program = "BSc Economics"
	d.PersonalDetails = personal()
	d.ExamSittings[0] = models.ExamSitting{
		ExamType:   models.ExamWAEC,
		ExamNumber: "4250101001",
		ExamYear:   "2024",
		Subjects:   []models.SubjectGrade{{Subject: "Mathematics", Grade: "A1"}},
		Document:   pdf("waec.pdf"),
	}
	d.JAMB = models.JAMBResult{
		RegNumber: "20241234567AB",
		Score:     "287",
		Year:      "2024",
		Subjects:  []models.SubjectScore{{Subject: "English", Score: "72"}},
		Result:    pdf("jamb.pdf"),
	}
	d.StatementOfPurpose = []models.FileRef{pdf("statement.pdf")}
	d.References = referees()
	d.Declaration = models.DeclarationAccepted
	d.PassportPhoto = models.PendingFile("passport.jpg", "image/jpeg", []byte("jpeg"))
	return d
}
