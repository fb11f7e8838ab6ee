package services

import (
	"bytes"
	"context"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// Certificate is a rendered course completion certificate.
type Certificate struct {
	ID       string
	Filename string
	PDF      []byte
}

func (s *CourseService) Certificate(ctx context.Context, student Student, courseID int64) (*Certificate, error) {
	course, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return nil, translate(err, "load course", "Course not found")
	}
	enrolled, err := s.store.EnrollmentExists(ctx, courseID, student.ProfileID)
	if err != nil {
		return nil, WrapError(err, "check enrollment")
	}
	if !enrolled {
		return nil, ErrForbidden("You are not enrolled in this course")
	}
	user, err := s.store.UserByID(ctx, student.UserID)
	if err != nil {
		return nil, translate(err, "load user", "User not found")
	}
	id := uuid.NewString()
	doc, err := renderCertificate(id, user.FullName(), course.Title, time.Now().UTC())
	if err != nil {
		return nil, WrapError(err, "render certificate")
	}
	return &Certificate{ID: id, Filename: "certificate-" + course.Slug + ".pdf", PDF: doc}, nil
}

func renderCertificate(id, studentName, courseTitle string, issued time.Time) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Certificate of completion", false)
	pdf.SetAuthor("Zenith", false)
	pdf.AddPage()

	width, height := pdf.GetPageSize()
	pdf.SetLineWidth(1.5)
	pdf.SetDrawColor(40, 70, 140)
	pdf.Rect(10, 10, width-20, height-20, "D")

	pdf.SetY(40)
	pdf.SetFont("Helvetica", "B", 32)
	pdf.CellFormat(0, 16, "Certificate of Completion", "", 1, "C", false, 0, "")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 16)
	pdf.CellFormat(0, 10, "This certifies that", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 26)
	pdf.CellFormat(0, 16, tr(studentName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 16)
	pdf.CellFormat(0, 10, "has completed the course", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 14, tr(courseTitle), "", 1, "C", false, 0, "")
	pdf.Ln(14)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "Issued on "+issued.Format("January 2, 2006"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, "Certificate ID: "+id, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
