package report

import (
	"bytes"
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/grading"
)

const gradeReportTemplate = "grade_report"

type gradeReportData struct {
	Recipient    string
	StudentID    string
	StudentName  string
	AcademicYear int
	Obtained     int
	Total        float64
	Percentage   float64
	Verdict      grading.Verdict
}

// Mailer sends documents by email.
type Mailer struct {
	email core.EmailService
}

func NewMailer(email core.EmailService) *Mailer {
	return &Mailer{email: email}
}

// SendGradeReport renders r with renderer and sends it, attached, to the recipient.
// Delivery is asynchronous, its failures are logged by the email service.
func (m *Mailer) SendGradeReport(ctx context.Context, to mail.Address, r GradeReport, renderer Renderer) error {
	var doc bytes.Buffer
	if err := renderer.GradeReport(&doc, r); err != nil {
		return errors.Wrap(err, "rendering grade report")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	recipient := to.Name
	if recipient == "" {
		recipient = to.Address
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{to},
		Subject:      "Grade report of " + r.StudentName,
		TemplateName: gradeReportTemplate,
		TemplateData: gradeReportData{
			Recipient:    recipient,
			StudentID:    r.StudentID,
			StudentName:  r.StudentName,
			AcademicYear: r.AcademicYear,
			Obtained:     r.Summary.Obtained,
			Total:        r.Summary.Total,
			Percentage:   r.Summary.Percentage,
			Verdict:      r.Summary.Verdict,
		},
	}
	filename := Filename(renderer, "grade_report_"+r.StudentID, r.AcademicYear)
	if err := msg.Attach(&doc, filename, renderer.ContentType()); err != nil {
		return errors.Wrap(err, "attaching grade report")
	}
	m.email.SendMessages(msg)
	return nil
}
