package emailsvc

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/fs"
	"github.com/trezcool/pondok/services/logger"
)

type gradeReportData struct {
	Recipient    string
	StudentID    string
	StudentName  string
	AcademicYear int
	Obtained     int
	Total        float64
	Percentage   float64
	Verdict      string
}

func setup(t *testing.T) (*core.Config, *core.EmailTemplates, core.Logger) {
	conf := &core.Config{AppName: "Pondok"}
	conf.School.Name = "Pondok Al-Falah"
	tmpls, err := core.LoadEmailTemplates(conf, fs.EmailTemplates, fs.EmailTemplatesDir, true)
	require.NoError(t, err)
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return conf, tmpls, logger
}

func gradeReportMessage(t *testing.T) *core.EmailMessage {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: "Hasan", Address: "hasan@example.com"}},
		Subject:      "Grade report of Ali Hasan",
		TemplateName: "grade_report",
		TemplateData: gradeReportData{
			Recipient: "Hasan", StudentID: "678010001", StudentName: "Ali Hasan", AcademicYear: 2024,
			Obtained: 90, Total: 120, Percentage: 75, Verdict: "pass",
		},
	}
	require.NoError(t, msg.Attach(strings.NewReader("%PDF-1.3"), "grade_report.pdf", "application/pdf"))
	return msg
}

func TestConsoleServiceMock(t *testing.T) {
	conf, tmpls, logger := setup(t)
	svc := NewConsoleServiceMock(conf, tmpls, logger)

	svc.SendMessages(gradeReportMessage(t), &core.EmailMessage{Subject: "nobody", BodyStr: "lost"})

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Contains(t, msg.TextContent, "Dear Hasan,")
	assert.Contains(t, msg.TextContent, "Obtained: 90 / 120 (75.00%) - pass")
	assert.Contains(t, msg.TextContent, "Pondok - Pondok Al-Falah")
	assert.Contains(t, msg.HTMLContent, "<strong>Ali Hasan</strong>")
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
}

func TestConsoleService_PlainBody(t *testing.T) {
	conf, tmpls, logger := setup(t)
	svc := NewConsoleServiceMock(conf, tmpls, logger)

	svc.SendMessages(&core.EmailMessage{To: []mail.Address{{Address: "a@example.com"}}, BodyStr: "hello"})
	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "hello", sent[0].TextContent)
	assert.Empty(t, sent[0].HTMLContent)
}

func TestSendgridService(t *testing.T) {
	conf, tmpls, logger := setup(t)
	conf.SendgridApiKey = "SG.test"

	var got rest.Request
	status := http.StatusAccepted
	svc := NewSendgridService(conf, tmpls, logger)
	svc.api = func(req rest.Request) (*rest.Response, error) {
		got = req
		return &rest.Response{StatusCode: status, Body: "{}"}, nil
	}

	require.NoError(t, svc.sendMessage(gradeReportMessage(t)))
	assert.Equal(t, rest.Post, got.Method)
	assert.Equal(t, "Bearer SG.test", got.Headers["Authorization"])

	var body struct {
		Personalizations []struct {
			Subject string `json:"subject"`
			To      []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations"`
		Content []struct {
			Type string `json:"type"`
		} `json:"content"`
		Attachments []struct {
			Filename string `json:"filename"`
		} `json:"attachments"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader(got.Body)).Decode(&body))
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "[Pondok] Grade report of Ali Hasan", body.Personalizations[0].Subject)
	assert.Equal(t, "hasan@example.com", body.Personalizations[0].To[0].Email)
	assert.Len(t, body.Content, 2)
	assert.Equal(t, "grade_report.pdf", body.Attachments[0].Filename)

	status = http.StatusUnauthorized
	assert.Error(t, svc.sendMessage(gradeReportMessage(t)))
}
