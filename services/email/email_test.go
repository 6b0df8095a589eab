package emailsvc

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/fs"
	"github.com/trezcool/kanisa/services/logger"
)

func setup(t *testing.T) (*core.EmailRenderer, core.Logger, *core.Config, *bytes.Buffer) {
	conf := &core.Config{
		AppName:          "Kanisa",
		TestMode:         true,
		SendgridAPIKey:   "SG.key",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Kanisa", Address: "noreply@test.cd"},
	}
	renderer, err := core.NewEmailRenderer(appfs.FS, appfs.EmailTemplatesDir, conf)
	require.NoError(t, err)
	var buf bytes.Buffer
	return renderer, logsvc.NewRollbarLogger(log.New(&buf, "", 0), conf), conf, &buf
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	renderer, logger, conf, _ := setup(t)
	svc := NewConsoleServiceMock(renderer, logger, conf)

	withAttachment := &core.EmailMessage{To: []mail.Address{{Address: "leader@test.cd"}}, Subject: "list", BodyStr: "see attached"}
	require.NoError(t, withAttachment.Attach(strings.NewReader("a,b\n1,2\n"), "list.csv", "text/csv"))

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "leader@test.cd"}}, Subject: "hello", BodyStr: "hi there"},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "lost"},
		&core.EmailMessage{To: []mail.Address{{Address: "leader@test.cd"}}, Subject: "missing template", TemplateName: "nope"},
		withAttachment,
	)

	require.Len(t, svc.SentMessages, 2)
	assert.Equal(t, "hi there", svc.SentMessages[0].TextContent)
	assert.Equal(t, "list", svc.SentMessages[1].Subject)
	assert.Equal(t, "YSxiCjEsMgo=", svc.SentMessages[1].Attachments[0].Content.String())
}

func TestConsoleService_Send(t *testing.T) {
	renderer, logger, conf, buf := setup(t)
	svc := NewConsoleService(renderer, logger, conf)

	err := svc.Send(&core.EmailMessage{To: []mail.Address{{Address: "leader@test.cd"}}, Subject: "hello", BodyStr: "hi there"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Subject: [Kanisa] hello\r\n")
	assert.Contains(t, buf.String(), "hi there")

	err = svc.Send(&core.EmailMessage{To: []mail.Address{{Address: "leader@test.cd"}}, Subject: "missing template", TemplateName: "nope"})
	assert.Error(t, err)
}

func TestConsoleService_format(t *testing.T) {
	renderer, logger, conf, _ := setup(t)
	svc := NewConsoleServiceMock(renderer, logger, conf)

	body, err := svc.format(core.EmailMessage{
		To:          []mail.Address{{Name: "Leader", Address: "leader@test.cd"}},
		Subject:     "hello",
		TextContent: "hi there",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "From: \"Kanisa\" <noreply@test.cd>\r\n")
	assert.Contains(t, body, "Subject: [Kanisa] hello\r\n")
	assert.Contains(t, body, "To: \"Leader\" <leader@test.cd>\r\n")
	assert.Contains(t, body, "hi there")
	assert.NotContains(t, body, "text/html")
}

func TestSendgridService_sendMessage(t *testing.T) {
	renderer, logger, conf, buf := setup(t)
	svc := NewSendgridService(renderer, logger, conf).(*sendgridService)

	var reqs []rest.Request
	sendgridAPIFunc = func(req rest.Request) (*rest.Response, error) {
		reqs = append(reqs, req)
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: "Leader", Address: "leader@test.cd"}},
		Cc:      []mail.Address{{Address: "admin@test.cd"}},
		Subject: "hello",
		BodyStr: "hi there",
	}
	require.NoError(t, msg.Attach(strings.NewReader("a,b\n"), "list.csv", "text/csv"))
	svc.sendMessage(msg)

	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, string(reqs[0].Method))
	assert.Equal(t, "https://api.sendgrid.com/v3/mail/send", reqs[0].BaseURL)
	assert.Equal(t, "Bearer SG.key", reqs[0].Headers["Authorization"])

	var payload struct {
		From struct {
			Email string `json:"email"`
		} `json:"from"`
		Personalizations []struct {
			Subject string `json:"subject"`
			To      []struct {
				Email string `json:"email"`
			} `json:"to"`
			Cc []struct {
				Email string `json:"email"`
			} `json:"cc"`
		} `json:"personalizations"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
		Attachments []struct {
			Filename string `json:"filename"`
		} `json:"attachments"`
	}
	require.NoError(t, json.Unmarshal(reqs[0].Body, &payload))
	assert.Equal(t, "noreply@test.cd", payload.From.Email)
	require.Len(t, payload.Personalizations, 1)
	assert.Equal(t, "[Kanisa] hello", payload.Personalizations[0].Subject)
	assert.Equal(t, "leader@test.cd", payload.Personalizations[0].To[0].Email)
	assert.Equal(t, "admin@test.cd", payload.Personalizations[0].Cc[0].Email)
	require.Len(t, payload.Content, 1)
	assert.Equal(t, "hi there", payload.Content[0].Value)
	assert.Equal(t, "list.csv", payload.Attachments[0].Filename)

	// failures are logged
	sendgridAPIFunc = func(req rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: http.StatusBadRequest, Body: "bad request"}, nil
	}
	svc.sendMessage(msg)
	assert.Contains(t, buf.String(), "sending email - status: 400 - Body: bad request")

	// Send reports them instead
	assert.EqualError(t, svc.Send(msg), "sending email - status: 400 - Body: bad request")
	sendgridAPIFunc = func(req rest.Request) (*rest.Response, error) {
		return nil, errors.New("connection refused")
	}
	assert.EqualError(t, svc.Send(msg), "sending email: connection refused")
}
