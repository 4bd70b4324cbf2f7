package mail

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference-central/config"
	"conference-central/logging"
	"conference-central/tasks"
)

type recordingSender struct {
	sent []Message
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

func TestConfirmationHandler(t *testing.T) {
	rec := &recordingSender{}
	h := ConfirmationHandler(rec)

	err := h(context.Background(), tasks.Params{"email": "org@example.com", "conferenceInfo": "name: GopherCon"})
	require.NoError(t, err)
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "org@example.com", rec.sent[0].To)
	assert.Equal(t, "You created a new Conference!", rec.sent[0].Subject)
	assert.Equal(t, "Hi, you have created the following conference:\r\n\r\nname: GopherCon", rec.sent[0].Body)

	require.Error(t, h(context.Background(), tasks.Params{}))
}

func TestSMTPSender(t *testing.T) {
	s := NewSMTPSender("mail.local:25", "noreply@example.com")
	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	require.NoError(t, s.Send(context.Background(), Message{To: "a@example.com", Subject: "Hi", Body: "body"}))
	assert.Equal(t, "mail.local:25", gotAddr)
	assert.Equal(t, []string{"a@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Hi\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\nbody")

	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	err := s.Send(context.Background(), Message{To: "a@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp: refused")
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "info")
	require.NoError(t, err)

	require.NoError(t, NewLogSender(logger).Send(context.Background(), Message{To: "a@example.com", Subject: "Hi"}))
	assert.Contains(t, buf.String(), "to=a@example.com")
	assert.Contains(t, buf.String(), "module=mail")
}

func TestNewSender(t *testing.T) {
	s, err := NewSender(config.MailConfig{Driver: "smtp", SMTPAddr: "x:25"}, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	_, err = NewSender(config.MailConfig{Driver: "pigeon"}, logging.Nop())
	require.Error(t, err)
}
