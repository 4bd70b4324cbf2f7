// Package mail sends outbound email, either through an SMTP relay or, in
// development, into the log.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"conference-central/config"
	"conference-central/logging"
	"conference-central/tasks"
)

const (
	ConfirmationSubject = "You created a new Conference!"
	confirmationBody    = "Hi, you have created the following conference:\r\n\r\n%s"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func NewSender(cfg config.MailConfig, logger logging.Logger) (Sender, error) {
	switch cfg.Driver {
	case "log":
		return NewLogSender(logger), nil
	case "smtp":
		return NewSMTPSender(cfg.SMTPAddr, cfg.From), nil
	}
	return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
}

type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "mail")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info(ctx, "mail", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}

type SMTPSender struct {
	addr string
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(addr, from string) *SMTPSender {
	return &SMTPSender{addr: addr, from: from, send: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)
	if err := s.send(s.addr, nil, s.from, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

// ConfirmationHandler mails the organizer a summary of the conference they
// created. It expects the email and conferenceInfo params.
func ConfirmationHandler(sender Sender) tasks.Handler {
	return func(ctx context.Context, params tasks.Params) error {
		to := params["email"]
		if to == "" {
			return fmt.Errorf("confirmation email: no recipient")
		}
		return sender.Send(ctx, Message{
			To:      to,
			Subject: ConfirmationSubject,
			Body:    fmt.Sprintf(confirmationBody, params["conferenceInfo"]),
		})
	}
}
