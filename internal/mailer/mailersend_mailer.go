package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendMailer struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSendMailer(apiKey, fromName, fromEmail string) (*MailerSendMailer, error) {
	if apiKey == "" || fromEmail == "" {
		return nil, errors.New("mailersend requires MAILERSEND_API_KEY and a from address")
	}
	return &MailerSendMailer{
		client: mailersend.NewMailersend(apiKey),
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}, nil
}

func (m *MailerSendMailer) SendVerificationCode(email, code string) error {
	subject, text, html := verificationMessage(code)
	return m.send(email, subject, text, html)
}

func (m *MailerSendMailer) SendJoinNotification(email, restaurant string) error {
	subject, text, html := joinMessage(restaurant)
	return m.send(email, subject, text, html)
}

func (m *MailerSendMailer) SendLeaveNotification(email, restaurant string) error {
	subject, text, html := leaveMessage(restaurant)
	return m.send(email, subject, text, html)
}

func (m *MailerSendMailer) SendExpirationNotification(email, restaurant string, expiration time.Time) error {
	subject, text, html := expirationMessage(restaurant, expiration)
	return m.send(email, subject, text, html)
}

func (m *MailerSendMailer) send(toEmail, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("mailersend returned status %d", res.StatusCode)
	}
	return nil
}
