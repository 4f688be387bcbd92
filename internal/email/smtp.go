package email

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// ErrDeliveryDisabled is returned by NopSender for every send.
var ErrDeliveryDisabled = errors.New("email delivery disabled")

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendQuoteEmail(ctx context.Context, toEmail string, data QuoteEmail) error {
	subject := fmt.Sprintf(subjectQuoteFmt, data.VehicleYear, data.VehicleMake, data.VehicleModel)
	content, err := renderEmailTemplate("quote.html", quoteEmailData{
		baseEmailData: baseEmailData{
			Title:    "Your wrap estimate",
			Heading:  "Your wrap estimate is ready",
			CTALabel: "Fine-tune your estimate",
			CTAURL:   data.EstimatorURL,
		},
		QuoteNumber:   data.QuoteNumber,
		VehicleYear:   data.VehicleYear,
		VehicleMake:   data.VehicleMake,
		VehicleModel:  data.VehicleModel,
		Sqft:          fmt.Sprintf("%.0f", data.Sqft),
		CostFormatted: data.CostFormatted,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendEscalationEmail(ctx context.Context, toEmail string, data EscalationEmail) error {
	subject := fmt.Sprintf(subjectEscalationFmt, data.Situation)
	content, err := renderEmailTemplate("escalation.html", escalationEmailData{
		baseEmailData: baseEmailData{
			Title:   "Chat needs a human",
			Heading: "A chat conversation needs attention",
		},
		Situation:      data.Situation,
		ConversationID: data.ConversationID,
		CustomerEmail:  orDash(data.CustomerEmail),
		CustomerPhone:  orDash(data.CustomerPhone),
		LastMessage:    data.LastMessage,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendFollowUpEmail(ctx context.Context, toEmail string, data FollowUpEmail) error {
	content, err := renderEmailTemplate("followup.html", followUpEmailData{
		baseEmailData: baseEmailData{
			Title:   "Manual follow-up requested",
			Heading: "Manual follow-up requested",
		},
		ConversationID: data.ConversationID,
		CustomerEmail:  orDash(data.CustomerEmail),
		Reason:         data.Reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectFollowUp, content)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
