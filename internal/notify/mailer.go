package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/models"

	"github.com/domodwyer/mailyak/v3"
	"github.com/shopspring/decimal"
)

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif">
  <h2>You're going to {{.EventTitle}}!</h2>
  <p>Hi {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}}, your payment of {{.Amount}} was received.</p>
  <p>Booking reference: <strong>{{.Reference}}</strong></p>
  <p>Show the attached QR code at the entrance.</p>
</body>
</html>`))

type confirmationView struct {
	models.Booking
	Amount string
}

// Mailer sends booking confirmations over SMTP
type Mailer struct {
	cfg  config.EmailConfig
	log  *logger.Logger
	send func(*mailyak.MailYak) error
}

func NewMailer(cfg config.EmailConfig, log *logger.Logger) *Mailer {
	return &Mailer{
		cfg:  cfg,
		log:  log,
		send: func(m *mailyak.MailYak) error { return m.Send() },
	}
}

func (m *Mailer) SendBookingConfirmation(ctx context.Context, b models.Booking) error {
	if !m.cfg.Enabled {
		m.log.Info("EMAIL", fmt.Sprintf("Email disabled, skipping confirmation %s for %s", b.Reference, b.CustomerEmail))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	mail, err := m.compose(b)
	if err != nil {
		return err
	}
	if err := m.send(mail); err != nil {
		return fmt.Errorf("send confirmation to %s: %w", b.CustomerEmail, err)
	}
	m.log.Info("EMAIL", fmt.Sprintf("Sent confirmation %s to %s", b.Reference, b.CustomerEmail))
	return nil
}

func (m *Mailer) compose(b models.Booking) (*mailyak.MailYak, error) {
	var auth smtp.Auth
	if m.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	}
	mail := mailyak.New(m.cfg.SMTPHost+":"+m.cfg.SMTPPort, auth)
	mail.To(b.CustomerEmail)
	mail.From(m.cfg.From)
	mail.FromName(m.cfg.FromName)
	mail.Subject(fmt.Sprintf("Your booking for %s (%s)", b.EventTitle, b.Reference))

	var body bytes.Buffer
	if err := confirmationTemplate.Execute(&body, confirmationView{Booking: b, Amount: FormatAmount(b.AmountTotal, b.Currency)}); err != nil {
		return nil, fmt.Errorf("render confirmation: %w", err)
	}
	mail.HTML().Set(body.String())
	mail.Plain().Set(fmt.Sprintf("Booking %s for %s confirmed. Amount paid: %s.",
		b.Reference, b.EventTitle, FormatAmount(b.AmountTotal, b.Currency)))

	png, err := BookingQR(b)
	if err != nil {
		return nil, fmt.Errorf("render booking QR: %w", err)
	}
	mail.AttachWithMimeType(b.Reference+".png", bytes.NewReader(png), "image/png")
	return mail, nil
}

// FormatAmount renders minor units as "50.00 USD"
func FormatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%s %s", decimal.New(minor, -2).StringFixed(2), strings.ToUpper(currency))
}
