package outbound

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"

	"regportal/internal/platform/config"
)

//go:generate mockgen -source=gateway.go -destination=mocks/mocks.go -package=mocks Gateway

// Gateway is the outbound messaging collaborator. Delivery is best-effort and
// at-most-once from the portal's point of view; callers never treat a gateway
// failure as a request failure.
type Gateway interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, message string) error
}

// SMTPGateway sends email over plain SMTP with AUTH and dispatches SMS
// through the provider's HTTP API.
type SMTPGateway struct {
	smtp config.SMTPConfig
	sms  config.SMSConfig
	http *http.Client
}

func NewSMTPGateway(smtpCfg config.SMTPConfig, smsCfg config.SMSConfig, client *http.Client) *SMTPGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &SMTPGateway{smtp: smtpCfg, sms: smsCfg, http: client}
}

func (g *SMTPGateway) SendEmail(_ context.Context, to, subject, body string) error {
	if g.smtp.Host == "" {
		return fmt.Errorf("smtp not configured")
	}
	msg := strings.Join([]string{
		"From: " + g.smtp.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := g.smtp.Host + ":" + g.smtp.Port
	auth := smtp.PlainAuth("", g.smtp.User, g.smtp.Pass, g.smtp.Host)
	if err := smtp.SendMail(addr, auth, g.smtp.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

func (g *SMTPGateway) SendSMS(ctx context.Context, to, message string) error {
	if g.sms.GatewayURL == "" {
		return fmt.Errorf("sms gateway not configured")
	}

	params := url.Values{}
	params.Set("destination", normalizeMSISDN(to, g.sms.CountryCode))
	params.Set("q", g.sms.Password)
	params.Set("message", message)
	params.Set("from", g.sms.SenderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.sms.GatewayURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("send sms to %s: %w", to, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64))
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "0" {
		return fmt.Errorf("sms gateway rejected message: status=%d body=%q", resp.StatusCode, body)
	}
	return nil
}

// normalizeMSISDN rewrites a local number (0771234567) to international form
// (94771234567). Numbers already carrying the country code pass through.
func normalizeMSISDN(phone, countryCode string) string {
	if strings.HasPrefix(phone, countryCode) {
		return phone
	}
	return countryCode + strings.TrimPrefix(phone, "0")
}
