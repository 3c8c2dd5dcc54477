package infrastructure

import (
	"context"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const siteName = "Blog"

type EmailService struct {
	apiKey string
	sender string
	client *sendgrid.Client
}

// NewEmailService sends through SendGrid. Without an API key messages are
// written to the log instead, which is enough for local development.
func NewEmailService(apiKey, sender string) *EmailService {
	svc := &EmailService{apiKey: apiKey, sender: sender}
	if apiKey != "" {
		svc.client = sendgrid.NewSendClient(apiKey)
	}

	maskedAPIKey := ""
	if len(apiKey) > 8 {
		maskedAPIKey = apiKey[:4] + "****" + apiKey[len(apiKey)-4:]
	}
	log.Printf("Email Service Config - API Key: %s, Sender: %s", maskedAPIKey, sender)
	return svc
}

func (e *EmailService) SendPasswordReset(ctx context.Context, recipientEmail, username, link string) error {
	subject := "Password reset on " + siteName
	plainTextContent := fmt.Sprintf(
		"You're receiving this email because you requested a password reset for your user account %q.\n\n"+
			"Please go to the following page and choose a new password:\n%s\n", username, link)
	htmlContent := fmt.Sprintf(
		"<p>You requested a password reset for <strong>%s</strong>.</p><p><a href=\"%s\">Choose a new password</a></p>",
		username, link)

	if e.client == nil {
		log.Printf("Password reset email (not sent, no API key) to=%s link=%s", recipientEmail, link)
		return nil
	}

	from := mail.NewEmail(siteName, e.sender)
	to := mail.NewEmail(username, recipientEmail)
	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)

	response, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		log.Println("Failed to send password reset email:", err)
		return err
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: unexpected status %d", response.StatusCode)
	}

	log.Printf("Password reset email sent. Status Code: %d", response.StatusCode)
	return nil
}
