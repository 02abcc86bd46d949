package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"mime"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Attachment is a file sent along with an email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// EmailService sends signing invitations and final contracts via Amazon SES
type EmailService struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	enabled   bool
	debug     bool
}

// NewEmailService creates a new email service. With no from-address
// configured it runs disabled and skips every send, which keeps local
// development working without AWS credentials.
func NewEmailService(awsRegion, fromEmail, fromName string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		if debug {
			log.Println("[DEBUG] Email service will skip sending all emails")
		}
		return &EmailService{enabled: false, debug: debug}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES")
		log.Printf("[DEBUG] AWS Region: %s", awsRegion)
		log.Printf("[DEBUG] From Email: %s", fromEmail)
		log.Printf("[DEBUG] From Name: %s", fromName)
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sesv2.NewFromConfig(cfg)
	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		debug:     debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendSigningInvitation emails one party their personal signing link.
func (s *EmailService) SendSigningInvitation(ctx context.Context, toEmail, toName, role, link string, expiresAt time.Time) error {
	if s.debug {
		log.Printf("[DEBUG] SendSigningInvitation called: to=%s, role=%s, link=%s", toEmail, role, link)
	}

	subject := "הזמנה לחתימה על חוזה שכירות"
	expiry := expiresAt.Format("02/01/2006")

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html dir="rtl" lang="he">
<head><meta charset="UTF-8"></head>
<body style="direction: rtl; font-family: Arial, sans-serif; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>הזמנה לחתימה על חוזה שכירות</h2>
		<p>שלום %s,</p>
		<p>הוזמנת לחתום על חוזה שכירות בתפקיד: <strong>%s</strong>.</p>
		<p style="text-align: center;">
			<a href="%s" style="display: inline-block; padding: 12px 30px; background-color: #2c5f8a; color: white; text-decoration: none; border-radius: 5px;">לחתימה על החוזה</a>
		</p>
		<p>או העתיקו את הקישור לדפדפן:</p>
		<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
		<p><strong>הקישור בתוקף עד %s.</strong></p>
		<p style="font-size: 12px; color: #666;">הודעה זו נשלחה אוטומטית, אין להשיב אליה.</p>
	</div>
</body>
</html>
`, toName, role, link, link, expiry)

	textBody := fmt.Sprintf(`שלום %s,

הוזמנת לחתום על חוזה שכירות בתפקיד: %s.

לחתימה על החוזה: %s

הקישור בתוקף עד %s.

הודעה זו נשלחה אוטומטית, אין להשיב אליה.
`, toName, role, link, expiry)

	_, err := s.send(ctx, toEmail, subject, htmlBody, textBody, nil)
	return err
}

// SendFinalContract emails a party the fully signed contract, attached as PDF,
// with a download link as fallback.
func (s *EmailService) SendFinalContract(ctx context.Context, toEmail, toName, downloadLink string, pdf []byte) (string, error) {
	if s.debug {
		log.Printf("[DEBUG] SendFinalContract called: to=%s, pdf=%d bytes", toEmail, len(pdf))
	}

	subject := "חוזה השכירות החתום"

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html dir="rtl" lang="he">
<head><meta charset="UTF-8"></head>
<body style="direction: rtl; font-family: Arial, sans-serif; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>חוזה השכירות החתום</h2>
		<p>שלום %s,</p>
		<p>כל הצדדים חתמו על חוזה השכירות. החוזה החתום מצורף להודעה זו כקובץ PDF.</p>
		<p>ניתן גם להוריד את החוזה בקישור הבא:</p>
		<p style="word-break: break-all; font-size: 12px; color: #666;"><a href="%s">%s</a></p>
		<p style="font-size: 12px; color: #666;">הודעה זו נשלחה אוטומטית, אין להשיב אליה.</p>
	</div>
</body>
</html>
`, toName, downloadLink, downloadLink)

	textBody := fmt.Sprintf(`שלום %s,

כל הצדדים חתמו על חוזה השכירות. החוזה החתום מצורף להודעה זו כקובץ PDF.

להורדת החוזה: %s

הודעה זו נשלחה אוטומטית, אין להשיב אליה.
`, toName, downloadLink)

	attachments := []Attachment{{
		Filename:    "lease-contract.pdf",
		ContentType: "application/pdf",
		Data:        pdf,
	}}

	return s.send(ctx, toEmail, subject, htmlBody, textBody, attachments)
}

// send dispatches one email. Attachments force the raw MIME path; SES simple
// content cannot carry them.
func (s *EmailService) send(ctx context.Context, toEmail, subject, htmlBody, textBody string, attachments []Attachment) (string, error) {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): %q to %s", subject, toEmail)
		return "", nil
	}

	if s.debug {
		log.Printf("[DEBUG] send called: to=%s, subject=%s", toEmail, subject)
		log.Printf("[DEBUG] HTML body length: %d bytes", len(htmlBody))
		log.Printf("[DEBUG] Text body length: %d bytes", len(textBody))
		log.Printf("[DEBUG] Attachments: %d", len(attachments))
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("UTF-8", s.fromName), s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
	}

	if len(attachments) == 0 {
		input.Content = &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		}
	} else {
		raw := buildRawMessage(fromAddress, toEmail, subject, htmlBody, textBody, attachments)
		input.Content = &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	log.Printf("Email sent: to=%s, subject=%q, messageId=%s", toEmail, subject, messageID)
	return messageID, nil
}

// buildRawMessage assembles a multipart/mixed MIME message with a
// multipart/alternative body and base64-encoded attachments.
func buildRawMessage(from, to, subject string, htmlBody, textBody string, attachments []Attachment) []byte {
	var msg strings.Builder

	mixedBoundary := "leasesign-mixed-boundary"
	altBoundary := "leasesign-alt-boundary"

	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + mime.QEncoding.Encode("UTF-8", subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: multipart/mixed; boundary=\"" + mixedBoundary + "\"\r\n")
	msg.WriteString("\r\n")

	msg.WriteString("--" + mixedBoundary + "\r\n")
	msg.WriteString("Content-Type: multipart/alternative; boundary=\"" + altBoundary + "\"\r\n")
	msg.WriteString("\r\n")

	msg.WriteString("--" + altBoundary + "\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("Content-Transfer-Encoding: base64\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(wrapBase64(base64.StdEncoding.EncodeToString([]byte(textBody))))
	msg.WriteString("\r\n")

	msg.WriteString("--" + altBoundary + "\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("Content-Transfer-Encoding: base64\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(wrapBase64(base64.StdEncoding.EncodeToString([]byte(htmlBody))))
	msg.WriteString("\r\n")
	msg.WriteString("--" + altBoundary + "--\r\n")

	for _, att := range attachments {
		msg.WriteString("--" + mixedBoundary + "\r\n")
		msg.WriteString("Content-Type: " + att.ContentType + "\r\n")
		msg.WriteString("Content-Disposition: attachment; filename=\"" + att.Filename + "\"\r\n")
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(att.Data)))
		msg.WriteString("\r\n")
	}
	msg.WriteString("--" + mixedBoundary + "--\r\n")

	return []byte(msg.String())
}

// wrapBase64 folds base64 content to 76-character lines as RFC 2045 requires.
func wrapBase64(encoded string) string {
	const lineLen = 76
	var b strings.Builder
	for len(encoded) > lineLen {
		b.WriteString(encoded[:lineLen])
		b.WriteString("\r\n")
		encoded = encoded[lineLen:]
	}
	b.WriteString(encoded)
	return b.String()
}
