package email

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	"Osprey/Models"
)

// Sender sends mail over SMTP with a fixed configuration. It satisfies the
// Mailer interfaces declared where mail is consumed.
type Sender struct {
	Config Models.EmailConfig
}

func (s Sender) Send(message Models.EmailMessage) error {
	return SendEmail(s.Config, message)
}

// SendEmail sends an email using the provided configuration and message details
func SendEmail(config Models.EmailConfig, message Models.EmailMessage) error {
	body, err := buildMessage(config, message)
	if err != nil {
		return fmt.Errorf("failed to build email message: %w", err)
	}

	// Set up authentication
	auth := smtp.PlainAuth("", config.Username, config.Password, config.SMTPServer)

	// Create recipient list (to, cc, bcc)
	var recipients []string
	recipients = append(recipients, message.To...)
	recipients = append(recipients, message.CC...)
	recipients = append(recipients, message.BCC...)

	serverAddr := fmt.Sprintf("%s:%d", config.SMTPServer, config.SMTPPort)

	if !config.TLSEnabled {
		// Standard SMTP (non-TLS)
		return smtp.SendMail(serverAddr, auth, config.FromEmail, recipients, body)
	}

	tlsConfig := &tls.Config{
		ServerName:         config.SMTPServer,
		InsecureSkipVerify: config.SkipTLSCheck,
	}

	// Connect to the SMTP server with TLS
	conn, err := tls.Dial("tcp", serverAddr, tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %v", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, config.SMTPServer)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %v", err)
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %v", err)
	}

	if err = client.Mail(config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %v", err)
	}

	for _, recipient := range recipients {
		if err = client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to add recipient %s: %v", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data connection: %v", err)
	}

	if _, err = w.Write(body); err != nil {
		return fmt.Errorf("failed to write email body: %v", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data connection: %v", err)
	}

	return client.Quit()
}

// buildMessage renders the full wire format. Messages without attachments
// stay a flat single-part body; attachments switch to multipart/mixed with
// base64 parts.
func buildMessage(config Models.EmailConfig, message Models.EmailMessage) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s <%s>\r\n", config.FromName, config.FromEmail)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(message.To, ", "))
	if len(message.CC) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(message.CC, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", message.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")

	contentType := "text/plain; charset=UTF-8"
	if message.IsHTML {
		contentType = "text/html; charset=UTF-8"
	}

	if len(message.Attachments) == 0 {
		fmt.Fprintf(&buf, "Content-Type: %s\r\n\r\n", contentType)
		buf.WriteString(message.Body)
		return buf.Bytes(), nil
	}

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", writer.Boundary())

	bodyHeader := textproto.MIMEHeader{}
	bodyHeader.Set("Content-Type", contentType)
	bodyPart, err := writer.CreatePart(bodyHeader)
	if err != nil {
		return nil, err
	}
	if _, err := bodyPart.Write([]byte(message.Body)); err != nil {
		return nil, err
	}

	for _, attachment := range message.Attachments {
		mimeType := attachment.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", mimeType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", attachment.Filename))

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, err
		}
		encoded := base64.StdEncoding.EncodeToString(attachment.Data)
		// RFC 2045 caps encoded lines at 76 characters.
		for len(encoded) > 76 {
			if _, err := fmt.Fprintf(part, "%s\r\n", encoded[:76]); err != nil {
				return nil, err
			}
			encoded = encoded[76:]
		}
		if _, err := fmt.Fprintf(part, "%s\r\n", encoded); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
