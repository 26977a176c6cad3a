package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/nomadnest/nomadnest/internal/config"
	"github.com/nomadnest/nomadnest/internal/logging"
)

// Sender delivers password reset codes.
type Sender interface {
	SendPasswordResetOTP(ctx context.Context, toEmail, code string) error
}

// NewSender returns an SMTP sender when SMTP is configured and a
// log-only sender otherwise.
func NewSender(cfg config.EmailConfig, logger *logging.Logger) Sender {
	if !cfg.Enabled() {
		logger.Warn("smtp not configured, reset codes will only be logged")
		return &LogSender{logger: logger}
	}
	return NewSMTPSender(cfg)
}

type SMTPSender struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	send         func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	from := cfg.From
	if from == "" {
		from = cfg.SMTPUser
	}
	return &SMTPSender{
		smtpHost:     cfg.SMTPHost,
		smtpPort:     cfg.SMTPPort,
		smtpUser:     cfg.SMTPUser,
		smtpPassword: cfg.SMTPPassword,
		fromEmail:    from,
		send:         smtp.SendMail,
	}
}

// SendPasswordResetOTP mails the one-time code to the user.
func (s *SMTPSender) SendPasswordResetOTP(ctx context.Context, toEmail, code string) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := renderOTPTemplate(code)
	if err != nil {
		logger.Error("failed to render otp email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "NomadNest password reset OTP", body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset otp sent", "email", toEmail)
	return nil
}

func (s *SMTPSender) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return s.send(addr, auth, s.smtpUser, []string{to}, msg)
}

// LogSender writes the code to the log. Used in development without SMTP.
type LogSender struct {
	logger *logging.Logger
}

func (s *LogSender) SendPasswordResetOTP(_ context.Context, toEmail, code string) error {
	s.logger.Info("password reset otp (smtp disabled)", "email", toEmail, "otp", code)
	return nil
}

var otpTemplate = template.Must(template.New("otp").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #222;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .code {
            font-size: 28px;
            letter-spacing: 6px;
            font-weight: bold;
            color: #fe424d;
        }
    </style>
</head>
<body>
    <h2>Reset your NomadNest password</h2>
    <p>Your OTP is:</p>
    <p class="code">{{.Code}}</p>
    <p>It expires in 10 minutes. If you didn't request a password reset, you can ignore this email.</p>
</body>
</html>
`))

func renderOTPTemplate(code string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Code string
	}{
		Code: code,
	}

	if err := otpTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
