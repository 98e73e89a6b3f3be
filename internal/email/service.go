// Package email sends account and export notifications over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

var ErrNotConfigured = errors.New("email not configured")

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

func (s *Service) fromHeader() string {
	if s.config.FromName == "" {
		return s.config.From
	}
	return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
}

// buildMessage writes a multipart/alternative message with a plain text
// part and an HTML part.
func buildMessage(from string, to []string, subject, text, html string) []byte {
	const boundary = "ipurpose-alternative"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n\r\n", boundary, text)
	fmt.Fprintf(&msg, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n\r\n", boundary, html)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return msg.Bytes()
}

func (s *Service) sendHTML(to, subject, text, html string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	recipients := []string{to}
	msg := buildMessage(s.fromHeader(), recipients, subject, text, html)
	if err := s.send(s.server, s.auth, s.config.From, recipients, msg); err != nil {
		return fmt.Errorf("send %q: %w", subject, err)
	}
	return nil
}

type messageData struct {
	AppName  string
	UserName string
	URL      string
	Title    string
	Lines    []string
	Action   string
	Footer   string
}

func (s *Service) appName() string {
	if s.config.FromName != "" {
		return s.config.FromName
	}
	return "iPurpose"
}

func (s *Service) SendVerificationEmail(to, userName, verificationURL string) error {
	data := messageData{
		AppName:  s.appName(),
		UserName: userName,
		URL:      verificationURL,
		Title:    "Welcome, " + userName,
		Lines:    []string{"Confirm your email address to start your daily sessions.", "This link expires in 24 hours."},
		Action:   "Verify email",
		Footer:   "If you did not create an account you can ignore this email.",
	}
	return s.render(to, "Verify your iPurpose account", data)
}

func (s *Service) SendPasswordResetEmail(to, userName, resetURL string) error {
	data := messageData{
		AppName:  s.appName(),
		UserName: userName,
		URL:      resetURL,
		Title:    "Reset your password",
		Lines:    []string{"We received a request to reset your password.", "This link expires in 1 hour."},
		Action:   "Choose a new password",
		Footer:   "If you did not ask for a reset your password stays unchanged.",
	}
	return s.render(to, "Reset your iPurpose password", data)
}

// SendExportReadyEmail links to an archived export.
func (s *Service) SendExportReadyEmail(to, userName, formTitle, downloadURL string) error {
	data := messageData{
		AppName:  s.appName(),
		UserName: userName,
		URL:      downloadURL,
		Title:    formTitle + " is ready",
		Lines:    []string{"Your export has been saved.", "The download link stays valid for 24 hours."},
		Action:   "Download",
	}
	return s.render(to, "Your "+formTitle+" export", data)
}

func (s *Service) render(to, subject string, data messageData) error {
	html, err := renderHTML(data)
	if err != nil {
		return fmt.Errorf("render %q: %w", subject, err)
	}
	text := strings.Join(append(append([]string{data.Title, ""}, data.Lines...), "", data.URL), "\r\n")
	return s.sendHTML(to, subject, text, html)
}

var messageTemplate = template.Must(template.New("message").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #2d2a32; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #9c6ade; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #9c6ade; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
        .link { word-break: break-all; color: #9c6ade; }
    </style>
</head>
<body>
    <div class="header"><h1>{{.AppName}}</h1></div>
    <h2>{{.Title}}</h2>
    {{if .UserName}}<p>Hi {{.UserName}},</p>{{end}}
    {{range .Lines}}<p>{{.}}</p>
    {{end}}
    <p><a href="{{.URL}}" class="button">{{.Action}}</a></p>
    <p>Or copy and paste this link into your browser:</p>
    <p class="link">{{.URL}}</p>
    {{if .Footer}}<div class="footer"><p>{{.Footer}}</p></div>{{end}}
</body>
</html>`))

func renderHTML(data messageData) (string, error) {
	var buf bytes.Buffer
	if err := messageTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
