package smtp

import (
	"fmt"
	smtpPkg "net/smtp"
	"os"
	"strings"

	"DrowsyGuard/internal/entity"
)

type ItfSmtp interface {
	SendAlert(alert entity.DrowsinessAlert) error
}

type sendFunc func(addr string, a smtpPkg.Auth, from string, to []string, msg []byte) error

type smtp struct {
	auth       smtpPkg.Auth
	addr       string
	mail       string
	recipients []string
	send       sendFunc
}

// New returns nil when SMTP_MAIL or ALERT_EMAIL_TO is unset: alert mail is
// optional.
func New() ItfSmtp {
	mail := os.Getenv("SMTP_MAIL")
	recipients := splitRecipients(os.Getenv("ALERT_EMAIL_TO"))
	if mail == "" || len(recipients) == 0 {
		return nil
	}

	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.gmail.com"
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}

	auth := smtpPkg.PlainAuth("", mail, os.Getenv("SMTP_PASSWORD"), host)

	return &smtp{
		auth:       auth,
		addr:       host + ":" + port,
		mail:       mail,
		recipients: recipients,
		send:       smtpPkg.SendMail,
	}
}

func (s *smtp) SendAlert(alert entity.DrowsinessAlert) error {
	if err := s.send(s.addr, s.auth, s.mail, s.recipients, alertMessage(s.mail, s.recipients, alert)); err != nil {
		return fmt.Errorf("failed to send alert mail: %w", err)
	}
	return nil
}

func alertMessage(from string, to []string, alert entity.DrowsinessAlert) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: [DrowsyGuard] %s on %s\r\n\r\n", alert.Status, alert.Source)
	fmt.Fprintf(&b, "%s at %s\r\n", alert.Status, alert.DetectedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Source: %s\r\n", alert.Source)
	if alert.EAR != nil {
		fmt.Fprintf(&b, "EAR: %.2f\r\n", *alert.EAR)
	} else {
		b.WriteString("EAR: n/a\r\n")
	}
	fmt.Fprintf(&b, "Yawn: %.2f\r\nFaces: %d\r\n", alert.Yawn, alert.FaceCount)
	if alert.SnapshotURL != "" {
		fmt.Fprintf(&b, "Snapshot: %s\r\n", alert.SnapshotURL)
	}
	return []byte(b.String())
}

func splitRecipients(raw string) []string {
	var out []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
