package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/model"
)

const smtpDialTimeout = 10 * time.Second

type sendMailFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Email delivers alerts as HTML mail through an SMTP relay
type Email struct {
	addr     string
	auth     smtp.Auth
	from     string
	to       []string
	location *time.Location
	sendMail sendMailFunc
}

// NewEmail creates an email channel from its configuration
func NewEmail(ch config.Channel) (*Email, error) {
	loc, err := time.LoadLocation(ch.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", ch.Timezone, err)
	}

	e := &Email{
		addr:     net.JoinHostPort(ch.SMTPServer, strconv.Itoa(ch.SMTPPort)),
		from:     ch.FromAddress,
		to:       ch.ToAddresses,
		location: loc,
		sendMail: smtp.SendMail,
	}
	if ch.Username != "" && ch.Password != "" {
		e.auth = smtp.PlainAuth("", ch.Username, ch.Password, ch.SMTPServer)
	}
	return e, nil
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(_ context.Context, a model.Alert) error {
	if len(e.to) == 0 {
		return errors.New("no recipients configured")
	}
	if err := e.sendMail(e.addr, e.auth, e.from, e.to, e.message(a)); err != nil {
		return fmt.Errorf("send mail via %s: %w", e.addr, err)
	}
	return nil
}

// Test checks that the relay accepts a connection and, when credentials
// are configured, authenticates
func (e *Email) Test(ctx context.Context) error {
	dialer := net.Dialer{Timeout: smtpDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", e.addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", e.addr, err)
	}

	host, _, _ := net.SplitHostPort(e.addr)
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if e.auth != nil {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
		if err := client.Auth(e.auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	return client.Quit()
}

func (e *Email) message(a model.Alert) []byte {
	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(a.Severity)), a.Title)

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", e.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", a.Timestamp.In(e.location).Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(e.htmlBody(a))
	return b.Bytes()
}

func (e *Email) htmlBody(a model.Alert) string {
	color := string(alertColor(a))
	description := strings.ReplaceAll(html.EscapeString(a.Description), "\n", "<br>")

	var b strings.Builder
	b.WriteString("<html><body style=\"font-family: sans-serif;\">\n")
	fmt.Fprintf(&b, "<h2 style=\"color: %s;\">%s</h2>\n", color, html.EscapeString(a.Title))
	b.WriteString("<table>\n")
	row := func(label, value string) {
		fmt.Fprintf(&b, "<tr><td><strong>%s</strong></td><td>%s</td></tr>\n", label, html.EscapeString(value))
	}
	row("Endpoint", a.Endpoint)
	row("Severity", strings.ToUpper(string(a.Severity)))
	row("Type", string(a.Type))
	row("Time", a.Timestamp.In(e.location).Format("2006-01-02 15:04:05 MST"))
	if a.Resolved && a.ResolvedBy != "" {
		row("Resolved by", a.ResolvedBy)
	}
	b.WriteString("</table>\n")
	fmt.Fprintf(&b, "<p>%s</p>\n", description)
	b.WriteString("</body></html>\n")
	return b.String()
}
