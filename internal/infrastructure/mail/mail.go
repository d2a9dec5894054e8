// Package mail delivers notifications over SMTP or to a writer.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/tesso57/feedwatch/internal/domain/monitor"
)

const defaultTimeout = 30 * time.Second

// SMTPNotifier sends messages through an SMTP server using implicit TLS.
type SMTPNotifier struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Sender    string
	Recipient string
	Timeout   time.Duration
	// TLSConfig overrides the default client TLS configuration.
	TLSConfig *tls.Config

	now func() time.Time
}

// Send delivers msg to the configured recipient.
func (n *SMTPNotifier) Send(ctx context.Context, msg monitor.Message) error {
	if n.Host == "" {
		return errors.New("smtp host is empty")
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if n.TLSConfig != nil {
		tlsConfig = n.TLSConfig.Clone()
	}
	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName = n.Host
	}

	dialer := &tls.Dialer{NetDialer: &net.Dialer{Timeout: timeout}, Config: tlsConfig}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(n.Host, strconv.Itoa(n.Port)))
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, n.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = c.Close() }()

	if n.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", n.Username, n.Password, n.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(n.Sender); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(n.Recipient); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(n.build(msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data end: %w", err)
	}
	return c.Quit()
}

func (n *SMTPNotifier) build(msg monitor.Message) []byte {
	now := time.Now
	if n.now != nil {
		now = n.now
	}
	return buildMessage(n.Sender, n.Recipient, msg, now())
}

func buildMessage(from, to string, msg monitor.Message, date time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")

	qp := quotedprintable.NewWriter(&b)
	_, _ = qp.Write([]byte(msg.Body))
	_ = qp.Close()
	return b.Bytes()
}

// WriterNotifier prints messages instead of sending them.
type WriterNotifier struct {
	W io.Writer
}

// Send writes msg to the underlying writer.
func (n WriterNotifier) Send(_ context.Context, msg monitor.Message) error {
	_, err := fmt.Fprintf(n.W, "Subject: %s\n\n%s\n", msg.Subject, msg.Body)
	return err
}
