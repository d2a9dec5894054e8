package mail

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"io"
	"mime/quotedprintable"
	"net"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tesso57/feedwatch/internal/domain/monitor"
)

type session struct {
	auth string
	from string
	rcpt string
	data string
}

// startSMTPServer runs a single-session implicit TLS SMTP server.
func startSMTPServer(t *testing.T) (addr string, clientTLS *tls.Config, done <-chan session) {
	t.Helper()
	certSrv := httptest.NewTLSServer(nil)
	t.Cleanup(certSrv.Close)

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: certSrv.TLS.Certificates})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan session, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		tp := textproto.NewConn(conn)
		var s session
		_ = tp.PrintfLine("220 localhost ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch verb {
			case "EHLO", "HELO":
				_ = tp.PrintfLine("250-localhost")
				_ = tp.PrintfLine("250 AUTH PLAIN")
			case "AUTH":
				s.auth = line
				_ = tp.PrintfLine("235 2.7.0 Authentication successful")
			case "MAIL":
				s.from = line
				_ = tp.PrintfLine("250 OK")
			case "RCPT":
				s.rcpt = line
				_ = tp.PrintfLine("250 OK")
			case "DATA":
				_ = tp.PrintfLine("354 Go ahead")
				body, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				s.data = string(body)
				_ = tp.PrintfLine("250 OK")
			case "QUIT":
				_ = tp.PrintfLine("221 Bye")
				out <- s
				return
			default:
				_ = tp.PrintfLine("502 unsupported")
			}
		}
	}()

	pool := x509.NewCertPool()
	pool.AddCert(certSrv.Certificate())
	return ln.Addr().String(), &tls.Config{RootCAs: pool}, out
}

func TestSMTPNotifier_Send(t *testing.T) {
	addr, clientTLS, done := startSMTPServer(t)
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	n := &SMTPNotifier{
		Host:      host,
		Port:      port,
		Username:  "me@example.com",
		Password:  "secret",
		Sender:    "me@example.com",
		Recipient: "you@example.com",
		Timeout:   5 * time.Second,
		TLSConfig: clientTLS,
		now:       func() time.Time { return time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC) },
	}
	msg := monitor.Message{Subject: "New RSS Articles: Example", Body: "New articles in Example:\n\nTitle: One\n"}
	require.NoError(t, n.Send(context.Background(), msg))

	var s session
	select {
	case s = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("smtp session did not finish")
	}

	wantAuth := base64.StdEncoding.EncodeToString([]byte("\x00me@example.com\x00secret"))
	assert.Equal(t, "AUTH PLAIN "+wantAuth, s.auth)
	assert.Equal(t, "MAIL FROM:<me@example.com>", s.from)
	assert.Equal(t, "RCPT TO:<you@example.com>", s.rcpt)
	assert.Contains(t, s.data, "Subject: New RSS Articles: Example")
	assert.Contains(t, s.data, "To: you@example.com")

	_, body, ok := strings.Cut(s.data, "\n\n")
	require.True(t, ok, "message should have a header/body separator")
	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(body)))
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "Title: One")
}

func TestSMTPNotifier_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	n := &SMTPNotifier{Host: "127.0.0.1", Port: addr.Port, Sender: "a@example.com", Recipient: "b@example.com", Timeout: time.Second}
	assert.Error(t, n.Send(context.Background(), monitor.Message{Subject: "x"}))
}

func TestSMTPNotifier_EmptyHost(t *testing.T) {
	assert.Error(t, (&SMTPNotifier{}).Send(context.Background(), monitor.Message{}))
}

func TestBuildMessage_EncodesNonASCIISubject(t *testing.T) {
	raw := buildMessage("a@example.com", "b@example.com", monitor.Message{Subject: "Neue Artikel: Grüße", Body: "ok"}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	r := textproto.NewReader(bufio.NewReader(bytes.NewReader(raw)))
	header, err := r.ReadMIMEHeader()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(header.Get("Subject"), "=?utf-8?q?"), header.Get("Subject"))
	assert.Equal(t, "Thu, 01 Jan 2026 00:00:00 +0000", header.Get("Date"))
	assert.Equal(t, "text/plain; charset=utf-8", header.Get("Content-Type"))
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	err := WriterNotifier{W: &buf}.Send(context.Background(), monitor.Message{Subject: "Hello", Body: "World"})
	require.NoError(t, err)
	assert.Equal(t, "Subject: Hello\n\nWorld\n", buf.String())
}
