package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
)

// SendMailFunc matches smtp.SendMail
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP sends messages through an SMTP relay with PLAIN auth
type SMTP struct {
	addr     string
	host     string
	auth     smtp.Auth
	from     string
	sendMail SendMailFunc
	now      func() time.Time
}

var _ accounts.Notifier = (*SMTP)(nil)

// NewSMTP creates an SMTP sender. An empty user disables auth.
func NewSMTP(host string, port int, user, password, from string) *SMTP {
	s := &SMTP{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		host:     host,
		from:     from,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
	if user != "" {
		s.auth = smtp.PlainAuth("", user, password, host)
	}
	return s
}

// WithSendMail replaces the transport, used in tests
func (s *SMTP) WithSendMail(fn SendMailFunc) *SMTP {
	if fn != nil {
		s.sendMail = fn
	}
	return s
}

func (s *SMTP) Send(ctx context.Context, msg accounts.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := s.Compose(msg)
	if err != nil {
		return sendError("smtp", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(s.addr, s.auth, s.from, []string{msg.To}, body)
	}()

	select {
	case err := <-done:
		if err != nil {
			return sendError("smtp", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Compose renders msg as an RFC 5322 message. A message with an HTML body
// becomes multipart/alternative.
func (s *SMTP) Compose(msg accounts.Message) ([]byte, error) {
	var buf bytes.Buffer

	headers := []struct{ key, value string }{
		{"From", s.from},
		{"To", msg.To},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", s.now().Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), s.host)},
		{"MIME-Version", "1.0"},
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.key, h.value)
	}

	if !msg.HasHTML() {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
		buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		if err := writeQuoted(&buf, msg.Text); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	var parts bytes.Buffer
	mw := multipart.NewWriter(&parts)

	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	for _, p := range []struct{ contentType, body string }{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		if err := writeQuoted(w, p.body); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	buf.Write(parts.Bytes())
	return buf.Bytes(), nil
}

func writeQuoted(w io.Writer, s string) error {
	qw := quotedprintable.NewWriter(w)
	if _, err := qw.Write([]byte(s)); err != nil {
		return err
	}
	return qw.Close()
}
