package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Inline is a file embedded in the HTML body and referenced as cid:ContentID.
type Inline struct {
	ContentID   string
	Filename    string
	ContentType string
	Data        []byte
}

// Message is an HTML email with inline attachments. Recipients are passed in
// the SMTP envelope only; the To header never lists them.
type Message struct {
	From    mail.Address
	To      []string
	Subject string
	HTML    string
	Inline  []Inline
	Date    time.Time
	ID      uuid.UUID
}

// MessageID returns the Message-Id header value.
func (m *Message) MessageID() string {
	host := "localhost"
	if _, domain, ok := strings.Cut(m.From.Address, "@"); ok && domain != "" {
		host = domain
	}
	return fmt.Sprintf("<%s@%s>", m.ID, host)
}

// WriteTo writes the message as multipart/related MIME.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	hdr := &bytes.Buffer{}
	_, _ = fmt.Fprintf(hdr, "From: %s\r\n", m.From.String())
	_, _ = fmt.Fprintf(hdr, "To: undisclosed-recipients:;\r\n")
	_, _ = fmt.Fprintf(hdr, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	_, _ = fmt.Fprintf(hdr, "Message-Id: %s\r\n", m.MessageID())
	_, _ = fmt.Fprintf(hdr, "Date: %s\r\n", date.Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(hdr, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(hdr, "Content-Type: multipart/related; type=\"text/html\"; boundary=%s\r\n\r\n", mw.Boundary())

	pw, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Transfer-Encoding": {"quoted-printable"},
		"Content-Type":              {"text/html; charset=UTF-8"},
	})
	if err != nil {
		return 0, fmt.Errorf("create html part: %w", err)
	}
	qw := quotedprintable.NewWriter(pw)
	if _, err := qw.Write([]byte(m.HTML)); err != nil {
		return 0, fmt.Errorf("write html part: %w", err)
	}
	if err := qw.Close(); err != nil {
		return 0, fmt.Errorf("close html part: %w", err)
	}

	for _, in := range m.Inline {
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Transfer-Encoding": {"base64"},
			"Content-Type":              {mime.FormatMediaType(in.ContentType, map[string]string{"name": in.Filename})},
			"Content-Disposition":       {mime.FormatMediaType("inline", map[string]string{"filename": in.Filename})},
			"Content-Id":                {"<" + in.ContentID + ">"},
		})
		if err != nil {
			return 0, fmt.Errorf("create part %s: %w", in.ContentID, err)
		}
		enc := base64.NewEncoder(base64.StdEncoding, &lineBreaker{w: pw})
		if _, err := enc.Write(in.Data); err != nil {
			return 0, fmt.Errorf("write part %s: %w", in.ContentID, err)
		}
		if err := enc.Close(); err != nil {
			return 0, fmt.Errorf("close part %s: %w", in.ContentID, err)
		}
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("close multipart: %w", err)
	}

	n, err := w.Write(hdr.Bytes())
	if err != nil {
		return int64(n), fmt.Errorf("write headers: %w", err)
	}
	m2, err := w.Write(body.Bytes())
	return int64(n + m2), err
}

// base64 body lines are limited to 76 characters.
const maxLineLength = 76

type lineBreaker struct {
	w    io.Writer
	line int
}

func (l *lineBreaker) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		room := maxLineLength - l.line
		chunk := p
		if len(chunk) > room {
			chunk = chunk[:room]
		}
		n, err := l.w.Write(chunk)
		written += n
		if err != nil {
			return written, err
		}
		l.line += n
		p = p[n:]
		if l.line == maxLineLength {
			if _, err := io.WriteString(l.w, "\r\n"); err != nil {
				return written, err
			}
			l.line = 0
		}
	}
	return written, nil
}
