package delivery

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"time"
)

// Message is one fully composed outbound email
type Message struct {
	FromName  string
	FromEmail string
	To        string
	ReplyTo   string
	Subject   string
	HTMLBody  string
	TextBody  string
}

// Transport is the mail-submission capability the engine hands finished
// messages to. One session covers a whole campaign batch: Open once, Send
// per recipient, Close when the batch is done.
type Transport interface {
	Open() error
	Send(msg *Message) error
	Close() error
}

// Compose renders the message as an RFC 5322 multipart/alternative payload.
// The text part, when present, precedes the HTML part so clients pick the
// richest representation they support.
func (m *Message) Compose() ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", m.FromName), m.FromEmail)
	fmt.Fprintf(&buf, "To: %s\r\n", m.To)
	fmt.Fprintf(&buf, "Reply-To: %s\r\n", m.ReplyTo)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&buf, "List-Unsubscribe: <mailto:%s?subject=Unsubscribe>\r\n", m.ReplyTo)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	fmt.Fprintf(&buf, "\r\n")

	if m.TextBody != "" {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type": {"text/plain; charset=utf-8"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := part.Write([]byte(m.TextBody)); err != nil {
			return nil, err
		}
	}

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(m.HTMLBody)); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
