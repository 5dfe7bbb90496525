// Package reply detects campaign replies by polling a mailbox and merging
// reply signals into tracking records.
package reply

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/textproto"
	"strings"
	"time"

	"github.com/sugils/Email-tracker-Backend/internal/config"
)

// Mailbox is the read capability the reconciler polls. Search returns
// message ids received since the given time; Fetch returns one raw
// RFC 5322 message.
type Mailbox interface {
	Search(since time.Time) ([]string, error)
	Fetch(id string) ([]byte, error)
	Close() error
}

// MailboxDialer opens a fresh mailbox session per reconciliation run
type MailboxDialer func() (Mailbox, error)

// imapMailbox is a minimal IMAP4rev1 client: connect over TLS, LOGIN,
// SELECT INBOX, SEARCH SINCE, FETCH RFC822. Just enough protocol for the
// reconciler's read-only polling.
type imapMailbox struct {
	conn *tls.Conn
	text *textproto.Conn
	seq  int
}

// DialIMAP connects and authenticates against the configured IMAP server
func DialIMAP(cfg config.IMAPConfig) (Mailbox, error) {
	conn, err := tls.Dial("tcp", cfg.Addr(), &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Addr(), err)
	}

	mb := &imapMailbox{conn: conn, text: textproto.NewConn(conn)}

	// Server greeting
	if _, err := mb.text.ReadLine(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read greeting: %w", err)
	}

	if _, err := mb.command(fmt.Sprintf("LOGIN %s %s", quoteIMAP(cfg.Username), quoteIMAP(cfg.Password))); err != nil {
		conn.Close()
		return nil, fmt.Errorf("login: %w", err)
	}
	if _, err := mb.command("SELECT INBOX"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("select inbox: %w", err)
	}
	return mb, nil
}

// command sends one tagged command and collects response lines until the
// tagged completion, failing on NO/BAD.
func (mb *imapMailbox) command(cmd string) ([]string, error) {
	mb.seq++
	tag := fmt.Sprintf("a%03d", mb.seq)

	if err := mb.text.PrintfLine("%s %s", tag, cmd); err != nil {
		return nil, err
	}

	var lines []string
	for {
		line, err := mb.text.ReadLine()
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(line, tag+" ") {
			status := strings.TrimPrefix(line, tag+" ")
			if !strings.HasPrefix(status, "OK") {
				return nil, fmt.Errorf("imap: %s", status)
			}
			return lines, nil
		}
		lines = append(lines, line)
	}
}

// Search returns the ids of messages received since the given date
func (mb *imapMailbox) Search(since time.Time) ([]string, error) {
	lines, err := mb.command(fmt.Sprintf("SEARCH SINCE %s", since.Format("02-Jan-2006")))
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, line := range lines {
		if rest, ok := strings.CutPrefix(line, "* SEARCH"); ok {
			ids = append(ids, strings.Fields(rest)...)
		}
	}
	return ids, nil
}

// Fetch retrieves one raw message by sequence number
func (mb *imapMailbox) Fetch(id string) ([]byte, error) {
	mb.seq++
	tag := fmt.Sprintf("a%03d", mb.seq)

	if err := mb.text.PrintfLine("%s FETCH %s RFC822", tag, id); err != nil {
		return nil, err
	}

	var body []byte
	for {
		line, err := mb.text.ReadLine()
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(line, tag+" ") {
			status := strings.TrimPrefix(line, tag+" ")
			if !strings.HasPrefix(status, "OK") {
				return nil, fmt.Errorf("imap fetch %s: %s", id, status)
			}
			return body, nil
		}
		// The message arrives as a literal: "* n FETCH (RFC822 {size}"
		if idx := strings.LastIndex(line, "{"); strings.HasPrefix(line, "* ") && idx >= 0 {
			var size int
			if _, err := fmt.Sscanf(line[idx:], "{%d}", &size); err != nil {
				continue
			}
			body = make([]byte, size)
			if _, err := io.ReadFull(mb.text.R, body); err != nil {
				return nil, err
			}
		}
	}
}

// Close logs out and tears down the connection
func (mb *imapMailbox) Close() error {
	_, _ = mb.command("LOGOUT")
	return mb.conn.Close()
}

func quoteIMAP(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
