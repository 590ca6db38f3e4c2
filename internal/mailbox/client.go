package mailbox

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"mailfeed/internal/config"
)

// Source is the mail-retrieval collaborator the scanner runs against:
// list message UIDs above a watermark (0 means all) and fetch a raw
// message by UID.
type Source interface {
	ListIDsSince(lastUID uint32) ([]uint32, error)
	FetchRaw(uid uint32) ([]byte, error)
}

// Client is an authenticated IMAP session with one folder selected.
type Client struct {
	c *client.Client
}

// Connect dials the IMAP server over TLS, logs in and selects the
// configured folder read-only. Any failure here is session-level: the
// caller aborts the run without touching state.
func Connect(cfg *config.Config) (*Client, error) {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	tlsConfig := &tls.Config{
		ServerName: cfg.IMAPHost,
	}

	c, err := client.DialWithDialerTLS(dialer, cfg.IMAPAddr(), tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.IMAPAddr(), err)
	}

	c.Timeout = 30 * time.Second
	if err := c.Login(cfg.EmailAccount, cfg.IMAPPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login as %s: %w", cfg.EmailAccount, err)
	}
	c.Timeout = 0

	if _, err := c.Select(cfg.EmailFolder, true); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to open folder %s: %w", cfg.EmailFolder, err)
	}

	return &Client{c: c}, nil
}

func (cl *Client) Close() {
	if cl.c != nil {
		cl.c.Logout()
	}
}

// ListIDsSince returns the UIDs strictly greater than lastUID, ascending.
func (cl *Client) ListIDsSince(lastUID uint32) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Uid = new(imap.SeqSet)
	criteria.Uid.AddRange(lastUID+1, 0) // 0 stands for "*"

	uids, err := cl.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

// FetchRaw downloads the full RFC 822 message for one UID.
func (cl *Client) FetchRaw(uid uint32) ([]byte, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- cl.c.UidFetch(seqSet, items, messages)
	}()

	var raw []byte
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("failed to read message %d: %w", uid, err)
		}
		raw = data
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", uid, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("message with UID %d not found", uid)
	}

	return raw, nil
}
