package imap

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"mailscope-backend/internal/indexing/domain"
)

// Client is an IMAP-backed MailboxClient. Messages are identified by their
// INBOX UID rendered as a decimal string so the rest of the pipeline can
// treat provider ids uniformly.
type Client struct {
	host     string
	port     int
	username string
	password string
}

func NewClient(host string, port int, username, password string) *Client {
	if port == 0 {
		port = 993
	}
	return &Client{host: host, port: port, username: username, password: password}
}

func (c *Client) connect(_ context.Context) (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", c.username, err)
	}
	return client, nil
}

// ListRecentMessageIDs selects INBOX and returns the newest maxCount UIDs,
// newest first.
func (c *Client) ListRecentMessageIDs(ctx context.Context, maxCount int) ([]string, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	searchData, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if maxCount > 0 && len(uids) > maxCount {
		uids = uids[len(uids)-maxCount:]
	}

	// UIDs ascend with arrival; reverse for newest first.
	ids := make([]string, 0, len(uids))
	for i := len(uids) - 1; i >= 0; i-- {
		ids = append(ids, strconv.FormatUint(uint64(uids[i]), 10))
	}
	return ids, nil
}

// GetFullMessage fetches one message body and adapts it into the shared
// part-tree shape.
func (c *Client) GetFullMessage(ctx context.Context, id string) (*domain.FullMessage, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid IMAP uid %q: %w", id, err)
	}

	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	uidSet := imap.UIDSetNum(imap.UID(uid))
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(uidSet, &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}
	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	full := &domain.FullMessage{ProviderMessageID: id}
	if buf.Envelope != nil {
		full.Subject = buf.Envelope.Subject
		full.DateHeader = buf.Envelope.Date.Format("Mon, 02 Jan 2006 15:04:05 -0700")
		full.ThreadID = buf.Envelope.MessageID
		if len(buf.Envelope.From) > 0 {
			full.From = buf.Envelope.From[0].Addr()
		}
		var to []string
		for _, addr := range buf.Envelope.To {
			to = append(to, addr.Addr())
		}
		full.To = strings.Join(to, ", ")
	}

	if raw := buf.FindBodySection(bodySection); raw != nil {
		textBody, htmlBody := parseMIMEBody(raw)
		full.Payload = buildPartTree(textBody, htmlBody)
		full.Snippet = snippetFrom(textBody, htmlBody)
	}
	return full, nil
}

// parseMIMEBody parses a raw RFC 2822 message using go-message and extracts
// the text/plain and text/html bodies.
func parseMIMEBody(raw []byte) (textBody, htmlBody string) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Unparseable content is treated as plain text wholesale
		return string(raw), ""
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF || err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && textBody == "":
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		}
	}
	return textBody, htmlBody
}

// buildPartTree re-encodes decoded bodies into the base64url transport
// shape shared with the Gmail client.
func buildPartTree(textBody, htmlBody string) *domain.MessagePart {
	root := &domain.MessagePart{MIMEType: "multipart/alternative"}
	if textBody != "" {
		root.Parts = append(root.Parts, &domain.MessagePart{
			MIMEType: "text/plain",
			Data:     base64.RawURLEncoding.EncodeToString([]byte(textBody)),
		})
	}
	if htmlBody != "" {
		root.Parts = append(root.Parts, &domain.MessagePart{
			MIMEType: "text/html",
			Data:     base64.RawURLEncoding.EncodeToString([]byte(htmlBody)),
		})
	}
	return root
}

func snippetFrom(textBody, htmlBody string) string {
	s := strings.TrimSpace(textBody)
	if s == "" {
		s = strings.TrimSpace(htmlBody)
	}
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
