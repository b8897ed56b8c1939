package gmail

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"mailscope-backend/internal/indexing/domain"
)

// Service builds per-user Gmail mailbox clients from a refresh token.
type Service struct {
	clientID     string
	clientSecret string
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// ForUser creates a MailboxClient authenticated with the user's refresh
// token. The token is exchanged for an access token lazily on first call.
func (s *Service) ForUser(ctx context.Context, refreshToken string) (domain.MailboxClient, error) {
	if s.clientID == "" || s.clientSecret == "" {
		return nil, fmt.Errorf("missing GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET")
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("no Gmail refresh token stored for user")
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}
	tokenSource := config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	srv, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	return &client{srv: srv}, nil
}

type client struct {
	srv *gmail.Service
}

// ListRecentMessageIDs returns up to maxCount inbox message ids, newest
// first (the Gmail list order).
func (c *client) ListRecentMessageIDs(ctx context.Context, maxCount int) ([]string, error) {
	resp, err := c.srv.Users.Messages.List("me").
		LabelIds("INBOX").
		MaxResults(int64(maxCount)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if m.Id != "" {
			ids = append(ids, m.Id)
		}
	}
	return ids, nil
}

// GetFullMessage fetches one message with its complete part tree.
func (c *client) GetFullMessage(ctx context.Context, id string) (*domain.FullMessage, error) {
	msg, err := c.srv.Users.Messages.Get("me", id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to fetch message %s: %w", id, err)
	}

	full := &domain.FullMessage{
		ProviderMessageID: msg.Id,
		ThreadID:          msg.ThreadId,
		Snippet:           msg.Snippet,
		Payload:           convertPart(msg.Payload),
	}
	if msg.Payload != nil {
		full.Subject = header(msg.Payload.Headers, "Subject")
		full.From = header(msg.Payload.Headers, "From")
		full.To = header(msg.Payload.Headers, "To")
		full.DateHeader = header(msg.Payload.Headers, "Date")
	}
	return full, nil
}

func convertPart(p *gmail.MessagePart) *domain.MessagePart {
	if p == nil {
		return nil
	}
	part := &domain.MessagePart{MIMEType: p.MimeType}
	if p.Body != nil {
		part.Data = p.Body.Data
	}
	for _, child := range p.Parts {
		if converted := convertPart(child); converted != nil {
			part.Parts = append(part.Parts, converted)
		}
	}
	return part
}

func header(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
