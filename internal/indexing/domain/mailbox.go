package domain

import "context"

// MessagePart is one node of a provider's multi-part message tree. Data
// carries the part body in the provider's transport encoding (base64url);
// the normalizer decodes it.
type MessagePart struct {
	MIMEType string
	Data     string
	Parts    []*MessagePart
}

// FullMessage is a fetched message: raw part tree plus the header metadata
// the pipeline stores alongside the cleaned body.
type FullMessage struct {
	ProviderMessageID string
	ThreadID          string
	From              string
	To                string
	Subject           string
	DateHeader        string
	Snippet           string
	Payload           *MessagePart
}

// MailboxClient fetches messages from a remote mail provider on behalf of
// one authenticated user.
type MailboxClient interface {
	// ListRecentMessageIDs returns up to maxCount provider message ids,
	// newest first.
	ListRecentMessageIDs(ctx context.Context, maxCount int) ([]string, error)
	// GetFullMessage fetches the complete message content for one id.
	GetFullMessage(ctx context.Context, id string) (*FullMessage, error)
}
