package normalizer

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strings"

	"mailscope-backend/internal/indexing/domain"
)

// Normalized is the result of normalizing one fetched message: the cleaned
// plain-text body plus the metadata carried over from the provider.
type Normalized struct {
	Subject     string
	From        string
	To          string
	ThreadID    string
	Snippet     string
	CleanedText string
	ContentHash string
}

var (
	replyAttribution = regexp.MustCompile(`(?i)^on .+wrote:$`)
	originalMessage  = regexp.MustCompile(`(?i)^-+original message-+$`)
)

// Normalize extracts the plain-text body from a message's part tree, strips
// quoted-reply noise and computes the content fingerprint.
func Normalize(msg *domain.FullMessage) *Normalized {
	text, html := ExtractBody(msg.Payload)

	body := text
	if body == "" && html != "" {
		body = StripHTML(html)
	}
	cleaned := CleanText(body)

	return &Normalized{
		Subject:     msg.Subject,
		From:        msg.From,
		To:          msg.To,
		ThreadID:    msg.ThreadID,
		Snippet:     msg.Snippet,
		CleanedText: cleaned,
		ContentHash: ContentHash(msg.Subject, cleaned),
	}
}

// ExtractBody walks the part tree collecting the first text/plain and first
// text/html parts and decodes them from the transport encoding. Traversal
// order is not significant: at most one of each type is expected.
func ExtractBody(payload *domain.MessagePart) (text, html string) {
	if payload == nil {
		return "", ""
	}

	stack := []*domain.MessagePart{payload}
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if part == nil {
			continue
		}
		stack = append(stack, part.Parts...)

		mimeType := strings.ToLower(part.MIMEType)
		switch {
		case mimeType == "text/plain" && part.Data != "":
			if text == "" {
				text = decodeBase64URL(part.Data)
			}
		case mimeType == "text/html" && part.Data != "":
			if html == "" {
				html = decodeBase64URL(part.Data)
			}
		case len(part.Parts) == 0 && part.Data != "" && part.MIMEType == "":
			// Single-part messages sometimes carry no MIME type at all.
			if text == "" {
				text = decodeBase64URL(part.Data)
			}
		}
	}
	return text, html
}

// CleanText drops quoted-reply lines and truncates everything from the first
// reply-attribution or original-message separator onward.
func CleanText(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		if replyAttribution.MatchString(trimmed) || originalMessage.MatchString(trimmed) {
			break
		}
		cleaned = append(cleaned, trimmed)
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// ContentHash is a pure function of (subject, cleaned body), used for
// change detection on re-ingest.
func ContentHash(subject, body string) string {
	sum := sha256.Sum256([]byte(subject + "|" + body))
	return hex.EncodeToString(sum[:])
}

func decodeBase64URL(data string) string {
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.StdEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	return data
}
