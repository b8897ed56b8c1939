package usecase

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"mailscope-backend/pkg/ai"
)

// Categories is the fixed classification vocabulary. The generative
// fallback is constrained to it; anything else a model returns is dropped.
var Categories = []string{
	"Work",
	"Personal",
	"Receipts",
	"Meetings",
	"Shipping",
	"Notifications",
	"Praise/Positive",
	"Action Required",
}

var (
	commerceDomains = regexp.MustCompile(`amazon\.|paypal\.|stripe|ubereats|doordash|instacart`)

	freemailDomains = []string{
		"gmail.com",
		"yahoo.com",
		"outlook.com",
		"hotmail.com",
		"icloud.com",
	}

	receiptWords      = []string{"invoice", "receipt", "payment", "order", "statement", "billed"}
	shippingWords     = []string{"shipped", "shipping", "delivery", "tracking", "package", "out for delivery"}
	meetingWords      = []string{"meeting", "calendar", "invite", "event", "zoom", "webex", "teams", "scheduled"}
	notificationWords = []string{"alert", "notification", "digest", "summary"}
	actionWords       = []string{"action required", "please respond", "urgent", "reply needed", "requires your attention", "due"}
	praiseWords       = []string{"thanks", "thank you", "appreciate", "great job", "well done", "congrats"}
)

// TagClassifier implements the two-tier classification contract: a fast
// keyword/domain heuristic pass, with a generative pass only when the
// heuristics find nothing.
type TagClassifier struct {
	generative ai.Classifier // nil when no provider is configured
	logger     *zap.Logger
}

func NewTagClassifier(generative ai.Classifier, logger *zap.Logger) *TagClassifier {
	return &TagClassifier{generative: generative, logger: logger}
}

// Classify returns zero or more category tags for a message.
func (c *TagClassifier) Classify(ctx context.Context, subject, body, from string) []string {
	tags := HeuristicTags(subject, body, from)
	if len(tags) > 0 {
		return tags
	}
	return c.generativeTags(ctx, subject, body)
}

// HeuristicTags runs the keyword and sender-domain rules. Tags are
// additive; a message may receive several.
func HeuristicTags(subject, body, from string) []string {
	text := strings.ToLower(subject + " " + body)
	fromDomain := senderDomain(from)

	var tags []string
	add := func(tag string) {
		for _, t := range tags {
			if t == tag {
				return
			}
		}
		tags = append(tags, tag)
	}
	contains := func(words []string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}

	if contains(receiptWords) || commerceDomains.MatchString(fromDomain) {
		add("Receipts")
	}
	if contains(shippingWords) {
		add("Shipping")
	}
	if contains(meetingWords) {
		add("Meetings")
	}
	if contains(notificationWords) {
		add("Notifications")
	}
	if contains(actionWords) {
		add("Action Required")
	}
	if contains(praiseWords) {
		add("Praise/Positive")
	}

	// Any sender outside the consumer webmail domains counts as Work.
	if fromDomain != "" {
		freemail := false
		for _, d := range freemailDomains {
			if fromDomain == d {
				freemail = true
				break
			}
		}
		if freemail {
			add("Personal")
		} else {
			add("Work")
		}
	}

	return tags
}

func (c *TagClassifier) generativeTags(ctx context.Context, subject, body string) []string {
	if c.generative == nil {
		return nil
	}

	raw, err := c.generative.ClassifyEmail(ctx, subject, body, Categories)
	if err != nil {
		c.logger.Warn("generative classification failed", zap.Error(err))
		return nil
	}

	// Keep only labels from the allowed vocabulary
	var tags []string
	for _, t := range raw {
		for _, allowed := range Categories {
			if t == allowed {
				tags = append(tags, t)
				break
			}
		}
	}
	return tags
}

// senderDomain extracts the lower-cased domain from a From header value
// like `Name <user@example.com>`.
func senderDomain(from string) string {
	at := strings.LastIndex(from, "@")
	if at == -1 || at == len(from)-1 {
		return ""
	}
	domain := from[at+1:]
	domain = strings.TrimRight(domain, "> ")
	return strings.ToLower(domain)
}
