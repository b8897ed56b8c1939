package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeGenerativeClassifier struct {
	tags   []string
	err    error
	called bool
}

func (f *fakeGenerativeClassifier) ClassifyEmail(_ context.Context, _, _ string, _ []string) ([]string, error) {
	f.called = true
	return f.tags, f.err
}

func TestHeuristicTags_InvoiceIsReceiptsNotShipping(t *testing.T) {
	tags := HeuristicTags("Your invoice", "Please find your invoice attached", "")

	assert.Contains(t, tags, "Receipts")
	assert.NotContains(t, tags, "Shipping")
}

func TestHeuristicTags_ShippingKeywords(t *testing.T) {
	tags := HeuristicTags("Your package has shipped", "Tracking number inside", "")

	assert.Contains(t, tags, "Shipping")
}

func TestHeuristicTags_CommerceSenderDomain(t *testing.T) {
	tags := HeuristicTags("Order update", "", "Amazon <no-reply@amazon.com>")

	assert.Contains(t, tags, "Receipts")
}

func TestHeuristicTags_WorkVsPersonalBySenderDomain(t *testing.T) {
	work := HeuristicTags("Hi", "catching up", "Bob <bob@acme-corp.com>")
	personal := HeuristicTags("Hi", "catching up", "Bob <bob@gmail.com>")

	assert.Contains(t, work, "Work")
	assert.NotContains(t, work, "Personal")
	assert.Contains(t, personal, "Personal")
	assert.NotContains(t, personal, "Work")
}

func TestHeuristicTags_MultipleCategories(t *testing.T) {
	tags := HeuristicTags("Meeting invite: urgent", "zoom link, action required", "eve@acme-corp.com")

	assert.Contains(t, tags, "Meetings")
	assert.Contains(t, tags, "Action Required")
	assert.Contains(t, tags, "Work")
}

func TestHeuristicTags_NoCues(t *testing.T) {
	tags := HeuristicTags("hello", "just words", "")
	assert.Empty(t, tags)
}

func TestClassify_GenerativeNotCalledWhenHeuristicsMatch(t *testing.T) {
	fake := &fakeGenerativeClassifier{tags: []string{"Work"}}
	classifier := NewTagClassifier(fake, zap.NewNop())

	tags := classifier.Classify(context.Background(), "Your invoice", "invoice attached", "")

	assert.Contains(t, tags, "Receipts")
	assert.False(t, fake.called)
}

func TestClassify_GenerativeFallbackFiltersVocabulary(t *testing.T) {
	fake := &fakeGenerativeClassifier{tags: []string{"Meetings", "Spam", "Work"}}
	classifier := NewTagClassifier(fake, zap.NewNop())

	tags := classifier.Classify(context.Background(), "hello", "just words", "")

	assert.True(t, fake.called)
	assert.ElementsMatch(t, []string{"Meetings", "Work"}, tags)
}

func TestClassify_GenerativeErrorYieldsNoTags(t *testing.T) {
	fake := &fakeGenerativeClassifier{err: errors.New("model unavailable")}
	classifier := NewTagClassifier(fake, zap.NewNop())

	tags := classifier.Classify(context.Background(), "hello", "just words", "")

	assert.Empty(t, tags)
}

func TestClassify_NilGenerative(t *testing.T) {
	classifier := NewTagClassifier(nil, zap.NewNop())

	tags := classifier.Classify(context.Background(), "hello", "just words", "")

	assert.Empty(t, tags)
}

func TestSenderDomain(t *testing.T) {
	assert.Equal(t, "acme-corp.com", senderDomain("Bob <bob@acme-corp.com>"))
	assert.Equal(t, "gmail.com", senderDomain("alice@GMAIL.com"))
	assert.Equal(t, "", senderDomain("no-address-here"))
}
