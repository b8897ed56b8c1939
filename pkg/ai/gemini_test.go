package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTagsResponse_PlainJSON(t *testing.T) {
	tags := ParseTagsResponse(`{"tags":["Work","Meetings"]}`)
	assert.Equal(t, []string{"Work", "Meetings"}, tags)
}

func TestParseTagsResponse_MarkdownFenced(t *testing.T) {
	tags := ParseTagsResponse("```json\n{\"tags\":[\"Receipts\"]}\n```")
	assert.Equal(t, []string{"Receipts"}, tags)
}

func TestParseTagsResponse_SurroundingProse(t *testing.T) {
	tags := ParseTagsResponse(`Sure! Here is the result: {"tags":["Personal"]} Hope that helps.`)
	assert.Equal(t, []string{"Personal"}, tags)
}

func TestParseTagsResponse_TrimsAndDropsEmptyEntries(t *testing.T) {
	tags := ParseTagsResponse(`{"tags":[" Work ", "", "Shipping"]}`)
	assert.Equal(t, []string{"Work", "Shipping"}, tags)
}

func TestParseTagsResponse_Malformed(t *testing.T) {
	assert.Nil(t, ParseTagsResponse("no json here"))
	assert.Nil(t, ParseTagsResponse(`{"tags": "not-an-array"}`))
	assert.Nil(t, ParseTagsResponse(""))
}

func TestClassifierPrompt_CapsBodyPreview(t *testing.T) {
	long := strings.Repeat("x", 5000)
	prompt := classifierPrompt("Subject", long, []string{"Work"})

	assert.Less(t, len(prompt), 2000)
	assert.Contains(t, prompt, "Work")
	assert.Contains(t, prompt, "Subject")
}

func TestClassifierPrompt_EmptySubjectPlaceholder(t *testing.T) {
	prompt := classifierPrompt("", "body", []string{"Work"})
	assert.Contains(t, prompt, "(none)")
}
