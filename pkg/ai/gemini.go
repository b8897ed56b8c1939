package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	geminiBaseURL        = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiClassifyModel  = "gemini-2.5-flash"
	geminiEmbeddingModel = "text-embedding-004"
)

// GeminiService implements Embedder and Classifier against the Google
// generative language REST API.
type GeminiService struct {
	apiKey string
	client *http.Client
}

func NewGeminiService(apiKey string) *GeminiService {
	return &GeminiService{
		apiKey: apiKey,
		client: &http.Client{},
	}
}

func (g *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	url := fmt.Sprintf("%s/%s:embedContent?key=%s", geminiBaseURL, geminiEmbeddingModel, g.apiKey)

	payload := map[string]interface{}{
		"model": "models/" + geminiEmbeddingModel,
		"content": map[string]interface{}{
			"parts": []map[string]string{{"text": text}},
		},
	}

	respBody, err := g.post(ctx, url, payload)
	if err != nil {
		return nil, err
	}

	var result struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(result.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return result.Embedding.Values, nil
}

func (g *GeminiService) ClassifyEmail(ctx context.Context, subject, body string, categories []string) ([]string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiBaseURL, geminiClassifyModel, g.apiKey)

	prompt := classifierPrompt(subject, body, categories)
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"temperature": 0.2,
		},
	}

	respBody, err := g.post(ctx, url, payload)
	if err != nil {
		return nil, err
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no classification returned")
	}

	return ParseTagsResponse(result.Candidates[0].Content.Parts[0].Text), nil
}

func (g *GeminiService) post(ctx context.Context, url string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini API error (%d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func classifierPrompt(subject, body string, categories []string) string {
	preview := body
	if len(preview) > 1000 {
		preview = preview[:1000]
	}
	if subject == "" {
		subject = "(none)"
	}
	return fmt.Sprintf(`You are an email classifier. Choose zero or more categories from:
%s.

Email subject: %s
Body preview: %s

Respond ONLY with a JSON object: {"tags":["..."]}.`, strings.Join(categories, ", "), subject, preview)
}

// ParseTagsResponse extracts the {"tags":[...]} object from a model reply,
// tolerating surrounding prose and markdown fences. A parse failure yields
// zero tags, never an error.
func ParseTagsResponse(text string) []string {
	text = strings.TrimSpace(text)
	if start := strings.Index(text, "{"); start != -1 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var parsed struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil
	}

	tags := make([]string, 0, len(parsed.Tags))
	for _, t := range parsed.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
