package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"threatwire/internal/config"
	"threatwire/internal/domain"
	"threatwire/internal/ports"
)

const defaultPrompt = "You analyze cybersecurity news articles and answer with strict JSON."

// Client talks to an OpenAI-compatible chat endpoint to classify articles.
// A disabled client answers nil without any network call; a sponsored
// verdict from the model also answers nil so the article stays unenriched.
type Client struct {
	enabled      bool
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
	sem          chan struct{}
}

var _ ports.Classifier = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.ClassifierConfig) *Client {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Client{
		enabled:      cfg.Enabled,
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		sem: make(chan struct{}, concurrency),
	}
}

// response is the strict schema expected inside the model's message content.
// Anything missing the summary field is treated as a failed call.
type response struct {
	Sponsored   bool     `json:"sponsored"`
	Summary     string   `json:"summary"`
	Impact      string   `json:"impact"`
	InWild      string   `json:"in_wild"`
	Age         string   `json:"age"`
	Remediation string   `json:"remediation"`
	Tags        []string `json:"tags"`
}

// Enabled reports whether the client will actually call out.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.apiKey != ""
}

// Classify sends title and summary for analysis. Returns (nil, nil) when the
// client is disabled or the model flags the article as promotional, and
// (nil, err) on transport or schema failures.
func (c *Client) Classify(ctx context.Context, title, summary string) (*domain.Classification, error) {
	if c == nil || !c.enabled || c.apiKey == "" {
		return nil, nil
	}

	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": buildPrompt(title, summary)},
		},
		"temperature": 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal classifier payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("classifier error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var chat struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	return parseContent(chat.Choices[0].Message.Content)
}

// parseContent validates the model output against the strict schema. Models
// like to wrap JSON in fenced blocks, so fences are stripped first.
func parseContent(content string) (*domain.Classification, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var parsed response
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parse classifier content: %w", err)
	}

	if parsed.Sponsored {
		return nil, nil
	}
	if parsed.Summary == "" {
		return nil, fmt.Errorf("classifier content missing summary")
	}

	return &domain.Classification{
		Summary:        parsed.Summary,
		Impact:         parsed.Impact,
		InWild:         domain.NormalizeInWild(parsed.InWild),
		AgeDescription: parsed.Age,
		Remediation:    parsed.Remediation,
		Tags:           parsed.Tags,
	}, nil
}

func buildPrompt(title, summary string) string {
	return fmt.Sprintf(`Analyze this cybersecurity news article and answer with JSON only, no markdown fences.

Title: %s
Summary: %s

Answer with exactly this shape:
{
  "sponsored": false,
  "summary": "2-3 sentence plain-language summary",
  "impact": "who is affected and how badly",
  "in_wild": "Yes|No|Unknown",
  "age": "how fresh this issue is",
  "remediation": "what defenders should do",
  "tags": ["tag1", "tag2"]
}

Set "sponsored": true and leave the rest empty if the article is promotional content rather than news.`, title, summary)
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultPrompt
	}
	return prompt
}
