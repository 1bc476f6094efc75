package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/use-agent/pageminer/config"
	"github.com/use-agent/pageminer/models"
)

// Groq is the hosted fallback provider when no vLLM endpoint is configured.
const (
	groqBaseURL = "https://api.groq.com/openai/v1"
	groqModel   = "openai/gpt-oss-20b"
)

// vLLM servers accept any key; this placeholder satisfies the auth header.
const vllmPlaceholderKey = "EMPTY"

// Client speaks the OpenAI-compatible chat completions protocol over plain
// net/http. A vLLM endpoint takes precedence over Groq; with neither
// configured the client is disabled and every operation degrades to its
// non-LLM fallback.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	provider    string
}

// New resolves the refinement provider from configuration.
func New(cfg config.LLMConfig) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}

	switch {
	case cfg.VLLMBaseURL != "":
		c.provider = "vllm"
		c.baseURL = cfg.VLLMBaseURL
		c.model = cfg.VLLMModel
		c.apiKey = vllmPlaceholderKey
	case cfg.GroqAPIKey != "":
		c.provider = "groq"
		c.baseURL = groqBaseURL
		c.model = groqModel
		c.apiKey = cfg.GroqAPIKey
	default:
		c.provider = "disabled"
	}

	return c
}

// Enabled reports whether a provider is configured.
func (c *Client) Enabled() bool { return c.provider != "disabled" }

// Provider returns "vllm", "groq" or "disabled".
func (c *Client) Provider() string { return c.provider }

// Clean asks the LLM to strip navigation noise, ads and boilerplate from
// scraped text while preserving the meaningful content.
//
// The returned bool reports whether the LLM transformed the text. When the
// client is disabled or the call fails, the input is returned unchanged with
// false; callers never need an error path.
func (c *Client) Clean(ctx context.Context, text string) (string, bool) {
	if !c.Enabled() {
		slog.Warn("llm: no provider configured, returning raw content")
		return text, false
	}

	out, err := c.complete(ctx, cleanPrompt(text))
	if err != nil {
		slog.Error("llm: clean failed, returning raw content", "provider", c.provider, "error", err)
		return text, false
	}
	return strings.TrimSpace(out), true
}

// Chunk asks the LLM to split cleaned text into self-contained sections and
// returns them as a slice.
//
// The returned bool reports whether the LLM produced the sections. On any
// transport or parse failure the text is split on blank lines instead.
func (c *Client) Chunk(ctx context.Context, text string) ([]string, bool) {
	if !c.Enabled() {
		slog.Warn("llm: no provider configured, splitting on paragraphs")
		return SplitParagraphs(text), false
	}

	out, err := c.complete(ctx, chunkPrompt(text))
	if err != nil {
		slog.Error("llm: chunk failed, splitting on paragraphs", "provider", c.provider, "error", err)
		return SplitParagraphs(text), false
	}

	chunks, err := parseChunkArray(out)
	if err != nil {
		slog.Error("llm: chunk response was not a JSON array, splitting on paragraphs", "error", err)
		return SplitParagraphs(text), false
	}
	return chunks, true
}

// SplitParagraphs is the non-LLM sectioning fallback: split on blank lines,
// trim each piece, drop empties.
func SplitParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseChunkArray extracts a JSON string array from a model response that may
// be wrapped in markdown fences or surrounded by prose.
func parseChunkArray(raw string) ([]string, error) {
	cleaned := strings.TrimSpace(raw)

	// Strip markdown code fences, dropping a language-specifier first line.
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.Trim(cleaned, "`")
		lines := strings.Split(cleaned, "\n")
		if len(lines) > 0 && !strings.HasPrefix(strings.TrimSpace(lines[0]), "[") {
			cleaned = strings.Join(lines[1:], "\n")
		}
	}

	// Locate the outermost array in case the model added prose around it.
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start != -1 && end > start {
		cleaned = cleaned[start : end+1]
	}

	// Models occasionally emit single-quoted pseudo-JSON.
	cleaned = strings.ReplaceAll(cleaned, "'", `"`)

	var chunks []string
	if err := json.Unmarshal([]byte(cleaned), &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// chatRequest is the OpenAI chat completion request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatErrorResponse captures an API error from the LLM provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// complete sends a single-turn prompt and returns the completion text.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeLLMFailure, "LLM request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeLLMFailure, "failed to read LLM response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyLLMError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", models.NewScrapeError(models.ErrCodeLLMFailure, "failed to parse LLM response", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", models.NewScrapeError(models.ErrCodeLLMFailure, "LLM returned no choices", nil)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// classifyLLMError maps HTTP status codes to appropriate error codes.
func classifyLLMError(statusCode int, body []byte) *models.ScrapeError {
	var errResp chatErrorResponse
	msg := "LLM API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewScrapeError(models.ErrCodeLLMAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewScrapeError(models.ErrCodeLLMRateLimited, msg, nil)
	default:
		return models.NewScrapeError(models.ErrCodeLLMFailure, fmt.Sprintf("LLM API returned %d: %s", statusCode, msg), nil)
	}
}

// cleanPrompt builds the boilerplate-removal prompt.
func cleanPrompt(raw string) string {
	return `You are given raw scraped text from a website. Carefully read and understand the entire content. Your task is to extract only the meaningful, human-readable information intended for users. This includes:
- Articles, blog posts, product descriptions, guides, or documentation
- Relevant code snippets that are part of the content (e.g., examples, tutorials)

Remove all unrelated or structural elements, such as:
- Navigation menus, headers, footers
- Advertisements, cookie notices, and subscription pop-ups
- Repeated links, category listings, or boilerplate
- Inline scripts, layout HTML, or other non-content elements

Preserve the structure of the original content, including paragraph breaks, section titles, and properly formatted code blocks.

Here is the raw content:
---
` + raw + `
---`
}

// chunkPrompt builds the sectioning prompt.
func chunkPrompt(text string) string {
	return `You are given a cleaned piece of technical documentation text. Your task is to split it into meaningful and complete chunks based on topics or sections. Each chunk should include related content under a single concept or heading. You MUST preserve section headings, descriptive text, code snippets, notes, and tables together if they belong to the same topic.

Output the result as a JSON array of strings. Each string must be a self-contained section.

For example, if a heading is followed by an explanation, a code snippet, and an output table, all of that should remain in one chunk.

Do not split logical sections across chunks. Do not add explanations or extra characters.

---
` + text + `
---`
}
