package correct

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hasanmujtaba2006/Scan2eBook-AI/observability"
)

// GroqConfig configures the chat-completions corrector. Groq speaks the
// OpenAI wire format, so BaseURL can point at any compatible deployment.
type GroqConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "llama3-8b-8192"
	defaultTimeout = 45 * time.Second
)

func (c *GroqConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// GroqCorrector implements Corrector against a chat-completions endpoint.
type GroqCorrector struct {
	cfg    GroqConfig
	client *http.Client
	log    observability.Logger
}

// NewGroqCorrector builds the remote corrector. The HTTP client carries the
// configured timeout so a stalled service resolves to the fallback instead of
// hanging a worker.
func NewGroqCorrector(cfg GroqConfig, log observability.Logger) *GroqCorrector {
	cfg.applyDefaults()
	if log == nil {
		log = observability.NopLogger{}
	}
	return &GroqCorrector{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

func (g *GroqCorrector) Name() string { return "groq" }

// Correct sends one page of raw OCR text for cleanup and returns the model's
// corrected text. Errors are returned unwrapped in meaning: the Adapter, not
// this client, decides the fallback.
func (g *GroqCorrector) Correct(ctx context.Context, text string, style Style) (string, error) {
	return g.complete(ctx, systemPrompt(style), text)
}

// Summarize produces a short synopsis from a bounded prefix of the book text.
func (g *GroqCorrector) Summarize(ctx context.Context, text string, style Style) (string, error) {
	prompt := fmt.Sprintf(
		"You summarize books. Write a short synopsis, at most three sentences, of the following %s text. Respond in the same language as the text.",
		styleLanguage(style))
	return g.complete(ctx, prompt, text)
}

func systemPrompt(style Style) string {
	lang := styleLanguage(style)
	p := fmt.Sprintf(
		"You are an expert %s editor. Fix OCR errors in the following %s text. Keep it original, just fix spelling and formatting. Separate paragraphs with blank lines.",
		lang, lang)
	if style.Direction == RightToLeft {
		p += " The text reads right to left; never reorder it."
	}
	return p
}

func styleLanguage(style Style) string {
	if style.Language == "" {
		return "Urdu"
	}
	return style.Language
}

func (g *GroqCorrector) complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	body := map[string]any{
		"model":       g.cfg.Model,
		"temperature": g.cfg.Temperature,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("correction service returned %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	g.log.Debug("correction call finished",
		observability.String("model", g.cfg.Model),
		observability.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
