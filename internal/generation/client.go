package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Format selects the response encoding requested from the service.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// TextGenerator produces text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, format Format) (string, error)
}

// ClientConfig configures a Client. An empty Endpoint uses the public Gemini
// API.
type ClientConfig struct {
	APIKey            string
	Model             string
	Endpoint          string
	RequestsPerMinute int
	Timeout           time.Duration
}

// Client calls the Gemini generateContent API through the genai SDK.
type Client struct {
	models  *genai.Models // nil without an API key
	logger  *slog.Logger
	limiter *rate.Limiter
	model   string
}

// NewClient creates a Client. A nil httpClient uses one with cfg.Timeout.
// Without an API key the client is created but every call fails with
// ErrNotConfigured.
func NewClient(ctx context.Context, httpClient *http.Client, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	}
	c := &Client{
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
		model:   model,
	}
	if cfg.APIKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.Endpoint},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	c.models = client.Models
	return c, nil
}

// Generate sends prompt to the model and returns the text of the first
// candidate.
func (c *Client) Generate(ctx context.Context, prompt string, format Format) (string, error) {
	if c.models == nil {
		return "", ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceFailed, err)
	}

	var config *genai.GenerateContentConfig
	if format == FormatJSON {
		config = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		attrs := []any{slog.String("model", c.model), slog.String("error", err.Error())}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			attrs = append(attrs, slog.Int("http_status", apiErr.Code))
		}
		c.logger.Error("generation request failed", attrs...)
		return "", fmt.Errorf("%w: %v", ErrServiceFailed, err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrServiceFailed)
	}
	text := resp.Text()

	c.logger.Debug("generation completed",
		slog.String("model", c.model),
		slog.Duration("duration", time.Since(start)),
		slog.Int("response_bytes", len(text)),
	)
	return text, nil
}
