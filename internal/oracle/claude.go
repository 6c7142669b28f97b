package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/roofclaim/internal/config"
	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/ocr"
	"github.com/sells-group/roofclaim/internal/resilience"
	"github.com/sells-group/roofclaim/pkg/anthropic"
)

// Options configures a Claude oracle. Zero values fall back to defaults.
type Options struct {
	Model             string
	MaxTokens         int64
	Timeout           time.Duration
	RequestsPerMinute int
	Burst             int
	MaxPages          int
	Retry             resilience.RetryConfig
	Circuit           resilience.CircuitBreakerConfig
}

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 16000
	defaultTimeout   = 3 * time.Minute
	defaultRPM       = 20
	defaultMaxPages  = 60
)

// Claude extracts reports with the Anthropic Messages API.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	maxPages  int
	retry     resilience.RetryConfig
	limiter   *adaptiveLimiter
	breaker   *resilience.CircuitBreaker
}

// NewClaude creates an oracle over client.
func NewClaude(client anthropic.Client, opts Options) *Claude {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = defaultRPM
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	opts.Retry.ShouldRetry = isTransient
	if opts.Circuit.FailureThreshold == 0 {
		opts.Circuit = resilience.DefaultCircuitBreakerConfig()
	}
	opts.Circuit.ShouldTrip = isTransient

	return &Claude{
		client:    client,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		timeout:   opts.Timeout,
		maxPages:  opts.MaxPages,
		retry:     opts.Retry,
		limiter:   newAdaptiveLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60), opts.Burst),
		breaker:   resilience.NewCircuitBreaker("oracle", opts.Circuit),
	}
}

// FromConfig builds a Claude oracle from application config.
func FromConfig(client anthropic.Client, cfg *config.Config) *Claude {
	return NewClaude(client, Options{
		Model:             cfg.Anthropic.Model,
		MaxTokens:         int64(cfg.Anthropic.MaxTokens),
		Timeout:           time.Duration(cfg.Oracle.TimeoutSecs) * time.Second,
		RequestsPerMinute: cfg.Oracle.RequestsPerMinute,
		Burst:             cfg.Oracle.Burst,
		MaxPages:          cfg.Oracle.MaxPages,
		Retry:             resilience.FromRetryConfig(cfg.Oracle.Retry),
		Circuit:           resilience.FromCircuitConfig(cfg.Oracle.Circuit),
	})
}

// Extract implements Oracle.
func (c *Claude) Extract(ctx context.Context, kind model.DocumentKind, pages []Page, structureCount int) (json.RawMessage, error) {
	fail := func(stage Stage, err error) (json.RawMessage, error) {
		return nil, &ExtractionError{Kind: kind, Stage: stage, Err: err}
	}

	pages = ocr.NonEmpty(pages)
	if len(pages) == 0 {
		return fail(StagePages, eris.New("document has no readable text"))
	}
	if len(pages) > c.maxPages {
		return fail(StagePages, eris.Errorf("document has %d pages, limit is %d", len(pages), c.maxPages))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    anthropic.CachedSystem(systemPrompt(kind), "1h"),
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: userPrompt(kind, pages, structureCount),
		}},
	}

	log := zap.L().With(
		zap.String("component", "oracle"),
		zap.String("kind", string(kind)),
		zap.Int("pages", len(pages)),
	)

	retry := c.retry
	retry.OnRetry = resilience.RetryLogger("oracle", "extract_"+string(kind))

	start := time.Now()
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "oracle: rate limit wait")
		}
		resp, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return c.client.CreateMessage(ctx, req)
		})
		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			c.limiter.OnRateLimit()
		} else if err == nil {
			c.limiter.OnSuccess()
		}
		return resp, err
	})
	if err != nil {
		return fail(StageRequest, err)
	}

	resp.Usage.LogCost(c.model, "extract_"+string(kind), zap.Duration("elapsed", time.Since(start)))

	if resp.Truncated() {
		return fail(StageParse, eris.Errorf("response truncated at %d output tokens", resp.Usage.OutputTokens))
	}

	text := cleanJSON(resp.Text())
	if !json.Valid([]byte(text)) {
		log.Warn("oracle: response is not valid json", zap.Int("length", len(text)))
		return fail(StageParse, eris.New("response is not valid JSON"))
	}
	if err := checkShape(kind, text); err != nil {
		return fail(StageSchema, err)
	}

	if got := reportedCount(text); structureCount > 0 && got > 0 && got != structureCount {
		log.Warn("oracle: structure count differs from hint",
			zap.Int("expected", structureCount),
			zap.Int("reported", got),
		)
	}

	log.Info("oracle: extracted report", zap.Duration("elapsed", time.Since(start)))
	return json.RawMessage(text), nil
}
