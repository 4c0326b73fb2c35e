// Package translator wraps an OpenAI-compatible chat-completions client
// with the prompt, model-fallback chain, per-attempt timeout, cleanup, and
// tag-integrity validator spec §4.4 requires of the Translator Client.
package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/epub-translate/internal/config"
)

const systemPrompt = `You are translating markup fragments from a book for a literary` +
	` audience. Follow these rules exactly:
1. Translate only text content; preserve every tag identically, including
   attributes and nesting.
2. Never introduce, remove, or reorder any tag.
3. Return raw markup only — no wrapping code fence, no preamble, no commentary.
4. Preserve numerals verbatim.
5. Keep technical terms in the source language when that is idiomatic.`

// completer is the narrow seam over the SDK's chat-completions call,
// satisfied by sdkCompleter (wrapping the real client) and by a fake in tests.
type completer interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// sdkCompleter adapts the SDK's variadic-options method to the completer
// seam so production code and tests can share the same call shape.
type sdkCompleter struct {
	svc *openai.ChatCompletionService
}

func (s *sdkCompleter) New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return s.svc.New(ctx, params)
}

// Client is the engine's Translator Client (spec §4.4).
type Client struct {
	completions completer
	models      []string
	timeout     time.Duration
	sourceLang  string
	targetLang  string
	logger      *zap.Logger
}

// New builds a Client from engine configuration. The same official SDK
// client this codebase's existing OpenAI-backed provider builds
// (option.WithAPIKey/WithBaseURL/WithOrganization) is reused here,
// generalised from one fixed model to an ordered fallback chain.
func New(cfg *config.Config, logger *zap.Logger) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.APIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIBaseURL))
	}
	if cfg.OrgID != "" {
		opts = append(opts, option.WithOrganization(cfg.OrgID))
	}

	timeout := time.Duration(cfg.TranslateTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	sdk := openai.NewClient(opts...)
	return &Client{
		completions: &sdkCompleter{svc: &sdk.Chat.Completions},
		models:      cfg.Models,
		timeout:     timeout,
		sourceLang:  cfg.SourceLang,
		targetLang:  cfg.TargetLang,
		logger:      logger,
	}
}

// Translate implements the translate(markup) -> translatedMarkup contract
// of spec §4.4: the ordered model list is tried in turn; any per-attempt
// failure that is not a quota error advances to the next model; a quota
// error short-circuits the chain and surfaces immediately.
func (c *Client) Translate(ctx context.Context, markup string) (string, error) {
	if len(c.models) == 0 {
		return "", fmt.Errorf("%w: no models configured", ErrTransport)
	}

	var lastErr error
	for _, model := range c.models {
		translated, err := c.attemptWithRetry(ctx, model, markup)
		if err == nil {
			return translated, nil
		}
		if IsQuota(err) {
			return "", err
		}
		c.logger.Warn("translate attempt failed, trying next model",
			zap.String("model", model), zap.Error(err))
		lastErr = err
	}
	return "", lastErr
}

// attemptWithRetry retries a single model attempt a bounded number of
// times on pure transport transience, the same exponential-backoff shape
// this codebase's existing network retrier applies, before giving up on
// that model and letting the caller fall through to the next one.
func (c *Client) attemptWithRetry(ctx context.Context, model, markup string) (string, error) {
	bo := defaultBackoff()
	const maxTransientRetries = 2

	var lastErr error
	for attempt := 0; attempt <= maxTransientRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
			case <-time.After(bo.delay(attempt)):
			}
		}

		translated, err := c.attempt(ctx, model, markup)
		if err == nil {
			return translated, nil
		}
		lastErr = err
		if !errors.Is(err, ErrTransport) {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) attempt(ctx context.Context, model, markup string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf("Translate the following markup from %s to %s. Return only the markup:\n\n%s",
				c.sourceLang, c.targetLang, markup)),
		},
		Temperature: openai.Float(0.3),
	}

	completion, err := c.completions.New(attemptCtx, params)
	if err != nil {
		return "", classifyAttemptError(attemptCtx, err)
	}

	if len(completion.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	choice := completion.Choices[0]
	content := choice.Message.Content
	finishReason := string(choice.FinishReason)

	if strings.TrimSpace(content) == "" {
		if finishReason != "" && finishReason != "stop" {
			return "", fmt.Errorf("%w: finish_reason=%s", ErrSafetyBlocked, finishReason)
		}
		return "", ErrEmptyResponse
	}

	cleaned := stripCodeFence(strings.TrimSpace(content))
	if !TagsEqual(markup, cleaned) {
		return "", ErrIntegrityMismatch
	}
	return cleaned, nil
}

// newWithCompleter builds a Client around an injected completer, letting
// tests exercise the fallback chain and integrity checks without a network.
func newWithCompleter(c completer, models []string, timeout time.Duration, sourceLang, targetLang string, logger *zap.Logger) *Client {
	return &Client{
		completions: c,
		models:      models,
		timeout:     timeout,
		sourceLang:  sourceLang,
		targetLang:  targetLang,
		logger:      logger,
	}
}

func classifyAttemptError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "insufficient_quota") || strings.Contains(msg, "quota") ||
		strings.Contains(msg, "billing") {
		return fmt.Errorf("%w: %v", ErrQuota, err)
	}
	if isTransientNetworkError(err) || isRateLimitOrServerError(err) {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
