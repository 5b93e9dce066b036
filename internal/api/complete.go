package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/conduit/internal/retry"
)

// CompletionRequest describes a single completion call.
type CompletionRequest struct {
	// System is the optional system prompt.
	System string
	// Prompt is the user message.
	Prompt string
	// Model optionally overrides the client's configured model.
	Model anthropic.Model
	// MaxTokens bounds the response length. Zero means 4096.
	MaxTokens int64
}

// Complete makes one message call and returns the concatenated text blocks.
// API failures come back classified so the retry engine can tell throttling
// from terminal errors.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := c.model
	if req.Model != "" {
		model = c.TranslateModel(req.Model)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := c.sdk().Messages.New(ctx, params)
	if err != nil {
		return "", classifyAPIError(err)
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	return text, nil
}

// classifyAPIError maps SDK errors onto the retry taxonomy. Rate limits
// carry the server's Retry-After hint when present.
func classifyAPIError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &retry.ClassifiedError{ErrKind: retry.KindNetwork, Err: err}
	}

	switch {
	case apiErr.StatusCode == 429:
		return &retry.ClassifiedError{
			ErrKind:    retry.KindRateLimit,
			RetryAfter: retryAfterHint(apiErr),
			Err:        err,
		}
	case apiErr.StatusCode == 408 || apiErr.StatusCode == 504:
		return &retry.ClassifiedError{ErrKind: retry.KindTimeout, Err: err}
	case apiErr.StatusCode >= 500:
		return &retry.ClassifiedError{ErrKind: retry.KindNetwork, Err: err}
	default:
		return fmt.Errorf("anthropic api: %w", err)
	}
}

func retryAfterHint(apiErr *anthropic.Error) time.Duration {
	if apiErr.Response == nil {
		return 0
	}
	header := apiErr.Response.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
