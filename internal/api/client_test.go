package api

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/conduit/internal/retry"
)

func TestNewClient_RequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewClient(ClientConfig{})
	if err == nil {
		t.Error("expected error without an API key")
	}
}

func TestNewClient_DefaultsModel(t *testing.T) {
	client, err := NewClient(ClientConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.Model() == "" {
		t.Error("expected a default model")
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	got := translateModelForBedrock(anthropic.Model("claude-sonnet-4-5-20250929"))
	want := anthropic.Model("us.anthropic.claude-sonnet-4-5-20250929-v1:0")
	if got != want {
		t.Errorf("translated = %s, want %s", got, want)
	}

	// Unknown models pass through untouched.
	custom := anthropic.Model("my-custom-model")
	if translateModelForBedrock(custom) != custom {
		t.Error("custom model should pass through")
	}
}

func TestTokenTracker(t *testing.T) {
	tracker := NewTokenTracker()

	tracker.Add(100, 50)
	tracker.Add(200, 75)

	in, out := tracker.Total()
	if in != 300 || out != 125 {
		t.Errorf("totals = %d/%d, want 300/125", in, out)
	}
	if tracker.Calls() != 2 {
		t.Errorf("calls = %d, want 2", tracker.Calls())
	}

	tracker.Reset()
	in, out = tracker.Total()
	if in != 0 || out != 0 || tracker.Calls() != 0 {
		t.Error("reset did not clear tracker")
	}
}

func TestClassifyAPIError(t *testing.T) {
	rateLimited := &anthropic.Error{
		StatusCode: 429,
		Response: &http.Response{
			Header: http.Header{"Retry-After": []string{"7"}},
		},
	}
	classified := classifyAPIError(rateLimited)
	var ce *retry.ClassifiedError
	if !errors.As(classified, &ce) {
		t.Fatalf("expected ClassifiedError, got %T", classified)
	}
	if ce.ErrKind != retry.KindRateLimit {
		t.Errorf("kind = %s, want rate_limit", ce.ErrKind)
	}
	if ce.RetryAfter != 7*time.Second {
		t.Errorf("retry-after = %s, want 7s", ce.RetryAfter)
	}

	serverErr := classifyAPIError(&anthropic.Error{StatusCode: 503})
	if !errors.As(serverErr, &ce) || ce.ErrKind != retry.KindNetwork {
		t.Errorf("5xx should classify as network_error, got %v", serverErr)
	}

	gatewayTimeout := classifyAPIError(&anthropic.Error{StatusCode: 504})
	if !errors.As(gatewayTimeout, &ce) || ce.ErrKind != retry.KindTimeout {
		t.Errorf("504 should classify as timeout, got %v", gatewayTimeout)
	}

	// Client errors are terminal; they keep their identity but gain no kind.
	badRequest := classifyAPIError(&anthropic.Error{StatusCode: 400})
	if errors.As(badRequest, &ce) {
		t.Errorf("400 should not be classified retryable: %v", badRequest)
	}

	transport := classifyAPIError(errors.New("connection refused"))
	if !errors.As(transport, &ce) || ce.ErrKind != retry.KindNetwork {
		t.Errorf("transport errors should classify as network_error, got %v", transport)
	}
}
