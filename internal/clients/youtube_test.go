package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"google.golang.org/api/googleapi"
)

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "429 too many requests",
			err:  &googleapi.Error{Code: 429},
			want: true,
		},
		{
			name: "500 internal",
			err:  &googleapi.Error{Code: 500},
			want: true,
		},
		{
			name: "503 backend error",
			err:  &googleapi.Error{Code: 503},
			want: true,
		},
		{
			name: "403 quota exceeded is permanent",
			err: &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{
				{Reason: "quotaExceeded"},
			}},
			want: false,
		},
		{
			name: "403 rate limit is transient",
			err: &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{
				{Reason: "rateLimitExceeded"},
			}},
			want: true,
		},
		{
			name: "403 user rate limit is transient",
			err: &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{
				{Reason: "userRateLimitExceeded"},
			}},
			want: true,
		},
		{
			name: "404 playlist not found",
			err:  &googleapi.Error{Code: 404},
			want: false,
		},
		{
			name: "401 invalid credentials",
			err:  &googleapi.Error{Code: 401},
			want: false,
		},
		{
			name: "wrapped googleapi error",
			err:  fmt.Errorf("playlistItems.list: %w", &googleapi.Error{Code: 404}),
			want: false,
		},
		{
			name: "context canceled",
			err:  context.Canceled,
			want: false,
		},
		{
			name: "deadline exceeded",
			err:  context.DeadlineExceeded,
			want: false,
		},
		{
			name: "plain network error",
			err:  errors.New("connection reset by peer"),
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := retryable(tc.err); got != tc.want {
				t.Fatalf("retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestNewYouTubeClientRequiresToken(t *testing.T) {
	_, err := NewYouTubeClient(context.Background(), "", ClientConfig{}, log.NewStdLogger(io.Discard))
	if err == nil {
		t.Fatalf("expected error for empty access token")
	}
}

func TestNewYouTubeClientAppliesDefaults(t *testing.T) {
	c, err := NewYouTubeClient(context.Background(), "ya29.token", ClientConfig{}, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewYouTubeClient: %v", err)
	}
	if c.maxRetries != defaultMaxRetries {
		t.Fatalf("maxRetries = %d, want %d", c.maxRetries, defaultMaxRetries)
	}
	if got := float64(c.limiter.Limit()); got != defaultRequestsPerSecond {
		t.Fatalf("rate limit = %v, want %v", got, float64(defaultRequestsPerSecond))
	}
}
