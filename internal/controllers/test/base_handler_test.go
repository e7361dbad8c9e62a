package controllers_test

import (
	"context"
	stdhttp "net/http"
	"testing"
	"time"

	"github.com/ytpm/services-export/internal/controllers"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/google/uuid"
)

func newRequest(t *testing.T, userID string) *stdhttp.Request {
	t.Helper()
	req, err := stdhttp.NewRequest(stdhttp.MethodGet, "/api/export/status", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if userID != "" {
		req.Header.Set("x-ytpm-user-id", userID)
	}
	return req
}

func TestBaseHandler_UserID(t *testing.T) {
	h := controllers.NewBaseHandler(controllers.DefaultHandlerTimeouts())

	t.Run("missing header", func(t *testing.T) {
		_, err := h.UserID(newRequest(t, ""))
		if err == nil {
			t.Fatalf("expected error for missing header")
		}
		ke := kerrors.FromError(err)
		if ke.Code != stdhttp.StatusUnauthorized || ke.Reason != "USER_ID_REQUIRED" {
			t.Fatalf("unexpected error: code=%d reason=%s", ke.Code, ke.Reason)
		}
	})

	t.Run("malformed uuid", func(t *testing.T) {
		_, err := h.UserID(newRequest(t, "not-a-uuid"))
		if err == nil {
			t.Fatalf("expected error for malformed uuid")
		}
		ke := kerrors.FromError(err)
		if ke.Code != stdhttp.StatusBadRequest || ke.Reason != "USER_ID_INVALID" {
			t.Fatalf("unexpected error: code=%d reason=%s", ke.Code, ke.Reason)
		}
	})

	t.Run("valid uuid with whitespace", func(t *testing.T) {
		want := uuid.New()
		got, err := h.UserID(newRequest(t, "  "+want.String()+"  "))
		if err != nil {
			t.Fatalf("UserID: %v", err)
		}
		if got != want {
			t.Fatalf("user id = %s, want %s", got, want)
		}
	})
}

func TestBaseHandler_WithTimeout(t *testing.T) {
	h := controllers.NewBaseHandler(controllers.HandlerTimeouts{
		Default: 10 * time.Second,
		Command: 60 * time.Second,
		Query:   5 * time.Second,
	})

	cases := []struct {
		name string
		kind controllers.HandlerType
		want time.Duration
	}{
		{"command", controllers.HandlerTypeCommand, 60 * time.Second},
		{"query", controllers.HandlerTypeQuery, 5 * time.Second},
		{"default", controllers.HandlerTypeDefault, 10 * time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := h.WithTimeout(context.Background(), tc.kind)
			defer cancel()

			deadline, ok := ctx.Deadline()
			if !ok {
				t.Fatalf("expected deadline")
			}
			remaining := time.Until(deadline)
			if remaining > tc.want || remaining < tc.want-time.Second {
				t.Fatalf("remaining = %v, want ~%v", remaining, tc.want)
			}
		})
	}
}
