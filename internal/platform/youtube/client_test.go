package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

func TestFirstVideoURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/youtube/v3/search" {
			t.Errorf("path=%s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("q") != "closures tutorial" || q.Get("maxResults") != "1" {
			t.Errorf("query=%v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":{"kind":"youtube#video","videoId":"abc123"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), logger.Nop(), Config{APIKey: "k", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	got, err := c.FirstVideoURL(context.Background(), "closures tutorial")
	if err != nil || got != "https://www.youtube.com/watch?v=abc123" {
		t.Fatalf("FirstVideoURL=%q err=%v", got, err)
	}
}

func TestFirstVideoURLNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), logger.Nop(), Config{APIKey: "k", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.FirstVideoURL(context.Background(), "nothing"); !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected error without key")
	}
}
