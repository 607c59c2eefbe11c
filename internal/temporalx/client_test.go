package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	c, err := NewClient(logger.Nop(), Config{})
	if err != nil || c != nil {
		t.Fatalf("expected disabled client, got %v %v", c, err)
	}
}

func TestClampBackoff(t *testing.T) {
	base, max := 250*time.Millisecond, 2*time.Second
	want := []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, time.Second, 2 * time.Second, 2 * time.Second}
	for i, w := range want {
		if got := clampBackoff(base, max, i+1); got != w {
			t.Fatalf("attempt %d: got %s want %s", i+1, got, w)
		}
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "down")) {
		t.Fatalf("unavailable should retry")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "no")) {
		t.Fatalf("permission denied should not retry")
	}
	if !isRetryableRPC(context.DeadlineExceeded) || isRetryableRPC(errors.New("x")) {
		t.Fatalf("non-rpc classification wrong")
	}
}

func TestLoadTLSConfigRequiresPair(t *testing.T) {
	if _, err := loadTLSConfig(Config{ClientCAPath: "/tmp/ca.pem"}); err == nil {
		t.Fatalf("expected error without cert/key")
	}
}
