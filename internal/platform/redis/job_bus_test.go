package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

func TestJobBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	bus, err := NewJobBus(logger.Nop(), Config{Addr: addr, Channel: "coursegen:test:" + uuid.NewString()})
	if err != nil {
		t.Fatalf("NewJobBus: %v", err)
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got := make(chan JobEvent, 1)
	if err := bus.StartForwarder(ctx, func(ev JobEvent) { got <- ev }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	if err := bus.Publish(ctx, JobEvent{Type: "JobDone", JobID: "j1", Queue: "course_generate", Attempt: 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case ev := <-got:
		if ev.JobID != "j1" || ev.Type != "JobDone" || ev.At.IsZero() {
			t.Fatalf("event: %+v", ev)
		}
	case <-ctx.Done():
		t.Fatalf("no event received")
	}
}

func TestNewJobBusRequiresAddr(t *testing.T) {
	if _, err := NewJobBus(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected missing addr error")
	}
}
