package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Setenv("X_DUR", "45s")
	if got := Duration("X_DUR", time.Second); got != 45*time.Second {
		t.Fatalf("Duration: got %s", got)
	}
	t.Setenv("X_DUR", "90")
	if got := Duration("X_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("Duration seconds: got %s", got)
	}
	t.Setenv("X_DUR", "soon")
	if got := Duration("X_DUR", time.Second); got != time.Second {
		t.Fatalf("Duration fallback: got %s", got)
	}
}

func TestIntAndBool(t *testing.T) {
	t.Setenv("X_INT", "notanint")
	if got := Int("X_INT", 7); got != 7 {
		t.Fatalf("Int fallback: got %d", got)
	}
	t.Setenv("X_BOOL", "off")
	if Bool("X_BOOL", true) {
		t.Fatalf("Bool: expected false")
	}
	if !Bool("X_BOOL_UNSET", true) {
		t.Fatalf("Bool default: expected true")
	}
}
