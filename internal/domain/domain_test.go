package domain

import (
	"testing"
	"time"
)

func TestPeriodStartFor(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	got := PeriodStartFor(time.Date(2026, time.March, 1, 1, 30, 0, 0, loc))
	want := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("period start: got %s want %s", got, want)
	}
}

func TestBackoffFor(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Minute},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
	}
	for _, tc := range cases {
		if got := BackoffFor(time.Minute, tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: got %s want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestDefaultMonthlyLimit(t *testing.T) {
	q := &UserQuota{MonthlyLimit: DefaultMonthlyLimit, Used: 1800}
	if q.Remaining() != 48200 {
		t.Fatalf("remaining=%d", q.Remaining())
	}
}
