package rotation_test

import (
	"errors"
	"testing"

	appErrors "github.com/mailops/console-backend/internal/errors"
	"github.com/mailops/console-backend/internal/rotation"
)

func TestSenderForCycles(t *testing.T) {
	cases := []struct {
		sent, per, max int
		want           int
	}{
		{0, 10, 3, 1},
		{9, 10, 3, 1},
		{10, 10, 3, 2},
		{19, 10, 3, 2},
		{20, 10, 3, 3},
		{29, 10, 3, 3},
		{30, 10, 3, 1}, // wraps after per*max emails
		{59, 10, 3, 3},
		{60, 10, 3, 1},
		{0, 1, 1, 1},
		{100, 1, 1, 1},
		{5, 5, 2, 2},
	}

	for _, c := range cases {
		got, err := rotation.SenderFor(c.sent, c.per, c.max)
		if err != nil {
			t.Fatalf("SenderFor(%d,%d,%d) returned error: %v", c.sent, c.per, c.max, err)
		}
		if got != c.want {
			t.Errorf("SenderFor(%d,%d,%d) = %d, want %d", c.sent, c.per, c.max, got, c.want)
		}
	}
}

func TestSenderForPeriodic(t *testing.T) {
	per, max := 7, 4
	period := per * max
	for n := 0; n < period; n++ {
		a, _ := rotation.SenderFor(n, per, max)
		b, _ := rotation.SenderFor(n+period, per, max)
		if a != b {
			t.Fatalf("expected period %d: SenderFor(%d)=%d but SenderFor(%d)=%d", period, n, a, n+period, b)
		}
	}
}

func TestSenderForRejectsBadBounds(t *testing.T) {
	if _, err := rotation.SenderFor(0, 0, 3); err == nil {
		t.Error("expected error for emails_per_sequence < 1")
	}
	_, err := rotation.SenderFor(0, 10, 0)
	var invalid *appErrors.ErrInvalidConfiguration
	if !errors.As(err, &invalid) {
		t.Errorf("expected ErrInvalidConfiguration for max_sequences < 1, got %v", err)
	}
}
