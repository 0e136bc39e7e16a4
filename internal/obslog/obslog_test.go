package obslog_test

import (
	"testing"

	"github.com/stepherg/catenago/internal/obslog"
)

func TestNewAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := obslog.New(level)
		if err != nil {
			t.Fatalf("level %q: unexpected error: %v", level, err)
		}
		if logger == nil {
			t.Fatalf("level %q: expected a logger", level)
		}
	}
}

func TestNewFallsBackOnUnknownLevel(t *testing.T) {
	logger, err := obslog.New("not-a-level")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected a logger even for an unknown level")
	}
}
