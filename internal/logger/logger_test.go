package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestVerboseToggle(t *testing.T) {
	defer SetVerbose(false)

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be enabled")
	}

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be disabled")
	}
}

func TestOutputSuppressedWhenQuiet(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetVerbose(false)

	Debug("hidden %d", 1)
	Info("hidden")
	Warn("hidden")
	Section("hidden")

	if buf.Len() != 0 {
		t.Errorf("expected no output when quiet, got %q", buf.String())
	}
}

func TestOutputLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)
	defer func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	}()

	Debug("d %s", "one")
	Info("i %s", "two")
	Warn("w %s", "three")
	Section("Retrieval")

	out := buf.String()
	for _, want := range []string{"[DEBUG] d one", "[INFO] i two", "[WARN] w three", "=== Retrieval ==="} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
