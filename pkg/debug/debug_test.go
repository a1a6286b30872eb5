package debug

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"
)

func withCapturedLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := enabled
	t.Cleanup(func() {
		enabled = prev
		SetOutput(os.Stderr)
	})
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(true)
	return &buf
}

func TestLogDisabledIsNoop(t *testing.T) {
	buf := withCapturedLog(t)
	SetEnabled(false)
	Log("hidden %d", 1)
	LogIf(true, "hidden")
	Section("hidden")
	Dump("hidden", 1)
	Assert(false, "not checked while disabled")
	if buf.Len() != 0 {
		t.Errorf("expected no output when disabled, got %q", buf.String())
	}
	if Enabled() {
		t.Error("expected Enabled() false")
	}
}

func TestLogWritesPrefix(t *testing.T) {
	buf := withCapturedLog(t)
	Log("window [%d,%d)", 0, 40)
	LogTiming("recompute", 3*time.Millisecond)
	LogIf(false, "skipped")
	LogIf(true, "kept")
	out := buf.String()
	if !strings.Contains(out, prefix) {
		t.Errorf("expected prefix %q in %q", prefix, out)
	}
	if !strings.Contains(out, "window [0,40)") {
		t.Errorf("expected formatted message, got %q", out)
	}
	if !strings.Contains(out, "recompute took 3ms") {
		t.Errorf("expected timing line, got %q", out)
	}
	if strings.Contains(out, "skipped") || !strings.Contains(out, "kept") {
		t.Errorf("LogIf wrote the wrong lines: %q", out)
	}
}

func TestDumpAndSection(t *testing.T) {
	buf := withCapturedLog(t)
	Section("reload")
	Dump("visible", map[string]bool{"A": true})
	out := buf.String()
	if !strings.Contains(out, "=== reload ===") {
		t.Errorf("expected section header, got %q", out)
	}
	if !strings.Contains(out, "visible: map[string]bool = map[A:true]") {
		t.Errorf("expected typed dump, got %q", out)
	}
}

func TestAssertPanicsWhenEnabled(t *testing.T) {
	buf := withCapturedLog(t)
	Assert(true, "never shown")
	defer func() {
		if recover() == nil {
			t.Error("expected Assert(false) to panic when enabled")
		}
		if !strings.Contains(buf.String(), "ASSERTION FAILED: window [3,1)") {
			t.Errorf("expected assertion line, got %q", buf.String())
		}
	}()
	Assert(false, "window [%d,%d)", 3, 1)
}
