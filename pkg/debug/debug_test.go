package debug

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// capture enables logging into a buffer for the duration of the test.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	wasEnabled := enabled
	SetEnabled(true)
	SetOutput(&buf)
	t.Cleanup(func() {
		SetEnabled(wasEnabled)
	})
	return &buf
}

func TestLogWritesWhenEnabled(t *testing.T) {
	buf := capture(t)

	Log("loaded %d tasks", 3)
	LogTiming("fetch", 1500*time.Microsecond)
	LogIf(false, "hidden")
	LogIf(true, "shown")
	LogEnterExit("Refresh")()

	out := buf.String()
	for _, want := range []string{prefix, "loaded 3 tasks", "fetch took 1.5ms", "shown", "-> Refresh", "<- Refresh"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Error("LogIf(false) should not log")
	}
}

func TestDisabledIsSilent(t *testing.T) {
	buf := capture(t)
	SetEnabled(false)

	Log("nothing")
	LogEnterExit("nothing")()
	Assert(false, "ignored while disabled")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestAssertPanicsWhenEnabled(t *testing.T) {
	capture(t)
	defer func() {
		r := recover()
		if r == nil || !strings.Contains(r.(string), "rows must be contiguous") {
			t.Errorf("expected assertion panic, got %v", r)
		}
	}()
	Assert(false, "rows must be contiguous")
}
