package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetLevel(Warning)
	logger := New("test")

	SetLevel(Warning)
	logger.Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("debug message written at warning level: %q", buf.String())
	}
	logger.Warningf("shown %d", 2)
	out := buf.String()
	if !strings.Contains(out, "shown 2") {
		t.Fatalf("warning message missing: %q", out)
	}
	if !strings.Contains(out, "module=test") {
		t.Errorf("module field missing: %q", out)
	}

	buf.Reset()
	SetLevel(Debug)
	logger.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("debug message missing at debug level: %q", buf.String())
	}
}
