package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// capture points the default logger at a buffer for the duration of a test.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	once.Do(func() {})
	prev := defaultLogger
	t.Cleanup(func() { defaultLogger = prev })

	buf := &bytes.Buffer{}
	defaultLogger = slog.New(slog.NewJSONHandler(buf, nil))
	return buf
}

func TestErrorAttachesErrorAttr(t *testing.T) {
	buf := capture(t)

	Error("Failed to parse concept response", errors.New("unexpected end of JSON input"), "preview", "{\"adConce")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, buf.String())
	}
	if record["error"] != "unexpected end of JSON input" {
		t.Errorf("error attr = %v, want the error message", record["error"])
	}
	if record["preview"] != "{\"adConce" {
		t.Errorf("preview attr = %v", record["preview"])
	}
	if strings.Contains(buf.String(), "!BADKEY") {
		t.Errorf("log record contains a malformed attribute: %s", buf.String())
	}
}

func TestErrorWithNilError(t *testing.T) {
	buf := capture(t)

	Error("Cleanup failed", nil, "submission_id", "sub-1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, buf.String())
	}
	if _, present := record["error"]; present {
		t.Error("nil error should not produce an error attr")
	}
	if record["submission_id"] != "sub-1" {
		t.Errorf("submission_id attr = %v", record["submission_id"])
	}
}
