package log

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestWithComponent(t *testing.T) {
	l := WithComponent("ura")

	var buf bytes.Buffer
	child := l.Output(&buf)
	child.Info().Str("event", "token.issued").Msg("ok")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["component"] != "ura" {
		t.Errorf("component = %v, want ura", entry["component"])
	}
	if entry["service"] != "parking" {
		t.Errorf("service = %v, want parking", entry["service"])
	}
	if entry["event"] != "token.issued" {
		t.Errorf("event = %v, want token.issued", entry["event"])
	}
}

func TestDerive(t *testing.T) {
	var buf bytes.Buffer
	l := Derive(nil).Output(&buf)
	l.Info().Msg("no builder")
	if buf.Len() == 0 {
		t.Fatal("expected output from derived logger")
	}
}
