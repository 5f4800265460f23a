package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "ledger", zerolog.InfoLevel)

	log.WithField("account_id", "42").WithError(errors.New("boom")).Warn("withdraw rejected")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["component"] != "ledger" || entry["account_id"] != "42" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["error"] != "boom" {
		t.Fatalf("error field missing: %v", entry)
	}
	if entry["message"] != "withdraw rejected" {
		t.Fatalf("message missing: %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "ledger", zerolog.WarnLevel)

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	log.Error("shown")
	if buf.Len() == 0 {
		t.Fatalf("error should pass at warn level")
	}
}
