package privacylog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestReplaceAttrFingerprintsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: ReplaceAttr})
	logger := slog.New(h)
	logger.Info("sent", "user_id", "16045690984833335023", "dynamic_id", "d1", "kind", "send")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	if _, ok := payload["user_id"]; ok {
		t.Fatal("user_id should not survive in the clear")
	}
	got, ok := payload["user_id_fp"].(string)
	if !ok || !strings.HasPrefix(got, "fp_") {
		t.Fatalf("expected fingerprinted user_id_fp, got %v", payload["user_id_fp"])
	}
	if _, ok := payload["dynamic_id_fp"]; !ok {
		t.Fatal("dynamic_id_fp should be present")
	}
	if got := payload["kind"]; got != "send" {
		t.Fatalf("expected untouched key, got %v", got)
	}
}

func TestReplaceAttrRedactsKeyMaterial(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: ReplaceAttr})
	logger := slog.New(h)
	logger.Info("contact added", "passphrase", "hunter2", "aes_key", []byte{1, 2, 3}, "status", "ok")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	if got, _ := payload["passphrase"].(string); got != redactedValue {
		t.Fatalf("expected redacted passphrase, got %q", got)
	}
	if got, _ := payload["aes_key"].(string); got != redactedValue {
		t.Fatalf("expected redacted aes_key, got %q", got)
	}
	if got := payload["status"]; got != "ok" {
		t.Fatalf("expected untouched key, got %v", got)
	}
}

func TestReplaceAttrAppliesWithinGroups(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: ReplaceAttr})
	logger := slog.New(h).WithGroup("exchange")
	logger.Info("parsed", "rsa_key", []byte{4, 5, 6}, "sender_id", "alice")

	// "BAUG" is how the JSON handler would print rsa_key's bytes {4, 5, 6}.
	if strings.Contains(buf.String(), "BAUG") {
		t.Fatal("raw secret leaked into group output")
	}
	if !strings.Contains(buf.String(), "sender_id_fp") {
		t.Fatalf("expected sender_id_fp inside group output, got %s", buf.String())
	}
}

func TestFingerprintIDStableWithinProcess(t *testing.T) {
	a := FingerprintID("16045690984833335023")
	b := FingerprintID("16045690984833335023")
	if a != b {
		t.Fatalf("fingerprint not stable: %q vs %q", a, b)
	}
	if FingerprintID("") != "" {
		t.Fatal("empty input should fingerprint to empty string")
	}
	if a == FingerprintID("other") {
		t.Fatal("distinct inputs produced the same fingerprint")
	}
}
