// Package privacylog supplies a slog.HandlerOptions.ReplaceAttr hook so that
// nothing logged by the ratchet, contacts, or compose packages ever reaches
// a sink holding a passphrase, an aes_key/rsa_key, or a stable/dynamic ID in
// the clear — only a salted fingerprint, stable for the life of the
// process, survives into the log stream.
package privacylog

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

const redactedValue = "[REDACTED]"

// bootNonce salts every fingerprint with a value fixed at process start, so
// a given ID maps to the same token for the life of one run but to a
// different one across restarts.
var bootNonce = randomNonce()

// secretSubstrings names the wire-format key material this repo ever logs
// an attribute key for: a contact's passphrase (securestore), a KeySet's
// aes_key/rsa_key (ratchet, keys), and the generic secret/token/password
// names a library dependency might use.
var secretSubstrings = []string{"passphrase", "aes_key", "rsa_key", "private_key", "secret", "token", "password"}

// identifierKeys names the wire-format identifiers this repo logs that are
// not secret but are still linkable: the contacts store's stable user_id,
// the ratchet's recipient_id/sender_id and rotating dynamic_id, and a
// distributor msg_id.
// Logging that one of these touched a code path is useful; logging the
// value itself lets two log lines be correlated to the same person.
var identifierKeys = map[string]struct{}{
	"user_id":      {},
	"recipient_id": {},
	"sender_id":    {},
	"dynamic_id":   {},
	"msg_id":       {},
}

// ReplaceAttr is installed as slog.HandlerOptions.ReplaceAttr. The standard
// library's text and JSON handlers invoke it for every attribute at every
// nesting depth — including inside WithGroup groups — before serializing a
// record, so no custom Handler wrapper is needed to get the same coverage.
func ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(strings.TrimSpace(a.Key))
	switch {
	case key == "":
		return a
	case containsSecretSubstring(key):
		return slog.String(a.Key, redactedValue)
	case isIdentifierKey(key):
		return slog.String(a.Key+"_fp", FingerprintID(stringifyValue(a.Value)))
	default:
		return a
	}
}

// FingerprintID derives a short, non-reversible, process-stable token for a
// wire identifier (a dynamic_id, a user_id, ...) so repeated log lines about
// the same identifier correlate without the identifier ever being printed.
func FingerprintID(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(trimmed + "|" + bootNonce))
	return "fp_" + hex.EncodeToString(sum[:8])
}

func containsSecretSubstring(key string) bool {
	for _, part := range secretSubstrings {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func isIdentifierKey(key string) bool {
	_, ok := identifierKeys[key]
	return ok
}

// stringifyValue renders a slog.Value for fingerprinting without forcing an
// allocation through Value.Any() for the common scalar kinds.
func stringifyValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return fmt.Sprintf("%d", v.Int64())
	case slog.KindUint64:
		return fmt.Sprintf("%d", v.Uint64())
	case slog.KindFloat64:
		return fmt.Sprintf("%g", v.Float64())
	case slog.KindBool:
		return fmt.Sprintf("%t", v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format("2006-01-02T15:04:05.000000000Z")
	default:
		return fmt.Sprint(v.Any())
	}
}

func randomNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "fallback_nonce"
	}
	return hex.EncodeToString(buf)
}
