// Package securestore implements the passphrase-authenticated envelope used
// for every piece of SteganoChat state that touches disk: the contacts
// file, and the invitation blob exchanged during invite/receive_invitation.
// Both must derive the same symmetric key from nothing but a shared
// passphrase, which is bare SHA-256(passphrase) — there is no salt,
// because there is no channel to carry one to the peer decrypting an
// invitation out-of-band.
package securestore

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	envelopeVersion = 1
	filePrefix      = "STEGC1\n"
)

var (
	// ErrAuthFailed means the AEAD tag didn't verify —
	// BadPassphrase surfaces this at the Contacts layer.
	ErrAuthFailed = errors.New("securestore: authentication failed")
	// ErrInvalid means the envelope is structurally malformed.
	ErrInvalid = errors.New("securestore: envelope is invalid")
)

// Envelope is the on-disk/on-wire JSON shape. There is no KDF parameter
// block: the key derivation has no parameters to record, only the
// passphrase itself.
type Envelope struct {
	Version    uint32 `json:"version"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// DeriveKey implements the passphrase KDF: SHA-256 over the UTF-8
// passphrase bytes, used directly as the XChaCha20-Poly1305 key.
func DeriveKey(passphrase string) []byte {
	sum := sha256.Sum256([]byte(passphrase))
	return sum[:]
}

// Encrypt seals plaintext under passphrase and returns the framed,
// length-prefix-free wire form (a fixed text prefix followed by JSON).
func Encrypt(passphrase string, plaintext []byte) ([]byte, error) {
	env, err := EncryptEnvelope(passphrase, plaintext)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(filePrefix), raw...), nil
}

// EncryptEnvelope seals plaintext and returns the structured Envelope
// without the outer file prefix, for callers that store envelopes rather
// than raw files.
func EncryptEnvelope(passphrase string, plaintext []byte) (*Envelope, error) {
	key := DeriveKey(passphrase)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return &Envelope{
		Version:    envelopeVersion,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// Decrypt reverses Encrypt, returning ErrAuthFailed on a wrong passphrase or
// tampered ciphertext, ErrInvalid on a malformed envelope.
func Decrypt(passphrase string, data []byte) ([]byte, error) {
	if !strings.HasPrefix(string(data), filePrefix) {
		return nil, ErrInvalid
	}
	data = data[len(filePrefix):]
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrInvalid
	}
	return DecryptEnvelope(passphrase, &env)
}

// DecryptEnvelope reverses EncryptEnvelope.
func DecryptEnvelope(passphrase string, env *Envelope) ([]byte, error) {
	if !isValidEnvelope(env) {
		return nil, ErrInvalid
	}
	key := DeriveKey(passphrase)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func isValidEnvelope(env *Envelope) bool {
	if env == nil {
		return false
	}
	if env.Version != envelopeVersion {
		return false
	}
	if len(env.Nonce) != chacha20poly1305.NonceSizeX || len(env.Ciphertext) == 0 {
		return false
	}
	return true
}
