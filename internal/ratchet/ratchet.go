// Package ratchet implements SteganoChat's forward-secure pairwise
// encryption engine: invite/receive_invitation to bootstrap a peer, and
// send/receive to exchange messages while rotating the three-generation
// key window a message at a time.
package ratchet

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"log/slog"

	"steganochat/internal/codec"
	"steganochat/internal/contacts"
	"steganochat/internal/keys"
	"steganochat/internal/metrics"
	"steganochat/internal/securestore"
)

var (
	// ErrUserNotFound means the recipient ID isn't in Contacts.
	ErrUserNotFound = errors.New("ratchet: user not found")
	// ErrUnknownDynamicID means the inbound dynamic ID matched no user.
	ErrUnknownDynamicID = errors.New("ratchet: unknown dynamic id")
	// ErrInvitationNotConfirmed means send was called against a user still
	// in InvitationSent.
	ErrInvitationNotConfirmed = errors.New("ratchet: invitation not confirmed")
	// ErrInvalidUser means the user's KeySets occupancy is illegal.
	ErrInvalidUser = errors.New("ratchet: invalid user state")
	// ErrExchangeHashMismatch means the exchange-section integrity hash
	// didn't match.
	ErrExchangeHashMismatch = errors.New("ratchet: exchange section hash mismatch")
	// ErrBodyHashMismatch means the body integrity hash didn't match.
	ErrBodyHashMismatch = errors.New("ratchet: body hash mismatch")
	// ErrInvalidState means receive was asked to decrypt a body against a
	// user with no pst generation installed. This can only happen on a
	// non-refresh message against a user in InvitationReceived, which has
	// no exchange section to fall back on.
	ErrInvalidState = errors.New("ratchet: invalid state for body decryption")
	// ErrMalformedCiphertext means the ciphertext is too short to hold the
	// fixed-width fields send() always produces.
	ErrMalformedCiphertext = errors.New("ratchet: malformed ciphertext")
)

const (
	dynamicIDLen          = keys.DynamicIDSize
	nonceLen              = codec.CCMNonceSize
	exchangeKeyLen        = 32
	exchangeSectionKeyLen = exchangeKeyLen + 2 // aes key + 2-byte len prefix, pre-RSA
	hashLen               = sha256.Size

	// SendOverhead (below) adds these up for callers (the compose pipeline)
	// that need to size steganography payloads in advance: dynamic_id +
	// nonce + RSA block + exchange_section_cipher + exchange_hash + body CCM
	// tag + body_hash, where exchange_section_cipher length is aes_key(32) +
	// dynamic ids(32*8) + rsa public key bytes + CCM tag.
)

// Engine is the stateful ratchet: it owns a Contacts handle and mutates it
// on invite, receive_invitation, and the refresh path of receive.
type Engine struct {
	Contacts *contacts.Contacts
}

// New wraps an already-open Contacts handle in an Engine.
func New(c *contacts.Contacts) *Engine {
	return &Engine{Contacts: c}
}

// Invite creates a User in InvitationSent and returns a passphrase-sealed
// invitation blob carrying the public view of its new KeySet.
func (e *Engine) Invite(name, passphrase string) ([]byte, *keys.User, error) {
	user, err := e.Contacts.Invite(name)
	if err != nil {
		return nil, nil, err
	}
	pubView, err := user.Keys.New.PublicView()
	if err != nil {
		return nil, nil, err
	}
	blob, err := sealInvitation(passphrase, pubView)
	if err != nil {
		return nil, nil, err
	}
	e.reportContactsNormal()
	slog.Info("invitation created", "recipient_id", user.ID, "name", name)
	return blob, user, nil
}

// ReceiveInvitation decrypts an invitation blob, installs the decoded
// public KeySet as crt, generates a fresh local new, and returns the
// resulting User in InvitationReceived.
func (e *Engine) ReceiveInvitation(blob []byte, name, passphrase string) (*keys.User, error) {
	peerKeySet, err := openInvitation(passphrase, blob)
	if err != nil {
		return nil, err
	}
	user, err := e.Contacts.ReceiveInvitation(name, peerKeySet)
	if err != nil {
		return nil, err
	}
	e.reportContactsNormal()
	slog.Info("invitation accepted", "sender_id", user.ID, "name", name)
	return user, nil
}

// reportContactsNormal recomputes and publishes the count of Normal-status
// contacts, so a long-running caller's metrics snapshot reflects the
// current ratchet state rather than just send/receive counters.
func (e *Engine) reportContactsNormal() {
	count := 0
	for _, u := range e.Contacts.Users() {
		if u.Status() == keys.StatusNormal {
			count++
		}
	}
	metrics.Default().SetContactsNormal(count)
}

func sealInvitation(passphrase string, keySet *keys.KeySet) ([]byte, error) {
	return securestore.Encrypt(passphrase, keySet.Bytes())
}

func openInvitation(passphrase string, blob []byte) (*keys.KeySet, error) {
	plaintext, err := securestore.Decrypt(passphrase, blob)
	if err != nil {
		return nil, err
	}
	return keys.LoadKeySet(plaintext, false)
}

// Send encrypts plaintext for userID using the three-generation keyset
// layout. It does not mutate local state; rotation only happens on the
// receiving end's next successful receive.
func (e *Engine) Send(plaintext []byte, userID uint64) ([]byte, error) {
	user := e.Contacts.FindByID(userID)
	if user == nil {
		return nil, ErrUserNotFound
	}
	switch user.Status() {
	case keys.StatusNormal, keys.StatusInvitationReceived:
	case keys.StatusInvitationSent:
		slog.Warn("send rejected: invitation not confirmed", "recipient_id", userID)
		return nil, ErrInvitationNotConfirmed
	default:
		slog.Error("send rejected: invalid user state", "recipient_id", userID, "status", user.Status().String())
		return nil, ErrInvalidUser
	}

	dynamicID := user.Keys.Crt.DynamicIDs[randIndex(len(user.Keys.Crt.DynamicIDs))]

	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	exchangeKey := make([]byte, exchangeKeyLen)
	if _, err := rand.Read(exchangeKey); err != nil {
		return nil, err
	}

	exchangePlain, err := localExchangePlaintext(user)
	if err != nil {
		return nil, err
	}
	exchangeCipher, err := codec.SealCCM(exchangeKey, nonce, exchangePlain)
	if err != nil {
		return nil, err
	}

	peerPub, err := user.Keys.Crt.PublicKey()
	if err != nil {
		return nil, err
	}
	exchangeKeyBlock := make([]byte, 0, exchangeSectionKeyLen)
	exchangeKeyBlock = append(exchangeKeyBlock, exchangeKey...)
	exchangeKeyBlock = codec.PutUint16(exchangeKeyBlock, uint16(len(exchangeCipher)))
	exchangeKeyCipher, err := codec.OAEPEncrypt(peerPub, exchangeKeyBlock)
	if err != nil {
		return nil, err
	}

	exchangeHash := sha256.Sum256(exchangePlain)

	bodyCipher, err := codec.SealCCM(user.Keys.Crt.AESKey, nonce, plaintext)
	if err != nil {
		return nil, err
	}
	bodyHash := sha256.Sum256(plaintext)

	out := make([]byte, 0, dynamicIDLen+nonceLen+len(exchangeKeyCipher)+len(exchangeCipher)+hashLen+len(bodyCipher)+hashLen)
	out = append(out, dynamicID...)
	out = append(out, nonce...)
	out = append(out, exchangeKeyCipher...)
	out = append(out, exchangeCipher...)
	out = append(out, exchangeHash[:]...)
	out = append(out, bodyCipher...)
	out = append(out, bodyHash[:]...)
	slog.Debug("send complete", "recipient_id", userID, "dynamic_id", dynamicID, "ciphertext_len", len(out))
	return out, nil
}

// localExchangePlaintext builds local.new.aes_key || concat(local.new.
// dynamic_ids) || local.new.public_key_bytes.
func localExchangePlaintext(user *keys.User) ([]byte, error) {
	pubBytes, err := user.Keys.New.PublicKeyBytes()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(user.Keys.New.AESKey)+dynamicIDLen*keys.DynamicIDCount+len(pubBytes))
	out = append(out, user.Keys.New.AESKey...)
	for _, id := range user.Keys.New.DynamicIDs {
		out = append(out, id...)
	}
	out = append(out, pubBytes...)
	return out, nil
}

// Receive decrypts ciphertext, rotating the sender's KeySets when the
// message carries a refresh.
func (e *Engine) Receive(ciphertext []byte) ([]byte, *keys.User, error) {
	r := codec.NewReader(ciphertext)

	dynamicID, err := r.ReadN(dynamicIDLen)
	if err != nil {
		return nil, nil, ErrMalformedCiphertext
	}
	user, refreshFlag := e.Contacts.FindByDynamicID(dynamicID)
	if user == nil {
		slog.Warn("receive rejected: unknown dynamic id", "dynamic_id", dynamicID)
		return nil, nil, ErrUnknownDynamicID
	}
	if user.Keys.New == nil {
		return nil, nil, ErrInvalidUser
	}

	nonce, err := r.ReadN(nonceLen)
	if err != nil {
		return nil, nil, ErrMalformedCiphertext
	}

	// The sender encrypted against the generation whose dynamic ID it used:
	// new on the refresh path, pst otherwise.
	exchangeKS := user.Keys.New
	if !refreshFlag {
		exchangeKS = user.Keys.Pst
	}
	localPriv, err := exchangeKS.PrivateKey()
	if err != nil {
		return nil, nil, err
	}
	exchangeKeyCipher, err := r.ReadN(codec.RSAKeyBits / 8)
	if err != nil {
		return nil, nil, ErrMalformedCiphertext
	}
	exchangeKeyBlock, err := codec.OAEPDecrypt(localPriv, exchangeKeyCipher)
	if err != nil {
		return nil, nil, err
	}
	if len(exchangeKeyBlock) != exchangeSectionKeyLen {
		return nil, nil, ErrMalformedCiphertext
	}
	exchangeKey := exchangeKeyBlock[:exchangeKeyLen]
	exchangeLen, err := codec.Uint16(exchangeKeyBlock[exchangeKeyLen:])
	if err != nil {
		return nil, nil, ErrMalformedCiphertext
	}

	exchangeCipher, err := r.ReadN(int(exchangeLen))
	if err != nil {
		return nil, nil, ErrMalformedCiphertext
	}
	exchangePlain, err := codec.OpenCCM(exchangeKey, nonce, exchangeCipher)
	if err != nil {
		return nil, nil, err
	}

	exchangeHash, err := r.ReadN(hashLen)
	if err != nil {
		return nil, nil, ErrMalformedCiphertext
	}
	wantExchangeHash := sha256.Sum256(exchangePlain)
	if subtle.ConstantTimeCompare(exchangeHash, wantExchangeHash[:]) != 1 {
		slog.Error("receive rejected: exchange section hash mismatch", "sender_id", user.ID)
		return nil, nil, ErrExchangeHashMismatch
	}

	if refreshFlag {
		peerKeySet, err := parseExchangeSection(exchangePlain)
		if err != nil {
			return nil, nil, err
		}
		freshIDs, err := e.Contacts.GenerateDynamicIDs()
		if err != nil {
			return nil, nil, err
		}
		freshKeySet, err := keys.GenerateKeySet(freshIDs)
		if err != nil {
			return nil, nil, err
		}
		user.Keys.Pst = user.Keys.New
		user.Keys.Crt = peerKeySet
		user.Keys.New = freshKeySet
		metrics.Default().RecordRotation()
		slog.Debug("key generation rotated", "sender_id", user.ID)
	}

	rest := r.Rest()
	if len(rest) < hashLen {
		return nil, nil, ErrMalformedCiphertext
	}
	bodyCipher := rest[:len(rest)-hashLen]
	bodyHash := rest[len(rest)-hashLen:]

	if user.Keys.Pst == nil {
		slog.Error("receive rejected: no pst generation installed", "sender_id", user.ID)
		return nil, nil, ErrInvalidState
	}
	bodyPlain, err := codec.OpenCCM(user.Keys.Pst.AESKey, nonce, bodyCipher)
	if err != nil {
		return nil, nil, err
	}
	wantBodyHash := sha256.Sum256(bodyPlain)
	if subtle.ConstantTimeCompare(bodyHash, wantBodyHash[:]) != 1 {
		slog.Error("receive rejected: body hash mismatch", "sender_id", user.ID)
		return nil, nil, ErrBodyHashMismatch
	}

	if err := e.Contacts.UpdateUser(user); err != nil {
		return nil, nil, err
	}
	e.reportContactsNormal()
	slog.Debug("receive complete", "sender_id", user.ID, "plaintext_len", len(bodyPlain))
	return bodyPlain, user, nil
}

// parseExchangeSection parses aes_key(32) || 32*dynamic_id(256) ||
// public_key_bytes(rest) into a peer KeySet.
func parseExchangeSection(plain []byte) (*keys.KeySet, error) {
	return keys.LoadKeySet(plain, false)
}

// SendOverhead returns the exact number of ciphertext bytes a Send call
// against user will add beyond the caller's plaintext length, so composing
// code (the steganography precompute step) can size image payloads exactly
// rather than guessing.
func SendOverhead(user *keys.User) (int, error) {
	pubBytes, err := user.Keys.New.PublicKeyBytes()
	if err != nil {
		return 0, err
	}
	exchangePlainLen := exchangeKeyLen + dynamicIDLen*keys.DynamicIDCount + len(pubBytes)
	exchangeCipherLen := exchangePlainLen + codec.CCMTagSize
	rsaCipherLen := codec.RSAKeyBits / 8
	return dynamicIDLen + nonceLen + rsaCipherLen + exchangeCipherLen + hashLen + codec.CCMTagSize + hashLen, nil
}

func randIndex(n int) int {
	if n <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	v, _ := codec.Uint64(b[:])
	return int(v % uint64(n))
}
