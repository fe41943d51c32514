package ratchet

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"steganochat/internal/contacts"
	"steganochat/internal/keys"
)

func newEngine(t *testing.T, name, passphrase string) (*Engine, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".dat")
	c, err := contacts.Create(path, passphrase)
	if err != nil {
		t.Fatalf("create contacts failed: %v", err)
	}
	return New(c), path
}

func pair(t *testing.T) (alice, bob *Engine) {
	t.Helper()
	alice, _ = newEngine(t, "alice", "alicepw")
	bob, _ = newEngine(t, "bob", "bobpw")

	blob, _, err := alice.Invite("bob", "shared-secret")
	if err != nil {
		t.Fatalf("invite failed: %v", err)
	}
	if _, err := bob.ReceiveInvitation(blob, "alice", "shared-secret"); err != nil {
		t.Fatalf("receive invitation failed: %v", err)
	}
	return alice, bob
}

func TestInviteReceiveInvitationStates(t *testing.T) {
	alice, bob := pair(t)

	aliceUser := alice.Contacts.Users()[0]
	if aliceUser.Status() != keys.StatusInvitationSent {
		t.Fatalf("expected alice's view of bob to be InvitationSent, got %v", aliceUser.Status())
	}
	bobUser := bob.Contacts.Users()[0]
	if bobUser.Status() != keys.StatusInvitationReceived {
		t.Fatalf("expected bob's view of alice to be InvitationReceived, got %v", bobUser.Status())
	}
}

func TestSendFromInvitationSentFails(t *testing.T) {
	alice, _ := pair(t)
	aliceUser := alice.Contacts.Users()[0]
	if _, err := alice.Send([]byte("hi"), aliceUser.ID); !errors.Is(err, ErrInvitationNotConfirmed) {
		t.Fatalf("expected ErrInvitationNotConfirmed, got %v", err)
	}
}

func TestFirstMessageUpgradesToNormal(t *testing.T) {
	alice, bob := pair(t)

	bobUser := bob.Contacts.Users()[0]
	ciphertext, err := bob.Send([]byte("hello alice"), bobUser.ID)
	if err != nil {
		t.Fatalf("bob send failed: %v", err)
	}

	plaintext, fromUser, err := alice.Receive(ciphertext)
	if err != nil {
		t.Fatalf("alice receive failed: %v", err)
	}
	if string(plaintext) != "hello alice" {
		t.Fatalf("unexpected plaintext %q", plaintext)
	}
	if fromUser.Status() != keys.StatusNormal {
		t.Fatalf("expected alice's view of bob to become Normal, got %v", fromUser.Status())
	}
}

func TestRoundTripConversation(t *testing.T) {
	alice, bob := pair(t)

	bobAboutAlice := bob.Contacts.Users()[0]
	msg1, err := bob.Send([]byte("ping"), bobAboutAlice.ID)
	if err != nil {
		t.Fatalf("bob send failed: %v", err)
	}
	plain1, aliceAboutBob, err := alice.Receive(msg1)
	if err != nil {
		t.Fatalf("alice receive failed: %v", err)
	}
	if !bytes.Equal(plain1, []byte("ping")) {
		t.Fatalf("unexpected plaintext %q", plain1)
	}

	msg2, err := alice.Send([]byte("pong"), aliceAboutBob.ID)
	if err != nil {
		t.Fatalf("alice send failed: %v", err)
	}
	plain2, bobAboutAlice2, err := bob.Receive(msg2)
	if err != nil {
		t.Fatalf("bob receive failed: %v", err)
	}
	if !bytes.Equal(plain2, []byte("pong")) {
		t.Fatalf("unexpected plaintext %q", plain2)
	}
	if bobAboutAlice2.Status() != keys.StatusNormal {
		t.Fatalf("expected bob's view of alice to be Normal, got %v", bobAboutAlice2.Status())
	}

	msg3, err := bob.Send([]byte("third message, rotated generation"), bobAboutAlice2.ID)
	if err != nil {
		t.Fatalf("bob second send failed: %v", err)
	}
	plain3, _, err := alice.Receive(msg3)
	if err != nil {
		t.Fatalf("alice second receive failed: %v", err)
	}
	if !bytes.Equal(plain3, []byte("third message, rotated generation")) {
		t.Fatalf("unexpected plaintext %q", plain3)
	}
}

func TestReceiveUnknownDynamicIDFails(t *testing.T) {
	alice, _ := pair(t)
	garbage := make([]byte, 512)
	if _, _, err := alice.Receive(garbage); !errors.Is(err, ErrUnknownDynamicID) {
		t.Fatalf("expected ErrUnknownDynamicID, got %v", err)
	}
}

func TestReceiveTamperedBodyFails(t *testing.T) {
	alice, bob := pair(t)
	bobAboutAlice := bob.Contacts.Users()[0]
	ciphertext, err := bob.Send([]byte("hello alice"), bobAboutAlice.ID)
	if err != nil {
		t.Fatalf("bob send failed: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xFF
	if _, _, err := alice.Receive(ciphertext); err == nil {
		t.Fatalf("expected a tamper failure")
	}
}
