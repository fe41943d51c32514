package compose

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"testing"

	"steganochat/internal/contacts"
	"steganochat/internal/ratchet"
	"steganochat/internal/stego"
)

func newTestEngine(t *testing.T, name, passphrase string) *ratchet.Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".dat")
	c, err := contacts.Create(path, passphrase)
	if err != nil {
		t.Fatalf("create contacts failed: %v", err)
	}
	return ratchet.New(c)
}

func testPair(t *testing.T) (alice, bob *ratchet.Engine) {
	t.Helper()
	alice = newTestEngine(t, "alice", "alicepw")
	bob = newTestEngine(t, "bob", "bobpw")

	blob, _, err := alice.Invite("bob", "shared")
	if err != nil {
		t.Fatalf("invite failed: %v", err)
	}
	if _, err := bob.ReceiveInvitation(blob, "alice", "shared"); err != nil {
		t.Fatalf("receive invitation failed: %v", err)
	}
	return alice, bob
}

func noisyTile(width, height, channels int, seed int64) *stego.CoverImage {
	rows := make([][]byte, height)
	r := rand.New(rand.NewSource(seed))
	for y := 0; y < height; y++ {
		row := make([]byte, width*channels)
		for i := range row {
			row[i] = byte(r.Intn(256))
		}
		rows[y] = row
	}
	return stego.NewSynthetic(width, height, channels, rows)
}

func TestComposeSendReceiveRoundTrip(t *testing.T) {
	alice, bob := testPair(t)
	bobUser := bob.Contacts.Users()[0]

	images := []*stego.CoverImage{
		noisyTile(256, 256, 4, 1),
		noisyTile(256, 256, 4, 2),
	}
	plaintext := []byte("the covert message splits across several cover images")

	if err := Send(bob, images, plaintext, bobUser.ID); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	got, err := Receive(alice, images)
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
	}
}

func TestComposeSendNoImagesFails(t *testing.T) {
	_, bob := testPair(t)
	bobUser := bob.Contacts.Users()[0]
	if err := Send(bob, nil, []byte("hi"), bobUser.ID); err != ErrNoImages {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
}

func TestComposeSendUnknownUserFails(t *testing.T) {
	_, bob := testPair(t)
	images := []*stego.CoverImage{noisyTile(256, 256, 4, 3)}
	if err := Send(bob, images, []byte("hi"), 0xDEADBEEF); err != contacts.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
