// Package compose orchestrates the end-to-end send path the CLI drives:
// splitting a plaintext across a set of cover images, encrypting each
// piece for a recipient, and embedding the resulting ciphertexts.
package compose

import (
	"errors"
	"time"

	"steganochat/internal/contacts"
	"steganochat/internal/distributor"
	"steganochat/internal/ratchet"
	"steganochat/internal/stego"
)

// ErrNoImages is returned when Send is asked to compose with an empty
// cover-image set.
var ErrNoImages = errors.New("compose: no cover images supplied")

// distributorHeaderOverhead is the fixed per-chunk header size the
// distributor prepends; Send adds the per-message encryption overhead to it
// to form the R passed to the steganography engine at precompute time.
const distributorHeaderOverhead = distributor.HeaderSize

// Send runs the full compose pipeline: resolve the recipient, size each
// cover image's share of the plaintext, encrypt each resulting chunk for
// the recipient, and embed the ciphertexts into their assigned images.
//
// Each outbound ciphertext is larger than its plaintext input because
// every message carries its own exchange section; Precompute
// is therefore driven by the exact per-message ciphertext overhead so
// every chunk's encrypted form is guaranteed to fit the length the engine
// already committed to for that image.
func Send(engine *ratchet.Engine, images []*stego.CoverImage, plaintext []byte, userID uint64) error {
	if len(images) == 0 {
		return ErrNoImages
	}

	user := engine.Contacts.FindByID(userID)
	if user == nil {
		return contacts.ErrUserNotFound
	}

	sendOverhead, err := ratchet.SendOverhead(user)
	if err != nil {
		return err
	}

	reserved := distributorHeaderOverhead + sendOverhead
	alloc, err := stego.Precompute(images, len(plaintext), reserved)
	if err != nil {
		return err
	}

	// alloc.Lengths[i] is already net of both the distributor header and
	// the per-message encryption overhead (reserved, above), so it is
	// exactly the plaintext slice size distributor.Split must use for
	// image i.
	chunkLengths := make([]int, 0, len(images))
	activeImages := make([]*stego.CoverImage, 0, len(images))
	for i, img := range images {
		if !alloc.Active[i] {
			continue
		}
		chunkLengths = append(chunkLengths, alloc.Lengths[i])
		activeImages = append(activeImages, img)
	}

	chunks, err := distributor.Split(plaintext, chunkLengths, time.Now().Unix())
	if err != nil {
		return err
	}

	for i, chunk := range chunks {
		ciphertext, err := engine.Send(chunk, userID)
		if err != nil {
			return err
		}
		if err := stego.Embed(activeImages[i], ciphertext); err != nil {
			return err
		}
	}
	return nil
}

// Receive extracts each image's ciphertext, decrypts it individually (each
// carries its own exchange section), and reassembles the resulting
// distributor chunks into the original plaintext.
func Receive(engine *ratchet.Engine, images []*stego.CoverImage) ([]byte, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	chunks := make([][]byte, 0, len(images))
	for _, img := range images {
		ciphertext, err := stego.Extract(img)
		if err != nil {
			return nil, err
		}
		chunk, _, err := engine.Receive(ciphertext)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}

	return distributor.Merge(chunks, time.Now().Unix())
}
