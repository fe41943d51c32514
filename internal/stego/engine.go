// Package stego implements SteganoChat's entropy-guided LSB steganography
// engine: tiled capacity accounting across one or more cover images,
// proportional payload allocation, and the embed/extract bit operations
// themselves.
package stego

import (
	"encoding/binary"
	"errors"
	"sort"
	"time"

	"steganochat/internal/metrics"
)

// headerBits is the width of the length header written at the front of
// each image's bit stream: square zero carries the chunk length header.
// 4 bytes comfortably bounds any single chunk's length.
const headerBits = 32

var (
	// ErrOversizedData means no allocation across the supplied images can
	// hold the payload.
	ErrOversizedData = errors.New("stego: payload too large for the supplied cover images")
	// ErrInvalidLen means extract decoded a length header exceeding the
	// image's capacity.
	ErrInvalidLen = errors.New("stego: decoded length exceeds image capacity")
)

// imageBudget tracks one cover image's capacity accounting during
// Precompute.
type imageBudget struct {
	index        int
	img          *CoverImage
	squares      []square
	maxSquares   int
	weight       float64 // sum of entropy across this image's squares
	availBytes   int     // maxSquares*cap - R, the most this image could ever carry
	targetBytes  int     // bytes allocated to this image so far
	dropped      bool
}

// Allocation is Precompute's result: per-image payload lengths, in the
// same order as the images passed in. Images that were dropped because
// they couldn't meet their share have a zero length and Active false;
// callers skip them when embedding.
type Allocation struct {
	Lengths []int
	Active  []bool
}

// Precompute determines, for each cover image, the exact payload length it
// must be handed. reserved is the fixed per-chunk overhead (R) the caller
// adds to each payload; Precompute subtracts it, plus the 4-byte length
// header, from each image's raw capacity.
func Precompute(images []*CoverImage, totalLen int, reserved int) (*Allocation, error) {
	budgets := make([]*imageBudget, len(images))
	for i, img := range images {
		squares := img.squares()
		cap := img.byteCapacity()
		// Every image pays the internal 4-byte length header on top
		// of the caller's reserved per-chunk overhead.
		avail := len(squares)*cap - reserved - 4
		if avail < 0 {
			avail = 0
		}
		weight := 0.0
		for _, sq := range squares {
			weight += sq.entropy
		}
		budgets[i] = &imageBudget{
			index:      i,
			img:        img,
			squares:    squares,
			maxSquares: len(squares),
			weight:     weight,
			availBytes: avail,
		}
	}

	totalAvail := 0
	for _, b := range budgets {
		totalAvail += b.availBytes
	}
	if totalAvail < totalLen {
		return nil, ErrOversizedData
	}

	// Iteratively allocate proportional to entropy weight, dropping any
	// image whose proportional share would exceed its hard capacity and
	// redistributing among the rest, until the allocation converges.
	for {
		active := activeBudgets(budgets)
		if len(active) == 0 {
			return nil, ErrOversizedData
		}
		w := totalWeight(active)

		droppedThisRound := false
		for _, b := range active {
			var share int
			if w == 0 {
				share = totalLen / len(active)
			} else {
				share = int(float64(totalLen) * b.weight / w)
			}
			if share > b.availBytes {
				b.dropped = true
				droppedThisRound = true
				metrics.Default().RecordImageDropped()
				continue
			}
			b.targetBytes = share
		}
		if droppedThisRound {
			continue
		}

		if !distributeRemainder(active, totalLen) {
			return nil, ErrOversizedData
		}
		break
	}

	lengths := make([]int, len(images))
	active := make([]bool, len(images))
	for _, b := range budgets {
		if !b.dropped {
			lengths[b.index] = b.targetBytes
			active[b.index] = true
		}
	}
	return &Allocation{Lengths: lengths, Active: active}, nil
}

func activeBudgets(budgets []*imageBudget) []*imageBudget {
	out := make([]*imageBudget, 0, len(budgets))
	for _, b := range budgets {
		if !b.dropped {
			out = append(out, b)
		}
	}
	return out
}

func totalWeight(budgets []*imageBudget) float64 {
	w := 0.0
	for _, b := range budgets {
		w += b.weight
	}
	return w
}

// distributeRemainder pushes the rounding remainder from proportional
// allocation onto images with spare headroom, ordered by descending
// weight, until the allocation sums exactly to totalLen.
func distributeRemainder(active []*imageBudget, totalLen int) bool {
	sum := 0
	for _, b := range active {
		sum += b.targetBytes
	}
	remaining := totalLen - sum
	if remaining == 0 {
		return true
	}

	ordered := append([]*imageBudget{}, active...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].weight > ordered[j].weight })

	if remaining > 0 {
		for _, b := range ordered {
			headroom := b.availBytes - b.targetBytes
			if headroom <= 0 {
				continue
			}
			take := headroom
			if take > remaining {
				take = remaining
			}
			b.targetBytes += take
			remaining -= take
			if remaining == 0 {
				return true
			}
		}
		return remaining == 0
	}

	// remaining < 0: claw back the excess, least-weighted images first.
	for i := len(ordered) - 1; i >= 0 && remaining < 0; i-- {
		b := ordered[i]
		give := b.targetBytes
		if give > -remaining {
			give = -remaining
		}
		b.targetBytes -= give
		remaining += give
	}
	return remaining == 0
}

// usageSquares returns how many squares of this image's ranked list must
// be reserved to embed n payload bytes plus the length header.
func usageSquares(squares []square, cap int, n int) int {
	if n <= 0 {
		return 1
	}
	needed := (n + cap - 1) / cap
	if needed < 1 {
		needed = 1
	}
	if needed > len(squares) {
		needed = len(squares)
	}
	return needed
}

// Embed writes payload into img's highest-entropy squares, preceded by a
// 4-byte big-endian length header.
func Embed(img *CoverImage, payload []byte) error {
	start := time.Now()
	squares := img.squares()
	cap := img.byteCapacity()
	usage := usageSquares(squares, cap, len(payload)+4)
	selected := squares[:usage]

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	bits := make([]byte, 0, (len(header)+len(payload))*8)
	bits = appendBits(bits, header[:])
	bits = appendBits(bits, payload)

	positions := flattenPositions(selected, img.Channels)
	if len(bits) > len(positions) {
		return ErrOversizedData
	}
	for i, bit := range bits {
		p := positions[i]
		img.setLSB(p.x, p.y, p.ch, bit)
	}

	if totalCap := len(squares) * cap; totalCap > 0 {
		metrics.Default().RecordEmbedCapacityUsed(float64(len(payload)) / float64(totalCap))
	}
	metrics.Default().RecordEmbedDuration(time.Since(start).Seconds())
	return nil
}

// Extract recomputes square ranking, reads the length header from the
// highest-entropy squares, then reads that many payload bytes.
func Extract(img *CoverImage) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.Default().RecordExtractDuration(time.Since(start).Seconds()) }()

	squares := img.squares()
	cap := img.byteCapacity()

	// We don't know the payload length yet, so read the header first using
	// only the squares that could possibly hold it, then re-derive exactly
	// how many squares the full read needs.
	headerSquares := usageSquares(squares, cap, 4)
	headerPositions := flattenPositions(squares[:headerSquares], img.Channels)
	if len(headerPositions) < headerBits {
		return nil, ErrInvalidLen
	}
	headerByteBits := make([]byte, headerBits)
	for i := 0; i < headerBits; i++ {
		p := headerPositions[i]
		headerByteBits[i] = img.getLSB(p.x, p.y, p.ch)
	}
	length := int(binary.BigEndian.Uint32(bitsToBytes(headerByteBits)))

	maxCapacity := len(squares) * cap
	if length < 0 || length > maxCapacity {
		return nil, ErrInvalidLen
	}

	usage := usageSquares(squares, cap, length+4)
	positions := flattenPositions(squares[:usage], img.Channels)
	needed := headerBits + length*8
	if needed > len(positions) {
		return nil, ErrInvalidLen
	}

	payloadBits := make([]byte, length*8)
	for i := 0; i < length*8; i++ {
		p := positions[headerBits+i]
		payloadBits[i] = img.getLSB(p.x, p.y, p.ch)
	}
	return bitsToBytes(payloadBits), nil
}

// bitPosition is one (x, y, channel-offset) byte slot a single bit is
// written to or read from.
type bitPosition struct {
	x, y, ch int
}

// flattenPositions lists every bit slot across the given squares, in
// descending-entropy square order and canonical (row, col, channel) order
// within each square — the ordering embed and extract must agree on.
func flattenPositions(squares []square, channels int) []bitPosition {
	out := make([]bitPosition, 0, len(squares)*squareSize*squareSize*channels)
	for _, sq := range squares {
		for dy := 0; dy < squareSize; dy++ {
			for dx := 0; dx < squareSize; dx++ {
				for ch := 0; ch < channels; ch++ {
					out = append(out, bitPosition{x: sq.x + dx, y: sq.y + dy, ch: ch})
				}
			}
		}
	}
	return out
}

func appendBits(dst []byte, data []byte) []byte {
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			dst = append(dst, (b>>uint(i))&1)
		}
	}
	return dst
}

func bitsToBytes(bits []byte) []byte {
	out := make([]byte, len(bits)/8)
	for i := range out {
		var b byte
		for j := 0; j < 8; j++ {
			b = (b << 1) | (bits[i*8+j] & 1)
		}
		out[i] = b
	}
	return out
}
