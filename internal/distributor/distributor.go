// Package distributor implements SteganoChat's chunk splitting and
// reassembly: a fixed 32-byte header wraps each piece of a split message so
// chunks can be re-grouped and reordered after traveling through
// independent carrier images.
package distributor

import (
	"bytes"
	"crypto/rand"
	"errors"
	"sort"

	"steganochat/internal/codec"
)

// HeaderSize is the fixed width of a chunk's envelope: msg_id(8) ||
// total(8) || index(8) || timestamp(8).
const HeaderSize = 32

var (
	// ErrLengthMismatch means the requested chunk_lengths don't sum to the
	// payload length.
	ErrLengthMismatch = errors.New("distributor: chunk lengths do not sum to payload length")
	// ErrBadChunkSize means a chunk is shorter than HeaderSize.
	ErrBadChunkSize = errors.New("distributor: chunk shorter than header size")
	// ErrFutureTimestamp means a chunk's timestamp is later than now.
	ErrFutureTimestamp = errors.New("distributor: chunk timestamp is in the future")
	// ErrIndexOutOfRange means a chunk's index is >= its group's total.
	ErrIndexOutOfRange = errors.New("distributor: chunk index out of range")
	// ErrEmpty means merge was called with no chunks.
	ErrEmpty = errors.New("distributor: no chunks supplied")
	// ErrMultipleMessages means merge's input spans more than one
	// (msg_id, total, timestamp) group.
	ErrMultipleMessages = errors.New("distributor: chunks belong to more than one message")
	// ErrIncomplete means a group is missing one or more indices.
	ErrIncomplete = errors.New("distributor: message is missing chunks")
	// ErrDuplicate means a group has more than one chunk at the same index.
	ErrDuplicate = errors.New("distributor: duplicate chunk index")
)

// Split allocates one random message ID, stamps every chunk with now, and
// emits len(chunkLengths) chunks whose payloads are consecutive slices of
// data sized per chunkLengths. The lengths must sum to
// len(data); this implementation treats a mismatch as a hard error rather
// than silently dropping or padding data.
func Split(data []byte, chunkLengths []int, now int64) ([][]byte, error) {
	total := 0
	for _, n := range chunkLengths {
		total += n
	}
	if total != len(data) {
		return nil, ErrLengthMismatch
	}

	msgID := make([]byte, 8)
	if _, err := rand.Read(msgID); err != nil {
		return nil, err
	}

	chunks := make([][]byte, len(chunkLengths))
	offset := 0
	for i, n := range chunkLengths {
		header := make([]byte, 0, HeaderSize)
		header = append(header, msgID...)
		header = codec.PutUint64(header, uint64(len(chunkLengths)))
		header = codec.PutUint64(header, uint64(i))
		header = codec.PutUint64(header, uint64(now))
		chunk := append(header, data[offset:offset+n]...)
		chunks[i] = chunk
		offset += n
	}
	return chunks, nil
}

// chunkHeader is the parsed fixed-width header of one chunk.
type chunkHeader struct {
	msgID     string
	total     uint64
	index     uint64
	timestamp uint64
	payload   []byte
}

func parseHeader(chunk []byte, now int64) (chunkHeader, error) {
	if len(chunk) < HeaderSize {
		return chunkHeader{}, ErrBadChunkSize
	}
	r := codec.NewReader(chunk)
	msgID, _ := r.ReadN(8)
	total, _ := r.ReadUint64()
	index, _ := r.ReadUint64()
	timestamp, _ := r.ReadUint64()
	if timestamp > uint64(now) {
		return chunkHeader{}, ErrFutureTimestamp
	}
	if index >= total {
		return chunkHeader{}, ErrIndexOutOfRange
	}
	return chunkHeader{
		msgID:     string(msgID),
		total:     total,
		index:     index,
		timestamp: timestamp,
		payload:   r.Rest(),
	}, nil
}

type group struct {
	msgID     string
	total     uint64
	timestamp uint64
	chunks    []chunkHeader
}

func groupKey(h chunkHeader) string {
	return h.msgID + "|" + string(codec.PutUint64(nil, h.total)) + "|" + string(codec.PutUint64(nil, h.timestamp))
}

// Check groups chunks by (msg_id, total, timestamp) and sorts each group by
// index, validating every chunk's basic shape along the way. Groups are
// returned in first-seen order.
func Check(chunks [][]byte, now int64) ([][]chunkHeader, error) {
	order := make([]string, 0)
	byKey := make(map[string]*group)

	for _, c := range chunks {
		h, err := parseHeader(c, now)
		if err != nil {
			return nil, err
		}
		key := groupKey(h)
		g, ok := byKey[key]
		if !ok {
			g = &group{msgID: h.msgID, total: h.total, timestamp: h.timestamp}
			byKey[key] = g
			order = append(order, key)
		}
		g.chunks = append(g.chunks, h)
	}

	groups := make([][]chunkHeader, 0, len(order))
	for _, key := range order {
		g := byKey[key]
		sort.Slice(g.chunks, func(i, j int) bool { return g.chunks[i].index < g.chunks[j].index })
		groups = append(groups, g.chunks)
	}
	return groups, nil
}

// Merge requires Check to have produced exactly one group, that group to
// contain every index 0..total-1 with no duplicates, and concatenates the
// payload portions in index order.
func Merge(chunks [][]byte, now int64) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, ErrEmpty
	}
	groups, err := Check(chunks, now)
	if err != nil {
		return nil, err
	}
	if len(groups) > 1 {
		return nil, ErrMultipleMessages
	}
	group := groups[0]

	total := group[0].total
	seen := make(map[uint64]bool, len(group))
	for _, h := range group {
		if seen[h.index] {
			return nil, ErrDuplicate
		}
		seen[h.index] = true
	}
	if uint64(len(seen)) != total {
		return nil, ErrIncomplete
	}

	var out bytes.Buffer
	for _, h := range group {
		out.Write(h.payload)
	}
	return out.Bytes(), nil
}
