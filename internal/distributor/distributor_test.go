package distributor

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

const fixedNow = 1_700_000_000

func TestSplitMergeRoundTrip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	lengths := []int{10, 10, len(data) - 20}

	chunks, err := Split(data, lengths, fixedNow)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	merged, err := Merge(chunks, fixedNow)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !bytes.Equal(merged, data) {
		t.Fatalf("merged data mismatch: got %q want %q", merged, data)
	}
}

func TestSplitRejectsLengthMismatch(t *testing.T) {
	_, err := Split([]byte("hello"), []int{1, 1}, fixedNow)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestMergeOutOfOrderChunks(t *testing.T) {
	data := []byte("0123456789abcdef")
	chunks, err := Split(data, []int{4, 4, 4, 4}, fixedNow)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	shuffled := append([][]byte{}, chunks...)
	r := rand.New(rand.NewSource(1))
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	merged, err := Merge(shuffled, fixedNow)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !bytes.Equal(merged, data) {
		t.Fatalf("merged data mismatch after shuffle: got %q want %q", merged, data)
	}
}

func TestMergeEmpty(t *testing.T) {
	if _, err := Merge(nil, fixedNow); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestMergeIncomplete(t *testing.T) {
	data := []byte("0123456789abcdef")
	chunks, err := Split(data, []int{4, 4, 4, 4}, fixedNow)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if _, err := Merge(chunks[:3], fixedNow); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
}

func TestMergeDuplicate(t *testing.T) {
	data := []byte("0123456789abcdef")
	chunks, err := Split(data, []int{4, 4, 4, 4}, fixedNow)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	withDup := append(append([][]byte{}, chunks...), chunks[0])
	if _, err := Merge(withDup, fixedNow); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestMergeMultipleMessages(t *testing.T) {
	data1, _ := Split([]byte("aaaa"), []int{4}, fixedNow)
	data2, _ := Split([]byte("bbbb"), []int{4}, fixedNow)
	mixed := append(append([][]byte{}, data1...), data2...)
	if _, err := Merge(mixed, fixedNow); !errors.Is(err, ErrMultipleMessages) {
		t.Fatalf("expected ErrMultipleMessages, got %v", err)
	}
}

func TestCheckRejectsShortChunk(t *testing.T) {
	if _, err := Check([][]byte{make([]byte, 10)}, fixedNow); !errors.Is(err, ErrBadChunkSize) {
		t.Fatalf("expected ErrBadChunkSize, got %v", err)
	}
}

func TestCheckRejectsFutureTimestamp(t *testing.T) {
	chunks, err := Split([]byte("abcd"), []int{4}, fixedNow)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if _, err := Check(chunks, fixedNow-1); !errors.Is(err, ErrFutureTimestamp) {
		t.Fatalf("expected ErrFutureTimestamp, got %v", err)
	}
}

func TestCheckIsPermutationInvariant(t *testing.T) {
	data := []byte("0123456789abcdef")
	chunks, err := Split(data, []int{4, 4, 4, 4}, fixedNow)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	groupsA, err := Check(chunks, fixedNow)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	reversed := make([][]byte, len(chunks))
	for i, c := range chunks {
		reversed[len(chunks)-1-i] = c
	}
	groupsB, err := Check(reversed, fixedNow)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	if len(groupsA) != 1 || len(groupsB) != 1 {
		t.Fatalf("expected exactly one group in each ordering")
	}
	if len(groupsA[0]) != len(groupsB[0]) {
		t.Fatalf("group sizes differ between orderings")
	}
	for i := range groupsA[0] {
		if groupsA[0][i].index != groupsB[0][i].index {
			t.Fatalf("groups disagree on index order after permutation")
		}
	}
}
