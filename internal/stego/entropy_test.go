package stego

import "testing"

func flatRows(width, height, channels int, value byte) [][]byte {
	rows := make([][]byte, height)
	for y := range rows {
		row := make([]byte, width*channels)
		for i := range row {
			row[i] = value
		}
		rows[y] = row
	}
	return rows
}

func TestTileEntropyOfConstantTileIsZero(t *testing.T) {
	rows := flatRows(squareSize, squareSize, 4, 42)
	e := tileEntropy(rows, squareSize, 0, 0, 4)
	if e != 0 {
		t.Fatalf("expected zero entropy for a constant tile, got %v", e)
	}
}

func TestSquaresByEntropySortedDescending(t *testing.T) {
	img := buildNoisyImage(3, 3)
	squares := img.squares()
	if len(squares) != 9 {
		t.Fatalf("expected 9 squares, got %d", len(squares))
	}
	for i := 1; i < len(squares); i++ {
		if squares[i].entropy > squares[i-1].entropy {
			t.Fatalf("squares not sorted by descending entropy at index %d", i)
		}
	}
}

func TestSquaresByEntropyTieBreaksByYThenX(t *testing.T) {
	width, height, channels := squareSize*2, squareSize*2, 4
	rows := flatRows(width, height, channels, 7)
	img := NewSynthetic(width, height, channels, rows)
	squares := img.squares()
	if len(squares) != 4 {
		t.Fatalf("expected 4 equal-entropy squares, got %d", len(squares))
	}
	want := []struct{ x, y int }{{0, 0}, {squareSize, 0}, {0, squareSize}, {squareSize, squareSize}}
	for i, w := range want {
		if squares[i].x != w.x || squares[i].y != w.y {
			t.Fatalf("tie-break order mismatch at %d: got (%d,%d) want (%d,%d)", i, squares[i].x, squares[i].y, w.x, w.y)
		}
	}
}

func TestByteCapacityMatchesChannelCount(t *testing.T) {
	if byteCapacity(4) != 128 {
		t.Fatalf("expected 128 bytes capacity for RGBA, got %d", byteCapacity(4))
	}
	if byteCapacity(3) != 96 {
		t.Fatalf("expected 96 bytes capacity for RGB, got %d", byteCapacity(3))
	}
}
