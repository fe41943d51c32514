package stego

import "math"

// squareSize is the fixed tile dimension the engine partitions an image
// into; residual pixels on the right/bottom edges are ignored.
const squareSize = 16

// square identifies one 16x16 tile and its entropy score.
type square struct {
	x, y    int
	entropy float64
}

// squaresByEntropy returns every full 16x16 tile of an image with channels
// per pixel, ranked by descending Shannon entropy of the pixel-value
// histogram within the tile (computed across all channels), tie-broken by
// (y, x) lexicographic order. The histogram ignores each byte's least
// significant bit, so embedding never changes a tile's score and Extract
// ranks the squares exactly as Embed did.
func squaresByEntropy(pixels [][]byte, width, height, channels int) []square {
	cols := width / squareSize
	rows := height / squareSize

	squares := make([]square, 0, cols*rows)
	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			squares = append(squares, square{
				x:       tx * squareSize,
				y:       ty * squareSize,
				entropy: tileEntropy(pixels, width, tx*squareSize, ty*squareSize, channels),
			})
		}
	}

	sortSquares(squares)
	return squares
}

func sortSquares(squares []square) {
	// Insertion sort keeps the comparator simple to audit and the package
	// allocation-free; tile counts are small (a handful of squares per
	// reasonably sized cover image).
	for i := 1; i < len(squares); i++ {
		j := i
		for j > 0 && squareLess(squares[j], squares[j-1]) {
			squares[j], squares[j-1] = squares[j-1], squares[j]
			j--
		}
	}
}

// squareLess orders by descending entropy, then ascending (y, x).
func squareLess(a, b square) bool {
	if a.entropy != b.entropy {
		return a.entropy > b.entropy
	}
	if a.y != b.y {
		return a.y < b.y
	}
	return a.x < b.x
}

func tileEntropy(pixels [][]byte, width, x0, y0, channels int) float64 {
	var histogram [256]int
	count := 0
	for dy := 0; dy < squareSize; dy++ {
		row := pixels[y0+dy]
		base := x0 * channels
		for dx := 0; dx < squareSize*channels; dx++ {
			histogram[row[base+dx]&^1]++
			count++
		}
	}
	_ = width

	var entropy float64
	for _, n := range histogram {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(count)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// byteCapacity is the number of data bytes one square can carry: one bit
// per byte position, 16*16*channels positions, 8 bits per byte.
func byteCapacity(channels int) int {
	return squareSize * squareSize * channels / 8
}
