package stego

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
)

// ErrUnsupportedFormat is returned when decoding a cover image that isn't
// RGBA or RGB at the pixel level once normalized.
var ErrUnsupportedFormat = errors.New("stego: unsupported image pixel format")

// CoverImage is an opened carrier image: raw pixel rows plus the channel
// count the entropy and capacity math is computed against.
// RGBA covers carry 4 channels (128 B/square); RGB covers carry 3 (96
// B/square).
type CoverImage struct {
	Width, Height int
	Channels      int
	rows          [][]byte // each row is Width*Channels bytes
}

// DecodePNG opens a PNG cover image and normalizes it to 8-bit-per-channel
// pixel rows, carrying 4 channels for a source with a real alpha channel
// and 3 for a true-color source without one.
func DecodePNG(r io.Reader) (*CoverImage, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, err
	}
	return fromImage(img)
}

// channelsForImage reports the true per-pixel channel count of a decoded
// PNG from its concrete Go image type: the stdlib decoder only produces
// image.RGBA/image.RGBA64 for truecolor PNGs with no alpha chunk, and
// image.NRGBA/image.NRGBA64 when one is present.
func channelsForImage(img image.Image) (int, error) {
	switch img.(type) {
	case *image.RGBA, *image.RGBA64:
		return 3, nil
	case *image.NRGBA, *image.NRGBA64:
		return 4, nil
	default:
		return 0, ErrUnsupportedFormat
	}
}

func fromImage(img image.Image) (*CoverImage, error) {
	channels, err := channelsForImage(img)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	rows := make([][]byte, height)
	for y := 0; y < height; y++ {
		row := make([]byte, width*channels)
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			base := x * channels
			row[base+0] = byte(r >> 8)
			row[base+1] = byte(g >> 8)
			row[base+2] = byte(b >> 8)
			if channels == 4 {
				row[base+3] = byte(a >> 8)
			}
		}
		rows[y] = row
	}
	return &CoverImage{Width: width, Height: height, Channels: channels, rows: rows}, nil
}

// EncodePNG writes the cover image's current pixel state (post-embed) as a
// lossless PNG, preserving the source's channel count: a 3-channel cover
// is written fully opaque, which the PNG encoder stores without an alpha
// channel, matching what DecodePNG would read back.
func (c *CoverImage) EncodePNG(w io.Writer) error {
	out := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	for y := 0; y < c.Height; y++ {
		row := c.rows[y]
		for x := 0; x < c.Width; x++ {
			base := x * c.Channels
			a := byte(0xff)
			if c.Channels == 4 {
				a = row[base+3]
			}
			out.SetRGBA(x, y, color.RGBA{R: row[base+0], G: row[base+1], B: row[base+2], A: a})
		}
	}
	return png.Encode(w, out)
}

// NewSynthetic builds an in-memory CoverImage directly from pixel rows,
// for callers (tests, and non-PNG backends) that already hold raw pixel
// data rather than an encoded file.
func NewSynthetic(width, height, channels int, rows [][]byte) *CoverImage {
	return &CoverImage{Width: width, Height: height, Channels: channels, rows: rows}
}

func (c *CoverImage) squares() []square {
	return squaresByEntropy(c.rows, c.Width, c.Height, c.Channels)
}

func (c *CoverImage) byteCapacity() int {
	return byteCapacity(c.Channels)
}

// setLSB sets the least-significant bit of the byte at (x, y, channel) to
// bit (0 or 1).
func (c *CoverImage) setLSB(x, y, channelOffset int, bit byte) {
	idx := x*c.Channels + channelOffset
	c.rows[y][idx] = (c.rows[y][idx] &^ 1) | bit
}

func (c *CoverImage) getLSB(x, y, channelOffset int) byte {
	idx := x*c.Channels + channelOffset
	return c.rows[y][idx] & 1
}
