package polar

import (
	"fmt"
	"image"
)

// ImageFormat is the pixel format of a processed image
type ImageFormat int

const (
	// Mono8 is one byte per pixel
	Mono8 ImageFormat = iota

	// RGB8 is three bytes per pixel, in the order given by the image's ChannelOrder
	RGB8
)

// String satisfies fmt.Stringer
func (f ImageFormat) String() string {
	switch f {
	case Mono8:
		return "Mono8"
	case RGB8:
		return "RGB8"
	}
	return fmt.Sprintf("ImageFormat(%d)", int(f))
}

// ChannelOrder is the in-memory order of the color channels of an RGB8 image
type ChannelOrder int

const (
	// OrderRGB stores red first
	OrderRGB ChannelOrder = iota

	// OrderBGR stores blue first.  The color mappers emit this order, which
	// matches a little-endian read of the 0xRRGGBB LUT entries.
	OrderBGR
)

// Image is a processed output image.  It owns Pix.
type Image struct {
	Width  int
	Height int
	Format ImageFormat
	Order  ChannelOrder
	Pix    []byte
}

// NewImage allocates a zeroed image
func NewImage(width, height int, f ImageFormat) *Image {
	img := &Image{Width: width, Height: height, Format: f}
	if f == RGB8 {
		img.Order = OrderBGR
	}
	img.Pix = make([]byte, width*height*img.BytesPerPixel())
	return img
}

// BytesPerPixel is 1 for Mono8 and 3 for RGB8
func (i *Image) BytesPerPixel() int {
	if i.Format == RGB8 {
		return 3
	}
	return 1
}

// BitsPerPixel is 8 or 24
func (i *Image) BitsPerPixel() int {
	return 8 * i.BytesPerPixel()
}

// Stride is the length of one row in bytes
func (i *Image) Stride() int {
	return i.Width * i.BytesPerPixel()
}

// Std converts the image to an image.Image for use with the standard encoders.
// Mono8 shares Pix; RGB8 is copied into an RGBA with the channels in order.
func (i *Image) Std() image.Image {
	rect := image.Rect(0, 0, i.Width, i.Height)
	if i.Format == Mono8 {
		return &image.Gray{Pix: i.Pix, Stride: i.Width, Rect: rect}
	}
	out := image.NewRGBA(rect)
	for src, dst := 0, 0; src+2 < len(i.Pix); src, dst = src+3, dst+4 {
		if i.Order == OrderBGR {
			out.Pix[dst], out.Pix[dst+1], out.Pix[dst+2] = i.Pix[src+2], i.Pix[src+1], i.Pix[src]
		} else {
			out.Pix[dst], out.Pix[dst+1], out.Pix[dst+2] = i.Pix[src], i.Pix[src+1], i.Pix[src+2]
		}
		out.Pix[dst+3] = 0xFF
	}
	return out
}
