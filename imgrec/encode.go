package imgrec

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/polarlab/polarcam/polar"
)

type encoder func(w io.Writer, p Params, data []byte) error

func encoderFor(ext string, quality int) (encoder, error) {
	switch strings.ToLower(ext) {
	case ".png":
		return func(w io.Writer, p Params, data []byte) error {
			return png.Encode(w, ToImage(p, data))
		}, nil
	case ".jpg", ".jpeg":
		return func(w io.Writer, p Params, data []byte) error {
			return jpeg.Encode(w, ToImage(p, data), &jpeg.Options{Quality: quality})
		}, nil
	case ".bmp":
		return func(w io.Writer, p Params, data []byte) error {
			return bmp.Encode(w, ToImage(p, data))
		}, nil
	case ".tif", ".tiff":
		return func(w io.Writer, p Params, data []byte) error {
			return tiff.Encode(w, ToImage(p, data), nil)
		}, nil
	case ".raw":
		return func(w io.Writer, p Params, data []byte) error {
			_, err := w.Write(data[:p.Size()])
			return err
		}, nil
	case ".fits", ".fit":
		return func(w io.Writer, p Params, data []byte) error {
			return WriteFits(w, nil, p, data)
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
}

// Encode writes data, described by p, to w in the format implied by ext
func Encode(w io.Writer, ext string, p Params, data []byte) error {
	if !p.valid() {
		return fmt.Errorf("%w: %+v", ErrNoParams, p)
	}
	if len(data) < p.Size() {
		return fmt.Errorf("image of %+v needs %d bytes, got %d", p, p.Size(), len(data))
	}
	enc, err := encoderFor(ext, DefaultJpegQuality)
	if err != nil {
		return err
	}
	return enc(w, p, data)
}

// ToImage wraps raw bytes in an image.Image.  8 bit data becomes a Gray, 16
// bit little-endian data a Gray16, and 24 bit data an RGBA.
func ToImage(p Params, data []byte) image.Image {
	rect := image.Rect(0, 0, p.Width, p.Height)
	switch p.BitsPerPixel {
	case 16:
		img := image.NewGray16(rect)
		for i := 0; i < p.Width*p.Height; i++ {
			binary.BigEndian.PutUint16(img.Pix[2*i:], binary.LittleEndian.Uint16(data[2*i:]))
		}
		return img
	case 24:
		img := image.NewRGBA(rect)
		for i := 0; i < p.Width*p.Height; i++ {
			src, dst := data[3*i:3*i+3], img.Pix[4*i:4*i+4]
			if p.BGR {
				dst[0], dst[1], dst[2] = src[2], src[1], src[0]
			} else {
				copy(dst, src)
			}
			dst[3] = 0xFF
		}
		return img
	}
	return &image.Gray{Pix: data[:p.Width*p.Height], Stride: p.Width, Rect: rect}
}

// ParamsOf describes a processed image
func ParamsOf(img *polar.Image) Params {
	return Params{
		Width:        img.Width,
		Height:       img.Height,
		BitsPerPixel: img.BitsPerPixel(),
		BGR:          img.Format == polar.RGB8 && img.Order == polar.OrderBGR,
	}
}

// SaveImage sets the writer's parameters from img and saves it
func (w *Writer) SaveImage(img *polar.Image) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.params = ParamsOf(img)
	return w.save(img.Pix)
}

// FromImage is the inverse of ToImage for Gray, Gray16 and RGBA images.  Other
// image types are converted to RGBA first.
func FromImage(img image.Image) (Params, []byte) {
	b := img.Bounds()
	p := Params{Width: b.Dx(), Height: b.Dy()}
	switch im := img.(type) {
	case *image.Gray:
		p.BitsPerPixel = 8
		out := make([]byte, 0, p.Size())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := im.PixOffset(b.Min.X, y)
			out = append(out, im.Pix[off:off+p.Width]...)
		}
		return p, out
	case *image.Gray16:
		p.BitsPerPixel = 16
		out := make([]byte, p.Size())
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				binary.LittleEndian.PutUint16(out[i:], im.Gray16At(x, y).Y)
				i += 2
			}
		}
		return p, out
	}
	p.BitsPerPixel = 24
	out := make([]byte, 0, p.Size())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out = append(out, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
	}
	return p, out
}

// FrameImage describes the samples of a raw sensor frame: 8 bit formats as-is,
// deeper formats unpacked to little-endian 16 bit words
func FrameImage(f polar.Frame) (Params, []byte, error) {
	p := Params{Width: f.Width, Height: f.Height, BitsPerPixel: 8}
	if f.Format == polar.PolarizeMono8 {
		return p, f.Data, f.Validate()
	}
	samples, err := f.Samples()
	if err != nil {
		return p, nil, err
	}
	p.BitsPerPixel = 16
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], s)
	}
	return p, buf, nil
}
