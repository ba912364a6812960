package imgrec

import (
	"encoding/binary"
	"io"

	"github.com/astrogo/fitsio"
)

// WriteFits streams a single image to w as a FITS primary HDU.
//
// 8 bit data is written with BITPIX 8.  16 bit data is offset by BZERO 32768
// into signed words.  24 bit data becomes a width x height x 3 cube of 8 bit
// planes ordered R, G, B.
func WriteFits(w io.Writer, metadata []fitsio.Card, p Params, data []byte) error {
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()

	n := p.Width * p.Height
	dims := []int{p.Width, p.Height}
	var (
		bitpix  = 8
		payload interface{}
	)
	switch p.BitsPerPixel {
	case 16:
		bitpix = 16
		metadata = append(metadata, fitsio.Card{Name: "BZERO", Value: 32768}, fitsio.Card{Name: "BSCALE", Value: 1.0})
		ints := make([]int16, n)
		for i := range ints {
			ints[i] = int16(binary.LittleEndian.Uint16(data[2*i:]) - 32768)
		}
		payload = ints
	case 24:
		dims = append(dims, 3)
		planes := make([]byte, 3*n)
		r, g, b := 0, 1, 2
		if p.BGR {
			r, b = 2, 0
		}
		for i := 0; i < n; i++ {
			planes[i] = data[3*i+r]
			planes[n+i] = data[3*i+g]
			planes[2*n+i] = data[3*i+b]
		}
		payload = planes
	default:
		payload = append([]byte(nil), data[:n]...)
	}

	im := fitsio.NewImage(bitpix, dims)
	defer im.Close()
	if err := im.Header().Append(metadata...); err != nil {
		return err
	}
	if err := im.Write(payload); err != nil {
		return err
	}
	return fits.Write(im)
}
