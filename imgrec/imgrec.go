// Package imgrec contains an image writer used to save processed and raw
// frames to disk with patterned, incrementing file names.
//
// A pattern is a path whose file name may contain tags in angle brackets.
// <count> is replaced by the writer's counter, zero padded to eight digits,
// which is incremented after every save.  <timestamp> is replaced by the last
// value given to SetTimestamp.  Any other tag is replaced by the value given to
// UpdateTag, or left as-is if it has none.
package imgrec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// DefaultPattern is the pattern of a new Writer
const DefaultPattern = "savedimages/image<count>.jpg"

// DefaultJpegQuality is the quality used by SetJpeg when none is given
const DefaultJpegQuality = 75

var (
	// ErrNoParams is returned when saving before the image parameters are known
	ErrNoParams = errors.New("image parameters not set")

	// ErrUnsupportedExtension is returned when no encoder exists for the extension
	ErrUnsupportedExtension = errors.New("unsupported file extension")

	tagRE = regexp.MustCompile(`<([A-Za-z0-9_]+)>`)
)

// Params describes the raw bytes handed to Save
type Params struct {
	Width        int
	Height       int
	BitsPerPixel int

	// BGR is true when 24 bit data is stored blue first
	BGR bool
}

// Size is the number of bytes an image with these parameters occupies
func (p Params) Size() int {
	return p.Width * p.Height * ((p.BitsPerPixel + 7) / 8)
}

func (p Params) valid() bool {
	switch p.BitsPerPixel {
	case 8, 16, 24:
	default:
		return false
	}
	return p.Width > 0 && p.Height > 0
}

// Writer saves images to patterned file names.  It is safe for concurrent use.
type Writer struct {
	mu sync.Mutex

	params  Params
	dir     string
	base    string
	ext     string
	count   uint64
	stamp   uint64
	tags    map[string]string
	last    string
	quality int

	// enabled is a flag unused by this struct that allows consumers to disable
	// its use in their code
	enabled bool
}

// NewWriter returns a writer with the given parameters and pattern.  An empty
// pattern selects DefaultPattern.
func NewWriter(p Params, pattern string) *Writer {
	if pattern == "" {
		pattern = DefaultPattern
	}
	w := &Writer{params: p, tags: map[string]string{}, quality: DefaultJpegQuality}
	w.setPattern(pattern)
	return w
}

func (w *Writer) setPattern(pattern string) {
	w.dir = filepath.Dir(pattern)
	name := filepath.Base(pattern)
	w.ext = filepath.Ext(name)
	w.base = strings.TrimSuffix(name, w.ext)
}

// Enable sets the flag consumers check before writing automatically
func (w *Writer) Enable(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enabled = on
}

// IsEnabled returns the flag set by Enable
func (w *Writer) IsEnabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

// SetParams replaces the parameters used to interpret the bytes given to Save
func (w *Writer) SetParams(p Params) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.params = p
}

// Params returns the current image parameters
func (w *Writer) Params() Params {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.params
}

// SetFileNamePattern replaces the pattern.  The counter is not reset.
func (w *Writer) SetFileNamePattern(pattern string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setPattern(pattern)
}

// SetExtension replaces the extension of the pattern.  The leading dot is
// optional.
func (w *Writer) SetExtension(ext string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	w.ext = ext
}

// SetJpeg switches to JPEG output at the given quality (1-100).  Quality zero
// selects DefaultJpegQuality.
func (w *Writer) SetJpeg(quality int) {
	if quality <= 0 {
		quality = DefaultJpegQuality
	}
	if quality > 100 {
		quality = 100
	}
	w.SetExtension(".jpg")
	w.mu.Lock()
	w.quality = quality
	w.mu.Unlock()
}

// SetPng switches to PNG output
func (w *Writer) SetPng() { w.SetExtension(".png") }

// SetBmp switches to BMP output
func (w *Writer) SetBmp() { w.SetExtension(".bmp") }

// SetTiff switches to TIFF output
func (w *Writer) SetTiff() { w.SetExtension(".tiff") }

// SetRaw switches to raw output
func (w *Writer) SetRaw() { w.SetExtension(".raw") }

// SetFits switches to FITS output
func (w *Writer) SetFits() { w.SetExtension(".fits") }

// UpdateTag sets the replacement for <tag>.  The count and timestamp tags are
// set with SetCount and SetTimestamp.
func (w *Writer) UpdateTag(tag, value string) {
	tag = strings.Trim(tag, "<>")
	w.mu.Lock()
	defer w.mu.Unlock()
	switch tag {
	case "count":
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			w.count = n
		}
	case "timestamp":
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			w.stamp = n
		}
	default:
		w.tags[tag] = value
	}
}

// SetCount sets the value <count> takes on the next save
func (w *Writer) SetCount(n uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.count = n
}

// Count is the value <count> takes on the next save
func (w *Writer) Count() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// SetTimestamp sets the value of <timestamp>.  It is not advanced by saving.
func (w *Writer) SetTimestamp(ts uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stamp = ts
}

// Pattern returns the full pattern, tags unreplaced
func (w *Writer) Pattern() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return filepath.Join(w.dir, w.base+w.ext)
}

// Path returns the folder images are written to.  Tags are not replaced.
func (w *Writer) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

// Extension returns the extension, including the leading dot
func (w *Writer) Extension() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ext
}

// PeekFileName returns the path the next save will write to
func (w *Writer) PeekFileName() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fileName()
}

// LastFileName returns the path of the last successful save, or "" if there
// has not been one
func (w *Writer) LastFileName() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// fileName substitutes tags in both the folder and the base name
func (w *Writer) fileName() string {
	return filepath.Join(w.expand(w.dir), w.expand(w.base)+w.ext)
}

func (w *Writer) expand(s string) string {
	return tagRE.ReplaceAllStringFunc(s, func(tag string) string {
		key := tag[1 : len(tag)-1]
		switch key {
		case "count":
			return fmt.Sprintf("%08d", w.count)
		case "timestamp":
			return strconv.FormatUint(w.stamp, 10)
		}
		if v, ok := w.tags[key]; ok {
			return v
		}
		return tag
	})
}

// Save encodes data, interpreted with the writer's parameters, to the next
// file name.  Missing folders are created.  The counter is incremented only if
// the file is written.
func (w *Writer) Save(data []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.save(data)
}

func (w *Writer) save(data []byte) (string, error) {
	if !w.params.valid() {
		return "", fmt.Errorf("%w: %+v", ErrNoParams, w.params)
	}
	if len(data) < w.params.Size() {
		return "", fmt.Errorf("image of %+v needs %d bytes, got %d", w.params, w.params.Size(), len(data))
	}
	fn := w.fileName()
	enc, err := encoderFor(w.ext, w.quality)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fn), 0777); err != nil {
		return "", err
	}
	f, err := os.Create(fn)
	if err != nil {
		return "", err
	}
	err = enc(f, w.params, data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(fn)
		return "", err
	}
	w.last = fn
	w.count++
	return fn, nil
}
