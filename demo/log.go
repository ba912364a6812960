package demo

import (
	"io"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/lumberjack"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogging sends the standard logger to stderr and, if fn is not empty,
// to a size-rotated log file.  The returned closer closes the file.
func SetupLogging(fn string) io.Closer {
	if fn == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}
	l := &lumberjack.Logger{
		Filename:   fn,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	log.SetOutput(io.MultiWriter(os.Stderr, l))
	return l
}

// Bytes formats a byte count for progress lines, e.g. "5.0 MB"
func Bytes(n int) string {
	return humanize.Bytes(uint64(n))
}
