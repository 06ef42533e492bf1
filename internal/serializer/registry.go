// Package serializer writes a projected phylogeny table in one of the
// supported standard encodings.
package serializer

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"spopconv/internal/models"
)

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ErrUnsupportedFormat is returned for any format without a registered writer.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Options tunes the encoders.
type Options struct {
	PrettyPrint bool
}

// WriterFunc encodes t to w.
type WriterFunc func(w io.Writer, t *models.Table, opts Options) error

// writers maps a format name to its encoder. Entries are added from init()
// in the encoder files.
var writers = map[string]WriterFunc{}

// Register binds a format name to an encoder (last registration wins).
func Register(format string, fn WriterFunc) {
	writers[format] = fn
}

// Formats returns the supported format names in sorted order.
func Formats() []string {
	names := make([]string, 0, len(writers))
	for name := range writers {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Validate returns ErrUnsupportedFormat if format has no encoder.
func Validate(format string) error {
	if _, ok := writers[format]; !ok {
		return fmt.Errorf("%w %q (valid formats: %s)", ErrUnsupportedFormat, format, strings.Join(Formats(), ", "))
	}

	return nil
}

// Write encodes t to w using the named format.
func Write(format string, w io.Writer, t *models.Table, opts Options) error {
	if err := Validate(format); err != nil {
		return err
	}

	return writers[format](w, t, opts)
}
