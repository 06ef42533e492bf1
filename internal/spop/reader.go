// Package spop reads Avida structured population (.spop) files into a
// header-driven table of raw source columns.
package spop

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"spopconv/internal/models"
)

// FormatMarker starts the line that declares the column layout.
const FormatMarker = "#format"

const maxLineBytes = 64 * 1024 * 1024

// Reader errors.
var (
	ErrMissingHeader  = errors.New("no #format line found")
	ErrDuplicateField = errors.New("duplicate field in #format line")
	ErrExcessTokens   = errors.New("data line has more tokens than header fields")
)

var numberPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Options controls how data lines are split into fields.
type Options struct {
	MissingToken string
	SetDelimiter string
	SetFields    []string
	Strict       bool
}

// DefaultOptions returns the settings matching Avida's default .spop output.
func DefaultOptions() Options {
	return Options{
		MissingToken: "NONE",
		SetDelimiter: ",",
		SetFields:    []string{"parents", "cells", "gest_offset", "lineage"},
	}
}

// Document is the parsed content of a source file.
type Document struct {
	Table       *models.Table
	Header      []string
	DataLines   int
	ExcessLines int
	ShortLines  int
}

// ReadFile opens path and reads it as a source file.
func ReadFile(path string, opts Options) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer f.Close()

	doc, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}

// Read locates the #format header and parses every following data line.
func Read(r io.Reader, opts Options) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	header, lineNo, err := LocateHeader(scanner)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(header))
	for _, field := range header {
		if seen[field] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, field)
		}

		seen[field] = true
	}

	setField := make(map[string]bool, len(opts.SetFields))
	for _, f := range opts.SetFields {
		setField[f] = true
	}

	values := make([][]models.Value, len(header))
	doc := &Document{Header: header}

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		tokens := strings.Split(line, " ")

		switch {
		case len(tokens) > len(header):
			if opts.Strict {
				return nil, fmt.Errorf("%w: line %d has %d tokens, header has %d",
					ErrExcessTokens, lineNo, len(tokens), len(header))
			}

			doc.ExcessLines++
		case len(tokens) < len(header):
			doc.ShortLines++
		}

		for i, field := range header {
			token := opts.MissingToken
			if i < len(tokens) {
				token = tokens[i]
			}

			if setField[field] {
				values[i] = append(values[i], models.StringListValue(strings.Split(token, opts.SetDelimiter)))
			} else {
				values[i] = append(values[i], models.StringValue(token))
			}
		}

		doc.DataLines++
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}

	columns := make([]*models.Column, len(header))
	for i, field := range header {
		columns[i] = buildColumn(field, values[i], setField[field])
	}

	table, err := models.NewTable(columns...)
	if err != nil {
		return nil, err
	}

	doc.Table = table

	return doc, nil
}

// LocateHeader advances scanner past the first line starting with the format
// marker and returns its field names together with the number of lines read.
func LocateHeader(scanner *bufio.Scanner) ([]string, int, error) {
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if !strings.HasPrefix(line, FormatMarker) {
			continue
		}

		fields := strings.TrimSpace(strings.ReplaceAll(line, FormatMarker, ""))

		return strings.Split(fields, " "), lineNo, nil
	}

	if err := scanner.Err(); err != nil {
		return nil, lineNo, fmt.Errorf("failed to read source: %w", err)
	}

	return nil, lineNo, ErrMissingHeader
}

// buildColumn types a raw column. Scalar columns in which every value is a
// JSON number become numeric; anything else stays a string column.
func buildColumn(name string, values []models.Value, isSet bool) *models.Column {
	if values == nil {
		values = []models.Value{}
	}

	if isSet {
		return &models.Column{Name: name, Kind: models.KindStringList, Values: values}
	}

	if len(values) == 0 {
		return &models.Column{Name: name, Kind: models.KindString, Values: values}
	}

	for _, v := range values {
		if !IsNumber(v.Str) {
			return &models.Column{Name: name, Kind: models.KindString, Values: values}
		}
	}

	numeric := make([]models.Value, len(values))
	for i, v := range values {
		numeric[i] = models.NumberValue(v.Str)
	}

	return &models.Column{Name: name, Kind: models.KindNumber, Values: numeric}
}

// IsNumber reports whether s is a number in JSON syntax.
func IsNumber(s string) bool {
	return numberPattern.MatchString(s)
}
