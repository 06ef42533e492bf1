package serializer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"spopconv/internal/models"
)

// ErrNoIdentity is returned when the table has no integer id column to key on.
var ErrNoIdentity = errors.New("table has no integer id column")

func init() { Register(FormatJSON, WriteJSON) }

// WriteJSON writes an object keyed by id. Each value is an object holding
// the remaining columns in table order. Keys and rows keep table order.
func WriteJSON(w io.Writer, t *models.Table, opts Options) error {
	ids, ok := t.Column(models.ColumnID)
	if !ok || ids.Kind != models.KindInt {
		return ErrNoIdentity
	}

	var fields []*models.Column

	for _, name := range t.Columns() {
		if name == models.ColumnID {
			continue
		}

		col, _ := t.Column(name)
		fields = append(fields, col)
	}

	var buf bytes.Buffer

	buf.WriteByte('{')

	for r := 0; r < t.Rows(); r++ {
		if r > 0 {
			buf.WriteByte(',')
		}

		writeJSONString(&buf, strconv.FormatInt(ids.Values[r].Int, 10))
		buf.WriteString(":{")

		for i, col := range fields {
			if i > 0 {
				buf.WriteByte(',')
			}

			writeJSONString(&buf, col.Name)
			buf.WriteByte(':')

			if err := writeJSONValue(&buf, col.Values[r]); err != nil {
				return fmt.Errorf("row %d column %q: %w", r+1, col.Name, err)
			}
		}

		buf.WriteByte('}')
	}

	buf.WriteString("}")

	out := buf.Bytes()

	if opts.PrettyPrint {
		var indented bytes.Buffer
		if err := json.Indent(&indented, out, "", "  "); err != nil {
			return fmt.Errorf("failed to indent json: %w", err)
		}

		out = indented.Bytes()
	}

	out = append(out, '\n')

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}

	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

func writeJSONValue(buf *bytes.Buffer, v models.Value) error {
	switch v.Kind {
	case models.KindInt:
		buf.WriteString(strconv.FormatInt(v.Int, 10))
	case models.KindNumber:
		if !json.Valid([]byte(v.Str)) {
			return fmt.Errorf("invalid number %q", v.Str)
		}

		buf.WriteString(v.Str)
	case models.KindIntList:
		buf.WriteByte('[')

		for i, n := range v.Ints {
			if i > 0 {
				buf.WriteByte(',')
			}

			buf.WriteString(strconv.FormatInt(n, 10))
		}

		buf.WriteByte(']')
	case models.KindStringList:
		strs := v.Strs
		if strs == nil {
			strs = []string{}
		}

		b, err := json.Marshal(strs)
		if err != nil {
			return err
		}

		buf.Write(b)
	default:
		writeJSONString(buf, v.Str)
	}

	return nil
}
