package serializer

import (
	"encoding/csv"
	"fmt"
	"io"

	"spopconv/internal/models"
)

func init() { Register(FormatCSV, WriteCSV) }

// WriteCSV writes a header row followed by one row per record. There is no
// row index column; list cells use their bracketed text form.
func WriteCSV(w io.Writer, t *models.Table, _ Options) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for r := 0; r < t.Rows(); r++ {
		if err := cw.Write(t.TextRow(r)); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", r+1, err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	return nil
}
