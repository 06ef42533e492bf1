// Package formatter renders aligned text tables for terminal output.
package formatter

import (
	"strings"

	"spopconv/internal/models"
	"spopconv/pkg/utils"

	"github.com/mattn/go-runewidth"
)

const minColumnWidth = 3

// RenderTable lays out header and rows as a pipe table whose columns are
// padded to the widest cell by display width. Rows shorter than the header
// are padded with empty cells.
func RenderTable(header []string, rows [][]string) []string {
	colCount := len(header)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	if colCount == 0 {
		return nil
	}

	// 1. Calculate max widths (using display width)
	colWidths := make([]int, colCount)

	for _, row := range append([][]string{header}, rows...) {
		for i := 0; i < len(row); i++ {
			width := runewidth.StringWidth(row[i])
			if width > colWidths[i] {
				colWidths[i] = width
			}
		}
	}

	for i := range colWidths {
		if colWidths[i] < minColumnWidth {
			colWidths[i] = minColumnWidth
		}
	}

	// 2. Reconstruct lines
	result := make([]string, 0, len(rows)+2)
	result = append(result, renderRow(header, colWidths, false))
	result = append(result, renderRow(nil, colWidths, true))

	for _, row := range rows {
		result = append(result, renderRow(row, colWidths, false))
	}

	return result
}

func renderRow(row []string, colWidths []int, isSeparator bool) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, width := range colWidths {
		sb.WriteString(" ")

		if isSeparator {
			sb.WriteString(strings.Repeat("-", width))
		} else {
			content := ""
			if j < len(row) {
				content = row[j]
			}

			sb.WriteString(content)

			// Pad with spaces based on display width
			padding := width - runewidth.StringWidth(content)
			if padding > 0 {
				sb.WriteString(strings.Repeat(" ", padding))
			}
		}

		sb.WriteString(" |")
	}

	return sb.String()
}

// Preview renders the first limit rows of t. Cells wider than maxCell columns
// are truncated; maxCell <= 0 disables truncation.
func Preview(t *models.Table, limit, maxCell int) string {
	if limit > t.Rows() || limit < 0 {
		limit = t.Rows()
	}

	rows := make([][]string, limit)

	for r := 0; r < limit; r++ {
		cells := t.TextRow(r)
		if maxCell > 0 {
			for i, c := range cells {
				cells[i] = utils.TruncateString(c, maxCell)
			}
		}

		rows[r] = cells
	}

	return strings.Join(RenderTable(t.Columns(), rows), "\n")
}
