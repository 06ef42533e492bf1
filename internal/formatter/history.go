package formatter

import (
	"strconv"
	"strings"
	"time"

	"spopconv/internal/ledger"
	"spopconv/pkg/metadata"
	"spopconv/pkg/utils"
)

const maxHistoryCell = 60

// History renders recorded runs, newest first as returned by the ledger.
// Failed runs show their error in place of the output path. For successful
// runs the output file is checked against its recorded digest.
func History(runs []ledger.Run) string {
	header := []string{"started", "run", "status", "format", "rows", "duration", "input", "output", "check"}
	rows := make([][]string, len(runs))

	for i, run := range runs {
		output, check := run.Output, "-"
		if run.Status == ledger.StatusFailed {
			output = run.Error
		} else {
			check = metadata.State(run.Output, run.Digest)
		}

		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}

		rows[i] = []string{
			run.StartedAt.Local().Format(time.DateTime),
			id,
			run.Status,
			run.Format,
			strconv.Itoa(run.Rows),
			run.Duration.Round(time.Millisecond).String(),
			utils.TruncateString(run.Input, maxHistoryCell),
			utils.TruncateString(output, maxHistoryCell),
			check,
		}
	}

	return strings.Join(RenderTable(header, rows), "\n")
}
