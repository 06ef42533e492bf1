package normalizer

import (
	"strings"
	"testing"

	"spopconv/internal/models"
	"spopconv/internal/spop"
)

// sourceTable parses an inline .spop document for tests.
func sourceTable(t *testing.T, content string) *models.Table {
	t.Helper()

	doc, err := spop.Read(strings.NewReader(content), spop.DefaultOptions())
	if err != nil {
		t.Fatalf("spop.Read failed: %v", err)
	}

	return doc.Table
}

const sexualSpop = `#format id src parents merit update_born cells
1520248 div:ext 1519002,1517743 196608 5180 3609
1523080 div:ext 1520248,1521133 200704 5205 3610
1524187 div:ext 1520248,1523080 200704 5232 3611,3612
1524201 div:ext (none) 196608 5240
`
