package normalizer

import (
	"errors"
	"strings"
	"testing"

	"spopconv/internal/models"
)

func idTable(t *testing.T, ids ...int64) *models.Table {
	t.Helper()

	values := make([]models.Value, len(ids))
	for i, id := range ids {
		values[i] = models.IntValue(id)
	}

	tbl, err := models.NewTable(&models.Column{Name: models.ColumnID, Kind: models.KindInt, Values: values})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	return tbl
}

func TestNewValidator(t *testing.T) {
	v := NewValidator()
	if v == nil {
		t.Fatal("NewValidator returned nil")
	}
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(idTable(t, 1, 2, 3)); err != nil {
		t.Errorf("Validate returned unexpected error for unique ids: %v", err)
	}

	if err := v.Validate(idTable(t)); err != nil {
		t.Errorf("Validate returned unexpected error for empty table: %v", err)
	}
}

func TestValidator_Validate_Errors(t *testing.T) {
	v := NewValidator()

	strIDs, _ := models.NewTable(&models.Column{
		Name: models.ColumnID, Kind: models.KindString, Values: []models.Value{models.StringValue("1")},
	})

	tests := []struct {
		name    string
		table   *models.Table
		wantErr error
		wantMsg string
	}{
		{
			name:    "Duplicate ids",
			table:   idTable(t, 7, 8, 7),
			wantErr: ErrDuplicateIdentifier,
			wantMsg: "id 7 appears in rows 1 and 3",
		},
		{
			name:    "Id column not normalized",
			table:   strIDs,
			wantErr: ErrMissingColumn,
			wantMsg: "missing required column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.table)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate error = %v, want %v", err, tt.wantErr)
			}

			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate error = %v, want substring %v", err, tt.wantMsg)
			}
		})
	}
}
