package normalizer

import (
	"errors"
	"fmt"

	"spopconv/internal/models"
)

// ErrDuplicateIdentifier is returned when two rows share an id.
var ErrDuplicateIdentifier = errors.New("organism IDs must be unique")

// Validator checks a normalized table before it is serialized.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks that every id is distinct.
func (v *Validator) Validate(t *models.Table) error {
	ids, ok := t.Column(models.ColumnID)
	if !ok || ids.Kind != models.KindInt {
		return fmt.Errorf("%w: %q", ErrMissingColumn, models.ColumnID)
	}

	seen := make(map[int64]int, len(ids.Values))

	for row, id := range ids.Values {
		if first, dup := seen[id.Int]; dup {
			return fmt.Errorf("%w: id %d appears in rows %d and %d", ErrDuplicateIdentifier, id.Int, first+1, row+1)
		}

		seen[id.Int] = row
	}

	return nil
}
