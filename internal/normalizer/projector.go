package normalizer

import (
	"slices"

	"spopconv/internal/models"
)

// Projector selects and orders the columns that get serialized.
type Projector struct {
	minimal bool
}

// NewProjector creates a projector. In minimal mode only the standard
// columns are kept.
func NewProjector(minimal bool) *Projector {
	return &Projector{minimal: minimal}
}

// Order returns the serialization column order for t.
func (p *Projector) Order(t *models.Table) []string {
	order := slices.Clone(models.StandardColumns)
	if p.minimal {
		return order
	}

	for _, name := range t.Columns() {
		if !slices.Contains(models.StandardColumns, name) {
			order = append(order, name)
		}
	}

	return order
}

// Project returns a new table holding the projected columns in order.
func (p *Projector) Project(t *models.Table) (*models.Table, error) {
	return t.Select(p.Order(t)...)
}
