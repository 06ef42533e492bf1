// Package normalizer turns raw source columns into a validated, projected
// standard phylogeny table.
package normalizer

import (
	"fmt"

	"spopconv/internal/models"
)

// Processor runs normalization, validation and projection in order.
type Processor struct {
	transformer *Transformer
	validator   *Validator
	projector   *Projector
}

// NewProcessor creates a new processor instance.
func NewProcessor(fields Fields, minimal bool) *Processor {
	return &Processor{
		transformer: NewTransformer(fields),
		validator:   NewValidator(),
		projector:   NewProjector(minimal),
	}
}

// Process transforms raw source columns into the projected standard table.
func (p *Processor) Process(src *models.Table) (*models.Table, error) {
	// 1. Derive the standard columns
	normalized, err := p.transformer.Transform(src)
	if err != nil {
		return nil, fmt.Errorf("normalization failed: %w", err)
	}

	// 2. Identity check over the whole table
	if err := p.validator.Validate(normalized); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// 3. Column selection and ordering
	projected, err := p.projector.Project(normalized)
	if err != nil {
		return nil, fmt.Errorf("projection failed: %w", err)
	}

	return projected, nil
}
