package normalizer

import (
	"errors"
	"fmt"
	"strconv"

	"spopconv/internal/models"
)

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("parse error")

// ErrMissingColumn is returned when a column required by the standard is absent.
var ErrMissingColumn = errors.New("missing required column")

// ParseError reports a token that should have been an integer.
type ParseError struct {
	Err    error
	Column string
	Token  string
	Row    int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: column %q row %d: invalid integer %q", e.Column, e.Row+1, e.Token)
}

// Is makes errors.Is(err, ErrParse) true for any ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Fields names the source columns the standard fields are derived from.
type Fields struct {
	ID              string
	Parents         string
	Birth           string
	NoAncestorToken string
}

// DefaultFields returns Avida's field names.
func DefaultFields() Fields {
	return Fields{
		ID:              "id",
		Parents:         "parents",
		Birth:           "update_born",
		NoAncestorToken: "(none)",
	}
}

// Transformer derives the standard phylogeny columns from raw source columns.
type Transformer struct {
	fields Fields
}

// NewTransformer creates a new transformer instance.
func NewTransformer(fields Fields) *Transformer {
	return &Transformer{fields: fields}
}

// Transform returns a new table in which the parents column has been
// consumed into ancestor_list, the birth column copied into origin_time and
// the id column parsed to integers. The input table is left untouched.
func (t *Transformer) Transform(src *models.Table) (*models.Table, error) {
	for _, name := range []string{t.fields.Parents, t.fields.Birth, t.fields.ID} {
		if !src.Has(name) {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	parents, _ := src.Column(t.fields.Parents)
	birth, _ := src.Column(t.fields.Birth)
	ids, _ := src.Column(t.fields.ID)

	ancestors, err := t.ancestorList(parents)
	if err != nil {
		return nil, err
	}

	idCol, err := t.parseIDs(ids)
	if err != nil {
		return nil, err
	}

	originValues := make([]models.Value, len(birth.Values))
	copy(originValues, birth.Values)
	origin := &models.Column{Name: models.ColumnOriginTime, Kind: birth.Kind, Values: originValues}

	out := src.Without(t.fields.Parents)
	if t.fields.ID != models.ColumnID {
		out = out.Without(t.fields.ID)
	}

	for _, col := range []*models.Column{idCol, ancestors, origin} {
		if out, err = out.With(col); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (t *Transformer) ancestorList(parents *models.Column) (*models.Column, error) {
	values := make([]models.Value, len(parents.Values))

	for row, v := range parents.Values {
		tokens := v.Strs
		if v.Kind != models.KindStringList {
			tokens = []string{v.Str}
		}

		ids := make([]int64, len(tokens))

		for i, tok := range tokens {
			if tok == t.fields.NoAncestorToken {
				ids[i] = -1
				continue
			}

			n, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return nil, &ParseError{Column: parents.Name, Row: row, Token: tok, Err: err}
			}

			ids[i] = n
		}

		values[row] = models.IntListValue(ids)
	}

	return &models.Column{Name: models.ColumnAncestorList, Kind: models.KindIntList, Values: values}, nil
}

func (t *Transformer) parseIDs(ids *models.Column) (*models.Column, error) {
	values := make([]models.Value, len(ids.Values))

	for row, v := range ids.Values {
		tok := v.Text()

		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, &ParseError{Column: ids.Name, Row: row, Token: tok, Err: err}
		}

		values[row] = models.IntValue(n)
	}

	return &models.Column{Name: models.ColumnID, Kind: models.KindInt, Values: values}, nil
}
