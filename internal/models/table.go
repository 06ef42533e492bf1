// Package models defines the runtime schema and the in-memory phylogeny table.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Standard phylogeny column names.
const (
	ColumnID           = "id"
	ColumnAncestorList = "ancestor_list"
	ColumnOriginTime   = "origin_time"
)

// StandardColumns lists the required standard fields in output order.
var StandardColumns = []string{ColumnID, ColumnAncestorList, ColumnOriginTime}

// Kind identifies the type carried by a column.
type Kind int

// Column kinds.
const (
	KindString Kind = iota
	KindNumber
	KindInt
	KindIntList
	KindStringList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindInt:
		return "int"
	case KindIntList:
		return "int_list"
	case KindStringList:
		return "string_list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a single cell. Only the field matching Kind is meaningful.
// KindString and KindNumber both keep the verbatim source text in Str.
type Value struct {
	Str  string
	Strs []string
	Ints []int64
	Int  int64
	Kind Kind
}

// StringValue returns a scalar string cell.
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// NumberValue returns a numeric cell holding verbatim numeric text.
func NumberValue(s string) Value {
	return Value{Kind: KindNumber, Str: s}
}

// IntValue returns an integer cell.
func IntValue(n int64) Value {
	return Value{Kind: KindInt, Int: n}
}

// IntListValue returns an integer sequence cell.
func IntListValue(ns []int64) Value {
	return Value{Kind: KindIntList, Ints: ns}
}

// StringListValue returns a string sequence cell.
func StringListValue(ss []string) Value {
	return Value{Kind: KindStringList, Strs: ss}
}

// Text renders the value as a single text cell. Scalars are verbatim,
// lists are bracketed and comma-separated, strings inside lists are JSON
// quoted so that the cell parses as a JSON array.
func (v Value) Text() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindIntList:
		parts := make([]string, len(v.Ints))
		for i, n := range v.Ints {
			parts[i] = strconv.FormatInt(n, 10)
		}

		return "[" + strings.Join(parts, ", ") + "]"
	case KindStringList:
		parts := make([]string, len(v.Strs))
		for i, s := range v.Strs {
			quoted, _ := json.Marshal(s)
			parts[i] = string(quoted)
		}

		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return v.Str
	}
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name   string
	Values []Value
	Kind   Kind
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	return len(c.Values)
}

// Table is an ordered collection of equally long columns.
// Operations that change the shape return a new Table; the receiver is
// never modified.
type Table struct {
	index   map[string]int
	columns []*Column
	rows    int
}

// NewTable builds a table from columns. All columns must have the same length
// and distinct names.
func NewTable(columns ...*Column) (*Table, error) {
	t := &Table{
		index:   make(map[string]int, len(columns)),
		columns: make([]*Column, 0, len(columns)),
	}

	for i, col := range columns {
		if _, dup := t.index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", col.Name)
		}

		if i == 0 {
			t.rows = col.Len()
		} else if col.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d values, want %d", col.Name, col.Len(), t.rows)
		}

		t.index[col.Name] = len(t.columns)
		t.columns = append(t.columns, col)
	}

	return t, nil
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	return t.rows
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}

	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}

	return t.columns[i], true
}

// Has reports whether the table contains the named column.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Cell returns the value at row r of the named column.
func (t *Table) Cell(name string, r int) (Value, bool) {
	col, ok := t.Column(name)
	if !ok || r < 0 || r >= col.Len() {
		return Value{}, false
	}

	return col.Values[r], true
}

// With returns a copy of the table with col appended, or replacing the
// existing column of the same name in place.
func (t *Table) With(col *Column) (*Table, error) {
	cols := make([]*Column, len(t.columns))
	copy(cols, t.columns)

	if i, ok := t.index[col.Name]; ok {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}

	return NewTable(cols...)
}

// Without returns a copy of the table lacking the named columns.
func (t *Table) Without(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	var cols []*Column

	for _, col := range t.columns {
		if !drop[col.Name] {
			cols = append(cols, col)
		}
	}

	out, _ := NewTable(cols...)
	if len(cols) == 0 {
		out.rows = t.rows
	}

	return out
}

// Select returns a copy of the table holding only the named columns in the
// given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))

	for _, n := range names {
		col, ok := t.Column(n)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", n)
		}

		cols = append(cols, col)
	}

	return NewTable(cols...)
}

// TextRow returns row r rendered as text cells.
func (t *Table) TextRow(r int) []string {
	row := make([]string, len(t.columns))
	for i, col := range t.columns {
		row[i] = col.Values[r].Text()
	}

	return row
}
