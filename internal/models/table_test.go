package models

import (
	"slices"
	"strings"
	"testing"
)

func column(name string, vals ...string) *Column {
	values := make([]Value, len(vals))
	for i, v := range vals {
		values[i] = StringValue(v)
	}

	return &Column{Name: name, Kind: KindString, Values: values}
}

func TestValue_Text(t *testing.T) {
	tests := []struct {
		name string
		val  Value
		want string
	}{
		{"String", StringValue("heads_sex"), "heads_sex"},
		{"Number keeps source text", NumberValue("515.949"), "515.949"},
		{"Int", IntValue(-1), "-1"},
		{"Int list", IntListValue([]int64{1520248, 1523080}), "[1520248, 1523080]"},
		{"Single int", IntListValue([]int64{-1}), "[-1]"},
		{"String list", StringListValue([]string{"3611", "3612"}), `["3611", "3612"]`},
		{"String list escaping", StringListValue([]string{`a"b`}), `["a\"b"]`},
		{"Empty list", IntListValue(nil), "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.val.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKind(t *testing.T) {
	if KindIntList.String() != "int_list" || Kind(42).String() != "kind(42)" {
		t.Errorf("unexpected kind names %q %q", KindIntList, Kind(42))
	}
}

func TestNewTable_Errors(t *testing.T) {
	_, err := NewTable(column("id", "1"), column("id", "2"))
	if err == nil || !strings.Contains(err.Error(), "duplicate column") {
		t.Errorf("duplicate names: err = %v", err)
	}

	_, err = NewTable(column("id", "1", "2"), column("merit", "0"))
	if err == nil || !strings.Contains(err.Error(), "has 1 values, want 2") {
		t.Errorf("length mismatch: err = %v", err)
	}
}

func TestTable_Shape(t *testing.T) {
	tbl, err := NewTable(column("id", "1", "2"), column("parents", "(none)", "1"), column("merit", "0", "5"))
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	if tbl.Rows() != 2 || !slices.Equal(tbl.Columns(), []string{"id", "parents", "merit"}) {
		t.Fatalf("shape = %d rows %q", tbl.Rows(), tbl.Columns())
	}

	without := tbl.Without("parents")
	if without.Has("parents") || !tbl.Has("parents") {
		t.Error("Without must return a new table and leave the receiver intact")
	}

	replaced, err := tbl.With(&Column{Name: "id", Kind: KindInt, Values: []Value{IntValue(1), IntValue(2)}})
	if err != nil {
		t.Fatalf("With failed: %v", err)
	}

	if !slices.Equal(replaced.Columns(), tbl.Columns()) {
		t.Errorf("replacing a column changed order: %q", replaced.Columns())
	}

	if v, _ := replaced.Cell("id", 1); v.Kind != KindInt || v.Int != 2 {
		t.Errorf("replaced cell = %+v", v)
	}

	if v, _ := tbl.Cell("id", 1); v.Kind != KindString {
		t.Error("With modified the receiver")
	}

	appended, err := tbl.With(column("origin_time", "0", "10"))
	if err != nil {
		t.Fatalf("With failed: %v", err)
	}

	if last := appended.Columns()[3]; last != "origin_time" {
		t.Errorf("appended column at end = %q", last)
	}

	if _, err := tbl.With(column("short", "x")); err == nil {
		t.Error("With expected length mismatch error")
	}

	selected, err := tbl.Select("merit", "id")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if !slices.Equal(selected.TextRow(1), []string{"5", "2"}) {
		t.Errorf("TextRow = %q", selected.TextRow(1))
	}

	if _, err := tbl.Select("missing"); err == nil {
		t.Error("Select expected unknown column error")
	}

	if _, ok := tbl.Cell("id", 5); ok {
		t.Error("Cell out of range should report false")
	}

	if v, ok := tbl.Cell("parents", 0); !ok || v.Str != "(none)" {
		t.Errorf("Cell(parents, 0) = %+v, %v", v, ok)
	}
}

func TestTable_WithoutEverything(t *testing.T) {
	tbl, _ := NewTable(column("id", "1", "2", "3"))

	empty := tbl.Without("id")
	if len(empty.Columns()) != 0 || empty.Rows() != 3 {
		t.Errorf("empty table = %d rows %q, want 3 rows no columns", empty.Rows(), empty.Columns())
	}
}
