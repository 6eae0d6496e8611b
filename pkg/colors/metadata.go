package colors

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

var (
	// ErrInvalidColumn is returned when the requested metadata column does
	// not exist in the table.
	ErrInvalidColumn = errors.New("color by metadata: column not found")

	// ErrEmptyInput is returned when there are no values to color.
	ErrEmptyInput = errors.New("color by metadata: no values")

	// ErrIncompleteColorMap is returned when an explicit lookup does not
	// assign a color to every value present in the column.
	ErrIncompleteColorMap = errors.New("color by metadata: incomplete color map")
)

// Table is a per-entity metadata table: named columns of equal length, one
// row per entity (e.g. per cell).
type Table struct {
	names   []string
	columns map[string][]string
	rows    int
}

// NewTable builds a table from named columns. All columns must have the
// same length.
func NewTable(columns map[string][]string) (*Table, error) {
	t := &Table{columns: make(map[string][]string, len(columns)), rows: -1}
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := t.AddColumn(name, columns[name]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddColumn appends a column. It fails if the name is taken or the length
// differs from existing columns.
func (t *Table) AddColumn(name string, values []string) error {
	if t.columns == nil {
		t.columns = make(map[string][]string)
		t.rows = -1
	}
	if _, dup := t.columns[name]; dup {
		return fmt.Errorf("metadata table: duplicate column %q", name)
	}
	if t.rows >= 0 && len(values) != t.rows {
		return fmt.Errorf("metadata table: column %q has %d rows, want %d", name, len(values), t.rows)
	}
	t.rows = len(values)
	t.names = append(t.names, name)
	t.columns[name] = slices.Clone(values)
	return nil
}

// ReadCSV reads a table with a header row. Cells are trimmed of
// surrounding whitespace.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("metadata table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("metadata table: missing header row")
	}
	header := records[0]
	cols := make([][]string, len(header))
	for _, rec := range records[1:] {
		for i := range header {
			cols[i] = append(cols[i], strings.TrimSpace(rec[i]))
		}
	}
	t := &Table{}
	for i, name := range header {
		if err := t.AddColumn(strings.TrimSpace(name), cols[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	return slices.Clone(t.names)
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]string, bool) {
	v, ok := t.columns[name]
	return v, ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t.rows < 0 {
		return 0
	}
	return t.rows
}

// Lookup maps category values to colors. A nil Lookup asks for a generated
// palette.
type Lookup map[string]Color

// ParseLookup converts a value -> color-string mapping.
func ParseLookup(m map[string]string) (Lookup, error) {
	l := make(Lookup, len(m))
	for k, v := range m {
		c, err := Parse(v)
		if err != nil {
			return nil, fmt.Errorf("color for %q: %w", k, err)
		}
		l[k] = c
	}
	return l, nil
}

type options struct {
	palette Palette
}

// Option configures FromMetadata and FromValues.
type Option func(*options)

// WithPalette sets the generator used when no explicit lookup is given.
func WithPalette(p Palette) Option {
	return func(o *options) { o.palette = p }
}

// FromMetadata returns the color of each row of t given the categorical
// values in column. With a nil lookup every distinct value gets a color from
// a generated palette; otherwise lookup must cover every distinct value.
func FromMetadata(t *Table, column string, lookup Lookup, opts ...Option) ([]Color, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: %q (no metadata table)", ErrInvalidColumn, column)
	}
	vals, ok := t.Column(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not one of %v", ErrInvalidColumn, column, t.names)
	}
	cols, err := FromValues(vals, lookup, opts...)
	if err != nil {
		return nil, fmt.Errorf("coloring by %q: %w", column, err)
	}
	return cols, nil
}

// FromValues is FromMetadata for a bare column.
func FromValues(vals []string, lookup Lookup, opts ...Option) ([]Color, error) {
	o := options{palette: RandomPalette}
	for _, opt := range opts {
		opt(&o)
	}
	if len(vals) == 0 {
		return nil, ErrEmptyInput
	}

	distinct := distinctValues(vals)
	if lookup == nil {
		base, err := o.palette.Colors(len(distinct))
		if err != nil {
			return nil, err
		}
		if len(base) < len(distinct) {
			return nil, fmt.Errorf("palette returned %d colors for %d values", len(base), len(distinct))
		}
		lookup = make(Lookup, len(distinct))
		for i, v := range distinct {
			lookup[v] = base[i]
		}
	} else {
		var missing []string
		for _, v := range distinct {
			if _, ok := lookup[v]; !ok {
				missing = append(missing, v)
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: no color for %q; every metadata value must be assigned a color", ErrIncompleteColorMap, missing)
		}
	}

	out := make([]Color, len(vals))
	for i, v := range vals {
		out[i] = lookup[v]
	}
	return out, nil
}

// distinctValues returns the distinct values of vals sorted, so palette
// assignment is stable for a given palette.
func distinctValues(vals []string) []string {
	d := slices.Clone(vals)
	slices.Sort(d)
	return slices.Compact(d)
}
