// Package sheetml holds the in-memory workbook model and generates its
// SpreadsheetML parts. It produces opc.Part values only; packaging them into
// a container is internal/archive's job.
package sheetml

import (
	"fmt"
	"strings"
)

// MaxSheetNameLength is the spreadsheet application limit on sheet names.
const MaxSheetNameLength = 31

var forbiddenSheetNameChars = `:\/?*[]`

// Workbook is an ordered set of sheets plus document metadata.
type Workbook struct {
	Title   string
	Creator string
	sheets  []*Sheet
}

func NewWorkbook() *Workbook {
	return &Workbook{}
}

// AddSheet appends a sheet with the given name. Names must be non-empty,
// unique, at most MaxSheetNameLength characters, and free of the characters
// the format forbids.
func (w *Workbook) AddSheet(name string) (*Sheet, error) {
	if err := validateSheetName(name); err != nil {
		return nil, err
	}
	for _, s := range w.sheets {
		if s.name == name {
			return nil, fmt.Errorf("sheet %q already exists", name)
		}
	}

	sheet := &Sheet{name: name, cells: make(map[int]map[int]any)}
	w.sheets = append(w.sheets, sheet)
	return sheet, nil
}

// Sheets returns the sheets in insertion order.
func (w *Workbook) Sheets() []*Sheet {
	return w.sheets
}

// Sheet looks a sheet up by name.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	for _, s := range w.sheets {
		if s.name == name {
			return s, true
		}
	}
	return nil, false
}

func validateSheetName(name string) error {
	if name == "" {
		return fmt.Errorf("sheet name is empty")
	}
	if len(name) > MaxSheetNameLength {
		return fmt.Errorf("sheet name %q exceeds %d characters", name, MaxSheetNameLength)
	}
	if i := strings.IndexAny(name, forbiddenSheetNameChars); i >= 0 {
		return fmt.Errorf("sheet name %q contains forbidden character %q", name, name[i])
	}
	return nil
}

// Sheet is one worksheet: a sparse grid of cell values. Supported value
// types are string, float64, int, and bool.
type Sheet struct {
	name   string
	cells  map[int]map[int]any
	maxRow int
	maxCol int
}

func (s *Sheet) Name() string {
	return s.name
}

// SetCell stores value at an A1-style reference. An unsupported value type
// is rejected rather than silently stringified.
func (s *Sheet) SetCell(ref string, value any) error {
	col, row, err := ParseRef(ref)
	if err != nil {
		return err
	}

	switch value.(type) {
	case string, float64, int, bool:
	default:
		return fmt.Errorf("unsupported cell value type %T at %s", value, ref)
	}

	if s.cells[row] == nil {
		s.cells[row] = make(map[int]any)
	}
	s.cells[row][col] = value
	s.maxRow = max(s.maxRow, row)
	s.maxCol = max(s.maxCol, col)
	return nil
}

// Cell returns the value stored at an A1-style reference.
func (s *Sheet) Cell(ref string) (any, bool) {
	col, row, err := ParseRef(ref)
	if err != nil {
		return nil, false
	}
	value, ok := s.cells[row][col]
	return value, ok
}

// Dims reports the highest populated column and row, 1-based, zero when the
// sheet is empty.
func (s *Sheet) Dims() (cols, rows int) {
	return s.maxCol, s.maxRow
}
