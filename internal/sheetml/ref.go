package sheetml

import (
	"fmt"
	"strconv"
)

// ParseRef splits an A1-style cell reference into 1-based column and row.
func ParseRef(ref string) (col, row int, err error) {
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		col = col*26 + int(ref[i]-'A'+1)
		i++
	}
	if col == 0 || i == len(ref) {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}

	row, convErr := strconv.Atoi(ref[i:])
	if convErr != nil || row <= 0 {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	return col, row, nil
}

// CellRef builds an A1-style reference from 1-based column and row.
func CellRef(col, row int) string {
	return ColumnName(col) + strconv.Itoa(row)
}

// ColumnName converts a 1-based column index to its letter form: 1 → A,
// 26 → Z, 27 → AA.
func ColumnName(col int) string {
	var name []byte
	for col > 0 {
		col--
		name = append([]byte{byte('A' + col%26)}, name...)
		col /= 26
	}
	return string(name)
}
