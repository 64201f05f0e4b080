package core

// Table is a raw header plus string rows as read from any source, before
// type coercion.
type Table struct {
	Header []string
	Rows   [][]string
}

// Cell returns row[i] or "" when the row is short.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
