// Package fieldmap maps recognized CSV column names to their indices in a
// header row. Every importer in this tool uses the same mapping logic, so the
// export can add, drop or reorder columns without breaking the import: columns
// we don't recognize are ignored, and recognized columns that are missing
// simply resolve to NotFound.
package fieldmap

// NotFound is returned by Lookup when a recognized field is absent from the
// header. Callers must treat it as a normal value, not an error.
const NotFound = -1

type entry struct {
	field string
	index int
}

// Map holds the field name to column index mapping for one CSV file.
type Map struct {
	entries []entry
}

// Build scans the header row and records the column index of every recognized
// field. Unrecognized columns are silently skipped. If a field name appears in
// more than one column, the leftmost column wins.
func Build(header []string, recognized []string) *Map {
	m := &Map{}
	for i, col := range header {
		for _, field := range recognized {
			if col != field {
				continue
			}
			if m.Lookup(field) != NotFound {
				continue
			}
			m.entries = append(m.entries, entry{field: field, index: i})
		}
	}
	return m
}

// Lookup returns the column index for field, or NotFound.
func (m *Map) Lookup(field string) int {
	for _, e := range m.entries {
		if e.field == field {
			return e.index
		}
	}
	return NotFound
}

// Value returns the named field's value from row, or "" if the field is not
// mapped or the row is short. A short row happens on ragged exports; treating
// it as an absent value keeps the degrade path identical to a missing column.
func (m *Map) Value(row []string, field string) string {
	i := m.Lookup(field)
	if i == NotFound || i >= len(row) {
		return ""
	}
	return row[i]
}

// Len returns how many recognized fields were found in the header.
func (m *Map) Len() int {
	return len(m.entries)
}
