package domain

// RawTable is a source-agnostic tabular payload: a header row plus string
// records, exactly as parsed from a CSV body or a provider response. It is
// the input shape accepted by the schema validator, which coerces it into
// a canonical PriceTable.
type RawTable struct {
	Columns []string
	Records [][]string
}

// IsEmpty reports whether the raw table carries no data records.
func (r RawTable) IsEmpty() bool {
	return len(r.Records) == 0
}

// Cell returns the value at the given record and column index, or the
// empty string when the record is shorter than the header row. Ragged
// records are common in hand-edited or truncated CSV files.
func (r RawTable) Cell(record, column int) string {
	if column < 0 || record >= len(r.Records) || column >= len(r.Records[record]) {
		return ""
	}
	return r.Records[record][column]
}
