package domain

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// Canonical column names for persisted price tables, in on-disk order.
var CanonicalColumns = []string{"Date", "Open", "High", "Low", "Close", "Volume", "Ticker", "Source"}

// PriceRow represents one trading day of OHLCV data for a single symbol.
type PriceRow struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume null.Int  `json:"volume"`
	Ticker string    `json:"ticker"`
	Source string    `json:"source"`
}

// PriceTable is an ordered sequence of price rows. A well-formed table is
// sorted ascending by date with no duplicate dates. An empty table is a
// valid value and is distinct from a failed fetch.
type PriceTable struct {
	Rows []PriceRow `json:"rows"`
}

// IsEmpty reports whether the table has no rows.
func (t PriceTable) IsEmpty() bool {
	return len(t.Rows) == 0
}

// Len returns the number of rows.
func (t PriceTable) Len() int {
	return len(t.Rows)
}

// First returns the earliest row. Only valid on a non-empty sorted table.
func (t PriceTable) First() PriceRow {
	return t.Rows[0]
}

// Last returns the latest row. Only valid on a non-empty sorted table.
func (t PriceTable) Last() PriceRow {
	return t.Rows[len(t.Rows)-1]
}

// Sort orders rows ascending by date.
func (t *PriceTable) Sort() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i].Date.Before(t.Rows[j].Date)
	})
}

// Dedupe removes duplicate dates, keeping the last occurrence so that rows
// appended later win over earlier ones. The result is sorted.
func (t PriceTable) Dedupe() PriceTable {
	byDate := make(map[string]PriceRow, len(t.Rows))
	for _, row := range t.Rows {
		byDate[DateKey(row.Date)] = row
	}
	out := PriceTable{Rows: make([]PriceRow, 0, len(byDate))}
	for _, row := range byDate {
		out.Rows = append(out.Rows, row)
	}
	out.Sort()
	return out
}

// Merge combines the table with freshly fetched rows. Fresh rows win on
// date conflicts since they are presumed more accurate. Existing rows
// outside the fresh range are always preserved.
func (t PriceTable) Merge(fresh PriceTable) PriceTable {
	combined := PriceTable{Rows: make([]PriceRow, 0, len(t.Rows)+len(fresh.Rows))}
	combined.Rows = append(combined.Rows, t.Rows...)
	combined.Rows = append(combined.Rows, fresh.Rows...)
	return combined.Dedupe()
}

// Slice returns the rows dated within [from, to], inclusive on both ends.
func (t PriceTable) Slice(from, to time.Time) PriceTable {
	out := PriceTable{}
	for _, row := range t.Rows {
		if row.Date.Before(from) || row.Date.After(to) {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Covers reports whether the table spans the whole [from, to] window,
// judged by its first and last dates. Gaps inside the span (holidays,
// suspensions) do not count against coverage.
func (t PriceTable) Covers(from, to time.Time) bool {
	if t.IsEmpty() {
		return false
	}
	return !t.First().Date.After(from) && !t.Last().Date.Before(to)
}

// DateKey renders a date in the canonical YYYY-MM-DD form used for
// de-duplication and persistence.
func DateKey(d time.Time) string {
	return d.Format("2006-01-02")
}

// Day truncates a timestamp to a UTC calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
