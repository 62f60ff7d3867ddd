package domain

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func row(date string, close float64, source string) PriceRow {
	return PriceRow{
		Date:   day(date),
		Open:   close - 1,
		High:   close + 1,
		Low:    close - 2,
		Close:  close,
		Volume: null.IntFrom(1000),
		Ticker: "ACME",
		Source: source,
	}
}

func TestPriceTable_Merge_FreshWinsOnConflict(t *testing.T) {
	existing := PriceTable{Rows: []PriceRow{
		row("2024-01-05", 10, "old"),
		row("2024-01-08", 11, "old"),
	}}
	fresh := PriceTable{Rows: []PriceRow{
		row("2024-01-08", 99, "new"),
		row("2024-01-09", 12, "new"),
	}}

	merged := existing.Merge(fresh)

	require.Equal(t, 3, merged.Len())
	assert.Equal(t, "2024-01-05", DateKey(merged.Rows[0].Date))
	assert.Equal(t, "old", merged.Rows[0].Source)
	assert.Equal(t, 99.0, merged.Rows[1].Close, "fresh row must win on date conflict")
	assert.Equal(t, "new", merged.Rows[1].Source)
	assert.Equal(t, "2024-01-09", DateKey(merged.Rows[2].Date))
}

func TestPriceTable_Merge_Idempotent(t *testing.T) {
	existing := PriceTable{Rows: []PriceRow{row("2024-01-05", 10, "feed")}}
	fresh := PriceTable{Rows: []PriceRow{
		row("2024-01-05", 10.5, "feed"),
		row("2024-01-08", 11, "feed"),
	}}

	once := existing.Merge(fresh)
	twice := once.Merge(fresh)

	assert.Equal(t, once, twice)
}

func TestPriceTable_Merge_NeverDropsExistingRows(t *testing.T) {
	existing := PriceTable{Rows: []PriceRow{
		row("2024-01-02", 8, "feed"),
		row("2024-01-03", 9, "feed"),
	}}
	fresh := PriceTable{Rows: []PriceRow{row("2024-01-09", 12, "feed")}}

	merged := existing.Merge(fresh)

	assert.Equal(t, 3, merged.Len())
	assert.Equal(t, "2024-01-02", DateKey(merged.First().Date))
	assert.Equal(t, "2024-01-09", DateKey(merged.Last().Date))
}

func TestPriceTable_Slice(t *testing.T) {
	table := PriceTable{Rows: []PriceRow{
		row("2024-01-05", 10, "feed"),
		row("2024-01-08", 11, "feed"),
		row("2024-01-09", 12, "feed"),
		row("2024-01-10", 13, "feed"),
	}}

	tests := []struct {
		name  string
		from  string
		to    string
		dates []string
	}{
		{"inner window", "2024-01-08", "2024-01-09", []string{"2024-01-08", "2024-01-09"}},
		{"inclusive bounds", "2024-01-05", "2024-01-10", []string{"2024-01-05", "2024-01-08", "2024-01-09", "2024-01-10"}},
		{"window past data", "2024-01-11", "2024-01-15", nil},
		{"window before data", "2024-01-01", "2024-01-04", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Slice(day(tt.from), day(tt.to))
			var dates []string
			for _, r := range got.Rows {
				dates = append(dates, DateKey(r.Date))
			}
			assert.Equal(t, tt.dates, dates)
		})
	}
}

func TestPriceTable_Dedupe_KeepsLastOccurrence(t *testing.T) {
	table := PriceTable{Rows: []PriceRow{
		row("2024-01-05", 10, "first"),
		row("2024-01-05", 20, "second"),
	}}

	deduped := table.Dedupe()

	require.Equal(t, 1, deduped.Len())
	assert.Equal(t, 20.0, deduped.First().Close)
	assert.Equal(t, "second", deduped.First().Source)
}

func TestPriceTable_Covers(t *testing.T) {
	table := PriceTable{Rows: []PriceRow{
		row("2024-01-05", 10, "feed"),
		row("2024-01-10", 13, "feed"),
	}}

	assert.True(t, table.Covers(day("2024-01-05"), day("2024-01-10")))
	assert.True(t, table.Covers(day("2024-01-08"), day("2024-01-09")), "inner gaps do not break coverage")
	assert.False(t, table.Covers(day("2024-01-04"), day("2024-01-10")))
	assert.False(t, table.Covers(day("2024-01-05"), day("2024-01-11")))
	assert.False(t, PriceTable{}.Covers(day("2024-01-05"), day("2024-01-10")))
}
