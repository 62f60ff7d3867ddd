package validation

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"pricevault/pkg/domain"
)

// Candidate column names per canonical column, in priority order. Matching
// is case-insensitive. Upstream feeds disagree wildly on header spelling;
// the first candidate present in the table wins and the mapping is resolved
// once per table, never per row.
var columnCandidates = map[string][]string{
	"Date":   {"date", "timestamp", "time", "index"},
	"Open":   {"open", "1. open", "opening price", "open_gbp"},
	"High":   {"high", "2. high", "highest price", "high_gbp"},
	"Low":    {"low", "3. low", "lowest price", "low_gbp"},
	"Close":  {"close", "4. close", "5. adjusted close", "adj close", "closing price", "close_gbp"},
	"Volume": {"volume", "6. volume", "5. volume", "traded volume"},
	"Ticker": {"ticker", "symbol", "code"},
	"Source": {"source", "provider"},
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2006/01/02",
}

// resolvedSchema maps each canonical column to its index in a raw table,
// -1 when the column is absent.
type resolvedSchema map[string]int

func resolveSchema(columns []string) resolvedSchema {
	lowered := make([]string, len(columns))
	for i, c := range columns {
		lowered[i] = strings.ToLower(strings.TrimSpace(c))
	}
	resolved := make(resolvedSchema, len(columnCandidates))
	for canonical, candidates := range columnCandidates {
		resolved[canonical] = -1
		for _, candidate := range candidates {
			for i, col := range lowered {
				if col == candidate {
					resolved[canonical] = i
					break
				}
			}
			if resolved[canonical] >= 0 {
				break
			}
		}
	}
	return resolved
}

// EnsureSchema coerces an arbitrary tabular payload into the canonical
// price schema. A table without a recognizable date column yields an empty
// table, logged as a warning, so callers always receive the canonical
// shape. Rows whose date cannot be parsed are dropped. Only structurally
// unreadable input (records without a header row) produces an error.
func EnsureSchema(raw domain.RawTable) (domain.PriceTable, error) {
	if len(raw.Columns) == 0 {
		if len(raw.Records) > 0 {
			return domain.PriceTable{}, fmt.Errorf("raw table has %d records but no header row", len(raw.Records))
		}
		return domain.PriceTable{}, nil
	}

	schema := resolveSchema(raw.Columns)
	if schema["Date"] < 0 {
		slog.Warn("price table has no date column, returning empty table",
			slog.Any("columns", raw.Columns))
		return domain.PriceTable{}, nil
	}

	table := domain.PriceTable{Rows: make([]domain.PriceRow, 0, len(raw.Records))}
	for i := range raw.Records {
		date, ok := parseDate(raw.Cell(i, schema["Date"]))
		if !ok {
			slog.Debug("dropping row with unparseable date",
				slog.Int("record", i),
				slog.String("value", raw.Cell(i, schema["Date"])))
			continue
		}
		row := domain.PriceRow{
			Date:   date,
			Open:   parseFloat(raw.Cell(i, schema["Open"])),
			High:   parseFloat(raw.Cell(i, schema["High"])),
			Low:    parseFloat(raw.Cell(i, schema["Low"])),
			Close:  parseFloat(raw.Cell(i, schema["Close"])),
			Volume: parseVolume(raw.Cell(i, schema["Volume"])),
			Ticker: strings.TrimSpace(raw.Cell(i, schema["Ticker"])),
			Source: strings.TrimSpace(raw.Cell(i, schema["Source"])),
		}
		table.Rows = append(table.Rows, row)
	}
	return table.Dedupe(), nil
}

// Normalize enforces the table invariants on an already-typed table:
// ascending unique dates, and ticker/source stamped on rows where the
// producing provider left them blank.
func Normalize(table domain.PriceTable, ticker, source string) domain.PriceTable {
	out := table.Dedupe()
	for i := range out.Rows {
		if out.Rows[i].Ticker == "" {
			out.Rows[i].Ticker = ticker
		}
		if out.Rows[i].Source == "" {
			out.Rows[i].Source = source
		}
	}
	return out
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return domain.Day(t), true
		}
	}
	return time.Time{}, false
}

func parseFloat(value string) float64 {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseVolume(value string) null.Int {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if value == "" {
		return null.Int{}
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// Some feeds render volume as a float.
		f, ferr := strconv.ParseFloat(value, 64)
		if ferr != nil {
			return null.Int{}
		}
		v = int64(f)
	}
	return null.IntFrom(v)
}
