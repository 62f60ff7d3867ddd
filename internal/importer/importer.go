// Package importer seeds per-symbol cache files from an exchange-published
// daily report workbook. It complements the network providers: a bulk
// report carries every listed symbol for one trading day.
package importer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"pricevault/internal/cache"
	"pricevault/pkg/domain"
)

const sourceName = "dailyreport"

// Importer merges daily report rows into the rolling cache's files.
type Importer struct {
	store    *cache.Store
	exchange string
	logger   *slog.Logger
}

// New creates an importer writing into the given store. All imported rows
// are filed under the given exchange code.
func New(store *cache.Store, exchange string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: store, exchange: exchange, logger: logger}
}

// ImportDailyReport reads the workbook at path, extracts one OHLCV row per
// listed symbol for the report date, and merges each into that symbol's
// cache file. Returns the number of symbols updated. Existing rows are
// never removed; a re-import of the same report is a no-op.
func (i *Importer) ImportDailyReport(path string, date time.Time) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("open daily report: %w", err)
	}
	defer f.Close()

	rows, err := findTradingSheet(f)
	if err != nil {
		return 0, err
	}

	headerRow, columns := findHeader(rows)
	if headerRow < 0 {
		return 0, fmt.Errorf("no trading header row found in %s", path)
	}

	day := domain.Day(date)
	updated := 0
	for _, record := range rows[headerRow+1:] {
		ticker := cellAt(record, columns["code"])
		if ticker == "" {
			continue
		}
		row := domain.PriceRow{
			Date:   day,
			Open:   parseReportFloat(cellAt(record, columns["open"])),
			High:   parseReportFloat(cellAt(record, columns["high"])),
			Low:    parseReportFloat(cellAt(record, columns["low"])),
			Close:  parseReportFloat(cellAt(record, columns["close"])),
			Volume: parseReportVolume(cellAt(record, columns["volume"])),
			Ticker: ticker,
			Source: sourceName,
		}
		if row.Close == 0 {
			// Unlisted or untraded line in the report.
			continue
		}

		existing, err := i.store.Load(ticker, i.exchange)
		if err != nil {
			return updated, err
		}
		merged := existing.Merge(domain.PriceTable{Rows: []domain.PriceRow{row}})
		if err := i.store.Save(ticker, i.exchange, merged); err != nil {
			return updated, err
		}
		updated++
	}

	i.logger.Info("daily report imported",
		slog.String("path", path),
		slog.String("date", domain.DateKey(day)),
		slog.Int("symbols", updated))
	return updated, nil
}

// Sheet names used by exchange publishing tools, tried before falling back
// to header sniffing.
var knownSheetNames = []string{"Bulletin", "Trading", "trading", "Daily"}

func findTradingSheet(f *excelize.File) ([][]string, error) {
	for _, name := range knownSheetNames {
		if rows, err := f.GetRows(name); err == nil && len(rows) > 1 {
			return rows, nil
		}
	}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) < 2 {
			continue
		}
		limit := len(rows)
		if limit > 5 {
			limit = 5
		}
		for _, row := range rows[:limit] {
			text := strings.ToLower(strings.Join(row, " "))
			if strings.Contains(text, "code") && (strings.Contains(text, "price") || strings.Contains(text, "volume")) {
				return rows, nil
			}
		}
	}
	return nil, fmt.Errorf("no trading data sheet found")
}

// findHeader locates the header row and maps the columns of interest.
func findHeader(rows [][]string) (int, map[string]int) {
	for i, row := range rows {
		if len(row) < 4 {
			continue
		}
		columns := map[string]int{"code": -1, "open": -1, "high": -1, "low": -1, "close": -1, "volume": -1}
		for j, header := range row {
			h := strings.ToLower(strings.TrimSpace(header))
			switch {
			case h == "code" || h == "symbol" || h == "ticker":
				columns["code"] = j
			case strings.Contains(h, "open") && strings.Contains(h, "price"):
				columns["open"] = j
			case strings.Contains(h, "high") && strings.Contains(h, "price"):
				columns["high"] = j
			case strings.Contains(h, "low") && strings.Contains(h, "price"):
				columns["low"] = j
			case strings.Contains(h, "clos") && strings.Contains(h, "price") && !strings.Contains(h, "prev"):
				columns["close"] = j
			case strings.Contains(h, "volume") && !strings.Contains(h, "value"):
				columns["volume"] = j
			}
		}
		if columns["code"] >= 0 && columns["close"] >= 0 {
			return i, columns
		}
	}
	return -1, nil
}

func cellAt(record []string, index int) string {
	if index < 0 || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}
