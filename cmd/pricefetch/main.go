// Command pricefetch refreshes the local price cache for one symbol and
// prints the requested window as CSV, or bulk-imports an exchange daily
// report into the cache.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"pricevault/internal/app"
	"pricevault/internal/config"
	"pricevault/internal/infrastructure"
	"pricevault/pkg/domain"
)

func main() {
	var (
		configFile = flag.String("config", "config.yaml", "path to config file")
		ticker     = flag.String("ticker", "", "ticker symbol to fetch")
		exchange   = flag.String("exchange", "", "exchange code")
		days       = flag.Int("days", 30, "trailing trading-day window")
		importFile = flag.String("import", "", "daily report workbook to import instead of fetching")
		importDate = flag.String("import-date", "", "report date (YYYY-MM-DD), defaults to yesterday")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	application, err := app.Build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup: %v\n", err)
		os.Exit(1)
	}

	ctx := infrastructure.WithTraceID(context.Background(), uuid.NewString())

	if *importFile != "" {
		date := time.Now().UTC().AddDate(0, 0, -1)
		if *importDate != "" {
			date, err = time.Parse("2006-01-02", *importDate)
			if err != nil {
				fmt.Fprintf(os.Stderr, "bad -import-date: %v\n", err)
				os.Exit(1)
			}
		}
		count, err := application.Importer.ImportDailyReport(*importFile, date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "import: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("imported %d symbols from %s\n", count, *importFile)
		return
	}

	if *ticker == "" {
		fmt.Fprintln(os.Stderr, "either -ticker or -import is required")
		flag.Usage()
		os.Exit(2)
	}

	table, err := application.Cache.Get(ctx, *ticker, *exchange, *days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
		os.Exit(1)
	}

	if err := writeCSV(os.Stdout, table); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	if failures := application.Cache.FailureCount(); failures > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d fetch attempts failed, data may be stale\n", failures)
	}
}

func writeCSV(out *os.File, table domain.PriceTable) error {
	writer := csv.NewWriter(out)
	if err := writer.Write(domain.CanonicalColumns); err != nil {
		return err
	}
	for _, row := range table.Rows {
		volume := ""
		if row.Volume.Valid {
			volume = strconv.FormatInt(row.Volume.Int64, 10)
		}
		record := []string{
			domain.DateKey(row.Date),
			strconv.FormatFloat(row.Open, 'f', -1, 64),
			strconv.FormatFloat(row.High, 'f', -1, 64),
			strconv.FormatFloat(row.Low, 'f', -1, 64),
			strconv.FormatFloat(row.Close, 'f', -1, 64),
			volume,
			row.Ticker,
			row.Source,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
