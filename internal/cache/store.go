package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"pricevault/internal/validation"
	"pricevault/pkg/domain"
)

// Store persists one CSV file per (ticker, exchange) pair under a cache
// root. Files carry the canonical column set and are only ever extended,
// never truncated, by the rolling cache.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: dir, logger: logger}
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9.-]`)

// Path returns the deterministic cache file path for a pair.
func (s *Store) Path(ticker, exchange string) string {
	name := fmt.Sprintf("%s_%s.csv",
		unsafePathChars.ReplaceAllString(strings.ToUpper(ticker), "-"),
		unsafePathChars.ReplaceAllString(strings.ToUpper(exchange), "-"))
	return filepath.Join(s.root, name)
}

// Load reads the persisted table for a pair. A file that does not exist
// yet yields an empty table and no error; any other read or parse failure
// is fatal for the request.
func (s *Store) Load(ticker, exchange string) (domain.PriceTable, error) {
	path := s.Path(ticker, exchange)

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.PriceTable{}, nil
		}
		return domain.PriceTable{}, fmt.Errorf("open cache file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("parse cache file %s: %w", path, err)
	}
	if len(records) == 0 {
		return domain.PriceTable{}, nil
	}

	table, err := validation.EnsureSchema(domain.RawTable{Columns: records[0], Records: records[1:]})
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("cache file %s: %w", path, err)
	}
	return table, nil
}

// Save atomically replaces the persisted table for a pair: the CSV is
// written to a temp file in the cache root and renamed into place, so a
// concurrent reader never observes a partial file.
func (s *Store) Save(ticker, exchange string, table domain.PriceTable) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("create cache root: %w", err)
	}

	path := s.Path(ticker, exchange)
	tmp, err := os.CreateTemp(s.root, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(domain.CanonicalColumns); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache header: %w", err)
	}
	for _, row := range table.Rows {
		if err := writer.Write(rowToRecord(row)); err != nil {
			tmp.Close()
			return fmt.Errorf("write cache row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace cache file %s: %w", path, err)
	}

	s.logger.Debug("cache file written",
		slog.String("path", path),
		slog.Int("rows", table.Len()))
	return nil
}

func rowToRecord(row domain.PriceRow) []string {
	volume := ""
	if row.Volume.Valid {
		volume = strconv.FormatInt(row.Volume.Int64, 10)
	}
	return []string{
		domain.DateKey(row.Date),
		formatPrice(row.Open),
		formatPrice(row.High),
		formatPrice(row.Low),
		formatPrice(row.Close),
		volume,
		row.Ticker,
		row.Source,
	}
}

func formatPrice(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
