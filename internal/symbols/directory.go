package symbols

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Instrument holds the metadata known for a listed security.
type Instrument struct {
	Ticker   string
	Exchange string
	Name     string
	Currency string
	ISIN     string
}

// Directory resolves instrument metadata for a (ticker, exchange) pair.
type Directory interface {
	Lookup(ticker, exchange string) (Instrument, bool)
}

// CSVDirectory is a Directory backed by an instruments CSV file with the
// columns Ticker,Exchange,Name,Currency,ISIN. The file is read once on
// first use.
type CSVDirectory struct {
	path string

	once    sync.Once
	loadErr error
	entries map[string]Instrument
}

// NewCSVDirectory creates a directory over the given instruments file.
func NewCSVDirectory(path string) *CSVDirectory {
	return &CSVDirectory{path: path}
}

// Lookup returns the instrument for the pair, loading the file on first
// call. A missing or unreadable file yields an empty directory, so every
// symbol is reported unknown rather than failing the fetch path.
func (d *CSVDirectory) Lookup(ticker, exchange string) (Instrument, bool) {
	d.once.Do(d.load)
	inst, ok := d.entries[pairKey(ticker, exchange)]
	return inst, ok
}

func (d *CSVDirectory) load() {
	d.entries = make(map[string]Instrument)

	f, err := os.Open(d.path)
	if err != nil {
		d.loadErr = fmt.Errorf("open instruments file: %w", err)
		return
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		d.loadErr = fmt.Errorf("parse instruments file: %w", err)
		return
	}

	for i, record := range records {
		if i == 0 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "ticker") {
			continue
		}
		if len(record) < 2 {
			continue
		}
		inst := Instrument{
			Ticker:   strings.TrimSpace(record[0]),
			Exchange: strings.TrimSpace(record[1]),
		}
		if len(record) > 2 {
			inst.Name = strings.TrimSpace(record[2])
		}
		if len(record) > 3 {
			inst.Currency = strings.TrimSpace(record[3])
		}
		if len(record) > 4 {
			inst.ISIN = strings.TrimSpace(record[4])
		}
		d.entries[pairKey(inst.Ticker, inst.Exchange)] = inst
	}
}

// LoadErr reports the error, if any, from loading the backing file.
func (d *CSVDirectory) LoadErr() error {
	d.once.Do(d.load)
	return d.loadErr
}

func pairKey(ticker, exchange string) string {
	return strings.ToUpper(strings.TrimSpace(ticker)) + "|" + strings.ToUpper(strings.TrimSpace(exchange))
}
