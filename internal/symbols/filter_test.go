package symbols

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDirectory records how many lookups reach the backing store.
type countingDirectory struct {
	known   map[string]bool
	lookups int
}

func (d *countingDirectory) Lookup(ticker, exchange string) (Instrument, bool) {
	d.lookups++
	return Instrument{Ticker: ticker, Exchange: exchange}, d.known[ticker+"|"+exchange]
}

func TestFilter_MemoizesVerdicts(t *testing.T) {
	dir := &countingDirectory{known: map[string]bool{"ACME|NYSE": true}}
	filter := NewFilter(dir, "", nil)

	assert.True(t, filter.IsValid("ACME", "NYSE"))
	assert.True(t, filter.IsValid("ACME", "NYSE"))
	assert.False(t, filter.IsValid("GHOST", "NYSE"))
	assert.False(t, filter.IsValid("GHOST", "NYSE"))

	assert.Equal(t, 2, dir.lookups, "one directory lookup per distinct pair")
}

func TestFilter_RecordSkippedAppendsAuditLines(t *testing.T) {
	audit := filepath.Join(t.TempDir(), "audit", "skipped.log")
	filter := NewFilter(&countingDirectory{}, audit, nil)

	filter.RecordSkipped("GHOST", "NYSE", "no instrument metadata")
	filter.RecordSkipped("NOPE", "LSE", "no instrument metadata")

	data, err := os.ReadFile(audit)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], ",GHOST,NYSE,no instrument metadata")
	assert.Contains(t, lines[1], ",NOPE,LSE,no instrument metadata")

	fields := strings.SplitN(lines[0], ",", 2)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T`, fields[0], "lines start with an RFC3339 timestamp")
}

func TestFilter_AuditFailureDoesNotPanic(t *testing.T) {
	// Point the audit log at a path whose parent is a regular file so the
	// append must fail.
	parent := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0644))

	filter := NewFilter(&countingDirectory{}, filepath.Join(parent, "skipped.log"), nil)

	assert.NotPanics(t, func() {
		filter.RecordSkipped("GHOST", "NYSE", "no instrument metadata")
	})
}

func TestFilter_EmptyAuditPathDisablesLogging(t *testing.T) {
	filter := NewFilter(&countingDirectory{}, "", nil)
	assert.NotPanics(t, func() {
		filter.RecordSkipped("GHOST", "NYSE", "no instrument metadata")
	})
}

func TestCSVDirectory_LookupAndCaseFolding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instruments.csv")
	content := "Ticker,Exchange,Name,Currency,ISIN\n" +
		"ACME,NYSE,Acme Corp,USD,US0000000001\n" +
		"beta,lse,Beta plc,GBP,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	dir := NewCSVDirectory(path)

	inst, ok := dir.Lookup("ACME", "NYSE")
	require.True(t, ok)
	assert.Equal(t, "Acme Corp", inst.Name)
	assert.Equal(t, "US0000000001", inst.ISIN)

	_, ok = dir.Lookup("acme", "nyse")
	assert.True(t, ok, "pair lookup is case-insensitive")

	_, ok = dir.Lookup("BETA", "LSE")
	assert.True(t, ok)

	_, ok = dir.Lookup("GHOST", "NYSE")
	assert.False(t, ok)

	assert.NoError(t, dir.LoadErr())
}

func TestCSVDirectory_MissingFileYieldsEmptyDirectory(t *testing.T) {
	dir := NewCSVDirectory(filepath.Join(t.TempDir(), "absent.csv"))

	_, ok := dir.Lookup("ACME", "NYSE")
	assert.False(t, ok)
	assert.Error(t, dir.LoadErr())
}
