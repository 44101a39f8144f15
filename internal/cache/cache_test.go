// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citelink/pkg/types"
)

// fakeClock is a settable clock for TTL tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func testCache(t *testing.T, clock *fakeClock) (*Cache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "citations_cache.json")
	return New(NewJSONFile(path), WithClock(clock.now)), path
}

func readRecords(t *testing.T, path string) map[string]fileRecord {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records map[string]fileRecord
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

// --- Cache tests ---

func TestPutGetRoundTrip(t *testing.T) {
	clock := newClock()
	c, _ := testCache(t, clock)

	c.Put("Smith et al.", 2020, "10.1234/x", "https://doi.org/10.1234/x")

	got, ok := c.Get("Smith et al.", 2020)
	require.True(t, ok)
	assert.Equal(t, "Smith et al.", got.Authors)
	assert.Equal(t, 2020, got.Year)
	assert.Equal(t, "10.1234/x", got.DOI)
	assert.Equal(t, "https://doi.org/10.1234/x", got.URL)
	assert.True(t, got.Timestamp.Equal(clock.t))

	_, ok = c.Get("Smith et al.", 2021)
	assert.False(t, ok, "different year is a different key")
}

func TestRoundTripAcrossInstances(t *testing.T) {
	clock := newClock()
	c, path := testCache(t, clock)
	c.Put("Lentink", 2014, "10.1/a", "https://doi.org/10.1/a")
	c.Put("Smith", 2024, "", "")

	reopened := New(NewJSONFile(path), WithClock(clock.now))
	assert.Equal(t, 2, reopened.Len())

	got, ok := reopened.Get("Lentink", 2014)
	require.True(t, ok)
	assert.Equal(t, "https://doi.org/10.1/a", got.URL)
	assert.True(t, got.Timestamp.Equal(clock.t))

	neg, ok := reopened.Get("Smith", 2024)
	require.True(t, ok)
	assert.Empty(t, neg.DOI)
	assert.Empty(t, neg.URL)
}

func TestTTLBoundary(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantHit bool
	}{
		{"just written", 0, true},
		{"29 days", 29 * 24 * time.Hour, true},
		{"one second short of ttl", DefaultTTL - time.Second, true},
		{"exactly ttl", DefaultTTL, false},
		{"30 days and a second", DefaultTTL + time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newClock()
			c, _ := testCache(t, clock)
			c.Put("Brown", 2013, "10.1/b", "https://doi.org/10.1/b")

			clock.advance(tt.elapsed)
			_, ok := c.Get("Brown", 2013)
			assert.Equal(t, tt.wantHit, ok)
		})
	}
}

func TestCustomTTL(t *testing.T) {
	clock := newClock()
	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(NewJSONFile(path), WithClock(clock.now), WithTTL(time.Hour))

	c.Put("Brown", 2013, "", "")
	clock.advance(59 * time.Minute)
	_, ok := c.Get("Brown", 2013)
	assert.True(t, ok)

	clock.advance(2 * time.Minute)
	_, ok = c.Get("Brown", 2013)
	assert.False(t, ok)
}

func TestStaleEntryRemovedFromFile(t *testing.T) {
	clock := newClock()
	c, path := testCache(t, clock)

	c.Put("Smith", 2024, "", "")
	c.Put("Lentink", 2014, "10.1/a", "https://doi.org/10.1/a")
	require.Contains(t, readRecords(t, path), "Smith_2024")

	clock.advance(31 * 24 * time.Hour)
	c.Put("Lentink", 2014, "10.1/a", "https://doi.org/10.1/a")

	_, ok := c.Get("Smith", 2024)
	assert.False(t, ok)

	records := readRecords(t, path)
	assert.NotContains(t, records, "Smith_2024")
	assert.Contains(t, records, "Lentink_2014")
	assert.Equal(t, 1, c.Len())
}

func TestNegativeEntryStoredAsNull(t *testing.T) {
	clock := newClock()
	c, path := testCache(t, clock)
	c.Put("Smith", 2024, "", "")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"doi": null`)
	assert.Contains(t, string(data), `"url": null`)
	assert.Contains(t, string(data), `"authors": "Smith"`)
	assert.Contains(t, string(data), `"year": 2024`)
}

func TestClear(t *testing.T) {
	clock := newClock()
	c, path := testCache(t, clock)
	c.Put("Smith", 2024, "", "")
	require.FileExists(t, path)

	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Len())
	assert.NoFileExists(t, path)

	_, ok := c.Get("Smith", 2024)
	assert.False(t, ok)

	require.NoError(t, c.Clear(), "clearing an absent file is not an error")
}

func TestMissingFileStartsEmpty(t *testing.T) {
	c := New(NewJSONFile(filepath.Join(t.TempDir(), "nope", "cache.json")))
	assert.Equal(t, 0, c.Len())
}

func TestCorruptFileQuarantined(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	var logBuf bytes.Buffer
	c := New(NewJSONFile(path), WithLogger(zerolog.New(&logBuf)))

	assert.Equal(t, 0, c.Len())
	assert.NoFileExists(t, path)
	assert.Contains(t, logBuf.String(), "corrupt cache file")

	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))

	c.Put("Smith", 2024, "", "")
	assert.FileExists(t, path)
}

func TestLoadReturnsCorruptError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("[1, 2"), 0o644))

	entries, err := NewJSONFile(path).Load()
	assert.Empty(t, entries)

	var corrupt *CorruptError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, path, corrupt.Path)
	assert.True(t, strings.HasPrefix(corrupt.QuarantinedTo, path+".corrupt-"))
}

func TestNaiveTimestampsAccepted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	content := `{
  "Brown_2013": {"authors": "Brown", "year": 2013, "doi": "10.1/b", "url": "https://doi.org/10.1/b", "timestamp": "2024-03-01T10:00:00.123456"},
  "Lee_2019": {"authors": "Lee", "year": 2019, "doi": null, "url": null, "timestamp": "2024-03-01T10:00:00"},
  "Bad_2000": {"authors": "Bad", "year": 2000, "doi": null, "url": null, "timestamp": "yesterday"}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	entries, err := NewJSONFile(path).Load()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	want := time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.Local)
	assert.True(t, entries["Brown_2013"].Timestamp.Equal(want))
	assert.Equal(t, "10.1/b", entries["Brown_2013"].DOI)
	assert.False(t, entries["Lee_2019"].Timestamp.IsZero())
	assert.Empty(t, entries["Lee_2019"].URL)
	assert.True(t, entries["Bad_2000"].Timestamp.IsZero())
}

func TestUnparseableTimestampIsStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	content := `{"Bad_2000": {"authors": "Bad", "year": 2000, "doi": null, "url": null, "timestamp": "garbage"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c := New(NewJSONFile(path))
	_, ok := c.Get("Bad", 2000)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

// failingBackend loads nothing and refuses every write.
type failingBackend struct{ saves int }

func (b *failingBackend) Load() (map[string]types.CacheEntry, error) { return nil, nil }
func (b *failingBackend) Save(map[string]types.CacheEntry) error {
	b.saves++
	return errors.New("disk full")
}
func (b *failingBackend) Remove() error { return nil }

func TestWriteFailureKeepsMemoryState(t *testing.T) {
	backend := &failingBackend{}
	var logBuf bytes.Buffer
	c := New(backend, WithLogger(zerolog.New(&logBuf)))

	c.Put("Smith", 2024, "10.1/s", "https://doi.org/10.1/s")

	got, ok := c.Get("Smith", 2024)
	require.True(t, ok)
	assert.Equal(t, "10.1/s", got.DOI)
	assert.Equal(t, 1, backend.saves)
	assert.Contains(t, logBuf.String(), "disk full")
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")
	f := NewJSONFile(path)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.Save(map[string]types.CacheEntry{
			"Smith_2024": {Authors: "Smith", Year: 2024, Timestamp: time.Now()},
		}))
	}

	names, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "cache.json", names[0].Name())
}

// --- SQLite backend tests ---

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "cache.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	assert.FileExists(t, path)

	clock := newClock()
	c := New(db, WithClock(clock.now))
	c.Put("Lentink", 2014, "10.1/a", "https://doi.org/10.1/a")
	c.Put("Smith", 2024, "", "")

	entries, err := db.Load()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://doi.org/10.1/a", entries["Lentink_2014"].URL)
	assert.Empty(t, entries["Smith_2024"].DOI)
	assert.True(t, entries["Smith_2024"].Timestamp.Equal(clock.t))

	reopened := New(db, WithClock(clock.now))
	got, ok := reopened.Get("Lentink", 2014)
	require.True(t, ok)
	assert.Equal(t, "10.1/a", got.DOI)
}

func TestSQLiteStaleEntryRemoved(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := newClock()
	c := New(db, WithClock(clock.now))
	c.Put("Smith", 2024, "", "")

	clock.advance(31 * 24 * time.Hour)
	_, ok := c.Get("Smith", 2024)
	assert.False(t, ok)

	entries, err := db.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLiteClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := New(db)
	c.Put("Smith", 2024, "", "")
	require.NoError(t, c.Clear())

	entries, err := db.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.FileExists(t, path, "database file is kept")
}
