// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/citelink/pkg/types"
)

// quarantineLayout timestamps the name a corrupt cache file is moved to.
const quarantineLayout = "20060102T150405"

// Timestamp layouts accepted on read. Naive timestamps (no offset) are
// interpreted in local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// fileRecord is the on-disk JSON shape of one entry.
type fileRecord struct {
	Authors   string  `json:"authors"`
	Year      int     `json:"year"`
	DOI       *string `json:"doi"`
	URL       *string `json:"url"`
	Timestamp string  `json:"timestamp"`
}

// CorruptError reports a cache file that could not be read or parsed and
// was moved aside.
type CorruptError struct {
	Path          string
	QuarantinedTo string
	Err           error
}

func (e *CorruptError) Error() string {
	if e.QuarantinedTo == "" {
		return fmt.Sprintf("corrupt cache file %s (could not move aside): %v", e.Path, e.Err)
	}
	return fmt.Sprintf("corrupt cache file %s moved to %s: %v", e.Path, e.QuarantinedTo, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// JSONFile stores the cache as a single JSON object mapping
// "{authors}_{year}" to {authors, year, doi, url, timestamp}.
type JSONFile struct {
	path string
	now  func() time.Time
}

// NewJSONFile returns a backend for the file at path. The file and its
// directory are created on first save.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path, now: time.Now}
}

// Path returns the backing file path.
func (f *JSONFile) Path() string {
	return f.path
}

// Load reads the cache file. A missing file is an empty cache. An
// unreadable or malformed file is renamed to "{path}.corrupt-{timestamp}"
// and Load returns an empty map with a *CorruptError.
func (f *JSONFile) Load() (map[string]types.CacheEntry, error) {
	entries := make(map[string]types.CacheEntry)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return entries, f.quarantine(err)
	}

	var records map[string]fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return entries, f.quarantine(err)
	}

	for key, rec := range records {
		entries[key] = rec.entry()
	}
	return entries, nil
}

func (f *JSONFile) quarantine(cause error) error {
	dest := fmt.Sprintf("%s.corrupt-%s", f.path, f.now().Format(quarantineLayout))
	if err := os.Rename(f.path, dest); err != nil {
		return &CorruptError{Path: f.path, Err: errors.Join(cause, err)}
	}
	return &CorruptError{Path: f.path, QuarantinedTo: dest, Err: cause}
}

// Save writes entries to a temporary file in the same directory and
// renames it over the cache file, so a crash never leaves a truncated file.
func (f *JSONFile) Save(entries map[string]types.CacheEntry) error {
	records := make(map[string]fileRecord, len(entries))
	for key, e := range entries {
		records[key] = newFileRecord(e)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".citations-cache-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	if writeErr == nil {
		writeErr = tmpFile.Sync()
	}
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing cache: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Remove deletes the cache file. A missing file is not an error.
func (f *JSONFile) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}

func newFileRecord(e types.CacheEntry) fileRecord {
	return fileRecord{
		Authors:   e.Authors,
		Year:      e.Year,
		DOI:       optional(e.DOI),
		URL:       optional(e.URL),
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
	}
}

func (r fileRecord) entry() types.CacheEntry {
	e := types.CacheEntry{
		Authors:   r.Authors,
		Year:      r.Year,
		Timestamp: parseTimestamp(r.Timestamp),
	}
	if r.DOI != nil {
		e.DOI = *r.DOI
	}
	if r.URL != nil {
		e.URL = *r.URL
	}
	return e
}

// optional maps "" to JSON null.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseTimestamp returns the zero time for unparseable input, which the
// cache treats as stale.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
