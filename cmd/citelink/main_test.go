// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citelink/pkg/types"
)

func TestParseYear(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"2024", 2024, false},
		{"1900", 1900, false},
		{"2099", 2099, false},
		{"1899", 0, true},
		{"2100", 0, true},
		{"twenty", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseYear(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFromDefaults(t *testing.T) {
	v := viper.New()
	registerDefaults(v)

	got := configFrom(v)
	want := types.DefaultConfig()
	assert.Equal(t, want, got)
}

func TestConfigFromOverrides(t *testing.T) {
	v := viper.New()
	registerDefaults(v)
	v.Set("cache.ttl", "48h")
	v.Set("formatter.confidence_threshold", 0.8)
	v.Set("cache.backend", "sqlite")

	got := configFrom(v)
	assert.Equal(t, 48*time.Hour, got.Cache.TTL)
	assert.Equal(t, 0.8, got.Formatter.ConfidenceThreshold)
	assert.Equal(t, types.CacheSQLite, got.Cache.Backend)
}

func TestOpenCacheBackends(t *testing.T) {
	dir := t.TempDir()

	c, closeFn, err := openCache(types.CacheConfig{Backend: types.CacheJSON, Path: filepath.Join(dir, "c.json")}, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Nil(t, closeFn)

	c, closeFn, err = openCache(types.CacheConfig{Backend: types.CacheSQLite, Path: filepath.Join(dir, "c.db")}, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, c)
	require.NotNil(t, closeFn)
	assert.NoError(t, closeFn())

	_, _, err = openCache(types.CacheConfig{Backend: "redis"}, zerolog.Nop())
	assert.ErrorContains(t, err, "unsupported cache backend")
}

func TestFormatExtractOutput(t *testing.T) {
	citations := []types.Citation{
		{Authors: "Lentink", Year: 2014, OriginalText: "Lentink (2014)", Position: types.Span{Start: 0, End: 14}, Confidence: 1.0, Pattern: "primary"},
	}

	var buf bytes.Buffer
	require.NoError(t, formatExtractOutput(&buf, citations, false))
	assert.Contains(t, buf.String(), "0-14")
	assert.Contains(t, buf.String(), "Lentink")
	assert.Contains(t, buf.String(), "1 citations")

	buf.Reset()
	require.NoError(t, formatExtractOutput(&buf, nil, true))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, formatExtractOutput(&buf, nil, false))
	assert.Equal(t, "No citations found.\n", buf.String())
}

func TestFormatResolveOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatResolveOutput(&buf, "Moore", 2001, types.Unresolved(0), false))
	assert.Equal(t, "Moore (2001): not found\n", buf.String())

	buf.Reset()
	r := types.ResolvedCitation{DOI: "10.1/x", URL: "https://doi.org/10.1/x", Confidence: 0.9, Source: "crossref"}
	require.NoError(t, formatResolveOutput(&buf, "Brown", 2013, r, false))
	assert.Contains(t, buf.String(), "https://doi.org/10.1/x")
	assert.Contains(t, buf.String(), "0.90")
}

// TestLinkCommand runs "citelink link" end to end against fake APIs.
func TestLinkCommand(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/crossref", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Query().Get("query"), "Brown") {
			fmt.Fprint(w, `{"message":{"items":[{"DOI":"10.1234/x","published":{"date-parts":[[2013]]}}]}}`)
			return
		}
		fmt.Fprint(w, `{"message":{"items":[]}}`)
	})
	mux.HandleFunc("/arxiv", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	t.Setenv("CITELINK_RESOLVER_CROSSREF_URL", ts.URL+"/crossref")
	t.Setenv("CITELINK_RESOLVER_ARXIV_URL", ts.URL+"/arxiv")
	t.Setenv("CITELINK_RESOLVER_CROSSREF_RATE", "0")
	t.Setenv("CITELINK_RESOLVER_ARXIV_RATE", "0")
	t.Setenv("CITELINK_CACHE_PATH", filepath.Join(dir, "cache.json"))
	t.Setenv("CITELINK_LOG_LEVEL", "disabled")

	article := filepath.Join(dir, "post.md")
	require.NoError(t, os.WriteFile(article, []byte("---\ntitle: Test\n---\nBrown (2013) and Nobody (2020).\n"), 0o644))
	cslPath := filepath.Join(dir, "refs.yaml")
	metricsPath := filepath.Join(dir, "citelink.prom")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"link", article, "--csl", cslPath, "--metrics-file", metricsPath})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	want := "---\ntitle: Test\n---\n[Brown (2013)](https://doi.org/10.1234/x) and Nobody (2020).\n" +
		"\n## Cited Works\n\n- [Brown (2013)](https://doi.org/10.1234/x)\n"
	assert.Equal(t, want, stdout.String())
	assert.Contains(t, stderr.String(), "1 of 2 citations resolved")
	assert.FileExists(t, filepath.Join(dir, "cache.json"))

	csl, err := os.ReadFile(cslPath)
	require.NoError(t, err)
	assert.Contains(t, string(csl), "10.1234/x")

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "citelink_citations_linked_total 1")
}
