// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citelink/internal/extract"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the citation cache",
	Long: `Cache works with the on-disk store of resolutions. Entries are keyed by
the exact author string and year and stay fresh for the configured TTL
(30 days by default).`,
}

// --- get subcommand ---

var cacheGetCmd = &cobra.Command{
	Use:   "get AUTHORS YEAR",
	Short: "Show the cached resolution for a citation",
	Args:  cobra.ExactArgs(2),
	RunE:  runCacheGet,
}

func runCacheGet(cmd *cobra.Command, args []string) error {
	authors := extract.NormalizeAuthors(args[0])
	year, err := parseYear(args[1])
	if err != nil {
		return err
	}

	cfg := loadConfig()
	cfg.Cache.Disabled = false
	p, err := newPipeline(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer p.Close()

	w := cmd.OutOrStdout()
	entry, ok := p.cache.Get(authors, year)
	if !ok {
		fmt.Fprintf(w, "%s (%d): not cached\n", authors, year)
		return nil
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	}

	if entry.URL == "" {
		fmt.Fprintf(w, "%s (%d): cached as not found\n", authors, year)
	} else {
		fmt.Fprintf(w, "%s (%d): %s\n", authors, year, entry.URL)
	}
	fmt.Fprintf(w, "  cached at: %s\n", entry.Timestamp.Format(time.RFC3339))
	return nil
}

// --- clear subcommand ---

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached resolution",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	cfg.Cache.Disabled = false
	p, err := newPipeline(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer p.Close()

	n := p.cache.Len()
	if err := p.cache.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries from %s\n", n, cfg.Cache.Path)
	return nil
}

func init() {
	cacheGetCmd.Flags().Bool("json", false, "output the entry as JSON")

	cacheCmd.AddCommand(cacheGetCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.AddCommand(cacheCmd)
}
