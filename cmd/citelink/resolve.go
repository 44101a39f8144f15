// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citelink/internal/extract"
	"github.com/pdiddy/citelink/pkg/types"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve AUTHORS YEAR",
	Short: "Resolve one citation to a DOI or arXiv link",
	Long: `Resolve looks up a single author-year citation, trying CrossRef with the
full author string, CrossRef with the first author, then arXiv the same two
ways. A fresh cache entry is used instead when present, and new results are
cached unless --no-cache is given.

Example:
  citelink resolve "Smith et al." 2024`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().Bool("json", false, "output the resolution as JSON")

	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	authors := extract.NormalizeAuthors(args[0])
	year, err := parseYear(args[1])
	if err != nil {
		return err
	}

	p, err := newPipeline(loadConfig(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer p.Close()

	res := p.engine().Lookup(cmd.Context(), authors, year)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatResolveOutput(cmd.OutOrStdout(), authors, year, res, jsonOutput)
}

// parseYear accepts a four-digit year in the range citations are
// extracted for.
func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q: %w", s, err)
	}
	if !extract.ValidYear(year) {
		return 0, fmt.Errorf("year %d outside %d-%d", year, extract.MinYear, extract.MaxYear)
	}
	return year, nil
}

func formatResolveOutput(w io.Writer, authors string, year int, r types.ResolvedCitation, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	if !r.IsResolved() {
		fmt.Fprintf(w, "%s (%d): not found\n", authors, year)
		return nil
	}

	fmt.Fprintf(w, "%s (%d)\n", authors, year)
	fmt.Fprintf(w, "  url:        %s\n", r.URL)
	if r.DOI != "" {
		fmt.Fprintf(w, "  doi:        %s\n", r.DOI)
	}
	if r.ArxivID != "" {
		fmt.Fprintf(w, "  arxiv:      %s\n", r.ArxivID)
	}
	fmt.Fprintf(w, "  source:     %s\n", r.Source)
	fmt.Fprintf(w, "  confidence: %.2f\n", r.Confidence)
	return nil
}
