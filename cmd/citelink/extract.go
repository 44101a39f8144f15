// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citelink/internal/extract"
	"github.com/pdiddy/citelink/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "List the author-year citations found in a file",
	Long: `Extract scans a markdown or text file for author-year citations and
prints each one with its byte position, pattern and confidence. No network
calls are made. Use "-" to read standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().Bool("json", false, "output citations as JSON")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	citations := extract.New(loadConfig().Extractor).Extract(text)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatExtractOutput(cmd.OutOrStdout(), citations, jsonOutput)
}

func formatExtractOutput(w io.Writer, citations []types.Citation, jsonOutput bool) error {
	if jsonOutput {
		if citations == nil {
			citations = []types.Citation{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(citations)
	}

	if len(citations) == 0 {
		fmt.Fprintln(w, "No citations found.")
		return nil
	}

	fmt.Fprintf(w, "%-12s  %-9s  %-4s  %-30s  %s\n", "Position", "Pattern", "Conf", "Authors", "Year")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, c := range citations {
		authors := c.Authors
		if len(authors) > 30 {
			authors = authors[:27] + "..."
		}
		pos := fmt.Sprintf("%d-%d", c.Position.Start, c.Position.End)
		fmt.Fprintf(w, "%-12s  %-9s  %.2f  %-30s  %d\n", pos, c.Pattern, c.Confidence, authors, c.Year)
	}
	fmt.Fprintf(w, "\n%d citations\n", len(citations))
	return nil
}

// readInput reads path, or standard input for "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
