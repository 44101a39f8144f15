// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/citelink/internal/engine"
	"github.com/pdiddy/citelink/internal/format"
	"github.com/pdiddy/citelink/pkg/types"
)

var linkCmd = &cobra.Command{
	Use:   "link FILE...",
	Short: "Rewrite citations in markdown articles as links",
	Long: `Link runs the full pipeline over each article: extract citations from
the body (YAML frontmatter is left alone), resolve them through the cache and
the bibliographic APIs, rewrite confident matches as markdown links, and
append a bibliography section listing each linked work once.

Output goes to standard output unless --in-place or --output is given.
Articles are processed one after another and share one cache.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLink,
}

func init() {
	linkCmd.Flags().StringP("output", "o", "", "write the linked article to this file (single input only)")
	linkCmd.Flags().Bool("in-place", false, "overwrite each input file")
	linkCmd.Flags().String("csl", "", "also write the linked works as CSL-YAML to this file")
	linkCmd.Flags().Bool("no-bibliography", false, "do not append a bibliography section")
	linkCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file when done")

	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	inPlace, _ := cmd.Flags().GetBool("in-place")
	cslPath, _ := cmd.Flags().GetString("csl")
	noBib, _ := cmd.Flags().GetBool("no-bibliography")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	if output != "" && inPlace {
		return fmt.Errorf("--output and --in-place are mutually exclusive")
	}
	if output != "" && len(args) > 1 {
		return fmt.Errorf("--output takes a single input file, got %d", len(args))
	}
	for _, path := range args {
		if inPlace && path == "-" {
			return fmt.Errorf("--in-place cannot rewrite standard input")
		}
	}

	cfg := loadConfig()
	p, err := newPipeline(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer p.Close()

	eng := p.engine(engine.WithBibliography(!noBib, cfg.Engine.BibliographyHeading))

	var all []types.FormattedCitation
	for _, path := range args {
		doc, err := readInput(cmd, path)
		if err != nil {
			return err
		}

		res := eng.ProcessArticle(cmd.Context(), doc)
		all = append(all, res.Formatted...)

		if err := writeArticle(cmd.OutOrStdout(), path, output, inPlace, res.Document); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "linked %s: %d of %d citations resolved\n",
			displayName(path), res.Resolved(), len(res.Citations))
	}

	if cslPath != "" {
		if err := writeCSL(cslPath, all); err != nil {
			return err
		}
	}
	if metricsFile != "" {
		if err := writeMetrics(metricsFile, p.registry); err != nil {
			return err
		}
	}
	return nil
}

func writeArticle(stdout io.Writer, path, output string, inPlace bool, doc string) error {
	switch {
	case inPlace:
		return writeFilePreservingMode(path, doc)
	case output != "":
		if err := os.WriteFile(output, []byte(doc), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		return nil
	default:
		_, err := io.WriteString(stdout, doc)
		return err
	}
}

func writeFilePreservingMode(path, content string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeCSL(path string, formatted []types.FormattedCitation) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := format.FormatCSL(formatted, f); err != nil {
		f.Close()
		return fmt.Errorf("writing CSL: %w", err)
	}
	return f.Close()
}

// writeMetrics writes the registry in the node-exporter textfile format.
func writeMetrics(path string, reg *prometheus.Registry) error {
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}
