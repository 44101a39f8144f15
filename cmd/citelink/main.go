// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the citelink CLI, which finds
// author-year citations in markdown articles and links them to DOI or
// arXiv pages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citelink/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	secretsDir = ".secrets/"
	dotenvFile = ".env"
)

// loadedSecrets holds credentials loaded from .secrets/, .env and the
// environment at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, else the loaded secret for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets[key]
}

// rootCmd is the base command for the citelink CLI.
var rootCmd = &cobra.Command{
	Use:   "citelink",
	Short: "Link author-year citations in markdown to their sources",
	Long: `citelink scans markdown articles for author-year citations such as
"Smith et al. (2024)", resolves them against CrossRef and arXiv, and rewrites
confident matches as markdown links. Resolutions are cached on disk so
repeated runs do not hit the APIs again.

Subcommands expose each stage: extract lists citations, resolve looks up a
single citation, link runs the whole pipeline over articles, and cache
inspects or clears stored resolutions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)
		s, err := secrets.Collect(secretsDir, dotenvFile, log)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./citelink.yaml or ~/.config/citelink/citelink.yaml)")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "", "log format: console or json")
	pf.String("cache-path", "", "citation cache location")
	pf.String("cache-backend", "", "cache backend: json or sqlite")
	pf.Bool("no-cache", false, "neither read nor write the citation cache")

	mustBind("log.level", pf.Lookup("log-level"))
	mustBind("log.format", pf.Lookup("log-format"))
	mustBind("cache.path", pf.Lookup("cache-path"))
	mustBind("cache.backend", pf.Lookup("cache-backend"))
	mustBind("cache.disabled", pf.Lookup("no-cache"))

	registerDefaults(viper.GetViper())
}

func initConfig() {
	// .env values become environment variables, so CITELINK_* settings
	// can live there too. Existing variables win.
	_ = godotenv.Load(dotenvFile)

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("citelink")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "citelink"))
		}
	}

	viper.SetEnvPrefix("CITELINK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the diagnostic logger on the command's stderr.
func newLogger(cmd *cobra.Command) zerolog.Logger {
	return loggerFor(loadConfig(), cmd.ErrOrStderr())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
