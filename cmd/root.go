// Package cmd implements the CLI commands for trailpipe using Cobra.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gaurav-prasanna/trailpipe/config"
)

var (
	flagConfig  string
	flagVerbose bool

	// cfg is resolved before any subcommand runs.
	cfg *config.Config
)

// flagKeys binds command flags to the config keys they override.
var flagKeys = map[string]string{
	"addr": "http_addr",
}

var rootCmd = &cobra.Command{
	Use:   "trailpipe",
	Short: "trailpipe: turn Tumblr reblog trails into cards, renders and documents",
	Long: `trailpipe fetches a Tumblr post, normalizes its reblog trail into an
ordered list of entries, and renders it as Markdown, JSON, PDF, HTML or PNG.
It can also serve link-preview cards for posts.

Usage:
  trailpipe render <post-url> [flags]
  trailpipe serve [flags]`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()

		v := viper.New()
		if flagConfig != "" {
			v.SetConfigFile(flagConfig)
		}
		for flag, key := range flagKeys {
			if f := cmd.Flags().Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return err
				}
			}
		}

		c, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = c

		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
		if flagVerbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Debug().Str("config", v.ConfigFileUsed()).Msg("Configuration loaded")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (default: ./config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
