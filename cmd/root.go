package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagRepo    string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gitjournal",
	Short: "Engineering journal generated from your commits and AI conversations",
	Long: `gitjournal turns each commit into a narrative journal entry by combining
the commit's diff, your recent AI-assistant conversation, and shell history,
then asking a language model to write each section of the entry.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if flagVerbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to gitjournal.toml")
	rootCmd.PersistentFlags().StringVar(&flagRepo, "repo", ".", "repository path")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func repoDir() (string, error) {
	dir, err := filepath.Abs(flagRepo)
	if err != nil {
		return "", fmt.Errorf("resolve repo path: %w", err)
	}
	return dir, nil
}
