package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gitjournal/internal/chatlog"
	"gitjournal/internal/config"
	"gitjournal/internal/gitctx"
	"gitjournal/internal/journal"
	"gitjournal/internal/llm"
	"gitjournal/internal/shellhist"
	"gitjournal/internal/store"
)

var (
	genForce   bool
	genLogFile string
)

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().BoolVar(&genForce, "force", false, "regenerate even if the commit is already journaled")
	generateCmd.Flags().StringVar(&genLogFile, "log-file", "", "append logs to a file (used by detached hook runs)")
}

var generateCmd = &cobra.Command{
	Use:   "generate [commit]",
	Short: "Generate a journal entry for a commit (default HEAD)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if genLogFile != "" {
			f, err := os.OpenFile(genLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()
			log.Logger = zerolog.New(f).With().Timestamp().Logger()
		}

		ref := "HEAD"
		if len(args) == 1 {
			ref = args[0]
		}

		dir, err := repoDir()
		if err != nil {
			return err
		}

		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}

		ledger, err := store.New(dir)
		if err != nil {
			return err
		}
		defer ledger.Close()

		chat, err := chatlog.Open(dir, cfg.Chat.Dir)
		if err != nil {
			return err
		}

		// A model client that cannot be built (no key, bad provider) is a
		// degradation, not an abort: the diff-derived sections still have value.
		var model journal.Completer
		client, err := llm.New(cmd.Context(), llm.Config{
			Provider:          llm.Provider(cfg.Model.Provider),
			APIKey:            cfg.Model.APIKey,
			Model:             cfg.Model.Name,
			BaseURL:           cfg.Model.BaseURL,
			Temperature:       cfg.Model.Temperature,
			MaxTokens:         cfg.Model.MaxTokens,
			Timeout:           time.Duration(cfg.Model.TimeoutSeconds) * time.Second,
			RequestsPerMinute: cfg.Model.RequestsPerMinute,
		})
		if err != nil {
			log.Warn().Err(err).Msg("model client unavailable, sections will be omitted")
		} else {
			model = client
		}

		pipeline := &journal.Pipeline{
			Repo:   gitctx.Open(dir),
			Chat:   chat,
			Shell:  shellhist.Locate(cfg.History.File),
			Model:  model,
			Ledger: ledger,
			Writer: &journal.Writer{Root: filepath.Join(dir, cfg.Journal.Dir)},
			Opts: journal.Options{
				MessageCap:   cfg.Chat.MessageCap,
				WindowMax:    cfg.Chat.WindowMax,
				TokenCap:     cfg.Chat.TokenCap,
				HistoryLimit: cfg.History.Limit,
				JournalDir:   cfg.Journal.Dir,
				Force:        genForce,
			},
		}

		report, err := pipeline.Run(cmd.Context(), ref)
		if err != nil {
			return err
		}

		switch {
		case report.Skipped:
			fmt.Printf("Skipped %s (nothing to journal)\n", shortHash(report.Commit))
		case report.Degraded():
			fmt.Printf("Journaled %s with %d degraded units → %s\n", shortHash(report.Commit), len(report.Soft), report.EntryPath)
		default:
			fmt.Printf("Journaled %s → %s\n", shortHash(report.Commit), report.EntryPath)
		}
		return nil
	},
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
