package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"gitjournal/internal/config"
	"gitjournal/internal/journal"
)

var reflectFromClipboard bool

func init() {
	rootCmd.AddCommand(reflectCmd)
	reflectCmd.Flags().BoolVar(&reflectFromClipboard, "clipboard", false, "take the reflection text from the clipboard")
}

var reflectCmd = &cobra.Command{
	Use:   "reflect \"your thoughts...\"",
	Short: "Append a verbatim reflection to today's journal document",
	Long: `reflect appends user-authored text to today's per-day document, outside
the generation flow. The text is preserved exactly as given and never passes
through parsing or validation.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var text string
		if reflectFromClipboard {
			clip, err := clipboard.ReadAll()
			if err != nil {
				return fmt.Errorf("read clipboard: %w", err)
			}
			text = clip
		} else {
			text = strings.Join(args, " ")
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("nothing to reflect: pass text or --clipboard")
		}

		dir, err := repoDir()
		if err != nil {
			return err
		}
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}

		writer := &journal.Writer{Root: filepath.Join(dir, cfg.Journal.Dir)}
		path, err := writer.AppendReflection(text, time.Now())
		if err != nil {
			return err
		}

		fmt.Printf("Reflection saved → %s\n", path)
		return nil
	},
}
