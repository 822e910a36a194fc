package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitjournal/internal/store"
)

var historyLimit int

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max runs to show")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := repoDir()
		if err != nil {
			return err
		}

		ledger, err := store.New(dir)
		if err != nil {
			return err
		}
		defer ledger.Close()

		runs, err := ledger.RecentRuns(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		for _, r := range runs {
			line := fmt.Sprintf("%s  %-11s %s", r.StartedAt.Format("2006-01-02 15:04"), r.State, shortHash(r.CommitHash))
			if r.SoftFailures != "" {
				line += "  (degraded: " + r.SoftFailures + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}
