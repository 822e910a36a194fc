package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(hookCmd)
	hookCmd.AddCommand(hookRunCmd)
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Commands intended to be called from git hooks",
}

// hook run is the post-commit entry point. It spawns the real pipeline
// detached and returns immediately: git must never wait on generation, and
// pipeline errors must never fail a commit.
var hookRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger journal generation for HEAD in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := repoDir()
		if err != nil {
			log.Warn().Err(err).Msg("hook: cannot resolve repo path")
			return nil
		}

		self, err := os.Executable()
		if err != nil {
			log.Warn().Err(err).Msg("hook: cannot resolve own binary")
			return nil
		}

		stateDir := filepath.Join(dir, ".gitjournal")
		if err := os.MkdirAll(stateDir, 0o755); err != nil {
			log.Warn().Err(err).Msg("hook: cannot create state dir")
			return nil
		}
		logFile := filepath.Join(stateDir, "hook.log")

		spawnArgs := []string{"generate", "HEAD", "--repo", dir, "--log-file", logFile}
		if flagConfig != "" {
			spawnArgs = append(spawnArgs, "--config", flagConfig)
		}

		child := exec.Command(self, spawnArgs...)
		child.Stdout = nil
		child.Stderr = nil
		child.Stdin = nil
		if err := child.Start(); err != nil {
			log.Warn().Err(err).Msg("hook: failed to spawn generator")
			return nil
		}
		// Detach: the commit returns now, the journal arrives when it arrives.
		if err := child.Process.Release(); err != nil {
			log.Warn().Err(err).Msg("hook: release failed")
		}

		fmt.Println("gitjournal: generating entry in background")
		return nil
	},
}
