// Package cli wires the supervisor's commands. One file per command.
package cli

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "mocap-batch-runner",
	Short: "fault-tolerant batch supervisor for per-video pipeline jobs",
	Long: `mocap-batch-runner walks a video corpus, skips work that already
completed, and runs every remaining video through the external pipeline
worker in its own OS process. Crashes (including OOM kills) are recorded in
on-disk markers so a restarted run resumes exactly where it left off.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(doctorCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
