package main

import (
	"github.com/spf13/cobra"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Run an explicit checkpoint pass",
	Long: `Flushes all dirty objects in the engine directory to stable storage
and advances the checkpoint id. After a successful checkpoint, exclusive
operations (verify, salvage, drop) that previously reported busy succeed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.Checkpoint(cmd.Context()); err != nil {
			printError("checkpoint failed: %v\n", err)
			return err
		}
		printInfo("checkpoint complete\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
}
