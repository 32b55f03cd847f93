package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/emberdb/ember/engine"
)

var salvageCmd = &cobra.Command{
	Use:   "salvage <object-uri>",
	Short: "Discard corrupt data past the last valid record",
	Long: `Acquires exclusive access to the object, finds the longest valid
record-stream prefix of its data file, and truncates everything after it.
Reports busy like verify when exclusive access cannot be granted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uri := args[0]

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		discarded, err := eng.Salvage(cmd.Context(), uri)
		switch {
		case errors.Is(err, engine.ErrBusy):
			printError("%s is busy; checkpoint and retry\n", uri)
			return busyExit{err}
		case err != nil:
			printError("salvage %s: %v\n", uri, err)
			return err
		}
		printInfo("%s: discarded %d bytes\n", uri, discarded)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(salvageCmd)
}
