package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/emberdb/ember/engine"
)

var dropCmd = &cobra.Command{
	Use:   "drop <object-uri>",
	Short: "Drop an object and delete its data file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uri := args[0]

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		err = eng.Drop(cmd.Context(), uri)
		switch {
		case errors.Is(err, engine.ErrBusy):
			printError("%s is busy; checkpoint and retry\n", uri)
			return busyExit{err}
		case err != nil:
			printError("drop %s: %v\n", uri, err)
			return err
		}
		printInfo("%s: dropped\n", uri)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dropCmd)
}
