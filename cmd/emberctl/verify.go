package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emberdb/ember/engine"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <object-uri>",
	Short: "Verify the integrity of an object's data file",
	Long: `Acquires exclusive access to the object and validates its on-disk
record stream (framing, bounds, checksums).

Exits with status 2 when the engine reports busy, meaning the object holds
unflushed, unlogged modifications. Run 'emberctl checkpoint' and retry.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uri := args[0]

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		err = eng.Verify(cmd.Context(), uri)
		switch {
		case errors.Is(err, engine.ErrBusy):
			printError("%s is busy; checkpoint and retry\n", uri)
			return busyExit{err}
		case err != nil:
			printError("verify %s: %v\n", uri, err)
			return err
		}
		printInfo("%s: ok\n", uri)
		return nil
	},
}

// busyExit distinguishes the busy status from generic failure so tooling
// can checkpoint-and-retry automatically.
type busyExit struct{ err error }

func (b busyExit) Error() string { return fmt.Sprintf("busy: %v", b.err) }

func (b busyExit) Unwrap() error { return b.err }

func init() {
	rootCmd.AddCommand(verifyCmd)
}
