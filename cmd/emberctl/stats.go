package main

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report engine counters",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		s := eng.Stats()
		if jsonOut {
			return printJSON(s)
		}
		printInfo("objects:          %d\n", s.Objects)
		printInfo("dirty objects:    %d\n", s.DirtyObjects)
		printInfo("live leases:      %d\n", s.LiveLeases)
		printInfo("checkpoints:      %d\n", s.Checkpoints)
		printInfo("leases granted:   %d\n", s.LeasesGranted)
		printInfo("busy rejections:  %d\n", s.BusyRejections)
		printInfo("journal bytes:    %d\n", s.JournalBytes)
		for _, l := range eng.Leases() {
			printInfo("  lease: %s held by %s since %s\n", l.Object, l.Holder, l.AcquiredAt.Format("15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
