// Command ringtool closes and measures parcel boundary rings offline and replays
// recorded editor gesture logs through the draw controller.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ringtool",
		Short:         "Parcel boundary ring utilities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMeasureCmd(), newCloseCmd(), newReplayCmd())
	return root
}
