package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "acidgen",
	Short: "A TUI acid bass line generator and sequencer",
	Long: `acidgen is a terminal acid bass line generator in the TB-303 tradition.

Patterns are carved deterministically from a seeded 64-step pool: density
activates bar positions, spread widens the set of scale degrees, and accent
and slide land on steps whose generated probabilities fall under the knobs.
The same seed and knob settings always produce the same pattern.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
