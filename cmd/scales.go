package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jjbbllkk/acidgen/internal/pattern"
)

var scalesCmd = &cobra.Command{
	Use:   "scales",
	Short: "List the available scales",
	Run:   runScales,
}

func init() {
	rootCmd.AddCommand(scalesCmd)
}

func runScales(cmd *cobra.Command, args []string) {
	for i := 0; i < pattern.NumScales; i++ {
		s := pattern.Scale(i)
		intervals := make([]string, s.Len())
		for j, iv := range s.Intervals() {
			intervals[j] = fmt.Sprintf("%d", iv)
		}
		fmt.Printf("%-22s %s\n", s.Name(), strings.Join(intervals, " "))
	}
}

// scaleByName resolves a scale flag value case-insensitively, ignoring
// spaces so "harmonicminor" matches "Harmonic Minor".
func scaleByName(name string) (pattern.Scale, error) {
	squash := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, " ", ""))
	}
	want := squash(name)
	for i := 0; i < pattern.NumScales; i++ {
		if squash(pattern.Scale(i).Name()) == want {
			return pattern.Scale(i), nil
		}
	}
	return 0, fmt.Errorf("unknown scale %q (see 'acidgen scales')", name)
}
