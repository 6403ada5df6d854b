// Command omicsoracle drives the GEO/PubMed literature acquisition and
// scoring pipeline and exposes the management surface spec §6 names: run,
// cache stats|cleanup|clear|invalidate, validate, reprocess.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "omicsoracle",
	Short: "GEO/PubMed literature acquisition and scoring pipeline",
}

func init() {
	rootCmd.AddCommand(runCmd, cacheCmd, validateCmd, reprocessCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func printSummary(label string, attempted, succeeded, failed int) {
	c := color.New(color.FgGreen)
	if failed > 0 {
		c = color.New(color.FgYellow)
	}
	c.Printf("%-3s attempted=%-4d succeeded=%-4d failed=%d\n", label, attempted, succeeded, failed)
}

// exitErrorf wraps a message into the exitError the caller already decided
// on, for the common case of a command returning a single classified error.
func exitErrorf(code int, format string, args ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}
