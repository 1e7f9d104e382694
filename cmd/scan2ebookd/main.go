// Command scan2ebookd converts scanned page images into EPUB books, either
// as a long-running HTTP daemon or as a one-shot local conversion.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "scan2ebookd",
		Short:         "Scanned-page to EPUB conversion service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newConvertCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
