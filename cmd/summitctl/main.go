package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var ctlCmd = &cobra.Command{
	Use:           "summitctl",
	Short:         "Operator tooling for the summit backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctlCmd.AddCommand(migrateCmd)
	ctlCmd.AddCommand(resolutionCmd)
	ctlCmd.AddCommand(tokenCmd)
	if err := ctlCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
