package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at release time via -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Println(version)
				return
			}
			fmt.Printf("skyvision %s (commit %s, built %s, %s)\n", version, commit, date, runtime.Version())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print the bare version number")

	return cmd
}
