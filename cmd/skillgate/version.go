package main

import (
	"fmt"
	"runtime"

	"github.com/skillgate/skillgate/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("skillgate version %s\n", version.Version)
		fmt.Printf("git commit: %s\n", version.GitCommit)
		fmt.Printf("go version: %s\n", runtime.Version())
		fmt.Printf("platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
