package main

import (
	"fmt"
	"os"

	"github.com/harrison/rgrep/internal/cmd"
	"github.com/harrison/rgrep/internal/models"
)

// Version is the current version of the rgrep application
const Version = "0.1.0"

func main() {
	cmd.Version = Version
	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		if !cmd.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(models.ExitCode(err))
	}
}
