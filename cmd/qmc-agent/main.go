package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KevinLopezPastor/qmc-agent/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "qmc-agent",
	Short: "Monitors QMC and NPrinting task consoles and produces a unified report",
}

func main() {
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
