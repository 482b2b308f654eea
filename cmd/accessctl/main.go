package main

import (
	"fmt"
	"os"

	"github.com/campuskit/access-api/cmd/accessctl/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "accessctl",
		Short: "Operational tool for the access API",
		Long:  "CLI tool for minting and decoding access tokens and upload challenges",
	}

	rootCmd.AddCommand(commands.NewTokenCmd())
	rootCmd.AddCommand(commands.NewChallengeCmd())
	rootCmd.AddCommand(commands.NewPolicyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
