package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// main wires the CLI. Business logic lives in internal service packages;
// serve builds the dependency graph and keeps the server lifecycle small.
func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "amicable",
		Short: "amicable - joint accident statement service",
		Long: `amicable coordinates the drivers involved in a road accident while each
fills in their own statement: who may join, what each must provide and
when a statement may be completed.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
