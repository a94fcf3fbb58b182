package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "taxoplace",
	Short:   "Place query sequences against a normalized taxonomy",
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and runs it. It
// is called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
