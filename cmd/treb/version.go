package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trebframework/treb"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of treb",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("treb version %s\n", strings.TrimSpace(treb.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
