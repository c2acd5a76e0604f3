package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// routesCmd represents the routes command
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the registered routes",
	Long:  `Inspects the controller registry and prints every resolvable path with its action, output mode, and flags.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := buildApp(cmd)
		if err != nil {
			fmt.Printf("Error initializing treb: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		var md strings.Builder
		md.WriteString("# Routes\n\n")
		md.WriteString("| Path | Action | Output | Session | Extra |\n")
		md.WriteString("|---|---|---|---|---|\n")
		for _, rt := range app.Routes() {
			md.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				rt.Path, rt.Action, rt.Output, mark(rt.Session), mark(rt.AllowExtra)))
		}

		// Pretty markdown only when a human is watching.
		if term.IsTerminal(int(os.Stdout.Fd())) && termenv.ColorProfile() != termenv.Ascii {
			r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
			if err == nil {
				if out, err := r.Render(md.String()); err == nil {
					fmt.Print(out)
					return
				}
			}
		}
		fmt.Print(md.String())
	},
}

func mark(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
