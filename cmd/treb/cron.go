package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

// cronCmd runs a single action outside the server, for scheduled jobs.
var cronCmd = &cobra.Command{
	Use:   "cron <path>",
	Short: "Invoke one route once and print its body",
	Long:  `Runs the full request lifecycle for a path without binding a listener, so scheduled jobs reuse the same controllers as the web surface.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := buildApp(cmd)
		if err != nil {
			fmt.Printf("Error initializing treb: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		req, err := http.NewRequest(http.MethodGet, args[0], nil)
		if err != nil {
			fmt.Printf("Invalid path %q: %v\n", args[0], err)
			os.Exit(1)
		}
		req.RemoteAddr = "127.0.0.1:0"
		req.Host = "cron.local"

		w := &captureWriter{header: make(http.Header), code: http.StatusOK}
		app.Handler().ServeHTTP(w, req)

		fmt.Print(w.body.String())
		if w.code >= http.StatusBadRequest {
			fmt.Fprintf(os.Stderr, "\ncron route %s returned %d\n", args[0], w.code)
			os.Exit(1)
		}
	},
}

// captureWriter collects the response for stdout instead of a socket.
type captureWriter struct {
	header http.Header
	body   bytes.Buffer
	code   int
}

func (w *captureWriter) Header() http.Header {
	return w.header
}

func (w *captureWriter) Write(p []byte) (int, error) {
	return w.body.Write(p)
}

func (w *captureWriter) WriteHeader(code int) {
	w.code = code
}

func init() {
	rootCmd.AddCommand(cronCmd)
}
