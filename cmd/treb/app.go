package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/trebframework/treb"
	"github.com/trebframework/treb/internal/dispatch"
	"github.com/trebframework/treb/pkg/domain"
	"github.com/trebframework/treb/pkg/filter"
)

// buildApp constructs the framework instance with the built-in demo
// controllers. Real deployments replace this with their own registrations;
// the demo keeps serve/routes/cron meaningful out of the box.
func buildApp(cmd *cobra.Command) (*treb.App, error) {
	var opts []treb.Option
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		opts = append(opts, treb.WithConfigFile(path))
	}

	app, err := treb.New(opts...)
	if err != nil {
		return nil, err
	}
	if err := registerDemo(app); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func registerDemo(app *treb.App) error {
	app.Filter().RegisterTable("greetings", []filter.Pair{
		{Key: "en", Value: "Hello"},
		{Key: "pt", Value: "Olá"},
		{Key: "de", Value: "Hallo"},
	})

	home := &dispatch.Controller{
		Name: "home",
		Actions: map[string]dispatch.Action{
			"home": {
				Schemas: map[string]filter.Schema{
					domain.SourceGet: {
						"name": "string:40",
						"lang": "data:keys:greetings",
					},
				},
				Run: func(c *dispatch.Context) error {
					name := c.Args.String(domain.SourceGet, "name")
					if name == "" {
						name = "world"
					}
					c.WriteString(fmt.Sprintf("<h1>%s, %s</h1>", greeting(c), name))
					return nil
				},
			},
			"echo": {
				AllowExtra: true,
				Output:     domain.OutputText,
				Schemas: map[string]filter.Schema{
					domain.SourceExtra: {"0": "string:80"},
				},
				Run: func(c *dispatch.Context) error {
					c.WriteString(c.Args.String(domain.SourceExtra, "0"))
					return nil
				},
			},
		},
	}
	if err := app.Register(home); err != nil {
		return err
	}

	status := &dispatch.Controller{
		Name: "status",
		Actions: map[string]dispatch.Action{
			"status": {
				Output: domain.OutputJSON,
				Run: func(c *dispatch.Context) error {
					c.Payload = map[string]any{
						"version":    treb.Version,
						"go":         runtime.Version(),
						"goroutines": runtime.NumGoroutine(),
					}
					return nil
				},
			},
		},
	}
	return app.Register(status, "ops")
}

func greeting(c *dispatch.Context) string {
	switch c.Args.String(domain.SourceGet, "lang") {
	case "pt":
		return "Olá"
	case "de":
		return "Hallo"
	}
	return "Hello"
}
