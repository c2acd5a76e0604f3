/*
Package treb is a convention-routed web application framework: a front
controller that resolves URL paths against a registered controller tree, a
declarative input-sanitization engine, a cache-backed session layer, and a
record layer with read-through/write-through caching.

# Concept

Treb routes by convention instead of a route table. Controllers are
registered under namespaces that mirror what a handler directory hierarchy
would be; the dispatcher walks the request path left to right, descending
namespaces, then picking a controller (defaulting to "home") and an action
(defaulting to the controller's own name). Trailing segments are "extra"
data, available to actions as one more sanitized input source.

Every untrusted input source is projected through a per-action schema before
the action runs: declared fields always appear in the sanitized args (with a
typed default when invalid or absent) and undeclared fields never do.

# Key Features

  - Convention routing: nested namespaces without route configuration.
  - Declarative sanitization: per-source schemas with recursive structure.
  - One error boundary: route, session, and persistence failures map to
    HTTP statuses in exactly one place.
  - Hexagonal adapters: cache (Redis or memory), database pools (Postgres),
    HTTP server, all behind small ports.

# Usage

	app, err := treb.New(
		treb.WithConfigFile("treb.yaml"),
	)
	if err != nil {
		log.Fatal(err)
	}

	app.Register(&dispatch.Controller{
		Name: "home",
		Actions: map[string]dispatch.Action{
			"home": {Run: func(c *dispatch.Context) error {
				c.WriteString("hello")
				return nil
			}},
		},
	})

	http.ListenAndServe(":8080", app.Handler())
*/
package treb
