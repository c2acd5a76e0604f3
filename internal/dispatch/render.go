package dispatch

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/trebframework/treb/pkg/domain"
)

var notFoundTemplate = template.Must(template.New("404").Parse(`<!DOCTYPE html>
<html><head><title>Not Found</title></head>
<body><h1>404 Not Found</h1><p>The page you requested does not exist.</p></body></html>
`))

var errorTemplate = template.Must(template.New("500").Parse(`<!DOCTYPE html>
<html><head><title>Server Error</title></head>
<body><h1>500 Internal Server Error</h1><p>Something went wrong.</p>
{{if .Detail}}<pre>{{.Detail}}</pre>{{end}}</body></html>
`))

// render is the terminal lifecycle step: it writes headers, the status code,
// and the body the action produced. The dispatcher does not inspect the body
// beyond encoding it for the output mode.
func (d *Dispatcher) render(w http.ResponseWriter, c *Context) error {
	h := w.Header()
	for key, vals := range c.headers {
		for _, v := range vals {
			h.Add(key, v)
		}
	}
	d.writeStandardHeaders(h, c.Mode, c.Cacheable)

	if c.redirect != "" {
		code := http.StatusFound
		if c.permanent {
			code = http.StatusMovedPermanently
		}
		h.Set("Location", c.redirect)
		w.WriteHeader(code)
		return nil
	}

	if c.authRealm != "" {
		h.Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", c.authRealm))
		w.WriteHeader(http.StatusUnauthorized)
		return nil
	}

	status := c.Status
	if status == 0 {
		status = http.StatusOK
	}

	var body []byte
	if c.Mode == domain.OutputJSON && c.Payload != nil {
		data, err := json.Marshal(c.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		body = data
	} else {
		body = c.body.Bytes()
	}

	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// Output already started; nothing better than best-effort inline text.
		fmt.Fprint(w, "\nresponse write failed")
		return err
	}
	return nil
}

func (d *Dispatcher) writeStandardHeaders(h http.Header, mode domain.OutputMode, cacheable bool) {
	h.Set("Content-Type", mode.ContentType())
	if !cacheable {
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
	}
	if d.security.FrameOptions != "" {
		h.Set("X-Frame-Options", d.security.FrameOptions)
	}
}

func (d *Dispatcher) renderNotFound(w http.ResponseWriter) {
	h := w.Header()
	d.writeStandardHeaders(h, domain.OutputHTML, false)
	w.WriteHeader(http.StatusNotFound)
	if err := notFoundTemplate.Execute(w, nil); err != nil {
		d.log.Warn("404 render failed", "err", err)
	}
}

func (d *Dispatcher) renderError(w http.ResponseWriter, cause error) {
	h := w.Header()
	d.writeStandardHeaders(h, domain.OutputHTML, false)
	w.WriteHeader(http.StatusInternalServerError)

	data := struct{ Detail string }{}
	if d.security.Development && cause != nil {
		data.Detail = cause.Error()
	}
	if err := errorTemplate.Execute(w, data); err != nil {
		// Degrade to inline text if the template write itself fails.
		fmt.Fprint(w, "internal server error")
	}
}
