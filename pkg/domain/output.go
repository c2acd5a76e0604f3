package domain

// OutputMode selects the response encoding and Content-Type for a rendered
// action.
type OutputMode string

const (
	OutputHTML OutputMode = "html"
	OutputText OutputMode = "text"
	OutputJSON OutputMode = "json"
	OutputRSS  OutputMode = "rss"
	OutputXML  OutputMode = "xml"
	OutputPNG  OutputMode = "png"
)

var contentTypes = map[OutputMode]string{
	OutputHTML: "text/html; charset=utf-8",
	OutputText: "text/plain; charset=utf-8",
	OutputJSON: "application/json",
	OutputRSS:  "application/rss+xml; charset=utf-8",
	OutputXML:  "application/xml; charset=utf-8",
	OutputPNG:  "image/png",
}

// ContentType returns the Content-Type header value for the mode. Unknown
// modes fall back to HTML.
func (m OutputMode) ContentType() string {
	if ct, ok := contentTypes[m]; ok {
		return ct
	}
	return contentTypes[OutputHTML]
}

// Programmatic reports whether the mode serves machine clients. Session
// integrity failures emit a 403 for programmatic modes instead of a browser
// redirect.
func (m OutputMode) Programmatic() bool {
	switch m {
	case OutputJSON, OutputXML, OutputText, OutputRSS:
		return true
	}
	return false
}
