package sitechat

import "context"

// Response is the outcome of fetching a URL.
type Response struct {
	// URL is the final URL after redirects.
	URL string

	StatusCode int

	// ContentType is the media type of the body, without parameters.
	ContentType string

	// Body is the decoded response body. Empty unless StatusCode is 200.
	Body string
}

// OK reports whether the response carries a usable body.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode == 200
}

// IsHTML reports whether the body is an HTML document. A missing
// content type is assumed to be HTML.
func (r *Response) IsHTML() bool {
	return r.ContentType == "" || r.ContentType == "text/html" || r.ContentType == "application/xhtml+xml"
}

// Fetcher retrieves pages over the network.
type Fetcher interface {
	// Fetch requests the URL. A non-200 status is reported through
	// Response.StatusCode, not as an error; errors are transport failures.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (*Response, error)
}

// RobotsPolicy decides whether a crawler may fetch a URL.
type RobotsPolicy interface {
	Allowed(ctx context.Context, url string) bool
}
