package sitechat

// ExtractResult holds the extracted content from an HTML page.
type ExtractResult struct {
	// Title is the text of the document's title element.
	Title string

	// Content is the whitespace-normalized plain text of the page's primary
	// content region, truncated to the extractor's maximum length.
	Content string
}

// Extractor extracts the main text content from HTML pages.
type Extractor interface {
	// Extract parses raw HTML and returns its title and plain text content.
	Extract(html string) (*ExtractResult, error)
}

// PageResult is the outcome of fetching and extracting one URL.
// Content is empty when the page could not be fetched, returned a non-200
// status or yielded no text.
type PageResult struct {
	URL        string
	Title      string
	Content    string
	StatusCode int
}

// LinkExtractor harvests outbound links from HTML.
type LinkExtractor interface {
	// ExtractLinks parses HTML and returns absolute http(s) URLs resolved
	// against baseURL, fragments stripped, in document order without duplicates.
	// Non-navigational hrefs (mailto:, tel:, javascript:, fragment-only) are skipped.
	ExtractLinks(html string, baseURL string) ([]string, error)
}
