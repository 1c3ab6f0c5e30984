package mock

import "github.com/fwojciec/sitechat"

var _ sitechat.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of sitechat.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*sitechat.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*sitechat.ExtractResult, error) {
	return e.ExtractFn(html)
}

var _ sitechat.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor is a mock implementation of sitechat.LinkExtractor.
type LinkExtractor struct {
	ExtractLinksFn func(html string, baseURL string) ([]string, error)
}

func (e *LinkExtractor) ExtractLinks(html string, baseURL string) ([]string, error) {
	return e.ExtractLinksFn(html, baseURL)
}
