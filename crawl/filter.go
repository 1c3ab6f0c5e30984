package crawl

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultDenyPatterns match URL paths that never carry page content.
var DefaultDenyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/(api|admin|auth|login|logout|register)(/|$)`),
	regexp.MustCompile(`(?i)\.(pdf|docx?|zip|rar|exe)$`),
}

// LinkFilter decides which harvested links a crawl may follow.
type LinkFilter struct {
	// Deny lists path patterns to reject.
	Deny []*regexp.Regexp
}

// NewLinkFilter returns a LinkFilter using DefaultDenyPatterns.
func NewLinkFilter() *LinkFilter {
	return &LinkFilter{Deny: DefaultDenyPatterns}
}

// Accept reports whether link may be followed from a crawl rooted at a
// seed on host. Links must be absolute http(s) URLs on exactly that host,
// must not be fragment-only, and must not match a deny pattern.
func (f *LinkFilter) Accept(link string, host string) bool {
	if strings.HasPrefix(link, "#") {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host != host {
		return false
	}
	for _, re := range f.Deny {
		if re.MatchString(u.Path) {
			return false
		}
	}
	return true
}
