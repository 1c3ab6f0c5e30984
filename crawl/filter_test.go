package crawl_test

import (
	"testing"

	"github.com/fwojciec/sitechat/crawl"
	"github.com/stretchr/testify/assert"
)

func TestLinkFilter_Accept(t *testing.T) {
	t.Parallel()

	f := crawl.NewLinkFilter()

	tests := []struct {
		link   string
		accept bool
	}{
		{"https://example.com/docs/page", true},
		{"http://example.com/", true},
		{"https://other-domain.com/x", false},
		{"https://sub.example.com/docs", false},
		{"https://example.com:8443/docs", false},
		{"https://example.com/api/internal", false},
		{"https://example.com/API/v1", false},
		{"https://example.com/admin", false},
		{"https://example.com/login/", false},
		{"https://example.com/logout", false},
		{"https://example.com/register/new", false},
		{"https://example.com/auth", false},
		{"https://example.com/auth/callback", false},
		{"https://example.com/authors/jane", true},
		{"https://example.com/apidocs/intro", true},
		{"https://example.com/files/report.pdf", false},
		{"https://example.com/files/report.DOCX", false},
		{"https://example.com/files/setup.exe", false},
		{"https://example.com/files/a.zip", false},
		{"https://example.com/docs/index.html", true},
		{"mailto:a@b.com", false},
		{"tel:+123456", false},
		{"javascript:void(0)", false},
		{"#section", false},
		{"ftp://example.com/file", false},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.accept, f.Accept(tt.link, "example.com"))
		})
	}
}
