package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/fwojciec/sitechat"
	sitechathttp "github.com/fwojciec/sitechat/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func urlset(locs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, loc := range locs {
		b.WriteString("<url><loc>{{BASE}}" + loc + "</loc></url>")
	}
	b.WriteString("</urlset>")
	return b.String()
}

func TestSitemapService_DiscoverURLs(t *testing.T) {
	t.Parallel()

	t.Run("reads sitemaps listed in robots.txt", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/robots.txt": "User-agent: *\nDisallow: /private/\nSitemap: {{BASE}}/sm1.xml\nSitemap: {{BASE}}/sm2.xml\n",
			"/sm1.xml":    urlset("/docs/intro"),
			"/sm2.xml":    urlset("/docs/guide", "/docs/intro"),
		})
		defer srv.Close()

		urls, err := sitechathttp.NewSitemapService(srv.Client(), "").DiscoverURLs(context.Background(), srv.URL, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{srv.URL + "/docs/intro", srv.URL + "/docs/guide"}, urls)
	})

	t.Run("falls back to sitemap.xml", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/sitemap.xml": urlset("/page1"),
		})
		defer srv.Close()

		urls, err := sitechathttp.NewSitemapService(srv.Client(), "").DiscoverURLs(context.Background(), srv.URL, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{srv.URL + "/page1"}, urls)
	})

	t.Run("resolves sitemap indexes", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/sitemap.xml": `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>{{BASE}}/sitemap-docs.xml</loc></sitemap>
  <sitemap><loc>{{BASE}}/sitemap-blog.xml</loc></sitemap>
  <sitemap><loc>{{BASE}}/sitemap-docs.xml</loc></sitemap>
</sitemapindex>`,
			"/sitemap-docs.xml": urlset("/docs/intro"),
			"/sitemap-blog.xml": urlset("/blog/post"),
		})
		defer srv.Close()

		urls, err := sitechathttp.NewSitemapService(srv.Client(), "").DiscoverURLs(context.Background(), srv.URL, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{srv.URL + "/docs/intro", srv.URL + "/blog/post"}, urls)
	})

	t.Run("keeps URLs under the base path", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/sitemap.xml": urlset("/docs/intro", "/documentation", "/blog/post", "/docs/guide"),
		})
		defer srv.Close()

		urls, err := sitechathttp.NewSitemapService(srv.Client(), "").DiscoverURLs(context.Background(), srv.URL+"/docs", nil)

		require.NoError(t, err)
		assert.Equal(t, []string{srv.URL + "/docs/intro", srv.URL + "/docs/guide"}, urls)
	})

	t.Run("applies include and exclude filters", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/sitemap.xml": urlset("/docs/intro", "/blog/post1", "/docs/internal/debug", "/docs/guide"),
		})
		defer srv.Close()

		filter := &sitechat.URLFilter{
			Include: []*regexp.Regexp{regexp.MustCompile(`/docs/`)},
			Exclude: []*regexp.Regexp{regexp.MustCompile(`/internal/`)},
		}

		urls, err := sitechathttp.NewSitemapService(srv.Client(), "").DiscoverURLs(context.Background(), srv.URL, filter)

		require.NoError(t, err)
		assert.Equal(t, []string{srv.URL + "/docs/intro", srv.URL + "/docs/guide"}, urls)
	})

	t.Run("bounds the number of URLs", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/sitemap.xml": urlset("/a", "/b", "/c"),
		})
		defer srv.Close()

		svc := sitechathttp.NewSitemapService(srv.Client(), "")
		svc.MaxURLs = 2

		urls, err := svc.DiscoverURLs(context.Background(), srv.URL, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{srv.URL + "/a", srv.URL + "/b"}, urls)
	})

	t.Run("sends the user agent", func(t *testing.T) {
		t.Parallel()

		var agents []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			agents = append(agents, r.Header.Get("User-Agent"))
			http.NotFound(w, r)
		}))
		defer srv.Close()

		_, err := sitechathttp.NewSitemapService(srv.Client(), "sitechat-test").DiscoverURLs(context.Background(), srv.URL, nil)

		require.NoError(t, err)
		require.NotEmpty(t, agents)
		for _, ua := range agents {
			assert.Equal(t, "sitechat-test", ua)
		}
	})

	t.Run("returns an empty list without sitemaps", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{})
		defer srv.Close()

		urls, err := sitechathttp.NewSitemapService(srv.Client(), "").DiscoverURLs(context.Background(), srv.URL, nil)

		require.NoError(t, err)
		assert.NotNil(t, urls)
		assert.Empty(t, urls)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/sitemap.xml": urlset("/page1"),
		})
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := sitechathttp.NewSitemapService(srv.Client(), "").DiscoverURLs(ctx, srv.URL, nil)

		require.ErrorIs(t, err, context.Canceled)
	})
}

// newTestServer creates a test HTTP server with the given path->content mapping.
// Content strings may contain {{BASE}} which is replaced with the server URL.
func newTestServer(t *testing.T, content map[string]string) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := content[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		body = strings.ReplaceAll(body, "{{BASE}}", srv.URL)

		if r.URL.Path == "/robots.txt" {
			w.Header().Set("Content-Type", "text/plain")
		} else {
			w.Header().Set("Content-Type", "application/xml")
		}
		_, _ = w.Write([]byte(body))
	}))

	return srv
}
