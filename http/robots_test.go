package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	sitechathttp "github.com/fwojciec/sitechat/http"
	"github.com/stretchr/testify/assert"
)

func TestRobotsPolicy_Allowed(t *testing.T) {
	t.Parallel()

	robots := `User-agent: *
Disallow: /private/

User-agent: sitechat
Disallow: /no-bots/

Sitemap: https://example.com/sitemap.xml
`

	t.Run("applies the group matching the user agent", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(robots))
		}))
		defer server.Close()

		policy := sitechathttp.NewRobotsPolicy(server.Client(), "sitechat", nil)
		ctx := context.Background()

		assert.True(t, policy.Allowed(ctx, server.URL+"/docs/intro"))
		assert.False(t, policy.Allowed(ctx, server.URL+"/no-bots/page"))
	})

	t.Run("falls back to the wildcard group", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(robots))
		}))
		defer server.Close()

		policy := sitechathttp.NewRobotsPolicy(server.Client(), "otherbot", nil)

		assert.False(t, policy.Allowed(context.Background(), server.URL+"/private/x"))
		assert.True(t, policy.Allowed(context.Background(), server.URL+"/no-bots/page"))
	})

	t.Run("missing robots.txt allows everything", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		policy := sitechathttp.NewRobotsPolicy(server.Client(), "sitechat", nil)

		assert.True(t, policy.Allowed(context.Background(), server.URL+"/anything"))
	})

	t.Run("fetches robots.txt once per host", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte(robots))
		}))
		defer server.Close()

		policy := sitechathttp.NewRobotsPolicy(server.Client(), "sitechat", nil)
		for i := 0; i < 5; i++ {
			policy.Allowed(context.Background(), server.URL+"/page")
		}

		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("exposes sitemap directives", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(robots))
		}))
		defer server.Close()

		policy := sitechathttp.NewRobotsPolicy(server.Client(), "sitechat", nil)

		assert.Equal(t, []string{"https://example.com/sitemap.xml"}, policy.Sitemaps(context.Background(), server.URL))
	})

	t.Run("rejects unparseable URLs", func(t *testing.T) {
		t.Parallel()

		policy := sitechathttp.NewRobotsPolicy(nil, "sitechat", nil)

		assert.False(t, policy.Allowed(context.Background(), "not a url"))
	})
}
