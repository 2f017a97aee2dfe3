package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"NewsDigest/internal/mirror"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Reuters / X</title>
    <link>{{BASE}}/Reuters</link>
    <item>
      <title>Oil prices jump</title>
      <description>&lt;p&gt;Oil prices   jump after&lt;br&gt;OPEC cut &amp;amp; sanctions&lt;/p&gt;</description>
      <pubDate>Sat, 22 Feb 2026 12:00:00 GMT</pubDate>
      <guid>{{BASE}}/Reuters/status/1893#m</guid>
      <link>{{BASE}}/Reuters/status/1893#m</link>
    </item>
    <item>
      <title>Title only entry</title>
      <description></description>
      <pubDate>not a date</pubDate>
      <link>https://example.com/article</link>
    </item>
  </channel>
</rss>`

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>quiet</title></channel></rss>`

func TestNitterScannerScan(t *testing.T) {
	t.Parallel()

	var gotPath, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		base := "http://" + r.Host
		_, _ = w.Write([]byte(strings.ReplaceAll(sampleFeed, "{{BASE}}", base)))
	}))
	defer server.Close()

	pool := mirror.NewPool([]string{server.URL})
	sc := NewNitterScanner(server.Client(), "x.com", pool.Hosts(), nil)

	posts, err := sc.Scan(context.Background(), server.URL, "Reuters")
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if gotPath != "/Reuters/rss" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotUA != userAgent {
		t.Fatalf("unexpected user agent: %s", gotUA)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}

	first := posts[0]
	if first.ID != "1893" {
		t.Fatalf("unexpected id: %q", first.ID)
	}
	if first.Text != "Oil prices jump after OPEC cut & sanctions" {
		t.Fatalf("unexpected text: %q", first.Text)
	}
	if first.URL != "https://x.com/Reuters/status/1893" {
		t.Fatalf("unexpected url: %s", first.URL)
	}
	if first.Author != "Reuters" {
		t.Fatalf("unexpected author: %s", first.Author)
	}
	if first.CreatedAt != "Sat, 22 Feb 2026 12:00:00 GMT" {
		t.Fatalf("raw timestamp must be kept, got %q", first.CreatedAt)
	}

	second := posts[1]
	if second.Text != "Title only entry" {
		t.Fatalf("expected title fallback, got %q", second.Text)
	}
	if second.URL != "https://example.com/article" {
		t.Fatalf("non-mirror link must pass through, got %s", second.URL)
	}
	if second.CreatedAt != "not a date" {
		t.Fatalf("unparseable timestamp should be kept raw for the filter, got %q", second.CreatedAt)
	}
}

func TestNitterScannerEmptyFeedIsSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(emptyFeed))
	}))
	defer server.Close()

	sc := NewNitterScanner(server.Client(), "", nil, nil)
	posts, err := sc.Scan(context.Background(), server.URL, "quiet")
	if err != nil {
		t.Fatalf("empty feed should not fail: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected no posts, got %d", len(posts))
	}
}

func TestNitterScannerRejectsNonFeed(t *testing.T) {
	t.Parallel()

	cases := map[string]http.HandlerFunc{
		"html page": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html><body>rate limited</body></html>"))
		},
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(handler)
			defer server.Close()

			sc := NewNitterScanner(server.Client(), "x.com", nil, nil)
			if _, err := sc.Scan(context.Background(), server.URL, "acct"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCanonicalLink(t *testing.T) {
	t.Parallel()

	sc := NewNitterScanner(nil, "x.com", nil, nil)
	if got := sc.CanonicalLink(""); got != "" {
		t.Fatalf("expected empty, got %s", got)
	}

	hosts := map[string]struct{}{"nitter.net": {}}
	sc = NewNitterScanner(nil, "x.com", hosts, nil)
	if got := sc.CanonicalLink("https://nitter.net/WSJ/status/42#m"); got != "https://x.com/WSJ/status/42" {
		t.Fatalf("unexpected canonical link: %s", got)
	}
}

func TestStripMarkupAndStatusID(t *testing.T) {
	t.Parallel()

	if got := StripMarkup("  plain \n text  "); got != "plain text" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := StripMarkup(`<a href="x">link</a><img src="y"/> tail`); got != "link tail" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := StatusID("https://nitter.net/a/status/123?x=1"); got != "123" {
		t.Fatalf("unexpected id: %q", got)
	}
	if got := StatusID("https://nitter.net/a"); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}

func TestConvertItemSynthesizesLink(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>
<item><description>no link here</description><guid isPermaLink="false">https://mirror/x/status/77</guid>
<pubDate>Sat, 22 Feb 2026 12:00:00 GMT</pubDate></item></channel></rss>`))
	}))
	defer server.Close()

	sc := NewNitterScanner(server.Client(), "x.com", nil, nil)
	posts, err := sc.Scan(context.Background(), server.URL, "saylor")
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if posts[0].ID != "77" {
		t.Fatalf("expected id from guid, got %q", posts[0].ID)
	}
	if posts[0].URL != "https://x.com/saylor/status/77" {
		t.Fatalf("unexpected synthesized url: %s", posts[0].URL)
	}
}
