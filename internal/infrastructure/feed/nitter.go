package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/mirror"
	"NewsDigest/internal/ports"
)

const (
	userAgent    = "RSS-Reader/1.0"
	acceptHeader = "application/rss+xml, application/xml, text/xml"
	maxFeedBytes = 5 * 1024 * 1024
)

var lineBreaks = strings.NewReplacer("<br>", " ", "<br/>", " ", "<br />", " ", "</p>", " ", "</div>", " ")

// NitterScanner reads account RSS feeds from Nitter-style mirrors and
// rewrites mirror permalinks back to the canonical domain.
type NitterScanner struct {
	client          *http.Client
	canonicalDomain string
	mirrorHosts     map[string]struct{}
	logger          *slog.Logger
}

var _ ports.FeedScanner = (*NitterScanner)(nil)

// NewNitterScanner wires an HTTP client; a nil client gets a 15s timeout.
func NewNitterScanner(client *http.Client, canonicalDomain string, mirrorHosts map[string]struct{}, log *slog.Logger) *NitterScanner {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if canonicalDomain == "" {
		canonicalDomain = "x.com"
	}
	if mirrorHosts == nil {
		mirrorHosts = map[string]struct{}{}
	}
	return &NitterScanner{
		client:          client,
		canonicalDomain: canonicalDomain,
		mirrorHosts:     mirrorHosts,
		logger:          log,
	}
}

// Scan fetches one account's feed from one instance. A valid feed with no
// entries returns an empty slice and a nil error.
func (s *NitterScanner) Scan(ctx context.Context, instance, account string) ([]domain.Post, error) {
	feedURL := mirror.BaseURL(instance) + "/" + url.PathEscape(account) + "/rss"

	parsed, err := s.fetchFeed(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("instance %s: %w", instance, err)
	}

	posts := make([]domain.Post, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		posts = append(posts, s.convertItem(item, account))
	}

	s.debug("feed parsed", "instance", instance, "account", account, "entries", len(posts))
	return posts, nil
}

func (s *NitterScanner) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mirror returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	return parsed, nil
}

func (s *NitterScanner) convertItem(item *gofeed.Item, account string) domain.Post {
	text := StripMarkup(item.Description)
	if text == "" {
		text = StripMarkup(item.Title)
	}

	id := StatusID(item.Link)
	if id == "" {
		id = StatusID(item.GUID)
	}

	link := s.CanonicalLink(item.Link)
	if link == "" {
		link = fmt.Sprintf("https://%s/%s", s.canonicalDomain, account)
		if id != "" {
			link += "/status/" + id
		}
	}

	created := strings.TrimSpace(item.Published)
	if created == "" {
		created = strings.TrimSpace(item.Updated)
	}

	return domain.Post{
		ID:        id,
		Text:      text,
		Author:    account,
		CreatedAt: created,
		URL:       link,
	}
}

// CanonicalLink rewrites links pointing at a known mirror host onto the
// canonical domain and drops the fragment. Other links pass through.
func (s *NitterScanner) CanonicalLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if _, ok := s.mirrorHosts[strings.ToLower(u.Host)]; !ok {
		return raw
	}
	u.Scheme = "https"
	u.Host = s.canonicalDomain
	u.Fragment = ""
	return u.String()
}

// StripMarkup removes HTML tags and collapses runs of whitespace.
func StripMarkup(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "<") && !strings.Contains(raw, "&") {
		return strings.Join(strings.Fields(raw), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(lineBreaks.Replace(raw)))
	if err != nil {
		return strings.Join(strings.Fields(raw), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// StatusID extracts the post id from a ".../status/<id>" link.
func StatusID(link string) string {
	_, rest, found := strings.Cut(link, "/status/")
	if !found {
		return ""
	}
	if i := strings.IndexAny(rest, "#?/"); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

func (s *NitterScanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
