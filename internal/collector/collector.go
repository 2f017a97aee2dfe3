// Package collector gathers recent posts for every monitored account,
// failing over between mirror instances and pacing requests.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/mirror"
	"NewsDigest/internal/ports"
)

// FutureSkew is how far ahead of now a timestamp may be and still count.
const FutureSkew = 5 * time.Minute

const maxWorkers = 8

var timeLayouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	time.RubyDate,
	time.RFC3339Nano,
	time.RFC3339,
}

// Options configures a Collector.
type Options struct {
	Accounts     []string
	WindowHours  float64
	Timeout      time.Duration
	AccountDelay time.Duration
	Workers      int
	Now          func() time.Time
}

// Collector owns the mirror pool for the lifetime of a cycle.
type Collector struct {
	scanner  ports.FeedScanner
	pool     *mirror.Pool
	accounts []string
	window   float64
	timeout  time.Duration
	delay    time.Duration
	workers  int
	now      func() time.Time
	logger   *slog.Logger
}

var _ ports.PostSource = (*Collector)(nil)

// New wires a scanner and mirror pool with collection options.
func New(scanner ports.FeedScanner, pool *mirror.Pool, opts Options, log *slog.Logger) *Collector {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Collector{
		scanner:  scanner,
		pool:     pool,
		accounts: opts.Accounts,
		window:   opts.WindowHours,
		timeout:  opts.Timeout,
		delay:    opts.AccountDelay,
		workers:  workers,
		now:      now,
		logger:   log,
	}
}

// FetchAccountFeed tries every instance starting from the preferred one.
// The first structurally valid feed wins, even when it has no entries; only
// a non-empty result moves the preference.
func (c *Collector) FetchAccountFeed(ctx context.Context, account string) ([]domain.Post, error) {
	if c.pool == nil || c.pool.Len() == 0 {
		return nil, fmt.Errorf("account %s: no mirror instances: %w", account, domain.ErrFetchFailed)
	}

	var lastErr error
	for _, instance := range c.pool.Order() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		posts, err := c.scanOnce(ctx, instance, account)
		if err != nil {
			lastErr = err
			c.debug("instance failed", "account", account, "instance", instance, "error", err)
			continue
		}

		if len(posts) == 0 {
			c.debug("feed empty", "account", account, "instance", instance)
			return []domain.Post{}, nil
		}

		c.pool.MarkSuccess(instance)
		return posts, nil
	}

	return nil, fmt.Errorf("account %s: %w: %v", account, domain.ErrFetchFailed, lastErr)
}

func (c *Collector) scanOnce(ctx context.Context, instance, account string) ([]domain.Post, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.scanner.Scan(ctx, instance, account)
}

// Collect fetches every account, paced by the inter-account delay, and
// returns whatever was gathered. Per-account failures and cancellation
// degrade the result instead of failing it.
func (c *Collector) Collect(ctx context.Context) (ports.CollectResult, error) {
	if c.scanner == nil {
		return ports.CollectResult{}, fmt.Errorf("feed scanner is not configured")
	}

	limit := rate.Inf
	if c.delay > 0 {
		limit = rate.Every(c.delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	type slot struct {
		posts   []domain.NormalizedPost
		fetched int
		failed  bool
		skipped bool
	}
	slots := make([]slot, len(c.accounts))

	c.info("collection started", "accounts", len(c.accounts), "workers", c.workers, "window_hours", c.window)

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, account := range c.accounts {
		if err := limiter.Wait(ctx); err != nil {
			for j := i; j < len(slots); j++ {
				slots[j].skipped = true
			}
			c.warn("collection interrupted", "remaining_accounts", len(c.accounts)-i, "error", err)
			break
		}

		g.Go(func() error {
			posts, err := c.FetchAccountFeed(ctx, account)
			if err != nil {
				slots[i].failed = true
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					slots[i].skipped = true
				}
				c.warn("account fetch degraded", "account", account, "error", err)
				return nil
			}

			recent := FilterRecent(posts, c.window, c.now())
			for k := range recent {
				if recent[k].Author == "" {
					recent[k].Author = account
				}
			}
			slots[i].posts = recent
			slots[i].fetched = len(posts)
			c.debug("account collected", "account", account, "recent", len(recent), "total", len(posts))
			return nil
		})
	}
	_ = g.Wait()

	result := ports.CollectResult{AccountsTotal: len(c.accounts)}
	for _, s := range slots {
		if s.failed || s.skipped {
			result.AccountsFailed++
		}
		result.Posts = append(result.Posts, s.posts...)
	}

	if result.AccountsFailed > 0 {
		c.warn("collection degraded", "failed_accounts", result.AccountsFailed, "accounts", result.AccountsTotal)
	}
	c.info("collection finished", "posts", len(result.Posts))
	return result, nil
}

// FilterRecent keeps posts whose timestamp parses and lies within
// [now-windowHours, now+FutureSkew]. Unparseable timestamps are dropped.
func FilterRecent(posts []domain.Post, windowHours float64, now time.Time) []domain.NormalizedPost {
	cutoff := now.Add(-time.Duration(windowHours * float64(time.Hour)))
	latest := now.Add(FutureSkew)

	recent := make([]domain.NormalizedPost, 0, len(posts))
	for _, post := range posts {
		published, ok := ParseTimestamp(post.CreatedAt)
		if !ok {
			continue
		}
		if published.After(latest) || published.Before(cutoff) {
			continue
		}

		age := now.Sub(published).Hours()
		if age < 0 {
			age = 0
		}
		recent = append(recent, domain.NormalizedPost{
			Post:            post,
			PublishedAt:     published.UTC(),
			AgeHours:        age,
			EngagementScore: EngagementScore(post),
		})
	}
	return recent
}

// ParseTimestamp understands the RSS, RFC 3339 and API date formats seen on
// mirror feeds.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EngagementScore weights interaction counters and adds a length bonus
// capped at 20.
func EngagementScore(post domain.Post) float64 {
	score := float64(post.LikeCount)*1.0 +
		float64(post.RetweetCount)*2.0 +
		float64(post.ReplyCount)*1.5 +
		float64(post.QuoteCount)*2.5 +
		float64(post.ViewCount)*0.01

	score += math.Min(float64(utf8.RuneCountInString(post.Text))/10, 20)
	return score
}

func (c *Collector) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Collector) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Collector) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
