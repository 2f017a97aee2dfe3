package collector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/mirror"
)

var fixedNow = time.Date(2026, time.February, 22, 12, 0, 0, 0, time.UTC)

type scanFunc func(instance, account string) ([]domain.Post, error)

type fakeScanner struct {
	mu    sync.Mutex
	calls []string
	fn    scanFunc
}

func (f *fakeScanner) Scan(ctx context.Context, instance, account string) ([]domain.Post, error) {
	f.mu.Lock()
	f.calls = append(f.calls, instance+"/"+account)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.fn(instance, account)
}

func (f *fakeScanner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func stamp(d time.Duration) string {
	return fixedNow.Add(d).Format(time.RFC1123Z)
}

func post(id, account string, age time.Duration) domain.Post {
	return domain.Post{ID: id, Author: account, Text: "post " + id, CreatedAt: stamp(-age)}
}

func newTestCollector(sc *fakeScanner, instances, accounts []string, workers int) (*Collector, *mirror.Pool) {
	pool := mirror.NewPool(instances)
	c := New(sc, pool, Options{
		Accounts:    accounts,
		WindowHours: 4,
		Workers:     workers,
		Now:         func() time.Time { return fixedNow },
	}, nil)
	return c, pool
}

func TestFetchAccountFeedFailsOverAndSticks(t *testing.T) {
	t.Parallel()

	sc := &fakeScanner{fn: func(instance, account string) ([]domain.Post, error) {
		if instance == "a" {
			return nil, errors.New("timeout")
		}
		return []domain.Post{post("1", account, time.Hour)}, nil
	}}
	c, pool := newTestCollector(sc, []string{"a", "b", "c"}, nil, 1)

	posts, err := c.FetchAccountFeed(context.Background(), "Reuters")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if pool.Current() != "b" {
		t.Fatalf("expected sticky preference on b, got %s", pool.Current())
	}

	if _, err := c.FetchAccountFeed(context.Background(), "AP"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := sc.Calls()
	want := []string{"a/Reuters", "b/Reuters", "b/AP"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected call order: %v", calls)
	}
}

type stallingScanner struct {
	stall string
}

func (s stallingScanner) Scan(ctx context.Context, instance, account string) ([]domain.Post, error) {
	if instance == s.stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []domain.Post{post("1", account, time.Hour)}, nil
}

func TestFetchAccountFeedTimeoutFailsOver(t *testing.T) {
	t.Parallel()

	pool := mirror.NewPool([]string{"a", "b"})
	c := New(stallingScanner{stall: "a"}, pool, Options{
		WindowHours: 4,
		Timeout:     50 * time.Millisecond,
		Now:         func() time.Time { return fixedNow },
	}, nil)

	start := time.Now()
	posts, err := c.FetchAccountFeed(context.Background(), "Reuters")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected b to serve the feed, got %d posts", len(posts))
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond || elapsed > 2*time.Second {
		t.Fatalf("expected one timeout on a, took %v", elapsed)
	}
	if pool.Current() != "b" {
		t.Fatalf("expected sticky preference on b, got %s", pool.Current())
	}
}

func TestFetchAccountFeedEmptyFeedStopsRotation(t *testing.T) {
	t.Parallel()

	sc := &fakeScanner{fn: func(instance, account string) ([]domain.Post, error) {
		return []domain.Post{}, nil
	}}
	c, pool := newTestCollector(sc, []string{"a", "b"}, nil, 1)
	pool.MarkSuccess("b")

	posts, err := c.FetchAccountFeed(context.Background(), "private")
	if err != nil {
		t.Fatalf("empty feed is not a failure: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected no posts, got %d", len(posts))
	}
	if calls := sc.Calls(); len(calls) != 1 || calls[0] != "b/private" {
		t.Fatalf("expected a single call to b, got %v", calls)
	}
	if pool.Current() != "b" {
		t.Fatalf("pointer must stay on b, got %s", pool.Current())
	}
}

func TestFetchAccountFeedAllInstancesFail(t *testing.T) {
	t.Parallel()

	sc := &fakeScanner{fn: func(instance, account string) ([]domain.Post, error) {
		return nil, errors.New("malformed")
	}}
	c, pool := newTestCollector(sc, []string{"a", "b", "c"}, nil, 1)
	pool.MarkSuccess("c")

	_, err := c.FetchAccountFeed(context.Background(), "down")
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if len(sc.Calls()) != 3 {
		t.Fatalf("expected every instance tried once, got %v", sc.Calls())
	}
	if pool.Current() != "c" {
		t.Fatalf("failure must not move the pointer, got %s", pool.Current())
	}
}

func TestFilterRecentWindowBoundaries(t *testing.T) {
	t.Parallel()

	window := 4.0
	posts := []domain.Post{
		{ID: "just-outside", CreatedAt: stamp(-4*time.Hour - time.Second)},
		{ID: "just-inside", CreatedAt: stamp(-4*time.Hour + time.Second)},
		{ID: "skew-ok", CreatedAt: stamp(4 * time.Minute)},
		{ID: "too-future", CreatedAt: stamp(6 * time.Minute)},
		{ID: "garbage", CreatedAt: "yesterday-ish"},
		{ID: "missing", CreatedAt: ""},
		{ID: "rss-gmt", CreatedAt: fixedNow.Add(-30 * time.Minute).Format(time.RFC1123)},
		{ID: "iso", CreatedAt: fixedNow.Add(-time.Hour).Format(time.RFC3339)},
	}

	got := FilterRecent(posts, window, fixedNow)
	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	want := "just-inside,skew-ok,rss-gmt,iso"
	if strings.Join(ids, ",") != want {
		t.Fatalf("unexpected retained posts: %v", ids)
	}

	for _, p := range got {
		if p.AgeHours < 0 || p.AgeHours > window+FutureSkew.Hours() {
			t.Fatalf("age out of bounds for %s: %v", p.ID, p.AgeHours)
		}
	}
	if got[0].AgeHours < 3.99 {
		t.Fatalf("expected ~4h age, got %v", got[0].AgeHours)
	}
	if got[1].AgeHours != 0 {
		t.Fatalf("future post should clamp to zero age, got %v", got[1].AgeHours)
	}
	if got[3].AgeHours != 1 {
		t.Fatalf("expected 1h age, got %v", got[3].AgeHours)
	}
}

func TestEngagementScore(t *testing.T) {
	t.Parallel()

	p := domain.Post{
		Text:         strings.Repeat("a", 300),
		LikeCount:    10,
		RetweetCount: 5,
		ReplyCount:   2,
		QuoteCount:   1,
		ViewCount:    1000,
	}
	if got := EngagementScore(p); got != 55.5 {
		t.Fatalf("expected 55.5, got %v", got)
	}

	short := domain.Post{Text: "비트코인 상승"}
	if got := EngagementScore(short); got != 0.7 {
		t.Fatalf("length bonus must count runes, got %v", got)
	}
}

func TestCollectAggregatesAndDegrades(t *testing.T) {
	t.Parallel()

	sc := &fakeScanner{fn: func(instance, account string) ([]domain.Post, error) {
		switch account {
		case "down":
			return nil, errors.New("unreachable")
		case "old":
			return []domain.Post{post("o1", account, 10*time.Hour)}, nil
		default:
			return []domain.Post{
				post(account+"-1", account, time.Hour),
				post(account+"-2", account, 2*time.Hour),
			}, nil
		}
	}}
	c, _ := newTestCollector(sc, []string{"a"}, []string{"Reuters", "down", "old", "AP"}, 1)

	res, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if res.AccountsTotal != 4 || res.AccountsFailed != 1 {
		t.Fatalf("unexpected counters: %+v", res)
	}

	ids := make([]string, 0, len(res.Posts))
	for _, p := range res.Posts {
		ids = append(ids, p.ID)
		if p.EngagementScore <= 0 {
			t.Fatalf("expected engagement score on %s", p.ID)
		}
	}
	if strings.Join(ids, ",") != "Reuters-1,Reuters-2,AP-1,AP-2" {
		t.Fatalf("unexpected posts: %v", ids)
	}
}

func TestCollectParallelKeepsAccountOrder(t *testing.T) {
	t.Parallel()

	accounts := []string{"a1", "a2", "a3", "a4", "a5", "a6"}
	sc := &fakeScanner{fn: func(instance, account string) ([]domain.Post, error) {
		return []domain.Post{post(account, account, time.Minute)}, nil
	}}
	c, _ := newTestCollector(sc, []string{"m1", "m2"}, accounts, 4)

	res, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if len(res.Posts) != len(accounts) {
		t.Fatalf("expected %d posts, got %d", len(accounts), len(res.Posts))
	}
	for i, p := range res.Posts {
		if p.ID != accounts[i] {
			t.Fatalf("position %d: expected %s, got %s", i, accounts[i], p.ID)
		}
	}
}

func TestCollectCancelledReturnsPartial(t *testing.T) {
	t.Parallel()

	sc := &fakeScanner{fn: func(instance, account string) ([]domain.Post, error) {
		return []domain.Post{post(account, account, time.Minute)}, nil
	}}
	c, _ := newTestCollector(sc, []string{"m1"}, []string{"a", "b", "c"}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.Collect(ctx)
	if err != nil {
		t.Fatalf("cancellation must not raise: %v", err)
	}
	if len(res.Posts) != 0 {
		t.Fatalf("expected no posts after cancellation, got %d", len(res.Posts))
	}
	if res.AccountsFailed != 3 {
		t.Fatalf("expected all accounts marked degraded, got %d", res.AccountsFailed)
	}
}

func TestCollectPacesAccounts(t *testing.T) {
	t.Parallel()

	sc := &fakeScanner{fn: func(instance, account string) ([]domain.Post, error) {
		return nil, nil
	}}
	pool := mirror.NewPool([]string{"m"})
	c := New(sc, pool, Options{
		Accounts:     []string{"a", "b", "c"},
		WindowHours:  4,
		AccountDelay: 40 * time.Millisecond,
		Now:          func() time.Time { return fixedNow },
	}, nil)

	start := time.Now()
	if _, err := c.Collect(context.Background()); err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Fatalf("expected two inter-account delays, took %v", elapsed)
	}
}
