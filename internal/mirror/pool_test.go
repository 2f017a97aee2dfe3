package mirror

import (
	"reflect"
	"sync"
	"testing"
)

func TestPoolOrderRotatesFromPreferred(t *testing.T) {
	t.Parallel()

	p := NewPool([]string{"a", " ", "b", "c"})
	if p.Len() != 3 {
		t.Fatalf("expected blank entry dropped, got %d", p.Len())
	}

	if got := p.Order(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected initial order: %v", got)
	}

	p.MarkSuccess("c")
	if got := p.Order(); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Fatalf("unexpected rotated order: %v", got)
	}
	if p.Current() != "c" {
		t.Fatalf("expected current c, got %s", p.Current())
	}

	p.MarkSuccess("unknown")
	if p.Current() != "c" {
		t.Fatalf("unknown instance must not move the pointer")
	}
}

func TestPoolEmpty(t *testing.T) {
	t.Parallel()

	p := NewPool(nil)
	if len(p.Order()) != 0 || p.Current() != "" {
		t.Fatal("empty pool should yield nothing")
	}
}

func TestPoolConcurrentAccess(t *testing.T) {
	t.Parallel()

	p := NewPool([]string{"a", "b", "c", "d"})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order := p.Order()
			p.MarkSuccess(order[i%len(order)])
		}(i)
	}
	wg.Wait()

	if len(p.Order()) != 4 {
		t.Fatal("order length changed under concurrency")
	}
}

func TestBaseURLAndHost(t *testing.T) {
	t.Parallel()

	if got := BaseURL("nitter.net/"); got != "https://nitter.net" {
		t.Fatalf("unexpected base: %s", got)
	}
	if got := BaseURL("http://127.0.0.1:8080"); got != "http://127.0.0.1:8080" {
		t.Fatalf("unexpected base: %s", got)
	}
	if got := Host("http://127.0.0.1:8080"); got != "127.0.0.1:8080" {
		t.Fatalf("unexpected host: %s", got)
	}
	if got := Host("Nitter.Poast.org"); got != "nitter.poast.org" {
		t.Fatalf("unexpected host: %s", got)
	}
}
