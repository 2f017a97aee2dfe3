// Package mirror keeps the ordered list of feed mirror instances and the
// sticky preference for the last one that answered.
package mirror

import (
	"net/url"
	"strings"
	"sync"
)

// Pool is safe for concurrent use by parallel account fetches.
type Pool struct {
	mu        sync.Mutex
	instances []string
	current   int
}

// NewPool copies the instance list; blank entries are dropped.
func NewPool(instances []string) *Pool {
	cleaned := make([]string, 0, len(instances))
	for _, inst := range instances {
		inst = strings.TrimSpace(inst)
		if inst != "" {
			cleaned = append(cleaned, inst)
		}
	}
	return &Pool{instances: cleaned}
}

// Len returns the number of configured instances.
func (p *Pool) Len() int {
	return len(p.instances)
}

// Order returns every instance once, starting from the preferred one.
func (p *Pool) Order() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.instances)
	order := make([]string, 0, n)
	for i := 0; i < n; i++ {
		order = append(order, p.instances[(p.current+i)%n])
	}
	return order
}

// Current returns the preferred instance, or "" for an empty pool.
func (p *Pool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.instances) == 0 {
		return ""
	}
	return p.instances[p.current]
}

// MarkSuccess makes instance the starting point of subsequent rotations.
// Unknown instances are ignored.
func (p *Pool) MarkSuccess(instance string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, inst := range p.instances {
		if inst == instance {
			p.current = i
			return
		}
	}
}

// Hosts returns the host part of every instance, used to recognise mirror
// links that must be rewritten to the canonical domain.
func (p *Pool) Hosts() map[string]struct{} {
	hosts := make(map[string]struct{}, len(p.instances))
	for _, inst := range p.instances {
		hosts[Host(inst)] = struct{}{}
	}
	return hosts
}

// BaseURL turns a bare host such as "nitter.net" into "https://nitter.net".
// Values that already carry a scheme are returned without a trailing slash.
func BaseURL(instance string) string {
	instance = strings.TrimRight(strings.TrimSpace(instance), "/")
	if strings.Contains(instance, "://") {
		return instance
	}
	return "https://" + instance
}

// Host extracts the lower-cased host[:port] of an instance entry.
func Host(instance string) string {
	u, err := url.Parse(BaseURL(instance))
	if err != nil {
		return strings.ToLower(instance)
	}
	return strings.ToLower(u.Host)
}
