// Package classifier enriches posts with a category and Korean synopsis
// through an AI text generator, degrading to keyword matching when the
// service is unavailable.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Options configures a Classifier.
type Options struct {
	Models           []string
	ModelOverride    string
	Timeout          time.Duration
	TranslateTimeout time.Duration
	ChunkSize        int
	ChunkDelay       time.Duration
	BackoffBase      time.Duration
	MaxAttempts      int
	Temperature      float64
	MaxTokens        int
	Keywords         map[domain.Category][]string
	// Sleep waits between quota retries; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeQuota
	outcomeUnsupported
	outcomeFailed
)

func outcomeOf(err error) outcome {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, domain.ErrQuotaExceeded):
		return outcomeQuota
	case errors.Is(err, domain.ErrModelUnsupported):
		return outcomeUnsupported
	default:
		return outcomeFailed
	}
}

// Classifier owns the active-model preference for its lifetime.
type Classifier struct {
	gen    ports.TextGenerator
	opts   Options
	models []string
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger

	mu     sync.Mutex
	active string
}

var _ ports.PostClassifier = (*Classifier)(nil)

// New builds a Classifier. The override model, when set, is tried first.
func New(gen ports.TextGenerator, opts Options, log *slog.Logger) *Classifier {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 30
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 4
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &Classifier{
		gen:    gen,
		opts:   opts,
		models: modelChain(opts.ModelOverride, opts.Models),
		sleep:  sleep,
		logger: log,
	}
}

func modelChain(override string, models []string) []string {
	chain := make([]string, 0, len(models)+1)
	seen := make(map[string]struct{}, len(models)+1)
	for _, m := range append([]string{override}, models...) {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		chain = append(chain, m)
	}
	return chain
}

// Models returns the fallback order for the next call, active model first.
func (c *Classifier) Models() []string {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active == "" {
		return append([]string(nil), c.models...)
	}
	order := make([]string, 0, len(c.models))
	order = append(order, active)
	for _, m := range c.models {
		if m != active {
			order = append(order, m)
		}
	}
	return order
}

func (c *Classifier) markActive(model string) {
	c.mu.Lock()
	c.active = model
	c.mu.Unlock()
}

// ClassifyBatch classifies posts chunk by chunk. A chunk that fails outright
// is skipped; once ctx is done the remaining chunks are keyword-classified.
func (c *Classifier) ClassifyBatch(ctx context.Context, posts []domain.NormalizedPost) []domain.ClassifiedItem {
	if len(posts) == 0 {
		return nil
	}

	limit := rate.Inf
	if c.opts.ChunkDelay > 0 {
		limit = rate.Every(c.opts.ChunkDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	chunks := splitChunks(posts, c.opts.ChunkSize)
	c.info("classification started", "posts", len(posts), "chunks", len(chunks), "models", c.models)

	var items []domain.ClassifiedItem
	for i, chunk := range chunks {
		if err := limiter.Wait(ctx); err != nil {
			c.warn("classification interrupted, using keyword fallback", "chunk", i, "error", err)
			items = append(items, FallbackClassify(chunk, c.opts.Keywords)...)
			continue
		}

		chunkItems, err := c.safeChunk(ctx, chunk)
		if err != nil {
			c.warn("chunk skipped", "chunk", i, "posts", len(chunk), "error", err)
			continue
		}
		items = append(items, chunkItems...)
	}

	c.info("classification finished", "items", len(items))
	return items
}

func (c *Classifier) safeChunk(ctx context.Context, chunk []domain.NormalizedPost) (items []domain.ClassifiedItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("classify chunk: %v", r)
		}
	}()
	return c.ClassifyChunk(ctx, chunk), nil
}

// ClassifyChunk sends one prompt for the whole chunk and maps results back
// by index. Any service or parse failure yields the keyword fallback.
func (c *Classifier) ClassifyChunk(ctx context.Context, posts []domain.NormalizedPost) []domain.ClassifiedItem {
	if len(posts) == 0 {
		return nil
	}

	text, ok := c.CallWithModelFallback(ctx, ports.GenerateRequest{
		SystemPrompt: classifySystemPrompt,
		UserPrompt:   buildChunkPrompt(posts),
		Temperature:  c.opts.Temperature,
		MaxTokens:    c.opts.MaxTokens,
		JSON:         true,
	})
	if !ok {
		c.warn("all models exhausted, using keyword fallback", "posts", len(posts))
		return FallbackClassify(posts, c.opts.Keywords)
	}

	results, err := parseResults(text)
	if err != nil {
		c.warn("unusable ai response, using keyword fallback", "posts", len(posts), "error", err)
		return FallbackClassify(posts, c.opts.Keywords)
	}

	items := make([]domain.ClassifiedItem, 0, len(results))
	seenIndex := make(map[int]struct{}, len(results))
	seenHeadline := make(map[string]struct{}, len(results))
	seenRaw := make(map[string]struct{}, len(results))
	for _, res := range results {
		idx, ok := res.index()
		if !ok || idx < 0 || idx >= len(posts) {
			c.debug("result dropped: index out of range", "index", res.Index.String())
			continue
		}
		if _, dup := seenIndex[idx]; dup {
			continue
		}
		raw := strings.TrimSpace(res.Headline)
		if _, dup := seenRaw[raw]; dup && raw != "" {
			c.debug("result dropped: duplicate headline", "headline", raw)
			continue
		}

		item := c.enrich(ctx, posts[idx], res)
		if _, dup := seenHeadline[item.Headline]; dup && item.Headline != "" {
			c.debug("result dropped: duplicate headline", "headline", item.Headline)
			continue
		}

		seenIndex[idx] = struct{}{}
		seenRaw[raw] = struct{}{}
		seenHeadline[item.Headline] = struct{}{}
		items = append(items, item)
	}
	return items
}

func (c *Classifier) enrich(ctx context.Context, post domain.NormalizedPost, res rawResult) domain.ClassifiedItem {
	category, ok := domain.ParseCategory(res.Category)
	if !ok {
		c.debug("unknown category from ai", "category", res.Category, "post", post.ID)
	}

	headline := c.Retranslate(ctx, strings.TrimSpace(res.Headline))
	if headline == "" {
		headline = truncateRunes(post.Text, fallbackHeadlineRunes, "...")
	}

	return domain.ClassifiedItem{
		NormalizedPost: post,
		Category:       category,
		Headline:       headline,
		Summary:        c.Retranslate(ctx, strings.TrimSpace(res.Summary)),
		Analysis:       c.Retranslate(ctx, strings.TrimSpace(res.Analysis)),
		MarketImpact:   c.Retranslate(ctx, strings.TrimSpace(res.MarketImpact)),
		Importance:     res.importance(),
	}
}

// CallWithModelFallback walks the model chain. Quota errors back off
// base*2^attempt and retry the same model up to MaxAttempts times;
// unsupported models and other failures move on immediately.
func (c *Classifier) CallWithModelFallback(ctx context.Context, req ports.GenerateRequest) (string, bool) {
	if c.gen == nil {
		return "", false
	}

	for _, model := range c.Models() {
	attempts:
		for attempt := 0; attempt < c.opts.MaxAttempts; attempt++ {
			if ctx.Err() != nil {
				return "", false
			}

			req.Model = model
			text, err := c.generate(ctx, req, c.opts.Timeout)
			switch outcomeOf(err) {
			case outcomeOK:
				c.markActive(model)
				return text, true
			case outcomeQuota:
				wait := c.opts.BackoffBase * time.Duration(1<<attempt)
				c.warn("quota exceeded, backing off", "model", model, "attempt", attempt+1, "wait", wait)
				if err := c.sleep(ctx, wait); err != nil {
					return "", false
				}
			case outcomeUnsupported:
				c.warn("model unsupported, trying next", "model", model, "error", err)
				break attempts
			default:
				c.warn("model call failed, trying next", "model", model, "error", err)
				break attempts
			}
		}
	}
	return "", false
}

// Retranslate re-renders a non-compliant field in Korean with a single call
// to the active model. On any failure the input is returned unchanged.
func (c *Classifier) Retranslate(ctx context.Context, text string) string {
	if text == "" || IsCompliant(text) || c.gen == nil {
		return text
	}
	models := c.Models()
	if len(models) == 0 {
		return text
	}

	out, err := c.generate(ctx, ports.GenerateRequest{
		Model:        models[0],
		SystemPrompt: translateSystemPrompt,
		UserPrompt:   buildTranslatePrompt(text),
		Temperature:  c.opts.Temperature,
		MaxTokens:    2000,
	}, c.opts.TranslateTimeout)
	if err != nil {
		c.warn("retranslation failed, keeping original", "error", err)
		return text
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return text
	}
	return out
}

func (c *Classifier) generate(ctx context.Context, req ports.GenerateRequest, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.gen.Generate(ctx, req)
}

func splitChunks(posts []domain.NormalizedPost, size int) [][]domain.NormalizedPost {
	chunks := make([][]domain.NormalizedPost, 0, (len(posts)+size-1)/size)
	for start := 0; start < len(posts); start += size {
		end := min(start+size, len(posts))
		chunks = append(chunks, posts[start:end])
	}
	return chunks
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Classifier) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Classifier) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Classifier) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
