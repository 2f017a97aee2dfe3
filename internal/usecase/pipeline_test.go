package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/ranking"
)

type stubSource struct {
	result ports.CollectResult
	err    error
}

func (s stubSource) Collect(context.Context) (ports.CollectResult, error) {
	return s.result, s.err
}

type stubClassifier struct {
	category domain.Category
	seen     int
}

func (s *stubClassifier) ClassifyBatch(_ context.Context, posts []domain.NormalizedPost) []domain.ClassifiedItem {
	s.seen += len(posts)
	items := make([]domain.ClassifiedItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, domain.ClassifiedItem{NormalizedPost: p, Category: s.category, Headline: p.ID, Importance: 5})
	}
	return items
}

type recordingPublisher struct {
	name    string
	fail    bool
	digests []domain.CategoryRanking
	noData  int
}

func (r *recordingPublisher) Name() string { return r.name }

func (r *recordingPublisher) PublishDigest(_ context.Context, _ domain.CycleReport, ranking domain.CategoryRanking) error {
	if r.fail {
		return errors.New("channel down")
	}
	r.digests = append(r.digests, ranking)
	return nil
}

func (r *recordingPublisher) PublishNoData(context.Context, domain.CycleReport) error {
	if r.fail {
		return errors.New("channel down")
	}
	r.noData++
	return nil
}

type memoryRuns struct {
	mu   sync.Mutex
	runs []domain.CycleReport
}

func (m *memoryRuns) SaveRun(_ context.Context, report domain.CycleReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, report)
	return nil
}

func (m *memoryRuns) RecentRuns(_ context.Context, limit int) ([]domain.CycleReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CycleReport(nil), m.runs...), nil
}

func normalized(ids ...string) []domain.NormalizedPost {
	out := make([]domain.NormalizedPost, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.NormalizedPost{Post: domain.Post{ID: id, Text: "bitcoin " + id}, AgeHours: 1})
	}
	return out
}

func TestRunCycleDeliversRanking(t *testing.T) {
	t.Parallel()

	ok := &recordingPublisher{name: "ok"}
	broken := &recordingPublisher{name: "broken", fail: true}
	runs := &memoryRuns{}
	classifier := &stubClassifier{category: domain.Crypto}
	fixed := time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC)

	p := NewPipeline(PipelineDeps{
		Source:         stubSource{result: ports.CollectResult{Posts: normalized("a", "b", "c"), AccountsTotal: 5, AccountsFailed: 1}},
		Classifier:     classifier,
		Ranker:         ranking.New(ranking.DefaultWeights(), 2, nil),
		Publishers:     []ports.DigestPublisher{broken, ok},
		Runs:           runs,
		MinPerCategory: 5,
		Now:            func() time.Time { return fixed },
	})

	res, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle error: %v", err)
	}
	if classifier.seen != 3 {
		t.Fatalf("classifier saw %d posts", classifier.seen)
	}
	if len(res.Ranking[domain.Crypto]) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(res.Ranking[domain.Crypto]))
	}
	if len(ok.digests) != 1 {
		t.Fatal("healthy publisher should receive the digest")
	}
	if !res.Report.Delivered {
		t.Fatal("one successful publisher marks the cycle delivered")
	}

	rep := res.Report
	if rep.RunID == "" || rep.PostsCollected != 3 || rep.ItemsClassified != 3 || rep.AccountsFailed != 1 || rep.AccountsTotal != 5 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.Categories["crypto"] != 2 || rep.Categories["economy"] != 0 {
		t.Fatalf("unexpected category counts: %v", rep.Categories)
	}
	if len(runs.runs) != 1 || runs.runs[0].RunID != rep.RunID {
		t.Fatalf("run not audited: %+v", runs.runs)
	}
}

func TestRunCycleNoData(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{name: "ok"}
	runs := &memoryRuns{}
	classifier := &stubClassifier{}

	p := NewPipeline(PipelineDeps{
		Source:     stubSource{result: ports.CollectResult{AccountsTotal: 3, AccountsFailed: 3}},
		Classifier: classifier,
		Ranker:     ranking.New(ranking.DefaultWeights(), 10, nil),
		Publishers: []ports.DigestPublisher{pub},
		Runs:       runs,
	})

	res, err := p.RunCycle(context.Background())
	if !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if pub.noData != 1 || len(pub.digests) != 0 {
		t.Fatalf("expected a single no-data notice, got %d notices and %d digests", pub.noData, len(pub.digests))
	}
	if classifier.seen != 0 {
		t.Fatal("classifier must not run without posts")
	}
	if res.Ranking != nil {
		t.Fatal("no ranking is produced without data")
	}
	if len(runs.runs) != 1 || runs.runs[0].AccountsFailed != 3 {
		t.Fatalf("empty cycle should still be audited: %+v", runs.runs)
	}
}

func TestRunCycleCollectError(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{
		Source:     stubSource{err: errors.New("scanner missing")},
		Classifier: &stubClassifier{},
		Ranker:     ranking.New(ranking.DefaultWeights(), 10, nil),
	})
	if _, err := p.RunCycle(context.Background()); err == nil || errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected collect error, got %v", err)
	}

	if _, err := NewPipeline(PipelineDeps{}).RunCycle(context.Background()); err == nil {
		t.Fatal("unwired pipeline must fail")
	}
}

type manualDriver struct {
	job func(time.Time)
}

func (m *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	m.job = job
	return nil
}

func (m *manualDriver) Stop(context.Context) error { return nil }

func TestSchedulerRunsPipeline(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{name: "ok"}
	p := NewPipeline(PipelineDeps{
		Source:     stubSource{result: ports.CollectResult{Posts: normalized("x")}},
		Classifier: &stubClassifier{category: domain.Trump},
		Ranker:     ranking.New(ranking.DefaultWeights(), 10, nil),
		Publishers: []ports.DigestPublisher{pub},
	})

	driver := &manualDriver{}
	s := NewScheduler(driver, p, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	driver.job(time.Now())
	driver.job(time.Now())

	if len(pub.digests) != 2 {
		t.Fatalf("expected two deliveries, got %d", len(pub.digests))
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
}
