package actionitems

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ppv/backend"
	"ppv/internal/cache"
)

// =============================================================================
// Fake Source
// =============================================================================

type fakeSource struct {
	mu         sync.Mutex
	items      []backend.ActionItem
	titles     map[string]string
	queryErr   error
	titleErr   map[string]error
	queries    int
	retrievals map[string]int
	cutoffs    []time.Time

	inFlight    int32
	maxInFlight int32
	delay       time.Duration
}

func newFakeSource(items []backend.ActionItem, titles map[string]string) *fakeSource {
	return &fakeSource{
		items:      items,
		titles:     titles,
		titleErr:   map[string]error{},
		retrievals: map[string]int{},
	}
}

func (f *fakeSource) QueryTodayActionItems(_ context.Context, cutoff time.Time) ([]backend.ActionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	f.cutoffs = append(f.cutoffs, cutoff)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := make([]backend.ActionItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeSource) RetrieveProjectTitle(ctx context.Context, projectID string) (string, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.maxInFlight)
		if n <= peak || atomic.CompareAndSwapInt32(&f.maxInFlight, peak, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.retrievals[projectID]++
	if err := f.titleErr[projectID]; err != nil {
		return "", err
	}
	return f.titles[projectID], nil
}

func (f *fakeSource) totalRetrievals() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.retrievals {
		total += n
	}
	return total
}

func newCache() *cache.Cache {
	return cache.New(cache.NewMemoryStore(), "projects", "action-items")
}

func titlesOf(items []backend.ActionItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Title
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// FetchToday
// =============================================================================

// TestFetchTodayCacheHitMakesNoRemoteCalls verifies a non-empty cache is authoritative
func TestFetchTodayCacheHitMakesNoRemoteCalls(t *testing.T) {
	ctx := context.Background()
	c := newCache()
	_ = c.CacheActionItems(ctx, []backend.ActionItem{{ID: "cached", Title: "From cache"}})

	src := newFakeSource([]backend.ActionItem{{ID: "remote", Title: "From remote"}}, nil)
	agg := New(src, c)

	items, err := agg.FetchToday(ctx)
	if err != nil {
		t.Fatalf("FetchToday() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "cached" {
		t.Errorf("FetchToday() = %v, want cached list", items)
	}
	if src.queries != 0 || src.totalRetrievals() != 0 {
		t.Errorf("remote calls = %d queries, %d retrievals; want 0", src.queries, src.totalRetrievals())
	}
}

// TestFetchTodayColdCache verifies one query plus one retrieval per distinct uncached project
func TestFetchTodayColdCache(t *testing.T) {
	ctx := context.Background()
	c := newCache()
	src := newFakeSource([]backend.ActionItem{
		{ID: "1", Title: "A", ProjectID: "p1", Priority: backend.PriorityQuick},
		{ID: "2", Title: "B", ProjectID: "p2", Priority: backend.PriorityImmediate},
		{ID: "3", Title: "C", ProjectID: "p1", Priority: backend.PriorityErrand},
		{ID: "4", Title: "D"},
	}, map[string]string{"p1": "Garden", "p2": "Taxes"})

	agg := New(src, c)
	items, err := agg.FetchToday(ctx)
	if err != nil {
		t.Fatalf("FetchToday() error = %v", err)
	}

	if src.queries != 1 {
		t.Errorf("queries = %d, want 1", src.queries)
	}
	if src.retrievals["p1"] != 1 || src.retrievals["p2"] != 1 {
		t.Errorf("retrievals = %v, want one per project", src.retrievals)
	}

	wantOrder := []string{"B", "A", "C", "D"}
	if !equalStrings(titlesOf(items), wantOrder) {
		t.Errorf("order = %v, want %v", titlesOf(items), wantOrder)
	}
	if items[0].Project != "Taxes" || items[1].Project != "Garden" || items[3].Project != "" {
		t.Errorf("projects = %q %q %q", items[0].Project, items[1].Project, items[3].Project)
	}

	// The list is now cached: a second fetch makes no further calls
	if _, err := agg.FetchToday(ctx); err != nil {
		t.Fatalf("second FetchToday() error = %v", err)
	}
	if src.queries != 1 || src.totalRetrievals() != 2 {
		t.Errorf("after second fetch: %d queries, %d retrievals", src.queries, src.totalRetrievals())
	}
}

// TestFetchTodayUsesCachedProjectTitles verifies cached titles skip retrieval
func TestFetchTodayUsesCachedProjectTitles(t *testing.T) {
	ctx := context.Background()
	c := newCache()
	_ = c.CacheProjectTitle(ctx, "p1", "Cached Garden")

	src := newFakeSource([]backend.ActionItem{{ID: "1", ProjectID: "p1"}}, map[string]string{"p1": "Remote Garden"})
	items, err := New(src, c).FetchToday(ctx)
	if err != nil {
		t.Fatalf("FetchToday() error = %v", err)
	}
	if src.totalRetrievals() != 0 {
		t.Errorf("retrievals = %d, want 0", src.totalRetrievals())
	}
	if items[0].Project != "Cached Garden" {
		t.Errorf("Project = %q", items[0].Project)
	}
}

// TestRefreshClearsAndFetches verifies clear then fetch goes remote again
func TestRefreshClearsAndFetches(t *testing.T) {
	ctx := context.Background()
	c := newCache()
	src := newFakeSource([]backend.ActionItem{{ID: "1", ProjectID: "p1"}}, map[string]string{"p1": "Garden"})
	agg := New(src, c)

	if _, err := agg.FetchToday(ctx); err != nil {
		t.Fatalf("FetchToday() error = %v", err)
	}
	if _, err := agg.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if src.queries != 2 {
		t.Errorf("queries = %d, want 2", src.queries)
	}
	// Project titles live in the cleared partition and are looked up again
	if src.retrievals["p1"] != 2 {
		t.Errorf("retrievals = %d, want 2", src.retrievals["p1"])
	}
}

// TestFetchTodayQueryFailureCachesNothing verifies remote failure propagates
func TestFetchTodayQueryFailureCachesNothing(t *testing.T) {
	ctx := context.Background()
	c := newCache()
	src := newFakeSource(nil, nil)
	src.queryErr = errors.New("boom")

	_, err := New(src, c).FetchToday(ctx)
	if !errors.Is(err, src.queryErr) {
		t.Fatalf("FetchToday() error = %v, want boom", err)
	}
	if len(c.CachedActionItems(ctx)) != 0 {
		t.Error("nothing should be cached after a failed query")
	}
}

// TestFetchTodayTitleFailureLeavesEmptyTitle verifies per-item lookup failures are tolerated
func TestFetchTodayTitleFailureLeavesEmptyTitle(t *testing.T) {
	ctx := context.Background()
	c := newCache()
	src := newFakeSource([]backend.ActionItem{
		{ID: "1", ProjectID: "p1"},
		{ID: "2", ProjectID: "p2"},
	}, map[string]string{"p2": "Taxes"})
	src.titleErr["p1"] = errors.New("404")

	items, err := New(src, c).FetchToday(ctx)
	if err != nil {
		t.Fatalf("FetchToday() error = %v", err)
	}
	if items[0].Project != "" || items[1].Project != "Taxes" {
		t.Errorf("projects = %q, %q", items[0].Project, items[1].Project)
	}
	if _, ok := c.CachedProjectTitle(ctx, "p1"); ok {
		t.Error("failed lookup should not be cached")
	}
}

func TestFetchTodayCancelledContext(t *testing.T) {
	c := newCache()
	src := newFakeSource([]backend.ActionItem{{ID: "1", ProjectID: "p1"}}, map[string]string{"p1": "Garden"})
	src.delay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if _, err := New(src, c).FetchToday(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("FetchToday() error = %v, want context.Canceled", err)
	}
	if len(c.CachedActionItems(context.Background())) != 0 {
		t.Error("nothing should be cached after cancellation")
	}
}

func TestFetchTodayLookupConcurrencyLimit(t *testing.T) {
	ctx := context.Background()
	var items []backend.ActionItem
	titles := map[string]string{}
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
		items = append(items, backend.ActionItem{ID: id, ProjectID: id})
		titles[id] = id
	}
	src := newFakeSource(items, titles)
	src.delay = 10 * time.Millisecond

	if _, err := New(src, newCache(), WithLookupConcurrency(2)).FetchToday(ctx); err != nil {
		t.Fatalf("FetchToday() error = %v", err)
	}
	if peak := atomic.LoadInt32(&src.maxInFlight); peak > 2 {
		t.Errorf("max concurrent lookups = %d, want <= 2", peak)
	}
	if src.totalRetrievals() != 6 {
		t.Errorf("retrievals = %d, want 6", src.totalRetrievals())
	}
}

// TestFetchTodayCutoffIsLocalMidnight verifies the query uses the start of today
func TestFetchTodayCutoffIsLocalMidnight(t *testing.T) {
	loc := time.FixedZone("test", 2*60*60)
	now := time.Date(2026, 3, 7, 17, 45, 12, 0, loc)
	src := newFakeSource(nil, nil)

	_, err := New(src, newCache(), WithClock(func() time.Time { return now })).FetchToday(context.Background())
	if err != nil {
		t.Fatalf("FetchToday() error = %v", err)
	}
	want := time.Date(2026, 3, 7, 0, 0, 0, 0, loc)
	if len(src.cutoffs) != 1 || !src.cutoffs[0].Equal(want) {
		t.Errorf("cutoff = %v, want %v", src.cutoffs, want)
	}
}

// TestFetchTodayEmptyResultQueriesAgain verifies an empty list is not authoritative
func TestFetchTodayEmptyResultQueriesAgain(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource(nil, nil)
	agg := New(src, newCache())

	_, _ = agg.FetchToday(ctx)
	_, _ = agg.FetchToday(ctx)
	if src.queries != 2 {
		t.Errorf("queries = %d, want 2", src.queries)
	}
}

// =============================================================================
// Ordering
// =============================================================================

func TestSortByPriority(t *testing.T) {
	items := []backend.ActionItem{
		{Title: "r", Priority: backend.PriorityRemember},
		{Title: "i", Priority: backend.PriorityImmediate},
		{Title: "q", Priority: backend.PriorityQuick},
	}
	SortByPriority(items)

	if !equalStrings(titlesOf(items), []string{"i", "q", "r"}) {
		t.Errorf("order = %v, want [i q r]", titlesOf(items))
	}
}

// TestSortByPriorityStableAndUnknownLast verifies ties keep input order
func TestSortByPriorityStableAndUnknownLast(t *testing.T) {
	items := []backend.ActionItem{
		{Title: "u1", Priority: "Someday"},
		{Title: "f1", Priority: backend.PriorityFirst},
		{Title: "u2", Priority: ""},
		{Title: "f2", Priority: backend.PriorityFirst},
		{Title: "e", Priority: backend.PriorityErrand},
	}
	SortByPriority(items)

	want := []string{"f1", "f2", "e", "u1", "u2"}
	if !equalStrings(titlesOf(items), want) {
		t.Errorf("order = %v, want %v", titlesOf(items), want)
	}
}

func TestRank(t *testing.T) {
	if Rank(backend.PriorityScheduled) != 2 {
		t.Errorf("Rank(Scheduled) = %d, want 2", Rank(backend.PriorityScheduled))
	}
	if Rank("nope") != 999 {
		t.Errorf("Rank(unknown) = %d, want 999", Rank("nope"))
	}
}

func TestVisible(t *testing.T) {
	items := []backend.ActionItem{
		{ID: "open"},
		{ID: "done", Done: true},
		{ID: "toggled", Done: true},
	}
	got := Visible(items, map[string]bool{"toggled": true})

	ids := make([]string, len(got))
	for i, item := range got {
		ids[i] = item.ID
	}
	if !equalStrings(ids, []string{"open", "toggled"}) {
		t.Errorf("Visible() = %v", ids)
	}
}
