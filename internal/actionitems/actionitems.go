// Package actionitems assembles today's action items: cache first, then the
// remote query, project-title resolution and priority ordering.
package actionitems

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"ppv/backend"
	"ppv/internal/cache"
	"ppv/internal/utils"
)

// Source is the subset of the gateway the aggregator needs
type Source interface {
	QueryTodayActionItems(ctx context.Context, cutoff time.Time) ([]backend.ActionItem, error)
	RetrieveProjectTitle(ctx context.Context, projectID string) (string, error)
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock overrides time.Now, used to compute the midnight cutoff
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLookupConcurrency bounds concurrent project-title lookups (0 = unbounded)
func WithLookupConcurrency(n int) Option {
	return func(a *Aggregator) { a.lookupLimit = n }
}

// Aggregator fetches today's action items
type Aggregator struct {
	source      Source
	cache       *cache.Cache
	now         func() time.Time
	lookupLimit int
}

// New creates an Aggregator
func New(source Source, c *cache.Cache, opts ...Option) *Aggregator {
	a := &Aggregator{
		source:      source,
		cache:       c,
		now:         time.Now,
		lookupLimit: 8,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Cutoff returns local midnight at the start of t's day
func Cutoff(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FetchToday returns today's action items.
// A non-empty cached list is returned as-is without contacting the remote side.
// Otherwise the remote query runs, project titles are resolved, the list is
// sorted by priority rank and written to the cache.
func (a *Aggregator) FetchToday(ctx context.Context) ([]backend.ActionItem, error) {
	if cached := a.cache.CachedActionItems(ctx); len(cached) > 0 {
		utils.Debugf("using %d cached action items", len(cached))
		return cached, nil
	}

	items, err := a.source.QueryTodayActionItems(ctx, Cutoff(a.now()))
	if err != nil {
		return nil, err
	}

	if err := a.resolveProjects(ctx, items); err != nil {
		return nil, err
	}

	SortByPriority(items)

	if err := a.cache.CacheActionItems(ctx, items); err != nil {
		utils.Warnf("failed to cache action items: %v", err)
	}
	return items, nil
}

// Refresh clears the action-items partition and fetches again
func (a *Aggregator) Refresh(ctx context.Context) ([]backend.ActionItem, error) {
	if err := a.ClearCache(ctx); err != nil {
		return nil, err
	}
	return a.FetchToday(ctx)
}

// ClearCache wipes cached action items and project titles
func (a *Aggregator) ClearCache(ctx context.Context) error {
	return a.cache.ClearActionItems(ctx)
}

// resolveProjects fills item.Project for every item with a ProjectID.
// Each distinct id is looked up once. A failed lookup leaves the title empty;
// only context cancellation aborts.
func (a *Aggregator) resolveProjects(ctx context.Context, items []backend.ActionItem) error {
	titles := make(map[string]string)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if a.lookupLimit > 0 {
		g.SetLimit(a.lookupLimit)
	}

	seen := make(map[string]bool)
	for _, item := range items {
		id := item.ProjectID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		g.Go(func() error {
			title, err := a.projectTitle(gctx, id)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				utils.Warnf("could not resolve project %s: %v", id, err)
				return nil
			}
			mu.Lock()
			titles[id] = title
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i := range items {
		items[i].Project = titles[items[i].ProjectID]
	}
	return nil
}

// projectTitle reads the cached title or retrieves and caches it
func (a *Aggregator) projectTitle(ctx context.Context, projectID string) (string, error) {
	if title, ok := a.cache.CachedProjectTitle(ctx, projectID); ok {
		return title, nil
	}

	title, err := a.source.RetrieveProjectTitle(ctx, projectID)
	if err != nil {
		return "", err
	}

	if err := a.cache.CacheProjectTitle(ctx, projectID, title); err != nil {
		utils.Warnf("failed to cache project title %s: %v", projectID, err)
	}
	return title, nil
}

// Rank maps a priority label to its rank; unknown labels rank last
func Rank(priority string) int {
	return backend.PriorityRank(priority)
}

// SortByPriority sorts items by ascending rank. Equal ranks keep their order.
func SortByPriority(items []backend.ActionItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return Rank(items[i].Priority) < Rank(items[j].Priority)
	})
}

// Visible filters items for display: open items plus those toggled in this session
func Visible(items []backend.ActionItem, recentlyToggled map[string]bool) []backend.ActionItem {
	out := make([]backend.ActionItem, 0, len(items))
	for _, item := range items {
		if !item.Done || recentlyToggled[item.ID] {
			out = append(out, item)
		}
	}
	return out
}
