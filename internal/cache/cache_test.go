package cache

import (
	"context"
	"path/filepath"
	"testing"

	"ppv/backend"
)

// storeFactories runs each test against both stores
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"sqlite": func() Store {
			s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestPartitionGetSet(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			p := newStore().Partition("projects")

			if _, ok := p.Get(ctx, "missing"); ok {
				t.Error("Get on empty partition should miss")
			}
			if err := p.Set(ctx, "k", "v1"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := p.Set(ctx, "k", "v2"); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}
			got, ok := p.Get(ctx, "k")
			if !ok || got != "v2" {
				t.Errorf("Get() = %q, %v; want v2, true", got, ok)
			}
		})
	}
}

// TestPartitionIsolation verifies clearing one partition leaves the other intact
func TestPartitionIsolation(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			a := store.Partition("a")
			b := store.Partition("b")

			_ = a.Set(ctx, "shared", "from-a")
			_ = b.Set(ctx, "shared", "from-b")

			if got, _ := a.Get(ctx, "shared"); got != "from-a" {
				t.Errorf("partition a = %q", got)
			}

			if err := a.Clear(ctx); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			if _, ok := a.Get(ctx, "shared"); ok {
				t.Error("cleared partition should miss")
			}
			if got, ok := b.Get(ctx, "shared"); !ok || got != "from-b" {
				t.Errorf("other partition = %q, %v; want from-b", got, ok)
			}
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Partition("projects").Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = s.Close() }()

	if got, ok := s.Partition("projects").Get(ctx, "k"); !ok || got != "v" {
		t.Errorf("after reopen Get() = %q, %v", got, ok)
	}
}

// =============================================================================
// Typed Accessors
// =============================================================================

func TestCacheProjectsRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), "projects", "action-items")

	if got := c.CachedProjects(ctx); got == nil || len(got) != 0 {
		t.Errorf("CachedProjects() on miss = %v, want empty non-nil slice", got)
	}

	projects := []backend.Project{{ID: "p1", Title: "Garden"}, {ID: "p2", Title: "Taxes"}}
	if err := c.CacheProjects(ctx, projects); err != nil {
		t.Fatalf("CacheProjects() error = %v", err)
	}

	got := c.CachedProjects(ctx)
	if len(got) != 2 || got[1].Title != "Taxes" {
		t.Errorf("CachedProjects() = %v", got)
	}
}

func TestCacheActionItemsKeepsNullDoDate(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), "projects", "action-items")

	date := "2026-03-07"
	items := []backend.ActionItem{
		{ID: "a", Title: "With date", DoDate: &date},
		{ID: "b", Title: "No date"},
	}
	if err := c.CacheActionItems(ctx, items); err != nil {
		t.Fatalf("CacheActionItems() error = %v", err)
	}

	got := c.CachedActionItems(ctx)
	if len(got) != 2 {
		t.Fatalf("CachedActionItems() len = %d", len(got))
	}
	if got[0].DoDate == nil || *got[0].DoDate != date {
		t.Errorf("DoDate = %v, want %s", got[0].DoDate, date)
	}
	if got[1].DoDate != nil {
		t.Errorf("DoDate = %v, want nil", *got[1].DoDate)
	}
}

// TestCacheDecodeFailureIsMiss verifies corrupt entries read as empty
func TestCacheDecodeFailureIsMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := New(store, "projects", "action-items")

	_ = store.Partition("action-items").Set(ctx, ActionItemsKey, "{not json")
	_ = store.Partition("projects").Set(ctx, ProjectsKey, "null")

	if got := c.CachedActionItems(ctx); len(got) != 0 {
		t.Errorf("CachedActionItems() = %v, want empty", got)
	}
	if got := c.CachedProjects(ctx); got == nil || len(got) != 0 {
		t.Errorf("CachedProjects() = %v, want empty", got)
	}
}

// TestClearActionItemsForgetsProjectTitles verifies titles share the action-items partition
func TestClearActionItemsForgetsProjectTitles(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), "projects", "action-items")

	_ = c.CacheProjects(ctx, []backend.Project{{ID: "p1", Title: "Garden"}})
	_ = c.CacheActionItems(ctx, []backend.ActionItem{{ID: "a"}})
	_ = c.CacheProjectTitle(ctx, "p1", "Garden")

	if title, ok := c.CachedProjectTitle(ctx, "p1"); !ok || title != "Garden" {
		t.Fatalf("CachedProjectTitle() = %q, %v", title, ok)
	}

	if err := c.ClearActionItems(ctx); err != nil {
		t.Fatalf("ClearActionItems() error = %v", err)
	}

	if _, ok := c.CachedProjectTitle(ctx, "p1"); ok {
		t.Error("project title should be cleared with action items")
	}
	if len(c.CachedActionItems(ctx)) != 0 {
		t.Error("action items should be cleared")
	}
	if len(c.CachedProjects(ctx)) != 1 {
		t.Error("projects partition should survive")
	}
}

func TestCacheStats(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			c := New(newStore(), "projects", "action-items")
			_ = c.CacheProjects(ctx, []backend.Project{{ID: "p1"}})
			_ = c.CacheActionItems(ctx, nil)
			_ = c.CacheProjectTitle(ctx, "p1", "Garden")

			stats, err := c.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats() error = %v", err)
			}
			want := []PartitionStats{{"projects", 1}, {"action-items", 2}}
			if len(stats) != len(want) {
				t.Fatalf("Stats() = %v", stats)
			}
			for i := range want {
				if stats[i] != want[i] {
					t.Errorf("Stats()[%d] = %v, want %v", i, stats[i], want[i])
				}
			}
		})
	}
}

func TestProjectTitleKey(t *testing.T) {
	if got := ProjectTitleKey("abc"); got != "project-title-abc" {
		t.Errorf("ProjectTitleKey() = %q", got)
	}
}
