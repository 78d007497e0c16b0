package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"ppv/backend"
	"ppv/internal/utils"
)

// Cache keys
const (
	ProjectsKey           = "notion-projects"
	ActionItemsKey        = "notion-today-items"
	ProjectTitleKeyPrefix = "project-title-"
)

// Cache provides typed access to the projects and action-items partitions.
// Project titles share the action-items partition, so clearing action items
// also forgets resolved titles.
type Cache struct {
	store       Store
	projects    Partition
	actionItems Partition
	names       [2]string
}

// New creates a Cache over store using the given partition names
func New(store Store, projectsPartition, actionItemsPartition string) *Cache {
	return &Cache{
		store:       store,
		projects:    store.Partition(projectsPartition),
		actionItems: store.Partition(actionItemsPartition),
		names:       [2]string{projectsPartition, actionItemsPartition},
	}
}

// ProjectTitleKey returns the key under which a project's title is cached
func ProjectTitleKey(projectID string) string {
	return ProjectTitleKeyPrefix + projectID
}

// CacheProjects stores the project list
func (c *Cache) CacheProjects(ctx context.Context, projects []backend.Project) error {
	return setJSON(ctx, c.projects, ProjectsKey, projects)
}

// CachedProjects returns the cached project list, empty on miss or decode failure
func (c *Cache) CachedProjects(ctx context.Context) []backend.Project {
	var projects []backend.Project
	if !getJSON(ctx, c.projects, ProjectsKey, &projects) || projects == nil {
		return []backend.Project{}
	}
	return projects
}

// ClearProjects removes the cached project list
func (c *Cache) ClearProjects(ctx context.Context) error {
	return c.projects.Clear(ctx)
}

// CacheActionItems stores today's action items
func (c *Cache) CacheActionItems(ctx context.Context, items []backend.ActionItem) error {
	return setJSON(ctx, c.actionItems, ActionItemsKey, items)
}

// CachedActionItems returns the cached action items, empty on miss or decode failure
func (c *Cache) CachedActionItems(ctx context.Context) []backend.ActionItem {
	var items []backend.ActionItem
	if !getJSON(ctx, c.actionItems, ActionItemsKey, &items) || items == nil {
		return []backend.ActionItem{}
	}
	return items
}

// CacheProjectTitle stores a resolved project title as a bare string
func (c *Cache) CacheProjectTitle(ctx context.Context, projectID, title string) error {
	return c.actionItems.Set(ctx, ProjectTitleKey(projectID), title)
}

// CachedProjectTitle returns a cached project title
func (c *Cache) CachedProjectTitle(ctx context.Context, projectID string) (string, bool) {
	return c.actionItems.Get(ctx, ProjectTitleKey(projectID))
}

// ClearActionItems wipes the action-items partition, project titles included
func (c *Cache) ClearActionItems(ctx context.Context) error {
	return c.actionItems.Clear(ctx)
}

// PartitionStats is the entry count of one partition
type PartitionStats struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// Stats reports entry counts per partition. Stores that cannot count report an error.
func (c *Cache) Stats(ctx context.Context) ([]PartitionStats, error) {
	counter, ok := c.store.(Counter)
	if !ok {
		return nil, fmt.Errorf("cache store does not support statistics")
	}

	stats := make([]PartitionStats, 0, len(c.names))
	for _, name := range c.names {
		n, err := counter.Count(ctx, name)
		if err != nil {
			return nil, err
		}
		stats = append(stats, PartitionStats{Name: name, Entries: n})
	}
	return stats, nil
}

func setJSON(ctx context.Context, p Partition, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Set(ctx, key, string(data))
}

// getJSON decodes an entry into out. Returns false on a miss or a decode failure.
func getJSON(ctx context.Context, p Partition, key string, out interface{}) bool {
	raw, ok := p.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		utils.Debugf("discarding unreadable cache entry %s: %v", key, err)
		return false
	}
	return true
}
