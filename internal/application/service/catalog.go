package service

import (
	"context"
	"sync"

	"mcpchat/internal/application/port/output"
	"mcpchat/internal/domain/entity"
)

var _ output.ToolCatalog = (*ToolCatalogImpl)(nil)

// ToolCatalogImpl caches what the tool server offers. Readers get immutable snapshots;
// refreshes are serialized so there is a single writer at a time.
type ToolCatalogImpl struct {
	refreshMu sync.Mutex
	mu        sync.RWMutex
	snapshot  entity.ToolSnapshot
}

func NewToolCatalog() *ToolCatalogImpl {
	return &ToolCatalogImpl{}
}

// Refresh replaces the cached set. On error the previous set stays in place.
func (c *ToolCatalogImpl) Refresh(ctx context.Context, lister output.ToolLister) ([]entity.ToolDefinition, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	defs, err := lister.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := entity.NewToolSnapshot(defs)
	if err != nil {
		return nil, err
	}

	c.Replace(snapshot)
	return snapshot.Definitions(), nil
}

// Replace installs a snapshot that was validated elsewhere.
func (c *ToolCatalogImpl) Replace(snapshot entity.ToolSnapshot) {
	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()
}

func (c *ToolCatalogImpl) Snapshot() entity.ToolSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}
