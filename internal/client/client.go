// Package client keeps a per-user working copy of transaction entries
// and mediates every mutation against the backing store. Toggling the
// paid flag is applied locally first and reverted when the store
// refuses it; all other writes only touch the local list after the
// store confirms them.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"caixa/internal/core"
	"caixa/internal/store"
)

// TransactionClient holds the entry list one user sees for one kind
// (income or expense). Safe for concurrent use.
type TransactionClient struct {
	store   store.EntryStore
	kind    core.Kind
	ownerID string

	mu      sync.Mutex
	entries []core.Entry
}

func New(st store.EntryStore, kind core.Kind, ownerID string) *TransactionClient {
	return &TransactionClient{store: st, kind: kind, ownerID: ownerID}
}

func (c *TransactionClient) Kind() core.Kind { return c.kind }

// Entries returns a copy of the current local list.
func (c *TransactionClient) Entries() []core.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Refresh reloads the list from the store. On failure the previous
// local list is kept so the user still sees something.
func (c *TransactionClient) Refresh(ctx context.Context) error {
	entries, err := c.store.Select(ctx, c.kind, c.ownerID)
	if err != nil {
		slog.ErrorContext(ctx, "Refresh failed, keeping stale list", "kind", c.kind, "error", err)
		return fmt.Errorf("refresh %s: %w", c.kind, err)
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// Create validates the entry, persists it and prepends the stored row
// to the local list. Nothing changes locally when the store fails.
func (c *TransactionClient) Create(ctx context.Context, e core.Entry) (core.Entry, error) {
	e.OwnerID = c.ownerID
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	created, err := c.store.Insert(ctx, c.kind, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("create %s: %w", c.kind, err)
	}
	c.mu.Lock()
	c.entries = append([]core.Entry{created}, c.entries...)
	c.mu.Unlock()
	return created, nil
}

// Update persists the changed entry and then replaces it in place in
// the local list. The list is not re-sorted, so an entry whose date
// changed keeps its position until the next Refresh.
func (c *TransactionClient) Update(ctx context.Context, e core.Entry) error {
	e.OwnerID = c.ownerID
	if err := e.Validate(); err != nil {
		return err
	}
	if err := c.store.Update(ctx, c.kind, e); err != nil {
		return fmt.Errorf("update %s: %w", c.kind, err)
	}
	c.mu.Lock()
	for i := range c.entries {
		if c.entries[i].ID == e.ID {
			c.entries[i] = e
			break
		}
	}
	c.mu.Unlock()
	return nil
}

// Delete removes the entry from the store and then locally. Deleting
// an id that is already gone is not an error.
func (c *TransactionClient) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, c.kind, id, c.ownerID); err != nil {
		return fmt.Errorf("delete %s: %w", c.kind, err)
	}
	c.mu.Lock()
	for i := range c.entries {
		if c.entries[i].ID == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	return nil
}

// TogglePaid flips the paid flag locally first, then asks the store to
// persist the new value. When the store fails the flag is flipped
// back, and the entry's previous state is restored.
func (c *TransactionClient) TogglePaid(ctx context.Context, id string) (core.Entry, error) {
	c.mu.Lock()
	idx := -1
	for i := range c.entries {
		if c.entries[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return core.Entry{}, fmt.Errorf("toggle %s: %w: entry %s", c.kind, store.ErrNotFound, id)
	}
	c.entries[idx].Paid = !c.entries[idx].Paid
	optimistic := c.entries[idx]
	c.mu.Unlock()

	if err := c.store.SetPaid(ctx, c.kind, id, c.ownerID, optimistic.Paid); err != nil {
		slog.ErrorContext(ctx, "Toggle rejected, reverting", "kind", c.kind, "id", id, "error", err)
		c.mu.Lock()
		for i := range c.entries {
			if c.entries[i].ID == id {
				c.entries[i].Paid = !optimistic.Paid
				break
			}
		}
		c.mu.Unlock()
		return core.Entry{}, fmt.Errorf("toggle %s: %w", c.kind, err)
	}
	return optimistic, nil
}

// Filter narrows the local list by category without touching the store.
func (c *TransactionClient) Filter(term string) []core.Entry {
	return core.FilterByCategory(c.Entries(), term)
}
