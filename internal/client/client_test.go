package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"caixa/internal/core"
	"caixa/internal/store"
)

// fakeEntryStore keeps entries in memory and can be told to fail the
// next calls.
type fakeEntryStore struct {
	entries    []core.Entry
	nextID     int
	failSelect bool
	failWrite  bool
}

func (f *fakeEntryStore) Select(_ context.Context, _ core.Kind, ownerID string) ([]core.Entry, error) {
	if f.failSelect {
		return nil, fmt.Errorf("%w: select: boom", store.ErrUnavailable)
	}
	var out []core.Entry
	for _, e := range f.entries {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEntryStore) Insert(_ context.Context, _ core.Kind, e core.Entry) (core.Entry, error) {
	if f.failWrite {
		return core.Entry{}, fmt.Errorf("%w: insert: boom", store.ErrUnavailable)
	}
	f.nextID++
	e.ID = strconv.Itoa(f.nextID)
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeEntryStore) Update(_ context.Context, _ core.Kind, e core.Entry) error {
	if f.failWrite {
		return fmt.Errorf("%w: update: boom", store.ErrUnavailable)
	}
	for i := range f.entries {
		if f.entries[i].ID == e.ID {
			f.entries[i] = e
		}
	}
	return nil
}

func (f *fakeEntryStore) SetPaid(_ context.Context, _ core.Kind, id, _ string, paid bool) error {
	if f.failWrite {
		return fmt.Errorf("%w: set paid: boom", store.ErrUnavailable)
	}
	for i := range f.entries {
		if f.entries[i].ID == id {
			f.entries[i].Paid = paid
		}
	}
	return nil
}

func (f *fakeEntryStore) Delete(_ context.Context, _ core.Kind, id, _ string) error {
	if f.failWrite {
		return fmt.Errorf("%w: delete: boom", store.ErrUnavailable)
	}
	for i := range f.entries {
		if f.entries[i].ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			break
		}
	}
	return nil
}

func seeded(t *testing.T) (*TransactionClient, *fakeEntryStore) {
	t.Helper()
	fake := &fakeEntryStore{}
	c := New(fake, core.KindExpense, "u1")
	for i, desc := range []string{"Mercado", "Aluguel", "Transporte"} {
		_, err := c.Create(context.Background(), core.Entry{
			Description: desc,
			Amount:      core.Money{Cents: int64(100 * (i + 1))},
			Category:    "Geral",
			Date:        core.NewDate(2025, 8, i+1),
		})
		if err != nil {
			t.Fatalf("seed create: %v", err)
		}
	}
	return c, fake
}

func TestCreatePrependsAfterStoreConfirms(t *testing.T) {
	c, _ := seeded(t)
	entries := c.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Create prepends, so the newest seed sits first.
	if entries[0].Description != "Transporte" {
		t.Fatalf("expected newest first, got %q", entries[0].Description)
	}
	if entries[0].OwnerID != "u1" {
		t.Fatalf("owner not stamped: %+v", entries[0])
	}
}

func TestCreateValidationFailsBeforeStore(t *testing.T) {
	fake := &fakeEntryStore{}
	c := New(fake, core.KindExpense, "u1")
	_, err := c.Create(context.Background(), core.Entry{
		Amount: core.Money{Cents: 100}, Category: "Geral", Date: core.NewDate(2025, 8, 1),
	})
	if !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
	if len(fake.entries) != 0 {
		t.Fatal("store must not be touched on validation failure")
	}
}

func TestCreateFailureLeavesListUntouched(t *testing.T) {
	c, fake := seeded(t)
	fake.failWrite = true
	_, err := c.Create(context.Background(), core.Entry{
		Description: "Novo", Amount: core.Money{Cents: 1}, Category: "Geral", Date: core.NewDate(2025, 8, 9),
	})
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(c.Entries()) != 3 {
		t.Fatalf("failed create must not grow the list: %d", len(c.Entries()))
	}
}

func TestTogglePaidOptimisticSuccess(t *testing.T) {
	c, fake := seeded(t)
	id := c.Entries()[0].ID

	got, err := c.TogglePaid(context.Background(), id)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !got.Paid {
		t.Fatal("toggle should flip paid to true")
	}
	for _, e := range fake.entries {
		if e.ID == id && !e.Paid {
			t.Fatal("store not updated")
		}
	}
}

func TestTogglePaidRevertsOnFailure(t *testing.T) {
	c, fake := seeded(t)
	id := c.Entries()[1].ID
	fake.failWrite = true

	_, err := c.TogglePaid(context.Background(), id)
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	for _, e := range c.Entries() {
		if e.ID == id && e.Paid {
			t.Fatal("paid flag not reverted after store failure")
		}
	}
}

func TestTogglePaidUnknownID(t *testing.T) {
	c, _ := seeded(t)
	if _, err := c.TogglePaid(context.Background(), "999"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateReplacesInPlaceWithoutResort(t *testing.T) {
	c, _ := seeded(t)
	entries := c.Entries()
	target := entries[1]
	target.Description = "Aluguel setembro"
	target.Date = core.NewDate(2025, 9, 30)

	if err := c.Update(context.Background(), target); err != nil {
		t.Fatalf("update: %v", err)
	}
	after := c.Entries()
	if after[1].ID != target.ID || after[1].Description != "Aluguel setembro" {
		t.Fatalf("entry not replaced in place: %+v", after[1])
	}
	// Date changed past every other entry, but order is preserved.
	for i := range entries {
		if after[i].ID != entries[i].ID {
			t.Fatalf("order changed at %d: %s vs %s", i, after[i].ID, entries[i].ID)
		}
	}
}

func TestUpdateFailureLeavesListUntouched(t *testing.T) {
	c, fake := seeded(t)
	before := c.Entries()
	fake.failWrite = true

	target := before[0]
	target.Description = "Mudado"
	if err := c.Update(context.Background(), target); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if c.Entries()[0].Description != before[0].Description {
		t.Fatal("failed update must not change the local list")
	}
}

func TestDeleteRemovesLocallyAfterStoreConfirms(t *testing.T) {
	c, _ := seeded(t)
	id := c.Entries()[0].ID
	if err := c.Delete(context.Background(), id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, e := range c.Entries() {
		if e.ID == id {
			t.Fatal("entry still present locally")
		}
	}
	// Second delete of the same id is a no-op.
	if err := c.Delete(context.Background(), id); err != nil {
		t.Fatalf("repeat delete should succeed: %v", err)
	}
}

func TestDeleteFailureLeavesListUntouched(t *testing.T) {
	c, fake := seeded(t)
	id := c.Entries()[0].ID
	fake.failWrite = true
	if err := c.Delete(context.Background(), id); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(c.Entries()) != 3 {
		t.Fatal("failed delete must not shrink the list")
	}
}

func TestRefreshKeepsStaleListOnFailure(t *testing.T) {
	c, fake := seeded(t)
	fake.failSelect = true
	if err := c.Refresh(context.Background()); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(c.Entries()) != 3 {
		t.Fatalf("stale list must survive a failed refresh: %d", len(c.Entries()))
	}

	fake.failSelect = false
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(c.Entries()) != 3 {
		t.Fatalf("refresh lost entries: %d", len(c.Entries()))
	}
}

func TestFilterIsLocal(t *testing.T) {
	c, fake := seeded(t)
	target := c.Entries()[0]
	target.Category = "Alimentação"
	if err := c.Update(context.Background(), target); err != nil {
		t.Fatalf("update: %v", err)
	}

	fake.failSelect = true // filtering must not hit the store
	got := c.Filter("aliment")
	if len(got) != 1 || got[0].ID != target.ID {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	if len(c.Filter("")) != 3 {
		t.Fatal("empty term should return the full list")
	}
}
