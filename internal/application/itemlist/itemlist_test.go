package itemlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/domain/cart"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"github.com/pocketbook/backend/internal/infrastructure/docstore"
	"github.com/pocketbook/backend/internal/infrastructure/docstore/docstoretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var header = store.Collection("users", "u1", "express").Doc("expressDoc")

func stamper() *shared.Stamper {
	return &shared.Stamper{Clock: shared.FixedClock(time.Date(2026, 10, 19, 14, 7, 0, 0, time.UTC))}
}

func newList(t *testing.T, s store.DocumentStore) *List {
	t.Helper()
	l := New(s, dispatch.New(nil), stamper(), header, nil)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(l.Release)
	return l
}

func item(t *testing.T, name string, qty int, price string) cart.Item {
	t.Helper()
	it, err := cart.NewItem(name, qty, price)
	require.NoError(t, err)
	return it
}

func wait(t *testing.T, sub *dispatch.Submission, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NoError(t, sub.Wait(context.Background()))
}

func TestList_AddEditDelete(t *testing.T) {
	ctx := context.Background()
	l := newList(t, docstore.NewMemoryStore())

	assert.True(t, l.Stamp().IsZero())

	sub, err := l.Add(ctx, item(t, "Milk", 2, "4.20"))
	wait(t, sub, err)
	sub, err = l.Add(ctx, item(t, "Eggs", 1, "6.50"))
	wait(t, sub, err)

	items, err := l.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].No)
	assert.Equal(t, 1, items[1].No)
	assert.Equal(t, "19/10/2026 2:07 PM", l.Stamp().String())

	total, err := l.Total()
	require.NoError(t, err)
	assert.Equal(t, "14.90", cart.FormatTotal(total))

	sub, err = l.Edit(ctx, 0, item(t, "Oat milk", 3, "5"))
	wait(t, sub, err)
	items, _ = l.Items()
	assert.Equal(t, "Oat milk", items[0].ItemName)
	assert.Equal(t, 0, items[0].No, "edit keeps the sequence number")
	assert.Equal(t, 3, items[0].Qty)

	sub, err = l.Delete(ctx, 0)
	wait(t, sub, err)
	items, _ = l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Eggs", items[0].ItemName)

	// the next add takes no = len, which may repeat a surviving number
	sub, err = l.Add(ctx, item(t, "Jam", 1, "9"))
	wait(t, sub, err)
	items, _ = l.Items()
	assert.Equal(t, []int{1, 1}, []int{items[0].No, items[1].No})
}

func TestList_Validation(t *testing.T) {
	ctx := context.Background()
	s := docstoretest.Wrap(docstore.NewMemoryStore())
	l := newList(t, s)

	_, err := l.Add(ctx, cart.Item{ItemName: "", Qty: 1})
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = l.Edit(ctx, 0, item(t, "Milk", 1, "1"))
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = l.Delete(ctx, -1)
	assert.ErrorIs(t, err, shared.ErrValidation)

	assert.Empty(t, s.Calls(), "rejected input issues no write")
}

func TestList_NotReady(t *testing.T) {
	l := New(docstore.NewMemoryStore(), dispatch.New(nil), stamper(), header, nil)
	_, err := l.Add(context.Background(), item(t, "Milk", 1, "1"))
	assert.ErrorIs(t, err, shared.ErrNotReady)
	_, err = l.Total()
	assert.ErrorIs(t, err, shared.ErrNotReady)
}

func TestList_ClearPartialFailure(t *testing.T) {
	ctx := context.Background()
	s := docstoretest.Wrap(docstore.NewMemoryStore())
	l := newList(t, s)

	for _, name := range []string{"a", "b", "c", "d"} {
		sub, err := l.Add(ctx, item(t, name, 1, "1"))
		wait(t, sub, err)
	}
	items, _ := l.Items()
	stuck := items[2]
	s.FailOn("delete", header.Sub(store.ItemsCollection).Doc(stuck.ID).Path(), errors.New("permission denied"))

	sub, err := l.Clear(ctx)
	require.NoError(t, err)
	err = sub.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrBackendWrite)

	assert.Equal(t, 4, s.CountOp("delete"), "one delete per item")
	assert.Len(t, sub.Failed(), 1)

	items, _ = l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "c", items[0].ItemName)
}

func TestList_ClearEmpty(t *testing.T) {
	l := newList(t, docstore.NewMemoryStore())
	sub, err := l.Clear(context.Background())
	require.NoError(t, err)
	assert.NoError(t, sub.Wait(context.Background()))
	assert.Empty(t, sub.Outcomes())
}
