package account

import (
	"context"
	"errors"
	"testing"

	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"github.com/pocketbook/backend/internal/infrastructure/docstore"
	"github.com/pocketbook/backend/internal/infrastructure/docstore/docstoretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var session = shared.Session{UserID: "u1"}

func TestProvision(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemoryStore()
	svc := NewService(s, dispatch.New(nil), nil)

	sub, err := svc.Provision(ctx, session, ProvisionRequest{Name: "  Aisyah "})
	require.NoError(t, err)
	require.NoError(t, sub.Wait(ctx))

	p := store.PathsFor(session)
	profile, ok, err := s.Get(ctx, p.Profile)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Aisyah", profile.Fields["name"])
	assert.Contains(t, profile.Fields, "phone")
	assert.Nil(t, profile.Fields["phone"])

	sections, err := s.Query(ctx, p.Budget, store.OrderField)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, store.IncomeDocID, sections[0].ID())
	assert.Equal(t, "Income", sections[0].Fields["title"])
	assert.Equal(t, "Expense", sections[1].Fields["title"])
	assert.NotContains(t, sections[1].Fields, "date")

	for _, ref := range []store.DocumentRef{p.ExpressDoc, p.BalanceDoc} {
		doc, ok, err := s.Get(ctx, ref)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Nil(t, doc.Fields["date"])
	}

	exists, err := svc.Exists(ctx, session)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProvision_Rejects(t *testing.T) {
	svc := NewService(docstore.NewMemoryStore(), dispatch.New(nil), nil)

	_, err := svc.Provision(context.Background(), session, ProvisionRequest{Name: "   "})
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Please enter your name", ve.Message)

	_, err = svc.Provision(context.Background(), shared.Session{}, ProvisionRequest{Name: "x"})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	mem := docstore.NewMemoryStore()
	s := docstoretest.Wrap(mem)
	svc := NewService(s, dispatch.New(nil), nil)

	sub, err := svc.Provision(ctx, session, ProvisionRequest{Name: "Aisyah"})
	require.NoError(t, err)
	require.NoError(t, sub.Wait(ctx))

	p := store.PathsFor(session)
	_, err = store.Add(ctx, mem, p.ExpressItems, store.Fields{"no": 0})
	require.NoError(t, err)
	_, err = store.Add(ctx, mem, p.Receipts, store.Fields{"no": 0})
	require.NoError(t, err)
	stuck, err := store.Add(ctx, mem, p.List, store.Fields{"no": 0})
	require.NoError(t, err)
	// another user's documents are untouched
	other := store.PathsFor(shared.Session{UserID: "u2"})
	require.NoError(t, mem.Set(ctx, other.Profile, store.Fields{"name": "B"}))

	s.FailOn("delete", stuck.Path(), errors.New("unavailable"))

	sub, err = svc.Purge(ctx, session)
	require.NoError(t, err)
	err = sub.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, []string{stuck.Path()}, sub.Failed())

	assert.Equal(t, []string{stuck.Path(), other.Profile.Path()}, mem.Paths())
}
