package express

import (
	"context"
	"fmt"
	"sync"

	"github.com/pocketbook/backend/internal/domain/cart"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"go.uber.org/zap"
)

// GuestKey returns the blob key of one guest device's cart
func GuestKey(base, device string) string {
	if device == "" {
		return base
	}
	return base + ":" + device
}

// GuestCart is the express cart of a user who has not signed in. The whole
// cart lives in one blob; every mutation reads it, changes it in memory and
// writes it back. Nothing notifies readers, so they call Load again whenever
// they come back into view.
type GuestCart struct {
	blobs   store.BlobStore
	key     string
	stamper *shared.Stamper
	logger  *zap.Logger

	// serializes read-modify-write cycles on the blob
	mu sync.Mutex
}

// NewGuestCart creates a cart stored under key
func NewGuestCart(blobs store.BlobStore, key string, opts ...Option) *GuestCart {
	c := newConfig(opts)
	return &GuestCart{
		blobs:   blobs,
		key:     key,
		stamper: c.stamper,
		logger:  c.logger.With(zap.String("blob_key", key)),
	}
}

// Load returns the stored cart, or an empty unstamped one when nothing is stored
func (g *GuestCart) Load(ctx context.Context) (cart.Blob, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.load(ctx)
}

func (g *GuestCart) load(ctx context.Context) (cart.Blob, error) {
	data, ok, err := g.blobs.GetBlob(ctx, g.key)
	if err != nil {
		return cart.Blob{}, fmt.Errorf("load guest cart: %w", err)
	}
	if !ok {
		return cart.EmptyBlob(), nil
	}
	return cart.UnmarshalBlob(data)
}

// mutate applies fn to the stored cart, stamps it and writes it back
func (g *GuestCart) mutate(ctx context.Context, fn func([]cart.Item) ([]cart.Item, error)) (cart.Blob, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, err := g.load(ctx)
	if err != nil {
		return cart.Blob{}, err
	}
	items, err := fn(b.Data)
	if err != nil {
		return cart.Blob{}, err
	}
	b.Data = items
	b = b.WithStamp(g.stamper.Now())

	data, err := cart.MarshalBlob(b)
	if err != nil {
		return cart.Blob{}, err
	}
	if err := g.blobs.SetBlob(ctx, g.key, data); err != nil {
		g.logger.Error("guest cart write failed", zap.Error(err))
		return cart.Blob{}, &shared.BackendWriteError{Path: g.key, Op: "set", Err: err}
	}
	return b, nil
}

// Add appends item with no = len(items)
func (g *GuestCart) Add(ctx context.Context, item cart.Item) (cart.Blob, error) {
	if err := item.Validate(); err != nil {
		return cart.Blob{}, err
	}
	item.ID = ""
	return g.mutate(ctx, func(items []cart.Item) ([]cart.Item, error) {
		return cart.Append(items, item), nil
	})
}

// Edit replaces items[index], keeping its no
func (g *GuestCart) Edit(ctx context.Context, index int, item cart.Item) (cart.Blob, error) {
	if err := item.Validate(); err != nil {
		return cart.Blob{}, err
	}
	item.ID = ""
	return g.mutate(ctx, func(items []cart.Item) ([]cart.Item, error) {
		return cart.Replace(items, index, item)
	})
}

// Delete splices items[index] out
func (g *GuestCart) Delete(ctx context.Context, index int) (cart.Blob, error) {
	return g.mutate(ctx, func(items []cart.Item) ([]cart.Item, error) {
		return cart.Remove(items, index)
	})
}

// Clear removes the blob; the next Load returns an empty cart
func (g *GuestCart) Clear(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.blobs.RemoveBlob(ctx, g.key); err != nil {
		g.logger.Error("guest cart remove failed", zap.Error(err))
		return &shared.BackendWriteError{Path: g.key, Op: "delete", Err: err}
	}
	return nil
}
