package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pocketbook/backend/internal/domain/store"
	"github.com/pocketbook/backend/internal/infrastructure/auth"
	"github.com/pocketbook/backend/internal/infrastructure/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two stores on one database, each with its own Redis subscription, stand
// in for two server processes.
func TestRedisNotifier_CrossProcessSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	db := NewPostgres(t)
	addr := NewRedis(t)

	client := NewRedisClient(t, addr)
	newNotifier := func() *docstore.RedisNotifier {
		n := docstore.NewRedisNotifierWithClient(client, docstore.WithNotifyChannel("pocketbook:test"))
		require.NoError(t, n.Start(ctx))
		t.Cleanup(func() { _ = n.Close() })
		return n
	}
	writer := docstore.NewGormStore(db.DB, docstore.WithNotifier(newNotifier()))
	reader := docstore.NewGormStore(db.DB, docstore.WithNotifier(newNotifier()))
	defer writer.Close()
	defer reader.Close()

	coll := store.Collection("users", "u1", "list")
	var mu sync.Mutex
	var last []store.Document
	sub, err := reader.SubscribeCollection(ctx, coll, store.OrderField, func(docs []store.Document) {
		mu.Lock()
		last = docs
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Release()

	_, err = store.Add(ctx, writer, coll, store.Fields{"no": 0, "itemName": "Milk", "completed": false})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 1 && last[0].Fields["itemName"] == "Milk"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRedisNotifier_CloseKeepsClient(t *testing.T) {
	client := NewRedisClient(t, NewRedis(t))
	n := docstore.NewRedisNotifierWithClient(client)
	require.NoError(t, n.Start(context.Background()))
	require.NoError(t, n.Close())

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestRedisRevocations(t *testing.T) {
	ctx := context.Background()
	r := auth.NewRedisRevocations(NewRedisClient(t, NewRedis(t)))

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-1", time.Minute))
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	issued := time.Now().Add(-time.Minute)
	require.NoError(t, r.RevokeUser(ctx, "u1", time.Hour))
	revoked, err = r.IsUserRevoked(ctx, "u1", issued)
	require.NoError(t, err)
	assert.True(t, revoked, "tokens issued before the purge are refused")

	revoked, err = r.IsUserRevoked(ctx, "u2", issued)
	require.NoError(t, err)
	assert.False(t, revoked)
}
