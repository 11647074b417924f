package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pocketbook/backend/internal/application/account"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/infrastructure/blobstore"
	"github.com/pocketbook/backend/internal/infrastructure/config"
	"github.com/pocketbook/backend/internal/infrastructure/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(path string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: path},
		Log:      config.LogConfig{Level: "error"},
		Display:  config.DisplayConfig{Currency: "MYR", DateLayout: "2/1/2006", TimeLayout: "3:04 PM"},
	}
}

func TestOpen_InMemory(t *testing.T) {
	b, err := Open(context.Background(), testConfig(":memory:"), nil)
	require.NoError(t, err)
	defer b.Close()

	assert.Nil(t, b.DB)
	assert.IsType(t, &docstore.MemoryStore{}, b.Store)
	assert.IsType(t, &blobstore.MemoryStore{}, b.Blobs)
	assert.NotNil(t, b.Revocations)
}

func TestOpen_SQLiteFileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(filepath.Join(t.TempDir(), "pocketbook.db"))
	session := shared.Session{UserID: "u1"}

	b, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, b.DB)
	sub, err := account.NewService(b.Store, b.Dispatcher, nil).Provision(ctx, session, account.ProvisionRequest{Name: "Aisyah"})
	require.NoError(t, err)
	require.NoError(t, sub.Wait(ctx))
	require.NoError(t, b.Blobs.SetBlob(ctx, "expressData", []byte(`{"data":[]}`)))
	require.NoError(t, b.Close())

	b, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer b.Close()

	exists, err := account.NewService(b.Store, b.Dispatcher, nil).Exists(ctx, session)
	require.NoError(t, err)
	assert.True(t, exists)
	_, ok, err := b.Blobs.GetBlob(ctx, "expressData")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBackend_RegistryOpensWorkspaces(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, testConfig(filepath.Join(t.TempDir(), "pocketbook.db")), nil)
	require.NoError(t, err)
	defer b.Close()

	registry := b.Registry()
	defer registry.Close()

	w, err := registry.Get(ctx, shared.Session{UserID: "u1"})
	require.NoError(t, err)
	sub, err := w.Checklist.Add(ctx, "Milk")
	require.NoError(t, err)
	require.NoError(t, sub.Wait(ctx))

	require.Eventually(t, func() bool {
		items, err := w.Checklist.Items()
		return err == nil && len(items) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestBackend_StamperUsesDisplayLayouts(t *testing.T) {
	cfg := testConfig(":memory:")
	cfg.Display.DateLayout = "2006-01-02"
	b, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer b.Close()

	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, b.Stamper.Now().Date)
}
