// Package blobstore implements store.BlobStore for guest mode.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pocketbook/backend/internal/domain/store"
	"github.com/pocketbook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MemoryStore keeps blobs in a map
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// GetBlob returns a copy of the value under key
func (s *MemoryStore) GetBlob(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// SetBlob stores a copy of value under key
func (s *MemoryStore) SetBlob(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.blobs[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}

// RemoveBlob deletes key if present
func (s *MemoryStore) RemoveBlob(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()
	return nil
}

// GormStore keeps blobs in the "blobs" table
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store on db; the schema must already exist
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// GetBlob returns the value under key
func (s *GormStore) GetBlob(ctx context.Context, key string) ([]byte, bool, error) {
	var row models.BlobModel
	err := s.db.WithContext(ctx).Where("blob_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get blob %s: %w", key, err)
	}
	return row.Value, true, nil
}

// SetBlob replaces the value under key
func (s *GormStore) SetBlob(ctx context.Context, key string, value []byte) error {
	row := models.BlobModel{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set blob %s: %w", key, err)
	}
	return nil
}

// RemoveBlob deletes key if present
func (s *GormStore) RemoveBlob(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("blob_key = ?", key).Delete(&models.BlobModel{}).Error; err != nil {
		return fmt.Errorf("remove blob %s: %w", key, err)
	}
	return nil
}

var (
	_ store.BlobStore = (*MemoryStore)(nil)
	_ store.BlobStore = (*GormStore)(nil)
)
