package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pocketbook/backend/internal/domain/store"
	"github.com/pocketbook/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps documents in the "documents" table. Local listeners are
// refreshed after each write; other instances learn of it through the Notifier.
type GormStore struct {
	db       *gorm.DB
	notifier Notifier
	origin   string
	hub      *hub
	logger   *zap.Logger
	unlisten func()
}

// GormOption configures a GormStore
type GormOption func(*GormStore)

// WithNotifier shares change notices with other store instances
func WithNotifier(n Notifier) GormOption {
	return func(s *GormStore) {
		s.notifier = n
	}
}

// WithGormLogger sets the logger
func WithGormLogger(logger *zap.Logger) GormOption {
	return func(s *GormStore) {
		s.logger = logger
	}
}

// NewGormStore creates a store on db; the schema must already exist
func NewGormStore(db *gorm.DB, opts ...GormOption) *GormStore {
	s := &GormStore{
		db:     db,
		origin: uuid.NewString(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(s, s.logger)
	if s.notifier != nil {
		s.unlisten = s.notifier.Listen(s.onNotice)
	}
	return s
}

func (s *GormStore) onNotice(n ChangeNotice) {
	if n.Origin == s.origin {
		return
	}
	s.hub.notify(context.Background(), n.Ref())
}

// Get returns the document if it exists
func (s *GormStore) Get(ctx context.Context, ref store.DocumentRef) (store.Document, bool, error) {
	var row models.DocumentModel
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", ref.Collection.Path, ref.ID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Document{Ref: ref}, false, nil
	}
	if err != nil {
		return store.Document{}, false, fmt.Errorf("get %s: %w", ref.Path(), err)
	}
	fields, err := store.Unmarshal([]byte(row.Fields))
	if err != nil {
		return store.Document{}, false, err
	}
	return store.Document{Ref: ref, Fields: fields}, true, nil
}

// Set replaces the document
func (s *GormStore) Set(ctx context.Context, ref store.DocumentRef, fields store.Fields) error {
	data, err := store.Marshal(fields)
	if err != nil {
		return err
	}
	row := models.DocumentModel{
		Collection: ref.Collection.Path,
		ID:         ref.ID,
		Fields:     string(data),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"fields", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set %s: %w", ref.Path(), err)
	}
	s.changed(ctx, ref, ActionSet)
	return nil
}

// Update merges top-level fields into an existing document
func (s *GormStore) Update(ctx context.Context, ref store.DocumentRef, fields store.Fields) error {
	patch, err := store.Normalize(fields)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.DocumentModel
		err := tx.Where("collection = ? AND id = ?", ref.Collection.Path, ref.ID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(ref)
		}
		if err != nil {
			return err
		}
		current, err := store.Unmarshal([]byte(row.Fields))
		if err != nil {
			return err
		}
		for k, v := range patch {
			current[k] = v
		}
		data, err := store.Marshal(current)
		if err != nil {
			return err
		}
		return tx.Model(&models.DocumentModel{}).
			Where("collection = ? AND id = ?", ref.Collection.Path, ref.ID).
			Update("fields", string(data)).Error
	})
	if err != nil {
		return err
	}
	s.changed(ctx, ref, ActionUpdate)
	return nil
}

// Delete removes the document if present
func (s *GormStore) Delete(ctx context.Context, ref store.DocumentRef) error {
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", ref.Collection.Path, ref.ID).
		Delete(&models.DocumentModel{}).Error
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref.Path(), err)
	}
	s.changed(ctx, ref, ActionDelete)
	return nil
}

// Query returns the collection ordered by orderField, ties broken by id
func (s *GormStore) Query(ctx context.Context, coll store.CollectionRef, orderField string) ([]store.Document, error) {
	var rows []models.DocumentModel
	err := s.db.WithContext(ctx).
		Where("collection = ?", coll.Path).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", coll.Path, err)
	}
	docs := make([]store.Document, 0, len(rows))
	for _, row := range rows {
		fields, err := store.Unmarshal([]byte(row.Fields))
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", coll.Path, err)
		}
		docs = append(docs, store.Document{Ref: coll.Doc(row.ID), Fields: fields})
	}
	store.SortDocuments(docs, orderField)
	return docs, nil
}

// SubscribeCollection delivers the ordered collection now and after every change
func (s *GormStore) SubscribeCollection(ctx context.Context, coll store.CollectionRef, orderField string, fn func([]store.Document)) (store.Subscription, error) {
	return s.hub.subscribeCollection(ctx, coll, orderField, fn)
}

// WatchDocument delivers the document now and after every change
func (s *GormStore) WatchDocument(ctx context.Context, ref store.DocumentRef, fn func(store.Document, bool)) (store.Subscription, error) {
	return s.hub.watchDocument(ctx, ref, fn)
}

// Close stops listening for notices from other instances
func (s *GormStore) Close() {
	if s.unlisten != nil {
		s.unlisten()
	}
}

func (s *GormStore) changed(ctx context.Context, ref store.DocumentRef, action Action) {
	s.hub.notify(ctx, ref)
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(context.WithoutCancel(ctx), newNotice(ref, action, s.origin)); err != nil {
		s.logger.Warn("change notice not published",
			zap.String("document", ref.Path()),
			zap.Error(err),
		)
	}
}

var _ store.DocumentStore = (*GormStore)(nil)
