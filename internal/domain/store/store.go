// Package store defines the persistence capability every ledger and cart
// component is built on: a multi-document store with ordered live
// subscriptions, and a single-key blob store for guest mode.
package store

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Fields is the top-level field map of one document
type Fields map[string]any

// CollectionRef addresses a collection by its slash-separated path
type CollectionRef struct {
	Path string
}

// Collection creates a collection reference from path segments
func Collection(segments ...string) CollectionRef {
	return CollectionRef{Path: path.Join(segments...)}
}

// Doc returns a reference to the document id inside the collection
func (c CollectionRef) Doc(id string) DocumentRef {
	return DocumentRef{Collection: c, ID: id}
}

// String returns the collection path
func (c CollectionRef) String() string {
	return c.Path
}

// DocumentRef addresses one document
type DocumentRef struct {
	Collection CollectionRef
	ID         string
}

// Path returns the full slash-separated document path
func (d DocumentRef) Path() string {
	return d.Collection.Path + "/" + d.ID
}

// String returns the document path
func (d DocumentRef) String() string {
	return d.Path()
}

// Sub returns a sub-collection nested under this document
func (d DocumentRef) Sub(name string) CollectionRef {
	return CollectionRef{Path: d.Path() + "/" + name}
}

// ParseDocumentRef splits a full document path into collection and id
func ParseDocumentRef(p string) (DocumentRef, bool) {
	i := strings.LastIndex(p, "/")
	if i <= 0 || i == len(p)-1 {
		return DocumentRef{}, false
	}
	return DocumentRef{Collection: CollectionRef{Path: p[:i]}, ID: p[i+1:]}, true
}

// Document is one stored record with its reference
type Document struct {
	Ref    DocumentRef
	Fields Fields
}

// ID returns the document id
func (d Document) ID() string {
	return d.Ref.ID
}

// Subscription is the cancellation handle of a live listener.
// After Release returns no further callback runs.
type Subscription interface {
	Release()
}

// DocumentStore is the remote multi-document backend
type DocumentStore interface {
	// Get returns the document and whether it exists
	Get(ctx context.Context, ref DocumentRef) (Document, bool, error)
	// Set replaces the document, creating it if absent
	Set(ctx context.Context, ref DocumentRef, fields Fields) error
	// Update merges top-level fields; fails with shared.ErrNotFound if absent
	Update(ctx context.Context, ref DocumentRef, fields Fields) error
	// Delete removes the document; deleting an absent document is not an error
	Delete(ctx context.Context, ref DocumentRef) error
	// Query returns the collection ordered by orderField, ties broken by id
	Query(ctx context.Context, coll CollectionRef, orderField string) ([]Document, error)
	// SubscribeCollection delivers the full ordered collection immediately and
	// after every change; each delivery supersedes the previous one
	SubscribeCollection(ctx context.Context, coll CollectionRef, orderField string, fn func([]Document)) (Subscription, error)
	// WatchDocument delivers one document immediately and after every change
	WatchDocument(ctx context.Context, ref DocumentRef, fn func(Document, bool)) (Subscription, error)
}

// BlobStore is the local single-key backend used in guest mode
type BlobStore interface {
	GetBlob(ctx context.Context, key string) ([]byte, bool, error)
	SetBlob(ctx context.Context, key string, value []byte) error
	RemoveBlob(ctx context.Context, key string) error
}

// NewID returns a fresh document id
func NewID() string {
	return uuid.NewString()
}

// Add creates a document with a fresh id inside coll
func Add(ctx context.Context, s DocumentStore, coll CollectionRef, fields Fields) (DocumentRef, error) {
	ref := coll.Doc(NewID())
	if err := s.Set(ctx, ref, fields); err != nil {
		return ref, err
	}
	return ref, nil
}
