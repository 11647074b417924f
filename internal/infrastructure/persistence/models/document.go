// Package models holds the GORM rows behind the document and blob stores.
package models

import "time"

// DocumentModel stores one document as JSON under (collection, id)
type DocumentModel struct {
	Collection string    `gorm:"primaryKey;size:512"`
	ID         string    `gorm:"primaryKey;size:128"`
	Fields     string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// BlobModel stores one guest-mode value under its key
type BlobModel struct {
	Key       string    `gorm:"column:blob_key;primaryKey;size:256"`
	Value     []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BlobModel) TableName() string {
	return "blobs"
}
