// Package models contains the GORM models behind the document and blob
// stores. Both tables are keyed by path; document fields are stored as
// JSON text so the stores stay schemaless.
package models
