package cart

import (
	"encoding/json"
	"fmt"

	"github.com/pocketbook/backend/internal/domain/shared"
)

// Blob is the guest-mode cart serialized under one local key
type Blob struct {
	Date *string `json:"date"`
	Time *string `json:"time"`
	Data []Item  `json:"data"`
}

// EmptyBlob is what a guest sees before anything was saved
func EmptyBlob() Blob {
	return Blob{Data: []Item{}}
}

// Stamp returns the blob's last-modified stamp
func (b Blob) Stamp() shared.Stamp {
	var s shared.Stamp
	if b.Date != nil {
		s.Date = *b.Date
	}
	if b.Time != nil {
		s.Time = *b.Time
	}
	return s
}

// WithStamp returns a copy of the blob carrying s
func (b Blob) WithStamp(s shared.Stamp) Blob {
	d, t := s.Date, s.Time
	b.Date, b.Time = &d, &t
	return b
}

// MarshalBlob serializes the blob for the local store
func MarshalBlob(b Blob) ([]byte, error) {
	if b.Data == nil {
		b.Data = []Item{}
	}
	return json.Marshal(b)
}

// UnmarshalBlob parses a stored blob
func UnmarshalBlob(data []byte) (Blob, error) {
	var b Blob
	if err := json.Unmarshal(data, &b); err != nil {
		return Blob{}, fmt.Errorf("decode guest cart: %w", err)
	}
	if b.Data == nil {
		b.Data = []Item{}
	}
	return b, nil
}
