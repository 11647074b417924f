// Package checklist models the persistent to-buy list.
package checklist

import (
	"fmt"

	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
)

// Item is one checklist line
type Item struct {
	ID        string `json:"-"`
	No        int    `json:"no"`
	ItemName  string `json:"itemName"`
	Completed bool   `json:"completed"`
}

// New creates an unchecked item at sequence number no
func New(no int, name string) (Item, error) {
	if name == "" {
		return Item{}, shared.NewValidationError("itemName", "Please enter item name")
	}
	return Item{No: no, ItemName: name}, nil
}

// Fields returns the stored shape of the item
func (i Item) Fields() store.Fields {
	return store.Fields{
		"no":        i.No,
		"itemName":  i.ItemName,
		"completed": i.Completed,
	}
}

// At returns items[index] or a validation error
func At(items []Item, index int) (Item, error) {
	if index < 0 || index >= len(items) {
		return Item{}, shared.NewValidationError("index", fmt.Sprintf("No item at index %d", index))
	}
	return items[index], nil
}

// Remaining counts the items not yet completed
func Remaining(items []Item) int {
	n := 0
	for _, it := range items {
		if !it.Completed {
			n++
		}
	}
	return n
}

// SetID records the item's document id
func (i *Item) SetID(id string) { i.ID = id }
