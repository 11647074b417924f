// Package cart models quantity x price line items, their totals and the
// receipts an express cart is archived into.
package cart

import (
	"fmt"
	"strings"

	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"github.com/shopspring/decimal"
)

// Item is one line of a cart
type Item struct {
	ID       string          `json:"id,omitempty"`
	No       int             `json:"no"`
	ItemName string          `json:"itemName"`
	Qty      int             `json:"qty"`
	Price    decimal.Decimal `json:"price"`
}

// NewItem validates a raw line as typed into the add/edit form
func NewItem(name string, qty int, price string) (Item, error) {
	if name == "" {
		return Item{}, shared.NewValidationError("itemName", "Please enter item name")
	}
	price = strings.TrimSpace(price)
	if price == "" {
		return Item{}, shared.NewValidationError("price", "Please enter price value")
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return Item{}, shared.NewValidationError("price", "Invalid price input")
	}
	it := Item{ItemName: name, Qty: qty, Price: p}
	if err := it.Validate(); err != nil {
		return Item{}, err
	}
	return it, nil
}

// Validate checks name, quantity and price
func (i Item) Validate() error {
	if i.ItemName == "" {
		return shared.NewValidationError("itemName", "Please enter item name")
	}
	if i.Price.IsZero() {
		return shared.NewValidationError("price", "Please enter price value")
	}
	if i.Price.IsNegative() {
		return shared.NewValidationError("price", "Invalid price input")
	}
	if i.Qty < 1 {
		return shared.NewValidationError("qty", "Quantity cannot less than 1")
	}
	return nil
}

// Subtotal is qty * price
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// Fields returns the stored shape of an item document; the id is the
// document's own and is not repeated inside it
func (i Item) Fields() store.Fields {
	return store.Fields{
		"no":       i.No,
		"itemName": i.ItemName,
		"qty":      i.Qty,
		"price":    i.Price,
	}
}

// Total sums qty * price over items
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// EmptyTotal is the formatted total of a cart with nothing to pay for
const EmptyTotal = "0.00"

// FormatTotal renders a total with two decimal places
func FormatTotal(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Append adds item at the end with no = len(items)
func Append(items []Item, item Item) []Item {
	item.No = len(items)
	out := make([]Item, len(items), len(items)+1)
	copy(out, items)
	return append(out, item)
}

// Replace swaps items[index] for item, keeping the existing sequence number
func Replace(items []Item, index int, item Item) ([]Item, error) {
	if err := CheckIndex(items, index); err != nil {
		return nil, err
	}
	out := make([]Item, len(items))
	copy(out, items)
	item.No = out[index].No
	item.ID = out[index].ID
	out[index] = item
	return out, nil
}

// Remove splices items[index] out
func Remove(items []Item, index int) ([]Item, error) {
	if err := CheckIndex(items, index); err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:index]...)
	return append(out, items[index+1:]...), nil
}

// CheckIndex rejects an index outside the materialized items
func CheckIndex(items []Item, index int) error {
	if index < 0 || index >= len(items) {
		return shared.NewValidationError("index", fmt.Sprintf("No item at index %d", index))
	}
	return nil
}

// SetID records the item's document id
func (i *Item) SetID(id string) { i.ID = id }
