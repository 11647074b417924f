package cart

import (
	"strings"

	"github.com/pocketbook/backend/internal/domain/shared"
)

// Receipt is an archived snapshot of an express cart
type Receipt struct {
	ID         string `json:"-"`
	No         int    `json:"no"`
	TotalPrice string `json:"totalPrice"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Data       []Item `json:"data"`
}

// ErrEmptyCart is returned when archiving a cart whose total is 0.00
var ErrEmptyCart = shared.NewValidationError("totalPrice", "Please insert at least one item")

// NewReceipt snapshots items as receipt number no.
// It refuses a cart whose formatted total is "0.00".
func NewReceipt(no int, items []Item, stamp shared.Stamp) (Receipt, error) {
	total := FormatTotal(Total(items))
	if total == EmptyTotal {
		return Receipt{}, ErrEmptyCart
	}
	data := make([]Item, len(items))
	copy(data, items)
	return Receipt{
		No:         no,
		TotalPrice: total,
		Date:       stamp.Date,
		Time:       stamp.Time,
		Data:       data,
	}, nil
}

// Renumber assigns a receipt id its new sequence number
type Renumber struct {
	ID string
	No int
}

// RenumberPlan numbers receipts 0..n-1 by their current position.
// Every receipt is listed, including ones already holding the right number.
func RenumberPlan(receipts []Receipt) []Renumber {
	plan := make([]Renumber, len(receipts))
	for i, r := range receipts {
		plan[i] = Renumber{ID: r.ID, No: i}
	}
	return plan
}

// SearchField selects which receipt field a search matches against
type SearchField string

const (
	SearchTotalPrice SearchField = "totalPrice"
	SearchDate       SearchField = "date"
	SearchTime       SearchField = "time"
)

// ParseSearchField accepts the field name or the label shown in the filter menu
func ParseSearchField(s string) (SearchField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "totalprice", "total price", "total":
		return SearchTotalPrice, nil
	case "date":
		return SearchDate, nil
	case "time":
		return SearchTime, nil
	}
	return "", shared.NewValidationError("field", "Unknown search field: "+s)
}

// Search keeps receipts whose field contains text, ignoring case
func Search(receipts []Receipt, field SearchField, text string) []Receipt {
	needle := strings.ToUpper(text)
	out := make([]Receipt, 0, len(receipts))
	for _, r := range receipts {
		var hay string
		switch field {
		case SearchDate:
			hay = r.Date
		case SearchTime:
			hay = r.Time
		default:
			hay = r.TotalPrice
		}
		if strings.Contains(strings.ToUpper(hay), needle) {
			out = append(out, r)
		}
	}
	return out
}

// SetID records the receipt's document id
func (r *Receipt) SetID(id string) { r.ID = id }
