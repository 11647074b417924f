package dto

import (
	"bytes"
	"encoding/json"

	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/domain/budget"
	"github.com/pocketbook/backend/internal/domain/cart"
	"github.com/pocketbook/backend/internal/domain/checklist"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Amount is a decimal sent either as a JSON number or a string. The text is
// kept as typed so the domain reports its own validation message.
type Amount string

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = Amount(n.String())
	return nil
}

// ItemRequest is a cart line as entered
type ItemRequest struct {
	ItemName string `json:"itemName"`
	Qty      int    `json:"qty"`
	Price    Amount `json:"price"`
}

// Item validates the request into a cart item
func (r ItemRequest) Item() (cart.Item, error) {
	return cart.NewItem(r.ItemName, r.Qty, string(r.Price))
}

// EntryRequest adds a budget entry to a section
type EntryRequest struct {
	Section string `json:"section"`
	Name    string `json:"name"`
	Value   Amount `json:"value"`
}

// EditEntryRequest replaces an entry, optionally moving it to section To
type EditEntryRequest struct {
	Name  string `json:"name"`
	Value Amount `json:"value"`
	To    string `json:"to"`
}

// NameRequest carries a single name
type NameRequest struct {
	Name string `json:"name"`
}

// ItemResponse is one cart line
type ItemResponse struct {
	ID       string `json:"id,omitempty"`
	No       int    `json:"no"`
	ItemName string `json:"itemName"`
	Qty      int    `json:"qty"`
	Price    string `json:"price"`
	Subtotal string `json:"subtotal"`
}

// CartResponse is a cart with its total and last-modified stamp
type CartResponse struct {
	Items        []ItemResponse    `json:"items"`
	Total        valueobject.Money `json:"total"`
	LastModified *shared.Stamp     `json:"lastModified,omitempty"`
}

// BalanceResponse is the balance cart measured against a starting amount
type BalanceResponse struct {
	CartResponse
	Start     *valueobject.Money `json:"start,omitempty"`
	Remaining *valueobject.Money `json:"remaining,omitempty"`
	Exceeded  bool               `json:"exceeded"`
}

// EntryResponse is one budget entry
type EntryResponse struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SectionResponse is one ledger section
type SectionResponse struct {
	No      int               `json:"no"`
	Title   string            `json:"title"`
	Total   valueobject.Money `json:"total"`
	Entries []EntryResponse   `json:"entries"`
}

// BudgetResponse is both sections and the balance
type BudgetResponse struct {
	Sections     []SectionResponse `json:"sections"`
	Balance      valueobject.Money `json:"balance"`
	LastModified *shared.Stamp     `json:"lastModified,omitempty"`
}

// ReceiptResponse is one archived receipt
type ReceiptResponse struct {
	ID         string         `json:"id"`
	No         int            `json:"no"`
	TotalPrice string         `json:"totalPrice"`
	Date       string         `json:"date"`
	Time       string         `json:"time"`
	Items      []ItemResponse `json:"items"`
}

// ListItemResponse is one checklist line
type ListItemResponse struct {
	ID        string `json:"id"`
	No        int    `json:"no"`
	ItemName  string `json:"itemName"`
	Completed bool   `json:"completed"`
}

// ListResponse is the checklist with the count still to buy
type ListResponse struct {
	Items     []ListItemResponse `json:"items"`
	Remaining int                `json:"remaining"`
}

// OutcomeResponse is the result of one document write
type OutcomeResponse struct {
	Path  string `json:"path"`
	Op    string `json:"op"`
	Error string `json:"error,omitempty"`
}

// WriteResponse reports every document a request wrote
type WriteResponse struct {
	SubmissionID string            `json:"submissionId"`
	Outcomes     []OutcomeResponse `json:"outcomes"`
}

// Presenter renders domain values with the configured currency
type Presenter struct {
	Currency valueobject.Currency
}

// Money renders an amount in the presenter's currency
func (p Presenter) Money(d decimal.Decimal) valueobject.Money {
	m, err := valueobject.NewMoney(d, p.Currency)
	if err != nil {
		return valueobject.NewMoneyDefault(d)
	}
	return m
}

func stampPtr(s shared.Stamp) *shared.Stamp {
	if s.IsZero() {
		return nil
	}
	return &s
}

// Items renders cart lines
func (p Presenter) Items(items []cart.Item) []ItemResponse {
	out := make([]ItemResponse, len(items))
	for i, it := range items {
		out[i] = ItemResponse{
			ID:       it.ID,
			No:       it.No,
			ItemName: it.ItemName,
			Qty:      it.Qty,
			Price:    it.Price.StringFixed(2),
			Subtotal: it.Subtotal().StringFixed(2),
		}
	}
	return out
}

// Cart renders a cart
func (p Presenter) Cart(items []cart.Item, stamp shared.Stamp) CartResponse {
	return CartResponse{
		Items:        p.Items(items),
		Total:        p.Money(cart.Total(items)),
		LastModified: stampPtr(stamp),
	}
}

// Balance renders the balance cart; start is nil when the client gave none
func (p Presenter) Balance(items []cart.Item, stamp shared.Stamp, start *decimal.Decimal) BalanceResponse {
	resp := BalanceResponse{CartResponse: p.Cart(items, stamp)}
	if start != nil {
		s := p.Money(*start)
		r, err := s.Subtract(p.Money(cart.Total(items)))
		if err != nil {
			r = p.Money(start.Sub(cart.Total(items)))
		}
		resp.Start, resp.Remaining = &s, &r
		resp.Exceeded = r.IsNegative()
	}
	return resp
}

// Budget renders the ledger
func (p Presenter) Budget(l budget.Ledger) BudgetResponse {
	resp := BudgetResponse{
		Balance:      p.Money(l.Balance()),
		LastModified: stampPtr(l.Section(budget.Income).Stamp()),
	}
	for _, s := range l {
		entries := make([]EntryResponse, len(s.Entries))
		for i, e := range s.Entries {
			entries[i] = EntryResponse{Name: e.Name, Value: e.Value.String()}
		}
		resp.Sections = append(resp.Sections, SectionResponse{
			No:      int(s.No),
			Title:   s.Title,
			Total:   p.Money(s.Total()),
			Entries: entries,
		})
	}
	return resp
}

// Receipt renders one receipt
func (p Presenter) Receipt(r cart.Receipt) ReceiptResponse {
	return ReceiptResponse{
		ID:         r.ID,
		No:         r.No,
		TotalPrice: r.TotalPrice,
		Date:       r.Date,
		Time:       r.Time,
		Items:      p.Items(r.Data),
	}
}

// Receipts renders receipts in the order given
func (p Presenter) Receipts(receipts []cart.Receipt) []ReceiptResponse {
	out := make([]ReceiptResponse, len(receipts))
	for i, r := range receipts {
		out[i] = p.Receipt(r)
	}
	return out
}

// List renders the checklist
func (p Presenter) List(items []checklist.Item) ListResponse {
	out := make([]ListItemResponse, len(items))
	for i, it := range items {
		out[i] = ListItemResponse{ID: it.ID, No: it.No, ItemName: it.ItemName, Completed: it.Completed}
	}
	return ListResponse{Items: out, Remaining: checklist.Remaining(items)}
}

// Write renders a finished submission
func Write(sub *dispatch.Submission) WriteResponse {
	outcomes := sub.Outcomes()
	resp := WriteResponse{SubmissionID: sub.ID.String(), Outcomes: make([]OutcomeResponse, len(outcomes))}
	for i, o := range outcomes {
		resp.Outcomes[i] = OutcomeResponse{Path: o.Path, Op: string(o.Op)}
		if o.Err != nil {
			resp.Outcomes[i].Error = o.Err.Error()
		}
	}
	return resp
}
