package cart

import (
	"testing"

	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(name string, qty int, price string) Item {
	return Item{ItemName: name, Qty: qty, Price: decimal.RequireFromString(price)}
}

func TestNewItem_Validation(t *testing.T) {
	tests := []struct {
		name    string
		item    string
		qty     int
		price   string
		wantMsg string
	}{
		{"empty name", "", 1, "2", "Please enter item name"},
		{"missing price", "Milk", 1, "", "Please enter price value"},
		{"zero price", "Milk", 1, "0", "Please enter price value"},
		{"bad price", "Milk", 1, "two", "Invalid price input"},
		{"negative price", "Milk", 1, "-3", "Invalid price input"},
		{"zero qty", "Milk", 0, "2", "Quantity cannot less than 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewItem(tt.item, tt.qty, tt.price)
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrValidation)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}

	it, err := NewItem("Milk", 2, "4.50")
	require.NoError(t, err)
	assert.Equal(t, "9.00", FormatTotal(it.Subtotal()))
}

func TestTotal(t *testing.T) {
	items := []Item{item("A", 2, "25.00"), item("B", 1, "50.00")}
	assert.Equal(t, "100.00", FormatTotal(Total(items)))
	assert.Equal(t, EmptyTotal, FormatTotal(Total(nil)))
}

func TestAppendReplaceRemove(t *testing.T) {
	var items []Item
	items = Append(items, item("A", 1, "1"))
	items = Append(items, item("B", 1, "2"))
	items = Append(items, item("C", 1, "3"))
	assert.Equal(t, []int{0, 1, 2}, nos(items))

	replaced, err := Replace(items, 1, item("B2", 4, "2"))
	require.NoError(t, err)
	assert.Equal(t, 1, replaced[1].No)
	assert.Equal(t, "B2", replaced[1].ItemName)
	assert.Equal(t, "B", items[1].ItemName)

	removed, err := Remove(items, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, nos(removed))

	// a later append takes len() as its number, which can collide with survivors
	again := Append(removed, item("D", 1, "1"))
	assert.Equal(t, []int{1, 2, 2}, nos(again))

	_, err = Remove(items, 3)
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = Replace(items, -1, item("X", 1, "1"))
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestNewReceipt(t *testing.T) {
	stamp := shared.Stamp{Date: "19/10/2026", Time: "9:05 AM"}
	items := []Item{item("A", 2, "25.00"), item("B", 1, "50.00")}

	r, err := NewReceipt(3, items, stamp)
	require.NoError(t, err)
	assert.Equal(t, 3, r.No)
	assert.Equal(t, "100.00", r.TotalPrice)
	assert.Equal(t, "19/10/2026", r.Date)
	assert.Equal(t, "9:05 AM", r.Time)

	// the receipt holds its own copy
	items[0].ItemName = "changed"
	assert.Equal(t, "A", r.Data[0].ItemName)

	_, err = NewReceipt(0, nil, stamp)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, "Please insert at least one item", err.Error())

	// sub-cent totals round to 0.00 and are refused too
	_, err = NewReceipt(0, []Item{item("C", 1, "0.001")}, stamp)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRenumberPlan(t *testing.T) {
	receipts := []Receipt{{ID: "a", No: 0}, {ID: "c", No: 2}, {ID: "d", No: 3}}
	plan := RenumberPlan(receipts)
	assert.Equal(t, []Renumber{{"a", 0}, {"c", 1}, {"d", 2}}, plan)
}

func TestSearch(t *testing.T) {
	receipts := []Receipt{
		{ID: "1", TotalPrice: "100.00", Date: "1/10/2026", Time: "9:05 AM"},
		{ID: "2", TotalPrice: "12.50", Date: "19/10/2026", Time: "7:30 PM"},
	}
	assert.Len(t, Search(receipts, SearchTotalPrice, "100"), 1)
	assert.Len(t, Search(receipts, SearchDate, "10/2026"), 2)
	got := Search(receipts, SearchTime, "pm")
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
	assert.Len(t, Search(receipts, SearchDate, ""), 2)

	f, err := ParseSearchField("total price")
	require.NoError(t, err)
	assert.Equal(t, SearchTotalPrice, f)
	_, err = ParseSearchField("owner")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestBlobRoundTrip(t *testing.T) {
	b := EmptyBlob()
	b.Data = Append(b.Data, item("Bread", 1, "3.20"))
	b.Data = Append(b.Data, item("Eggs", 2, "0.60"))
	b = b.WithStamp(shared.Stamp{Date: "2/1/2026", Time: "3:04 PM"})

	data, err := MarshalBlob(b)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price":3.2,`)
	back, err := UnmarshalBlob(data)
	require.NoError(t, err)

	require.Len(t, back.Data, 2)
	for i := range b.Data {
		assert.Equal(t, b.Data[i].No, back.Data[i].No)
		assert.Equal(t, b.Data[i].ItemName, back.Data[i].ItemName)
		assert.Equal(t, b.Data[i].Qty, back.Data[i].Qty)
		assert.True(t, b.Data[i].Price.Equal(back.Data[i].Price))
	}
	assert.Equal(t, "2/1/2026 3:04 PM", back.Stamp().String())

	empty, err := UnmarshalBlob([]byte(`{"date":null,"time":null}`))
	require.NoError(t, err)
	assert.NotNil(t, empty.Data)
	assert.True(t, empty.Stamp().IsZero())
}

func nos(items []Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.No
	}
	return out
}
