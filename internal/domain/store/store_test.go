package store

import (
	"encoding/json"
	"testing"

	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefs(t *testing.T) {
	coll := Collection("users", "u1", "receipt")
	assert.Equal(t, "users/u1/receipt", coll.Path)

	doc := coll.Doc("r1")
	assert.Equal(t, "users/u1/receipt/r1", doc.Path())
	assert.Equal(t, "users/u1/receipt/r1/data", doc.Sub("data").Path)

	parsed, ok := ParseDocumentRef(doc.Path())
	require.True(t, ok)
	assert.Equal(t, doc, parsed)

	_, ok = ParseDocumentRef("users")
	assert.False(t, ok)
	_, ok = ParseDocumentRef("users/")
	assert.False(t, ok)
}

func TestPathsFor(t *testing.T) {
	p := PathsFor(shared.Session{UserID: "u1"})
	assert.Equal(t, "users/u1", p.Profile.Path())
	assert.Equal(t, "users/u1/budget/incomeDoc", p.Income.Path())
	assert.Equal(t, "users/u1/budget/expenseDoc", p.Expense.Path())
	assert.Equal(t, "users/u1/balance/balanceDoc/data", p.BalanceItems.Path)
	assert.Equal(t, "users/u1/express/expressDoc", p.ExpressDoc.Path())
	assert.Equal(t, "users/u1/express/expressDoc/data", p.ExpressItems.Path)
	assert.Equal(t, "users/u1/receipt", p.Receipts.Path)
	assert.Equal(t, "users/u1/list", p.List.Path)
}

func TestEncodeDecode(t *testing.T) {
	type line struct {
		No    int             `json:"no"`
		Price decimal.Decimal `json:"price"`
	}
	fields, err := Encode(line{No: 3, Price: decimal.RequireFromString("4.50")})
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), fields["no"])
	assert.Equal(t, json.Number("4.5"), fields["price"])

	var back line
	require.NoError(t, Decode(fields, &back))
	assert.Equal(t, 3, back.No)
	assert.True(t, back.Price.Equal(decimal.RequireFromString("4.5")))

	// numbers written by other clients decode too
	var fromNumber line
	require.NoError(t, Decode(Fields{"no": json.Number("1"), "price": json.Number("2.25")}, &fromNumber))
	assert.Equal(t, "2.25", fromNumber.Price.String())
}

func TestNormalizeDeepCopies(t *testing.T) {
	src := Fields{"data": []any{map[string]any{"name": "Rent"}}}
	out, err := Normalize(src)
	require.NoError(t, err)

	src["data"].([]any)[0].(map[string]any)["name"] = "changed"
	assert.Equal(t, "Rent", out["data"].([]any)[0].(map[string]any)["name"])

	empty, err := Normalize(nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestSortDocuments(t *testing.T) {
	docs := []Document{
		{Ref: Collection("c").Doc("b"), Fields: Fields{"no": json.Number("1")}},
		{Ref: Collection("c").Doc("z"), Fields: Fields{}},
		{Ref: Collection("c").Doc("a"), Fields: Fields{"no": 1}},
		{Ref: Collection("c").Doc("c"), Fields: Fields{"no": 0.0}},
	}
	SortDocuments(docs, OrderField)

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID()
	}
	// equal "no" values fall back to id order; missing values go last
	assert.Equal(t, []string{"c", "a", "b", "z"}, ids)
}
