package budget

import (
	"errors"
	"testing"

	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(name, value string) Entry {
	return Entry{Name: name, Value: decimal.RequireFromString(value)}
}

func sampleLedger(t *testing.T) Ledger {
	t.Helper()
	l, err := NewLedger([]Section{
		{No: Income, Title: IncomeTitle, Entries: []Entry{entry("Salary", "3000")}},
		{No: Expense, Title: ExpenseTitle, Entries: []Entry{entry("Rent", "1200"), entry("Food", "300")}},
	})
	require.NoError(t, err)
	return l
}

func TestNewEntry(t *testing.T) {
	tests := []struct {
		name    string
		section SectionIndex
		input   [2]string
		wantMsg string
	}{
		{"empty income name", Income, [2]string{"", "10"}, "Please enter income name"},
		{"empty expense name", Expense, [2]string{"", "10"}, "Please enter expense name"},
		{"missing value", Income, [2]string{"Salary", ""}, "Please enter income value"},
		{"zero value", Expense, [2]string{"Rent", "0"}, "Please enter expense value"},
		{"not a number", Income, [2]string{"Salary", "abc"}, "Invalid value input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEntry(tt.section, tt.input[0], tt.input[1])
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrValidation))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}

	e, err := NewEntry(Income, "Bonus", "250.50")
	require.NoError(t, err)
	assert.Equal(t, "Bonus", e.Name)
	assert.Equal(t, "250.5", e.Value.String())
}

func TestNewLedger_SlotInvariant(t *testing.T) {
	_, err := NewLedger([]Section{{No: Expense}, {No: Income}})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = NewLedger([]Section{{No: Income}})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestLedger_Balance(t *testing.T) {
	l := sampleLedger(t)
	assert.Equal(t, "1500", l.Balance().String())
}

func TestLedger_AddEntry(t *testing.T) {
	l := sampleLedger(t)

	change, err := l.AddEntry(Expense, entry("Fuel", "80"))
	require.NoError(t, err)
	assert.Equal(t, Expense, change.Section)
	require.Len(t, change.Entries, 3)
	assert.Equal(t, "Fuel", change.Entries[2].Name)
	// the input ledger is untouched
	assert.Len(t, l[Expense].Entries, 2)

	next := l.Apply(change)
	assert.Equal(t, "1420", next.Balance().String())

	_, err = l.AddEntry(Income, Entry{Name: "Nothing"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestLedger_EditEntry_InPlace(t *testing.T) {
	l := sampleLedger(t)

	changes, err := l.EditEntry(Expense, 0, entry("Rent", "1000"), Expense)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	next := l.Apply(changes...)
	assert.Equal(t, "Rent", next[Expense].Entries[0].Name)
	assert.Equal(t, "1000", next[Expense].Entries[0].Value.String())
	assert.Len(t, next[Expense].Entries, 2)
	assert.Equal(t, "1700", next.Balance().String())
}

func TestLedger_EditEntry_Move(t *testing.T) {
	l := sampleLedger(t)
	moved := entry("Food", "300")

	changes, err := l.EditEntry(Expense, 1, moved, Income)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, Expense, changes[0].Section)
	assert.Equal(t, Income, changes[1].Section)

	next := l.Apply(changes...)
	assert.Len(t, next[Expense].Entries, len(l[Expense].Entries)-1)
	assert.Len(t, next[Income].Entries, len(l[Income].Entries)+1)
	last := next[Income].Entries[len(next[Income].Entries)-1]
	assert.Equal(t, moved.Name, last.Name)
	assert.True(t, moved.Value.Equal(last.Value))
	assert.Equal(t, "2100", next.Balance().String())
}

func TestLedger_EditEntry_MoveAppendsAtEnd(t *testing.T) {
	l := sampleLedger(t)
	changes, err := l.EditEntry(Expense, 0, entry("Rent", "1200"), Income)
	require.NoError(t, err)
	next := l.Apply(changes...)
	assert.Equal(t, []string{"Salary", "Rent"}, names(next[Income].Entries))
	assert.Equal(t, []string{"Food"}, names(next[Expense].Entries))
}

func TestLedger_IndexOutOfRange(t *testing.T) {
	l := sampleLedger(t)

	_, err := l.DeleteEntry(Income, 1)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = l.EditEntry(Expense, -1, entry("X", "1"), Expense)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestLedger_DeleteEntry(t *testing.T) {
	l := sampleLedger(t)
	change, err := l.DeleteEntry(Expense, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food"}, names(change.Entries))
	assert.Equal(t, "2700", l.Apply(change).Balance().String())
}

func TestLedger_BalanceHoldsAcrossSequence(t *testing.T) {
	l := sampleLedger(t)
	check := func() {
		want := l[Income].Total().Sub(l[Expense].Total())
		assert.True(t, want.Equal(l.Balance()))
	}

	c, err := l.AddEntry(Income, entry("Bonus", "500"))
	require.NoError(t, err)
	l = l.Apply(c)
	check()

	cs, err := l.EditEntry(Income, 0, entry("Salary", "3100"), Expense)
	require.NoError(t, err)
	l = l.Apply(cs...)
	check()

	c, err = l.DeleteEntry(Expense, 0)
	require.NoError(t, err)
	l = l.Apply(c)
	check()
}

func TestParseSection(t *testing.T) {
	s, err := ParseSection("Expense")
	require.NoError(t, err)
	assert.Equal(t, Expense, s)

	s, err = ParseSection("0")
	require.NoError(t, err)
	assert.Equal(t, Income, s)

	_, err = ParseSection("savings")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}
