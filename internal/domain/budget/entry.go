// Package budget models the two-section income/expense ledger.
package budget

import (
	"strings"

	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SectionIndex is a section's fixed slot; it doubles as its array index
type SectionIndex int

const (
	Income  SectionIndex = 0
	Expense SectionIndex = 1
)

// Titles of the two sections as stored
const (
	IncomeTitle  = "Income"
	ExpenseTitle = "Expense"
)

// Valid reports whether the index names one of the two sections
func (s SectionIndex) Valid() bool {
	return s == Income || s == Expense
}

// Title returns the stored section title
func (s SectionIndex) Title() string {
	if s == Expense {
		return ExpenseTitle
	}
	return IncomeTitle
}

// label is the lower-case word used in validation prompts
func (s SectionIndex) label() string {
	return strings.ToLower(s.Title())
}

// ParseSection accepts "0"/"1" or the section title in any case
func ParseSection(s string) (SectionIndex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "income":
		return Income, nil
	case "1", "expense":
		return Expense, nil
	}
	return 0, shared.NewValidationError("section", "Unknown section: "+s)
}

// Entry is one named income or expense line
type Entry struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// NewEntry validates a raw name/value pair as typed into the form for section
func NewEntry(section SectionIndex, name, value string) (Entry, error) {
	if name == "" {
		return Entry{}, shared.NewValidationError("name", "Please enter "+section.label()+" name")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Entry{}, shared.NewValidationError("value", "Please enter "+section.label()+" value")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Entry{}, shared.NewValidationError("value", "Invalid value input")
	}
	e := Entry{Name: name, Value: d}
	if err := e.Validate(section); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Validate checks the entry for section before it is written
func (e Entry) Validate(section SectionIndex) error {
	if e.Name == "" {
		return shared.NewValidationError("name", "Please enter "+section.label()+" name")
	}
	if e.Value.IsZero() {
		return shared.NewValidationError("value", "Please enter "+section.label()+" value")
	}
	return nil
}
