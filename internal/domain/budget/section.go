package budget

import (
	"fmt"

	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Section is one of the two sibling ledger documents
type Section struct {
	ID      string       `json:"-"`
	No      SectionIndex `json:"no"`
	Title   string       `json:"title"`
	Date    *string      `json:"date,omitempty"`
	Time    *string      `json:"time,omitempty"`
	Entries []Entry      `json:"data"`
}

// Stamp returns the section's last-modified stamp
func (s Section) Stamp() shared.Stamp {
	var st shared.Stamp
	if s.Date != nil {
		st.Date = *s.Date
	}
	if s.Time != nil {
		st.Time = *s.Time
	}
	return st
}

// Total sums the entry values
func (s Section) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Entries {
		total = total.Add(e.Value)
	}
	return total
}

// Ledger is the ordered pair (income, expense)
type Ledger [2]Section

// NewLedger checks the materialized sections satisfy sections[no].no == no
func NewLedger(sections []Section) (Ledger, error) {
	var l Ledger
	if len(sections) != 2 {
		return l, shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("budget holds %d sections, want 2", len(sections)))
	}
	for i, s := range sections {
		if int(s.No) != i {
			return l, shared.NewDomainError(shared.ErrInvalidState.Code,
				fmt.Sprintf("section at %d has no %d", i, s.No))
		}
		l[i] = s
	}
	return l, nil
}

// Section returns the section in slot i
func (l Ledger) Section(i SectionIndex) Section {
	return l[i]
}

// Balance is sum(income) - sum(expense), derived on every read
func (l Ledger) Balance() decimal.Decimal {
	return l[Income].Total().Sub(l[Expense].Total())
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries), len(entries)+1)
	copy(out, entries)
	return out
}

func checkIndex(s Section, index int) error {
	if index < 0 || index >= len(s.Entries) {
		return shared.NewValidationError("index",
			fmt.Sprintf("No %s entry at index %d", s.No.label(), index))
	}
	return nil
}

// Change is the full entries array to write back to one section document
type Change struct {
	Section SectionIndex
	Entries []Entry
}

// AddEntry appends entry to the target section
func (l Ledger) AddEntry(target SectionIndex, entry Entry) (Change, error) {
	if !target.Valid() {
		return Change{}, shared.NewValidationError("section", "Unknown section")
	}
	if err := entry.Validate(target); err != nil {
		return Change{}, err
	}
	entries := append(cloneEntries(l[target].Entries), entry)
	return Change{Section: target, Entries: entries}, nil
}

// EditEntry replaces entries[index] of from in place, or moves it to the end
// of to when the sections differ. A move returns two changes, source first.
func (l Ledger) EditEntry(from SectionIndex, index int, entry Entry, to SectionIndex) ([]Change, error) {
	if !from.Valid() || !to.Valid() {
		return nil, shared.NewValidationError("section", "Unknown section")
	}
	if err := entry.Validate(to); err != nil {
		return nil, err
	}
	if err := checkIndex(l[from], index); err != nil {
		return nil, err
	}
	if from == to {
		entries := cloneEntries(l[from].Entries)
		entries[index] = entry
		return []Change{{Section: from, Entries: entries}}, nil
	}
	source := cloneEntries(l[from].Entries)
	source = append(source[:index], source[index+1:]...)
	target := append(cloneEntries(l[to].Entries), entry)
	return []Change{
		{Section: from, Entries: source},
		{Section: to, Entries: target},
	}, nil
}

// DeleteEntry splices entries[index] out of section
func (l Ledger) DeleteEntry(section SectionIndex, index int) (Change, error) {
	if !section.Valid() {
		return Change{}, shared.NewValidationError("section", "Unknown section")
	}
	if err := checkIndex(l[section], index); err != nil {
		return Change{}, err
	}
	entries := cloneEntries(l[section].Entries)
	entries = append(entries[:index], entries[index+1:]...)
	return Change{Section: section, Entries: entries}, nil
}

// Apply returns the ledger with changes applied, as it will read once written
func (l Ledger) Apply(changes ...Change) Ledger {
	out := l
	for _, c := range changes {
		out[c.Section].Entries = c.Entries
	}
	return out
}

// SetID records the section's document id
func (s *Section) SetID(id string) { s.ID = id }
