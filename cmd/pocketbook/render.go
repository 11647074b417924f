package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pocketbook/backend/internal/domain/budget"
	"github.com/pocketbook/backend/internal/domain/cart"
	"github.com/pocketbook/backend/internal/domain/checklist"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/shared/valueobject"
	"github.com/pocketbook/backend/internal/interfaces/http/dto"
)

// printMarkdown renders md for the terminal, or prints it as is with -plain
func (a *app) printMarkdown(md string) {
	if !a.plain {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err == nil {
			if out, err := r.Render(md); err == nil {
				fmt.Fprint(a.out, out)
				return
			}
		}
	}
	fmt.Fprint(a.out, md)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func lastModified(b *strings.Builder, s shared.Stamp) {
	if s.IsZero() {
		b.WriteString("\n_Last modified: never_\n")
		return
	}
	fmt.Fprintf(b, "\n_Last modified: %s_\n", s)
}

func itemsMarkdown(title string, items []cart.Item, stamp shared.Stamp, p dto.Presenter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if len(items) == 0 {
		b.WriteString("No items.\n")
	} else {
		b.WriteString("| # | Item | Qty | Price | Subtotal |\n|---:|---|---:|---:|---:|\n")
		for i, it := range items {
			fmt.Fprintf(&b, "| %d | %s | %d | %s | %s |\n",
				i, escape(it.ItemName), it.Qty, valueobject.FormatGrouped(it.Price), valueobject.FormatGrouped(it.Subtotal()))
		}
	}
	fmt.Fprintf(&b, "\n**Total: %s**\n", p.Money(cart.Total(items)).Display())
	lastModified(&b, stamp)
	return b.String()
}

func budgetMarkdown(l budget.Ledger, p dto.Presenter) string {
	var b strings.Builder
	b.WriteString("# Budget\n")
	for _, s := range l {
		fmt.Fprintf(&b, "\n## %s\n\n", s.Title)
		if len(s.Entries) == 0 {
			b.WriteString("No entries.\n")
		} else {
			b.WriteString("| # | Name | Value |\n|---:|---|---:|\n")
			for i, e := range s.Entries {
				fmt.Fprintf(&b, "| %d | %s | %s |\n", i, escape(e.Name), valueobject.FormatGrouped(e.Value))
			}
		}
		fmt.Fprintf(&b, "\nTotal: %s\n", p.Money(s.Total()).Display())
	}
	fmt.Fprintf(&b, "\n**Balance: %s**\n", p.Money(l.Balance()).Display())
	lastModified(&b, l.Section(budget.Income).Stamp())
	return b.String()
}

func receiptsMarkdown(receipts []cart.Receipt) string {
	var b strings.Builder
	b.WriteString("# Receipts\n\n")
	if len(receipts) == 0 {
		b.WriteString("No receipts.\n")
		return b.String()
	}
	b.WriteString("| No | Id | Date | Time | Items | Total |\n|---:|---|---|---|---:|---:|\n")
	for _, r := range receipts {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %d | %s |\n", r.No, r.ID, r.Date, r.Time, len(r.Data), escape(r.TotalPrice))
	}
	return b.String()
}

func receiptMarkdown(r cart.Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Receipt %d\n\n%s %s\n\n", r.No, r.Date, r.Time)
	b.WriteString("| Item | Qty | Price | Subtotal |\n|---|---:|---:|---:|\n")
	for _, it := range r.Data {
		fmt.Fprintf(&b, "| %s | %d | %s | %s |\n",
			escape(it.ItemName), it.Qty, valueobject.FormatGrouped(it.Price), valueobject.FormatGrouped(it.Subtotal()))
	}
	fmt.Fprintf(&b, "\n**Total: %s**\n", escape(r.TotalPrice))
	return b.String()
}

func checklistMarkdown(items []checklist.Item) string {
	var b strings.Builder
	b.WriteString("# Checklist\n\n")
	if len(items) == 0 {
		b.WriteString("Nothing to buy.\n")
		return b.String()
	}
	for i, it := range items {
		mark := " "
		if it.Completed {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] %d. %s\n", mark, i, it.ItemName)
	}
	fmt.Fprintf(&b, "\n%d of %d left\n", checklist.Remaining(items), len(items))
	return b.String()
}
