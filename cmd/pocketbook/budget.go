package main

import (
	"context"
	"flag"
	"strconv"

	"github.com/google/subcommands"
	"github.com/pocketbook/backend/internal/domain/budget"
)

type budgetCmd struct {
	*app
	to string
}

func (*budgetCmd) Name() string     { return "budget" }
func (*budgetCmd) Synopsis() string { return "show or change the income and expense ledger" }
func (*budgetCmd) Usage() string {
	return `pocketbook -user <id> budget list
pocketbook -user <id> budget add <income|expense> <name> <value>
pocketbook -user <id> budget [-to <section>] edit <section> <index> <name> <value>
pocketbook -user <id> budget delete <section> <index>
pocketbook -user <id> budget clear

  Entries are addressed by section and position. -to moves the edited entry.
`
}

func (c *budgetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.to, "to", "", "Section the edited entry moves to")
}

func (c *budgetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.run(ctx, f.Args()); err != nil {
		return c.Fail(err)
	}
	return subcommands.ExitSuccess
}

func (c *budgetCmd) run(ctx context.Context, args []string) error {
	verb, args, err := action(args, map[string]int{"list": 0, "add": 3, "edit": 4, "delete": 2, "clear": 0})
	if err != nil {
		return err
	}
	w, err := c.Workspace(ctx)
	if err != nil {
		return err
	}
	defer w.Release()
	svc := w.Budget

	switch verb {
	case "add":
		section, err := budget.ParseSection(args[0])
		if err != nil {
			return err
		}
		entry, err := budget.NewEntry(section, args[1], args[2])
		if err != nil {
			return err
		}
		sub, err := svc.Add(ctx, section, entry)
		if err := c.Wait(ctx, sub, err); err != nil {
			return err
		}
	case "edit":
		from, index, err := sectionIndex(args[0], args[1])
		if err != nil {
			return err
		}
		to := from
		if c.to != "" {
			if to, err = budget.ParseSection(c.to); err != nil {
				return err
			}
		}
		entry, err := budget.NewEntry(to, args[2], args[3])
		if err != nil {
			return err
		}
		sub, err := svc.Edit(ctx, from, index, entry, to)
		if err := c.Wait(ctx, sub, err); err != nil {
			return err
		}
	case "delete":
		section, index, err := sectionIndex(args[0], args[1])
		if err != nil {
			return err
		}
		sub, err := svc.Delete(ctx, section, index)
		if err := c.Wait(ctx, sub, err); err != nil {
			return err
		}
	case "clear":
		sub, err := svc.Clear(ctx)
		if err := c.Wait(ctx, sub, err); err != nil {
			return err
		}
	}

	l, err := svc.Ledger()
	if err != nil {
		return err
	}
	c.printMarkdown(budgetMarkdown(l, c.Presenter()))
	return nil
}

func sectionIndex(section, index string) (budget.SectionIndex, int, error) {
	s, err := budget.ParseSection(section)
	if err != nil {
		return 0, 0, err
	}
	i, err := parseIndex(index)
	return s, i, err
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, usagef("invalid index %q", s)
	}
	return i, nil
}
