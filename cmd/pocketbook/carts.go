package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/subcommands"
	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/application/workspace"
	"github.com/pocketbook/backend/internal/domain/cart"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// cartOps binds the shared cart verbs to one cart of the workspace
type cartOps struct {
	items  func(*workspace.Workspace) ([]cart.Item, shared.Stamp, error)
	add    func(context.Context, *workspace.Workspace, cart.Item) (*dispatch.Submission, error)
	edit   func(context.Context, *workspace.Workspace, int, cart.Item) (*dispatch.Submission, error)
	remove func(context.Context, *workspace.Workspace, int) (*dispatch.Submission, error)
	clear  func(context.Context, *workspace.Workspace) (*dispatch.Submission, error)
	// archive is nil for carts that cannot be archived
	archive func(context.Context, *workspace.Workspace) (*dispatch.Submission, error)
}

type cartCmd struct {
	*app
	name     string
	title    string
	synopsis string
	ops      cartOps
	start    string
}

func newBalanceCmd(a *app) *cartCmd {
	return &cartCmd{
		app:      a,
		name:     "balance",
		title:    "Balance",
		synopsis: "track consumption against a starting balance",
		ops: cartOps{
			items: func(w *workspace.Workspace) ([]cart.Item, shared.Stamp, error) {
				items, err := w.Balance.Items()
				return items, w.Balance.Stamp(), err
			},
			add: func(ctx context.Context, w *workspace.Workspace, it cart.Item) (*dispatch.Submission, error) {
				return w.Balance.Consume(ctx, it)
			},
			edit: func(ctx context.Context, w *workspace.Workspace, i int, it cart.Item) (*dispatch.Submission, error) {
				return w.Balance.Edit(ctx, i, it)
			},
			remove: func(ctx context.Context, w *workspace.Workspace, i int) (*dispatch.Submission, error) {
				return w.Balance.Remove(ctx, i)
			},
			clear: func(ctx context.Context, w *workspace.Workspace) (*dispatch.Submission, error) {
				return w.Balance.ClearAll(ctx)
			},
		},
	}
}

func newExpressCmd(a *app) *cartCmd {
	return &cartCmd{
		app:      a,
		name:     "express",
		title:    "Express cart",
		synopsis: "build a cart and archive it as a receipt",
		ops: cartOps{
			items: func(w *workspace.Workspace) ([]cart.Item, shared.Stamp, error) {
				items, err := w.Express.Items()
				return items, w.Express.Stamp(), err
			},
			add: func(ctx context.Context, w *workspace.Workspace, it cart.Item) (*dispatch.Submission, error) {
				return w.Express.Add(ctx, it)
			},
			edit: func(ctx context.Context, w *workspace.Workspace, i int, it cart.Item) (*dispatch.Submission, error) {
				return w.Express.Edit(ctx, i, it)
			},
			remove: func(ctx context.Context, w *workspace.Workspace, i int) (*dispatch.Submission, error) {
				return w.Express.Delete(ctx, i)
			},
			clear: func(ctx context.Context, w *workspace.Workspace) (*dispatch.Submission, error) {
				return w.Express.Clear(ctx)
			},
			archive: func(ctx context.Context, w *workspace.Workspace) (*dispatch.Submission, error) {
				return w.Express.Archive(ctx)
			},
		},
	}
}

func (c *cartCmd) Name() string     { return c.name }
func (c *cartCmd) Synopsis() string { return c.synopsis }
func (c *cartCmd) Usage() string {
	verbs := "list|add|edit|delete|clear"
	if c.ops.archive != nil {
		verbs += "|archive"
	}
	return fmt.Sprintf(`pocketbook -user <id> %[1]s <%[2]s>
pocketbook -user <id> %[1]s add <name> <qty> <price>
pocketbook -user <id> %[1]s edit <index> <name> <qty> <price>
pocketbook -user <id> %[1]s delete <index>
`, c.name, verbs)
}

func (c *cartCmd) SetFlags(f *flag.FlagSet) {
	if c.name == "balance" {
		f.StringVar(&c.start, "start", "", "Starting balance to report what remains")
	}
}

func (c *cartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.run(ctx, f.Args()); err != nil {
		return c.Fail(err)
	}
	return subcommands.ExitSuccess
}

func (c *cartCmd) run(ctx context.Context, args []string) error {
	counts := map[string]int{"list": 0, "add": 3, "edit": 4, "delete": 1, "clear": 0}
	if c.ops.archive != nil {
		counts["archive"] = 0
	}
	verb, args, err := action(args, counts)
	if err != nil {
		return err
	}
	var start *decimal.Decimal
	if c.start != "" {
		d, err := decimal.NewFromString(strings.TrimSpace(c.start))
		if err != nil {
			return shared.NewValidationError("start", "Invalid value input")
		}
		start = &d
	}

	w, err := c.Workspace(ctx)
	if err != nil {
		return err
	}
	defer w.Release()

	var sub *dispatch.Submission
	switch verb {
	case "add":
		item, err := parseItem(args)
		if err != nil {
			return err
		}
		sub, err = c.ops.add(ctx, w, item)
		if err := c.Wait(ctx, sub, err); err != nil {
			return err
		}
	case "edit":
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		item, err := parseItem(args[1:])
		if err != nil {
			return err
		}
		sub, err = c.ops.edit(ctx, w, index, item)
		if err := c.Wait(ctx, sub, err); err != nil {
			return err
		}
	case "delete":
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		sub, err = c.ops.remove(ctx, w, index)
		if err := c.Wait(ctx, sub, err); err != nil {
			return err
		}
	case "clear":
		sub, err = c.ops.clear(ctx, w)
		if err := c.Wait(ctx, sub, err); err != nil {
			return err
		}
	case "archive":
		sub, err = c.ops.archive(ctx, w)
		if err := c.Wait(ctx, sub, err); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Archived as a new receipt.")
	}

	items, stamp, err := c.ops.items(w)
	if err != nil {
		return err
	}
	p := c.Presenter()
	md := itemsMarkdown(c.title, items, stamp, p)
	if start != nil {
		resp := p.Balance(items, stamp, start)
		md += fmt.Sprintf("\nStarting balance: %s  \nRemaining: %s\n", resp.Start.Display(), resp.Remaining.Display())
		if resp.Exceeded {
			md += "\n**Balance exceeded**\n"
		}
	}
	c.printMarkdown(md)
	return nil
}

// parseItem reads <name> <qty> <price>
func parseItem(args []string) (cart.Item, error) {
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return cart.Item{}, shared.NewValidationError("qty", "Quantity cannot less than 1")
	}
	return cart.NewItem(args[0], qty, args[2])
}
