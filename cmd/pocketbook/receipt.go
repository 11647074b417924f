package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/pocketbook/backend/internal/domain/cart"
)

type receiptCmd struct {
	*app
}

func (*receiptCmd) Name() string     { return "receipt" }
func (*receiptCmd) Synopsis() string { return "browse and prune archived express carts" }
func (*receiptCmd) Usage() string {
	return `pocketbook -user <id> receipt list
pocketbook -user <id> receipt show <id>
pocketbook -user <id> receipt search <totalPrice|date|time> <text>
pocketbook -user <id> receipt delete <id>
pocketbook -user <id> receipt clear
`
}
func (*receiptCmd) SetFlags(*flag.FlagSet) {}

func (c *receiptCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.run(ctx, f.Args()); err != nil {
		return c.Fail(err)
	}
	return subcommands.ExitSuccess
}

func (c *receiptCmd) run(ctx context.Context, args []string) error {
	verb, args, err := action(args, map[string]int{"list": 0, "show": 1, "search": 2, "delete": 1, "clear": 0})
	if err != nil {
		return err
	}
	w, err := c.Workspace(ctx)
	if err != nil {
		return err
	}
	defer w.Release()
	archive := w.Receipts

	switch verb {
	case "show":
		r, ok, err := archive.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("receipt %s not found", args[0])
		}
		c.printMarkdown(receiptMarkdown(r))
		return nil
	case "search":
		field, err := cart.ParseSearchField(args[0])
		if err != nil {
			return err
		}
		found, err := archive.Search(field, args[1])
		if err != nil {
			return err
		}
		c.printMarkdown(receiptsMarkdown(found))
		return nil
	case "delete":
		sub, err := archive.Delete(ctx, args[0])
		if err := c.Wait(ctx, sub, err); err != nil {
			return err
		}
	case "clear":
		sub, err := archive.Clear(ctx)
		if err := c.Wait(ctx, sub, err); err != nil {
			return err
		}
	}

	receipts, err := archive.History()
	if err != nil {
		return err
	}
	c.printMarkdown(receiptsMarkdown(receipts))
	return nil
}
