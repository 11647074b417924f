package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/pocketbook/backend/internal/application/express"
	"github.com/pocketbook/backend/internal/domain/cart"
)

type guestCmd struct {
	*app
	device string
}

func (*guestCmd) Name() string     { return "guest" }
func (*guestCmd) Synopsis() string { return "use the express cart without an account" }
func (*guestCmd) Usage() string {
	return `pocketbook guest [-device <id>] <list|add|edit|delete|clear>
pocketbook guest add <name> <qty> <price>
pocketbook guest edit <index> <name> <qty> <price>
pocketbook guest delete <index>

  The cart is kept as one blob per device; no -user is needed.
`
}

func (c *guestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.device, "device", "", "Device whose cart to use")
}

func (c *guestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.run(ctx, f.Args()); err != nil {
		return c.Fail(err)
	}
	return subcommands.ExitSuccess
}

func (c *guestCmd) run(ctx context.Context, args []string) error {
	verb, args, err := action(args, map[string]int{"list": 0, "add": 3, "edit": 4, "delete": 1, "clear": 0})
	if err != nil {
		return err
	}
	b, err := c.Backend(ctx)
	if err != nil {
		return err
	}
	baseKey := "expressData"
	if b.Config != nil && b.Config.Guest.BlobKey != "" {
		baseKey = b.Config.Guest.BlobKey
	}
	g := express.NewGuestCart(b.Blobs, express.GuestKey(baseKey, c.device),
		express.WithStamper(b.Stamper), express.WithLogger(c.log))

	var blob cart.Blob
	switch verb {
	case "list":
		blob, err = g.Load(ctx)
	case "add":
		var item cart.Item
		if item, err = parseItem(args); err == nil {
			blob, err = g.Add(ctx, item)
		}
	case "edit":
		var index int
		if index, err = parseIndex(args[0]); err != nil {
			return err
		}
		var item cart.Item
		if item, err = parseItem(args[1:]); err == nil {
			blob, err = g.Edit(ctx, index, item)
		}
	case "delete":
		var index int
		if index, err = parseIndex(args[0]); err != nil {
			return err
		}
		blob, err = g.Delete(ctx, index)
	case "clear":
		if err = g.Clear(ctx); err == nil {
			blob = cart.EmptyBlob()
		}
	}
	if err != nil {
		return err
	}
	c.printMarkdown(itemsMarkdown("Guest cart", blob.Data, blob.Stamp(), c.Presenter()))
	return nil
}
