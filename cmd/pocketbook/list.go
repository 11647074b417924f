package main

import (
	"context"
	"flag"
	"strings"

	"github.com/google/subcommands"
)

type listCmd struct {
	*app
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "keep the to-buy checklist" }
func (*listCmd) Usage() string {
	return `pocketbook -user <id> list list
pocketbook -user <id> list add <name...>
pocketbook -user <id> list rename <index> <name...>
pocketbook -user <id> list toggle <index>
pocketbook -user <id> list delete <index>
pocketbook -user <id> list clear
`
}
func (*listCmd) SetFlags(*flag.FlagSet) {}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.run(ctx, f.Args()); err != nil {
		return c.Fail(err)
	}
	return subcommands.ExitSuccess
}

func (c *listCmd) run(ctx context.Context, args []string) error {
	verb, args, err := action(args, map[string]int{"list": 0, "add": -1, "rename": -1, "toggle": 1, "delete": 1, "clear": 0})
	if err != nil {
		return err
	}
	if verb == "rename" && len(args) < 1 {
		return usagef("rename takes an index and a name")
	}
	w, err := c.Workspace(ctx)
	if err != nil {
		return err
	}
	defer w.Release()
	svc := w.Checklist

	switch verb {
	case "add":
		sub, err := svc.Add(ctx, strings.Join(args, " "))
		if err := c.Wait(ctx, sub, err); err != nil {
			return err
		}
	case "rename", "toggle", "delete":
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		switch verb {
		case "rename":
			sub, err := svc.Rename(ctx, index, strings.Join(args[1:], " "))
			if err := c.Wait(ctx, sub, err); err != nil {
				return err
			}
		case "toggle":
			sub, err := svc.Toggle(ctx, index)
			if err := c.Wait(ctx, sub, err); err != nil {
				return err
			}
		default:
			sub, err := svc.Delete(ctx, index)
			if err := c.Wait(ctx, sub, err); err != nil {
				return err
			}
		}
	case "clear":
		sub, err := svc.Clear(ctx)
		if err := c.Wait(ctx, sub, err); err != nil {
			return err
		}
	}

	items, err := svc.Items()
	if err != nil {
		return err
	}
	c.printMarkdown(checklistMarkdown(items))
	return nil
}
