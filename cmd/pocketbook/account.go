package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"
	"github.com/pocketbook/backend/internal/application/account"
	"github.com/pocketbook/backend/internal/infrastructure/auth"
)

type provisionCmd struct {
	*app
}

func (*provisionCmd) Name() string     { return "provision" }
func (*provisionCmd) Synopsis() string { return "create the profile and empty ledger of -user" }
func (*provisionCmd) Usage() string {
	return `pocketbook -user <id> provision <name>

  Writes the profile, the empty income and expense sections and the cart headers.
`
}
func (*provisionCmd) SetFlags(*flag.FlagSet) {}

func (c *provisionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.run(ctx, f.Args()); err != nil {
		return c.Fail(err)
	}
	return subcommands.ExitSuccess
}

func (c *provisionCmd) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usagef("provision needs a name")
	}
	session, err := c.Session()
	if err != nil {
		return err
	}
	b, err := c.Backend(ctx)
	if err != nil {
		return err
	}
	svc := account.NewService(b.Store, b.Dispatcher, c.log)
	sub, err := svc.Provision(ctx, session, account.ProvisionRequest{Name: strings.Join(args, " ")})
	if err := c.Wait(ctx, sub, err); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Provisioned %s\n", session.UserID)
	return nil
}

type purgeCmd struct {
	*app
	yes bool
}

func (*purgeCmd) Name() string     { return "purge" }
func (*purgeCmd) Synopsis() string { return "delete every document of -user" }
func (*purgeCmd) Usage() string {
	return `pocketbook -user <id> purge -yes

  Deletes the user's items, receipts, checklist, headers and profile, and
  revokes their outstanding tokens.
`
}

func (c *purgeCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "Confirm the deletion")
}

func (c *purgeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.run(ctx); err != nil {
		return c.Fail(err)
	}
	return subcommands.ExitSuccess
}

func (c *purgeCmd) run(ctx context.Context) error {
	if !c.yes {
		return usagef("purge deletes everything; pass -yes to confirm")
	}
	session, err := c.Session()
	if err != nil {
		return err
	}
	b, err := c.Backend(ctx)
	if err != nil {
		return err
	}
	sub, err := account.NewService(b.Store, b.Dispatcher, c.log).Purge(ctx, session)
	if err := c.Wait(ctx, sub, err); err != nil {
		return err
	}
	if b.Config != nil {
		if err := b.Revocations.RevokeUser(ctx, session.UserID, b.Config.JWT.Expiration); err != nil {
			fmt.Fprintln(c.errOut, "Warning: tokens not revoked:", err)
		}
	}
	fmt.Fprintf(c.out, "Purged %d documents of %s\n", len(sub.Outcomes()), session.UserID)
	return nil
}

type tokenCmd struct {
	*app
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "issue a bearer token for -user" }
func (*tokenCmd) Usage() string {
	return `pocketbook -user <id> token

  Prints a signed session token for the HTTP API. Requires jwt.secret.
`
}
func (*tokenCmd) SetFlags(*flag.FlagSet) {}

func (c *tokenCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.run(ctx); err != nil {
		return c.Fail(err)
	}
	return subcommands.ExitSuccess
}

func (c *tokenCmd) run(ctx context.Context) error {
	session, err := c.Session()
	if err != nil {
		return err
	}
	b, err := c.Backend(ctx)
	if err != nil {
		return err
	}
	if b.Config == nil || b.Config.JWT.Secret == "" {
		return errors.New("jwt.secret is not configured")
	}
	token, expires, err := auth.NewTokenService(b.Config.JWT).Issue(session.UserID)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, token)
	fmt.Fprintf(c.errOut, "expires %s\n", expires.Format("2006-01-02 15:04 MST"))
	return nil
}
