package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/application/workspace"
	"github.com/pocketbook/backend/internal/bootstrap"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/infrastructure/config"
	"github.com/pocketbook/backend/internal/infrastructure/logger"
	"github.com/pocketbook/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// app holds what every command shares: the global flags, the output and
// the lazily opened backend
type app struct {
	user     string
	plain    bool
	logLevel string

	out    io.Writer
	errOut io.Writer

	// open builds the backend; tests replace it
	open    func(ctx context.Context, log *zap.Logger) (*bootstrap.Backend, error)
	backend *bootstrap.Backend
	log     *zap.Logger
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		out:    out,
		errOut: errOut,
		open: func(ctx context.Context, log *zap.Logger) (*bootstrap.Backend, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			return bootstrap.Open(ctx, cfg, log)
		},
	}
}

// SetFlags registers the global flags
func (a *app) SetFlags(f *flag.FlagSet) {
	f.StringVar(&a.user, "user", os.Getenv("POCKETBOOK_USER"), "User id whose documents to act on (env POCKETBOOK_USER)")
	f.BoolVar(&a.plain, "plain", false, "Print markdown without terminal styling")
	f.StringVar(&a.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
}

// Register adds every command to c
func (a *app) Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&provisionCmd{app: a}, "account")
	c.Register(&purgeCmd{app: a}, "account")
	c.Register(&tokenCmd{app: a}, "account")

	c.Register(&budgetCmd{app: a}, "ledger")
	c.Register(newBalanceCmd(a), "ledger")
	c.Register(newExpressCmd(a), "ledger")
	c.Register(&receiptCmd{app: a}, "ledger")
	c.Register(&listCmd{app: a}, "ledger")
	c.Register(&guestCmd{app: a}, "guest")
}

// Backend opens the configured stores once per process
func (a *app) Backend(ctx context.Context) (*bootstrap.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	if a.log == nil {
		cfg := logger.DefaultConfig()
		cfg.Level = a.logLevel
		cfg.Output = "stderr"
		log, err := logger.New(cfg)
		if err != nil {
			return nil, err
		}
		a.log = log
	}
	b, err := a.open(ctx, a.log)
	if err != nil {
		return nil, err
	}
	a.backend = b
	return b, nil
}

// Session returns the session of -user
func (a *app) Session() (shared.Session, error) {
	if a.user == "" {
		return shared.Session{}, errors.New("no user: pass -user or set POCKETBOOK_USER")
	}
	return shared.NewSession(a.user)
}

// Workspace opens the user's services; release must be called when done
func (a *app) Workspace(ctx context.Context) (*workspace.Workspace, error) {
	session, err := a.Session()
	if err != nil {
		return nil, err
	}
	b, err := a.Backend(ctx)
	if err != nil {
		return nil, err
	}
	return workspace.Open(ctx, session, workspace.Deps{
		Store:      b.Store,
		Dispatcher: b.Dispatcher,
		Stamper:    b.Stamper,
		Logger:     a.log,
	})
}

// Presenter renders amounts in the configured currency
func (a *app) Presenter() dto.Presenter {
	if a.backend == nil {
		return dto.Presenter{}
	}
	return dto.Presenter{Currency: a.backend.Currency}
}

// Wait blocks on a write and prints the documents that failed
func (a *app) Wait(ctx context.Context, sub *dispatch.Submission, err error) error {
	if err != nil {
		return err
	}
	if err := sub.Wait(ctx); err != nil {
		for _, o := range sub.Outcomes() {
			if o.Err != nil {
				fmt.Fprintf(a.errOut, "  %s %s: %v\n", o.Op, o.Path, o.Err)
			}
		}
		return fmt.Errorf("%d of %d writes failed", len(sub.Failed()), len(sub.Outcomes()))
	}
	return nil
}

// Fail reports err and picks the exit status
func (a *app) Fail(err error) subcommands.ExitStatus {
	var usage usageError
	if errors.As(err, &usage) {
		fmt.Fprintln(a.errOut, "Error:", usage.msg)
		return subcommands.ExitUsageError
	}
	var ve *shared.ValidationError
	if errors.As(err, &ve) {
		fmt.Fprintln(a.errOut, "Error:", ve.Message)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(a.errOut, "Error:", err)
	return subcommands.ExitFailure
}

// Close releases the backend
func (a *app) Close() {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			fmt.Fprintln(a.errOut, "Error closing backend:", err)
		}
		a.backend = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// usageError is a malformed command line
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// action splits "verb args..." and checks the argument count
func action(args []string, counts map[string]int) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, usagef("missing action")
	}
	verb, rest := args[0], args[1:]
	want, ok := counts[verb]
	if !ok {
		return "", nil, usagef("unknown action %q", verb)
	}
	if want >= 0 && len(rest) != want {
		return "", nil, usagef("%s takes %d argument(s), got %d", verb, want, len(rest))
	}
	return verb, rest, nil
}
