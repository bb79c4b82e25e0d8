package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/mmynk/walletledger/internal/ledger"
	"github.com/mmynk/walletledger/internal/money"
)

// refreshCmd runs the full account refresh.
type refreshCmd struct {
	account string
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "rebuild checkpoints and balance of an account" }
func (*refreshCmd) Usage() string {
	return `ledgerctl refresh -account <id>

  Extends the anchor over records dated before it, recomputes every
  checkpoint from the anchor month and rewrites the cached balance.
  Use it after a bulk import done without refresh.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account ID")
}

func (c *refreshCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *ledger.Engine) error {
		if c.account == "" {
			return fmt.Errorf("%w: -account", errMissingFlag)
		}
		balance, err := e.RefreshAccount(ctx, c.account)
		if err != nil {
			return err
		}
		account, err := e.GetAccount(ctx, c.account)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, money.Format(balance, account.Currency))
		return nil
	})
}

// recomputeCmd recomputes checkpoints from a given date.
type recomputeCmd struct {
	account string
	from    string
}

func (*recomputeCmd) Name() string     { return "recompute" }
func (*recomputeCmd) Synopsis() string { return "recompute monthly checkpoints from a date" }
func (*recomputeCmd) Usage() string {
	return `ledgerctl recompute -account <id> -from <YYYY-MM-DD|ms>

  Rewrites every checkpoint after the month containing -from, then the balance.
`
}

func (c *recomputeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account ID")
	f.StringVar(&c.from, "from", "", "Date of the earliest change")
}

func (c *recomputeCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *ledger.Engine) error {
		if c.account == "" {
			return fmt.Errorf("%w: -account", errMissingFlag)
		}
		if c.from == "" {
			return fmt.Errorf("%w: -from", errMissingFlag)
		}
		from, err := parseDate(c.from)
		if err != nil {
			return err
		}
		if err := e.RecomputeMonthliesFrom(ctx, c.account, from); err != nil {
			return err
		}
		balance, err := e.RefreshBalance(ctx, c.account)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "recomputed from %s, balance %.2f\n", formatDate(ledger.MonthStart(from)), balance)
		return nil
	})
}

// extendAnchorCmd folds records dated before the anchor into it.
type extendAnchorCmd struct {
	account string
}

func (*extendAnchorCmd) Name() string     { return "extend-anchor" }
func (*extendAnchorCmd) Synopsis() string { return "move the start balance before the earliest record" }
func (*extendAnchorCmd) Usage() string {
	return `ledgerctl extend-anchor -account <id>

  Moves the start balance date back to the earliest record dated before it,
  subtracting those records from the start balance.
`
}

func (c *extendAnchorCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account ID")
}

func (c *extendAnchorCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *ledger.Engine) error {
		if c.account == "" {
			return fmt.Errorf("%w: -account", errMissingFlag)
		}
		if err := e.ExtendAnchorBackward(ctx, c.account); err != nil {
			return err
		}
		account, err := e.GetAccount(ctx, c.account)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "start %s on %s\n", money.Format(account.StartBalance, account.Currency), formatDate(account.StartBalanceDate))
		return nil
	})
}

// debtCmd recomputes a debt balance.
type debtCmd struct {
	id string
}

func (*debtCmd) Name() string     { return "debt" }
func (*debtCmd) Synopsis() string { return "recompute the balance of a debt" }
func (*debtCmd) Usage() string {
	return `ledgerctl debt -id <id>

  Recomputes the debt balance from its records and updates its closed flag.
`
}

func (c *debtCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Debt ID")
}

func (c *debtCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *ledger.Engine) error {
		if c.id == "" {
			return fmt.Errorf("%w: -id", errMissingFlag)
		}
		if err := e.RefreshDebtBalance(ctx, c.id); err != nil {
			return err
		}
		debt, err := e.GetDebt(ctx, c.id)
		if err != nil {
			return err
		}
		state := "open"
		if debt.Closed {
			state = "closed"
		}
		fmt.Fprintf(stdout, "%s\t%.2f\t%s\n", debt.Payee, debt.Balance, state)
		return nil
	})
}
