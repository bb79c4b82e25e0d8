package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/mmynk/walletledger/internal/ledger"
	"github.com/mmynk/walletledger/internal/money"
	"github.com/mmynk/walletledger/internal/storage"
)

// accountsCmd lists the accounts of a wallet.
type accountsCmd struct {
	wallet string
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list the accounts of a wallet with their balances" }
func (*accountsCmd) Usage() string {
	return `ledgerctl accounts -wallet <id>

  Lists every account of the wallet with its cached balance and anchor.
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.wallet, "wallet", "", "Wallet ID")
}

func (c *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *ledger.Engine) error {
		if c.wallet == "" {
			return fmt.Errorf("%w: -wallet", errMissingFlag)
		}
		accounts, err := e.ListAccounts(ctx, c.wallet)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			fmt.Fprintf(stdout, "%s\t%s\t%s\tstart %s on %s\n",
				a.ID, a.Name, money.Format(a.Balance, a.Currency),
				money.Format(a.StartBalance, a.Currency), formatDate(a.StartBalanceDate))
		}
		return nil
	})
}

// balanceCmd prints the cached balance of an account.
type balanceCmd struct {
	account string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "print the cached balance of an account" }
func (*balanceCmd) Usage() string {
	return `ledgerctl balance -account <id>

  Prints the balance stored on the account without recomputing it.
  Use 'refresh' to recompute it from records.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account ID")
}

func (c *balanceCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *ledger.Engine) error {
		if c.account == "" {
			return fmt.Errorf("%w: -account", errMissingFlag)
		}
		account, err := e.GetAccount(ctx, c.account)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, money.Format(account.Balance, account.Currency))
		return nil
	})
}

// monthliesCmd lists the checkpoints of an account.
type monthliesCmd struct {
	account string
}

func (*monthliesCmd) Name() string     { return "monthlies" }
func (*monthliesCmd) Synopsis() string { return "list the monthly checkpoints of an account" }
func (*monthliesCmd) Usage() string {
	return `ledgerctl monthlies -account <id>

  Lists the month-start checkpoints of the account, oldest first.
`
}

func (c *monthliesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account ID")
}

func (c *monthliesCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *ledger.Engine) error {
		if c.account == "" {
			return fmt.Errorf("%w: -account", errMissingFlag)
		}
		account, err := e.GetAccount(ctx, c.account)
		if err != nil {
			return err
		}
		monthlies, err := e.ListMonthlies(ctx, c.account, storage.RangeQuery{})
		if err != nil {
			return err
		}
		for _, m := range monthlies {
			fmt.Fprintf(stdout, "%s\t%s\n", formatDate(m.Datetime), money.Format(m.Balance, account.Currency))
		}
		return nil
	})
}
