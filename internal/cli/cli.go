// Package cli implements the ledgerctl maintenance subcommands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/subcommands"

	"github.com/mmynk/walletledger/internal/config"
	"github.com/mmynk/walletledger/internal/ledger"
	"github.com/mmynk/walletledger/internal/storage/sqlite"
	"github.com/mmynk/walletledger/pkg/logging"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&accountsCmd{}, "inspect")
	c.Register(&balanceCmd{}, "inspect")
	c.Register(&monthliesCmd{}, "inspect")

	c.Register(&refreshCmd{}, "repair")
	c.Register(&recomputeCmd{}, "repair")
	c.Register(&extendAnchorCmd{}, "repair")
	c.Register(&debtCmd{}, "repair")
}

var dbPath = flag.String("db", "", "Path to the SQLite database (defaults to DB_PATH)")

// stdout receives command output.
var stdout io.Writer = os.Stdout

var errMissingFlag = errors.New("missing required flag")

// openEngine opens the configured database and returns an engine over it.
// The returned close function releases the database.
func openEngine() (*ledger.Engine, func(), error) {
	cfg := config.Load()
	logging.SetupWithLevel(logging.LevelFromString(cfg.LogLevel))

	path := cfg.DBPath
	if *dbPath != "" {
		path = *dbPath
	}

	store, err := sqlite.New(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return ledger.New(store), func() { store.Close() }, nil
}

// run opens the engine, runs fn and maps its error to an exit status.
func run(ctx context.Context, fn func(ctx context.Context, e *ledger.Engine) error) subcommands.ExitStatus {
	e, closeFn, err := openEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	if err := fn(ctx, e); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errMissingFlag) || ledger.IsInvalid(err) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// parseDate accepts either a 2006-01-02 date (UTC) or Unix milliseconds.
func parseDate(s string) (int64, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC().UnixMilli(), nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD or Unix milliseconds", ledger.ErrInvalidInput, s)
	}
	return ms, nil
}

func formatDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.DateOnly)
}
