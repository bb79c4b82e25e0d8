package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/walletledger/internal/models"
	"github.com/mmynk/walletledger/internal/money"
	"github.com/mmynk/walletledger/internal/storage"
	"github.com/mmynk/walletledger/internal/storage/sqlite"
)

// testNow pins "now" in the middle of March 2024.
var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func at(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC).UnixMilli()
}

func monthOf(y int, m time.Month) int64 {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
}

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(newTestStore(t), opts...)
}

func createAccount(t *testing.T, e *Engine, name string, startBalance float64, startBalanceDate int64) *models.Account {
	t.Helper()

	account := &models.Account{
		WalletID:         "wallet-1",
		Name:             name,
		Currency:         "EUR",
		StartBalance:     startBalance,
		StartBalanceDate: startBalanceDate,
	}
	if err := e.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	return account
}

func createRecord(t *testing.T, e *Engine, accountID string, value float64, datetime int64, opts ...MutationOption) *models.Record {
	t.Helper()

	record := &models.Record{
		AccountID:  accountID,
		CategoryID: "category-1",
		Value:      value,
		Datetime:   datetime,
	}
	if err := e.CreateRecord(context.Background(), record, opts...); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	return record
}

func getAccount(t *testing.T, e *Engine, accountID string) *models.Account {
	t.Helper()

	account, err := e.GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	return account
}

func assertBalance(t *testing.T, e *Engine, accountID string, want float64) {
	t.Helper()

	if got := getAccount(t, e, accountID).Balance; !money.Equal(got, want) {
		t.Errorf("balance = %.2f, want %.2f", got, want)
	}
}

func monthlies(t *testing.T, e *Engine, accountID string) map[int64]float64 {
	t.Helper()

	list, err := e.ListMonthlies(context.Background(), accountID, storage.RangeQuery{})
	if err != nil {
		t.Fatalf("ListMonthlies failed: %v", err)
	}
	out := make(map[int64]float64, len(list))
	for _, m := range list {
		out[m.Datetime] = m.Balance
	}
	return out
}

// assertConsistent checks the balance and every checkpoint from the anchor on
// against sums over the raw records.
func assertConsistent(t *testing.T, e *Engine, accountID string) {
	t.Helper()
	ctx := context.Background()

	account := getAccount(t, e, accountID)
	records, err := e.ListRecords(ctx, accountID, storage.RangeQuery{})
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}

	sumBefore := func(end int64, inclusive bool) float64 {
		var vs []float64
		for _, r := range records {
			if r.Datetime < account.StartBalanceDate {
				t.Fatalf("record %s at %d predates anchor %d", r.ID, r.Datetime, account.StartBalanceDate)
			}
			if r.Datetime < end || (inclusive && r.Datetime == end) {
				vs = append(vs, r.Value)
			}
		}
		return money.Sum(account.StartBalance, vs...)
	}

	if want := sumBefore(testNow.UnixMilli(), true); !money.Equal(account.Balance, want) {
		t.Errorf("balance = %.2f, want %.2f from records", account.Balance, want)
	}

	for s, got := range monthlies(t, e, accountID) {
		if s <= account.StartBalanceDate {
			continue
		}
		if want := sumBefore(s, false); !money.Equal(got, want) {
			t.Errorf("checkpoint %s = %.2f, want %.2f from records",
				time.UnixMilli(s).UTC().Format("2006-01"), got, want)
		}
	}
}

func TestMonthBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		in        int64
		wantStart int64
		wantNext  int64
	}{
		{"mid month", at(2024, time.March, 15), monthOf(2024, time.March), monthOf(2024, time.April)},
		{"exact boundary", monthOf(2024, time.March), monthOf(2024, time.March), monthOf(2024, time.April)},
		{"last millisecond", monthOf(2024, time.April) - 1, monthOf(2024, time.March), monthOf(2024, time.April)},
		{"december rolls over", at(2023, time.December, 31), monthOf(2023, time.December), monthOf(2024, time.January)},
		{"leap february", at(2024, time.February, 29), monthOf(2024, time.February), monthOf(2024, time.March)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthStart(tt.in); got != tt.wantStart {
				t.Errorf("MonthStart() = %d, want %d", got, tt.wantStart)
			}
			if got := NextMonth(tt.in); got != tt.wantNext {
				t.Errorf("NextMonth() = %d, want %d", got, tt.wantNext)
			}
		})
	}
}

func TestRefreshBalance_SingleMonth(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	account := createAccount(t, e, "Checking", 12.34, monthOf(2024, time.March))

	values := []float64{-1.11, 2.22, 0.005, 100}
	for i, v := range values {
		createRecord(t, e, account.ID, v, at(2024, time.March, 1+i), WithoutRefresh())
	}

	balance, err := e.RefreshBalance(ctx, account.ID)
	if err != nil {
		t.Fatalf("RefreshBalance failed: %v", err)
	}

	// Values are rounded when stored, 0.005 becomes 0.01.
	want := money.Sum(12.34, -1.11, 2.22, 0.01, 100)
	if !money.Equal(balance, want) {
		t.Errorf("RefreshBalance() = %.2f, want %.2f", balance, want)
	}
	assertBalance(t, e, account.ID, want)

	if got := len(monthlies(t, e, account.ID)); got != 0 {
		t.Errorf("RefreshBalance created %d checkpoints, want 0", got)
	}
}

func TestScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("A: one record in the current month", func(t *testing.T) {
		e := newTestEngine(t)
		account := createAccount(t, e, "Checking", 100, monthOf(2024, time.March))

		createRecord(t, e, account.ID, -30, at(2024, time.March, 5))

		assertBalance(t, e, account.ID, 70)
	})

	t.Run("B: record before the anchor extends it", func(t *testing.T) {
		e := newTestEngine(t)
		account := createAccount(t, e, "Checking", 100, monthOf(2024, time.March))
		createRecord(t, e, account.ID, -30, at(2024, time.March, 5))

		earlier := createRecord(t, e, account.ID, 20, at(2024, time.February, 10))

		got := getAccount(t, e, account.ID)
		if !money.Equal(got.StartBalance, 80) {
			t.Errorf("StartBalance = %.2f, want 80.00", got.StartBalance)
		}
		if got.StartBalanceDate != earlier.Datetime {
			t.Errorf("StartBalanceDate = %d, want %d", got.StartBalanceDate, earlier.Datetime)
		}
		if !money.Equal(got.Balance, 70) {
			t.Errorf("Balance = %.2f, want 70.00", got.Balance)
		}
		if cp := monthlies(t, e, account.ID)[monthOf(2024, time.March)]; !money.Equal(cp, 100) {
			t.Errorf("checkpoint March = %.2f, want 100.00", cp)
		}
		assertConsistent(t, e, account.ID)
	})

	t.Run("C: moving a record between accounts", func(t *testing.T) {
		e := newTestEngine(t)
		a := createAccount(t, e, "A", 0, monthOf(2024, time.January))
		b := createAccount(t, e, "B", 0, monthOf(2024, time.January))
		record := createRecord(t, e, a.ID, -15, at(2024, time.February, 10))
		createRecord(t, e, b.ID, 100, at(2024, time.February, 1))

		beforeA := getAccount(t, e, a.ID).Balance
		beforeB := getAccount(t, e, b.ID).Balance

		record.AccountID = b.ID
		if err := e.UpdateRecord(ctx, record); err != nil {
			t.Fatalf("UpdateRecord failed: %v", err)
		}

		afterA := getAccount(t, e, a.ID).Balance
		afterB := getAccount(t, e, b.ID).Balance

		if !money.Equal(afterA, money.Sum(beforeA, 15)) {
			t.Errorf("A balance = %.2f, want %.2f", afterA, money.Sum(beforeA, 15))
		}
		if !money.Equal(afterB, money.Sum(beforeB, -15)) {
			t.Errorf("B balance = %.2f, want %.2f", afterB, money.Sum(beforeB, -15))
		}
		if !money.Equal(money.Sum(afterA, afterB), money.Sum(beforeA, beforeB)) {
			t.Errorf("total changed from %.2f to %.2f", money.Sum(beforeA, beforeB), money.Sum(afterA, afterB))
		}
		assertConsistent(t, e, a.ID)
		assertConsistent(t, e, b.ID)
	})

	t.Run("D: deleting one half of a transfer deletes both", func(t *testing.T) {
		e := newTestEngine(t)
		a := createAccount(t, e, "A", 100, monthOf(2024, time.January))
		b := createAccount(t, e, "B", 0, monthOf(2024, time.January))

		out, in, err := e.CreateTransfer(ctx, Transfer{
			FromAccountID: a.ID,
			ToAccountID:   b.ID,
			CategoryID:    "transfer",
			Value:         25,
			Datetime:      at(2024, time.February, 3),
		})
		if err != nil {
			t.Fatalf("CreateTransfer failed: %v", err)
		}
		assertBalance(t, e, a.ID, 75)
		assertBalance(t, e, b.ID, 25)

		if err := e.DeleteRecord(ctx, out.ID); err != nil {
			t.Fatalf("DeleteRecord failed: %v", err)
		}

		if _, err := e.GetRecord(ctx, in.ID); !storage.IsNotFound(err) {
			t.Errorf("expected counterpart to be deleted, got %v", err)
		}
		assertBalance(t, e, a.ID, 100)
		assertBalance(t, e, b.ID, 0)
		assertConsistent(t, e, a.ID)
		assertConsistent(t, e, b.ID)

		// Repeating the delete leaves everything as it is.
		if err := e.DeleteRecord(ctx, out.ID); !storage.IsNotFound(err) {
			t.Errorf("repeated delete: expected ErrNotFound, got %v", err)
		}
		if err := e.DeleteRecord(ctx, in.ID); !storage.IsNotFound(err) {
			t.Errorf("delete of cascaded half: expected ErrNotFound, got %v", err)
		}
		assertBalance(t, e, a.ID, 100)
		assertBalance(t, e, b.ID, 0)
	})
}

func TestCheckpointChain(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	account := createAccount(t, e, "Checking", 50, monthOf(2023, time.October))

	// Created out of order on purpose.
	records := []struct {
		value    float64
		datetime int64
	}{
		{-7.5, at(2024, time.February, 14)},
		{-10.10, at(2023, time.October, 5)},
		{5, monthOf(2024, time.January)},
		{1.25, at(2024, time.March, 10)},
		{200, at(2023, time.October, 20)},
		{-0.01, monthOf(2024, time.January) - 1},
		{1000, at(2024, time.March, 20)},
		{-33.33, at(2023, time.November, 3)},
	}
	for _, r := range records {
		createRecord(t, e, account.ID, r.value, r.datetime)
	}

	t.Run("checkpoint values", func(t *testing.T) {
		want := map[int64]float64{
			monthOf(2023, time.November): 239.90,
			monthOf(2023, time.December): 206.57,
			monthOf(2024, time.January):  206.56,
			monthOf(2024, time.February): 211.56,
			monthOf(2024, time.March):    204.06,
		}

		got := monthlies(t, e, account.ID)
		if len(got) != len(want) {
			t.Errorf("got %d checkpoints, want %d", len(got), len(want))
		}
		for s, w := range want {
			if !money.Equal(got[s], w) {
				t.Errorf("checkpoint %s = %.2f, want %.2f", time.UnixMilli(s).UTC().Format("2006-01"), got[s], w)
			}
		}
		if _, ok := got[monthOf(2024, time.April)]; ok {
			t.Error("checkpoint written for the open current month")
		}
	})

	t.Run("balance excludes future records", func(t *testing.T) {
		assertBalance(t, e, account.ID, 205.31)
		assertConsistent(t, e, account.ID)
	})

	t.Run("chain law holds between consecutive checkpoints", func(t *testing.T) {
		cps := monthlies(t, e, account.ID)
		for s := monthOf(2023, time.November); s < monthOf(2024, time.March); s = NextMonth(s) {
			vs, err := e.recordValues(ctx, account.ID, storage.Between(s, NextMonth(s)))
			if err != nil {
				t.Fatalf("recordValues failed: %v", err)
			}
			if want := money.Sum(cps[s], vs...); !money.Equal(cps[NextMonth(s)], want) {
				t.Errorf("checkpoint after %d = %.2f, want %.2f", s, cps[NextMonth(s)], want)
			}
		}
	})

	t.Run("recompute is idempotent", func(t *testing.T) {
		from := monthOf(2023, time.October)
		if err := e.RecomputeMonthliesFrom(ctx, account.ID, from); err != nil {
			t.Fatalf("RecomputeMonthliesFrom failed: %v", err)
		}
		first := monthlies(t, e, account.ID)

		if err := e.RecomputeMonthliesFrom(ctx, account.ID, from); err != nil {
			t.Fatalf("RecomputeMonthliesFrom failed: %v", err)
		}
		second := monthlies(t, e, account.ID)

		if len(first) != len(second) {
			t.Fatalf("checkpoint count changed from %d to %d", len(first), len(second))
		}
		for s, v := range first {
			if second[s] != v {
				t.Errorf("checkpoint %d changed from %.2f to %.2f", s, v, second[s])
			}
		}
	})

	t.Run("moving a record to another month", func(t *testing.T) {
		list, err := e.ListRecords(ctx, account.ID, storage.Between(monthOf(2023, time.November), monthOf(2023, time.December)))
		if err != nil || len(list) != 1 {
			t.Fatalf("expected the November record, got %d records, err %v", len(list), err)
		}
		moved := list[0]
		moved.Datetime = at(2024, time.February, 1)
		if err := e.UpdateRecord(ctx, moved); err != nil {
			t.Fatalf("UpdateRecord failed: %v", err)
		}

		cps := monthlies(t, e, account.ID)
		if !money.Equal(cps[monthOf(2023, time.December)], 239.90) {
			t.Errorf("December checkpoint = %.2f, want 239.90", cps[monthOf(2023, time.December)])
		}
		assertBalance(t, e, account.ID, 205.31)
		assertConsistent(t, e, account.ID)
	})
}

func TestUpdateRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("value change", func(t *testing.T) {
		e := newTestEngine(t)
		account := createAccount(t, e, "Checking", 0, monthOf(2024, time.January))
		record := createRecord(t, e, account.ID, 10, at(2024, time.January, 10))
		createRecord(t, e, account.ID, 5, at(2024, time.March, 1))

		record.Value = 12.345
		if err := e.UpdateRecord(ctx, record); err != nil {
			t.Fatalf("UpdateRecord failed: %v", err)
		}

		if record.Value != 12.35 {
			t.Errorf("stored value = %v, want 12.35", record.Value)
		}
		assertBalance(t, e, account.ID, 17.35)
		assertConsistent(t, e, account.ID)
	})

	t.Run("earlier than the anchor extends it", func(t *testing.T) {
		e := newTestEngine(t)
		account := createAccount(t, e, "Checking", 100, monthOf(2024, time.February))
		record := createRecord(t, e, account.ID, -40, at(2024, time.February, 20))

		record.Datetime = at(2023, time.December, 24)
		if err := e.UpdateRecord(ctx, record); err != nil {
			t.Fatalf("UpdateRecord failed: %v", err)
		}

		got := getAccount(t, e, account.ID)
		if got.StartBalanceDate != record.Datetime {
			t.Errorf("StartBalanceDate = %d, want %d", got.StartBalanceDate, record.Datetime)
		}
		if !money.Equal(got.StartBalance, 140) {
			t.Errorf("StartBalance = %.2f, want 140.00", got.StartBalance)
		}
		assertBalance(t, e, account.ID, 100)
		assertConsistent(t, e, account.ID)
	})

	t.Run("unknown record", func(t *testing.T) {
		e := newTestEngine(t)
		account := createAccount(t, e, "Checking", 0, monthOf(2024, time.January))

		err := e.UpdateRecord(ctx, &models.Record{ID: "missing", AccountID: account.ID, Value: 1, Datetime: at(2024, time.March, 1)})
		if !storage.IsNotFound(err) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown target account leaves record unchanged", func(t *testing.T) {
		e := newTestEngine(t)
		account := createAccount(t, e, "Checking", 0, monthOf(2024, time.January))
		record := createRecord(t, e, account.ID, 10, at(2024, time.February, 1))

		moved := *record
		moved.AccountID = "missing"
		if err := e.UpdateRecord(ctx, &moved); !storage.IsNotFound(err) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		got, err := e.GetRecord(ctx, record.ID)
		if err != nil {
			t.Fatalf("GetRecord failed: %v", err)
		}
		if got.AccountID != account.ID {
			t.Errorf("record moved to %q", got.AccountID)
		}
		assertBalance(t, e, account.ID, 10)
	})
}

func TestCreateRecord_Validation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	account := createAccount(t, e, "Checking", 0, monthOf(2024, time.January))

	tests := []struct {
		name     string
		record   *models.Record
		notFound bool
	}{
		{"missing account id", &models.Record{Value: 1, Datetime: at(2024, time.March, 1)}, false},
		{"missing datetime", &models.Record{AccountID: account.ID, Value: 1}, false},
		{"unknown account", &models.Record{AccountID: "missing", Value: 1, Datetime: at(2024, time.March, 1)}, true},
		{"unknown debt", &models.Record{AccountID: account.ID, DebtID: "missing", Value: 1, Datetime: at(2024, time.March, 1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.CreateRecord(ctx, tt.record)
			if tt.notFound && !storage.IsNotFound(err) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			if !tt.notFound && !IsInvalid(err) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	records, err := e.ListRecords(ctx, account.ID, storage.RangeQuery{})
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("rejected creates left %d records behind", len(records))
	}
	assertBalance(t, e, account.ID, 0)
}

func TestWithoutRefresh_BulkImport(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	account := createAccount(t, e, "Imported", 0, monthOf(2024, time.March))

	createRecord(t, e, account.ID, 10, at(2024, time.January, 10), WithoutRefresh())
	createRecord(t, e, account.ID, 20, at(2024, time.February, 10), WithoutRefresh())
	createRecord(t, e, account.ID, 30, at(2024, time.March, 5), WithoutRefresh())

	assertBalance(t, e, account.ID, 0)
	if got := len(monthlies(t, e, account.ID)); got != 0 {
		t.Errorf("got %d checkpoints before refresh, want 0", got)
	}

	balance, err := e.RefreshAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("RefreshAccount failed: %v", err)
	}
	if !money.Equal(balance, 30) {
		t.Errorf("RefreshAccount() = %.2f, want 30.00", balance)
	}

	got := getAccount(t, e, account.ID)
	if !money.Equal(got.StartBalance, -30) || got.StartBalanceDate != at(2024, time.January, 10) {
		t.Errorf("anchor = (%.2f, %d), want (-30.00, %d)", got.StartBalance, got.StartBalanceDate, at(2024, time.January, 10))
	}
	assertConsistent(t, e, account.ID)
}

func TestSetStartBalance(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	account := createAccount(t, e, "Checking", 0, monthOf(2024, time.January))
	createRecord(t, e, account.ID, 20, at(2024, time.February, 10))
	assertBalance(t, e, account.ID, 20)

	t.Run("same date, new value", func(t *testing.T) {
		if err := e.SetStartBalance(ctx, account.ID, 100, monthOf(2024, time.January)); err != nil {
			t.Fatalf("SetStartBalance failed: %v", err)
		}
		assertBalance(t, e, account.ID, 120)
		assertConsistent(t, e, account.ID)
	})

	t.Run("later date folds earlier records", func(t *testing.T) {
		if err := e.SetStartBalance(ctx, account.ID, 100, at(2024, time.February, 15)); err != nil {
			t.Fatalf("SetStartBalance failed: %v", err)
		}

		got := getAccount(t, e, account.ID)
		if !money.Equal(got.StartBalance, 80) || got.StartBalanceDate != at(2024, time.February, 10) {
			t.Errorf("anchor = (%.2f, %d), want (80.00, %d)", got.StartBalance, got.StartBalanceDate, at(2024, time.February, 10))
		}
		assertBalance(t, e, account.ID, 100)
		assertConsistent(t, e, account.ID)
	})

	t.Run("unknown account", func(t *testing.T) {
		if err := e.SetStartBalance(ctx, "missing", 1, 1); !storage.IsNotFound(err) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTransfers(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	a := createAccount(t, e, "A", 100, monthOf(2024, time.January))
	b := createAccount(t, e, "B", 0, monthOf(2024, time.January))

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			tr   Transfer
		}{
			{"same account", Transfer{FromAccountID: a.ID, ToAccountID: a.ID, Value: 1, Datetime: at(2024, time.March, 1)}},
			{"zero value", Transfer{FromAccountID: a.ID, ToAccountID: b.ID, Value: 0.001, Datetime: at(2024, time.March, 1)}},
			{"negative value", Transfer{FromAccountID: a.ID, ToAccountID: b.ID, Value: -5, Datetime: at(2024, time.March, 1)}},
			{"missing account", Transfer{FromAccountID: a.ID, Value: 5, Datetime: at(2024, time.March, 1)}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, _, err := e.CreateTransfer(ctx, tt.tr)
				if !errors.Is(err, ErrInvalidTransfer) {
					t.Errorf("expected ErrInvalidTransfer, got %v", err)
				}
				if !IsInvalid(err) {
					t.Errorf("expected ErrInvalidTransfer to wrap ErrInvalidInput")
				}
			})
		}
	})

	t.Run("unknown destination rolls back the source half", func(t *testing.T) {
		_, _, err := e.CreateTransfer(ctx, Transfer{
			FromAccountID: a.ID,
			ToAccountID:   "missing",
			Value:         10,
			Datetime:      at(2024, time.March, 1),
		})
		if !storage.IsNotFound(err) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		records, err := e.ListRecords(ctx, a.ID, storage.RangeQuery{})
		if err != nil {
			t.Fatalf("ListRecords failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected source half to be removed, got %d records", len(records))
		}
		assertBalance(t, e, a.ID, 100)
	})

	t.Run("halves are opposite and linked", func(t *testing.T) {
		out, in, err := e.CreateTransfer(ctx, Transfer{
			FromAccountID: a.ID,
			ToAccountID:   b.ID,
			Value:         40,
			Payee:         "Savings",
			Datetime:      at(2024, time.February, 1),
		})
		if err != nil {
			t.Fatalf("CreateTransfer failed: %v", err)
		}
		if out.TransferID == "" || out.TransferID != in.TransferID {
			t.Errorf("transfer ids %q and %q should match", out.TransferID, in.TransferID)
		}
		if out.Value != -40 || in.Value != 40 {
			t.Errorf("values = %v and %v, want -40 and 40", out.Value, in.Value)
		}
		assertBalance(t, e, a.ID, 60)
		assertBalance(t, e, b.ID, 40)
	})

	t.Run("cascaded delete refreshes the other account despite WithoutRefresh", func(t *testing.T) {
		out, _, err := e.CreateTransfer(ctx, Transfer{
			FromAccountID: a.ID,
			ToAccountID:   b.ID,
			Value:         10,
			Datetime:      at(2024, time.March, 2),
		})
		if err != nil {
			t.Fatalf("CreateTransfer failed: %v", err)
		}
		assertBalance(t, e, a.ID, 50)
		assertBalance(t, e, b.ID, 50)

		if err := e.DeleteRecord(ctx, out.ID, WithoutRefresh()); err != nil {
			t.Fatalf("DeleteRecord failed: %v", err)
		}

		// The caller opted out for A only.
		assertBalance(t, e, a.ID, 50)
		assertBalance(t, e, b.ID, 40)

		if _, err := e.RefreshAccount(ctx, a.ID); err != nil {
			t.Fatalf("RefreshAccount failed: %v", err)
		}
		assertBalance(t, e, a.ID, 60)
	})

	t.Run("halves reject changes that break the pair", func(t *testing.T) {
		out, in, err := e.CreateTransfer(ctx, Transfer{
			FromAccountID: a.ID,
			ToAccountID:   b.ID,
			Value:         25,
			Datetime:      at(2024, time.March, 3),
		})
		if err != nil {
			t.Fatalf("CreateTransfer failed: %v", err)
		}
		assertBalance(t, e, a.ID, 35)
		assertBalance(t, e, b.ID, 65)

		revalued := *out
		revalued.Value = -40
		if err := e.UpdateRecord(ctx, &revalued); !errors.Is(err, ErrInvalidTransfer) {
			t.Errorf("value change: expected ErrInvalidTransfer, got %v", err)
		}

		moved := *in
		moved.AccountID = a.ID
		if err := e.UpdateRecord(ctx, &moved); !errors.Is(err, ErrInvalidTransfer) {
			t.Errorf("account change: expected ErrInvalidTransfer, got %v", err)
		}

		for _, r := range []*models.Record{out, in} {
			stored, err := e.GetRecord(ctx, r.ID)
			if err != nil {
				t.Fatalf("GetRecord failed: %v", err)
			}
			if stored.AccountID != r.AccountID || stored.Value != r.Value {
				t.Errorf("record %s = (%s, %.2f), want unchanged (%s, %.2f)",
					r.ID, stored.AccountID, stored.Value, r.AccountID, r.Value)
			}
		}
		assertBalance(t, e, a.ID, 35)
		assertBalance(t, e, b.ID, 65)

		// Metadata edits are fine and cannot detach the half.
		edited := *out
		edited.Description = "rent share"
		edited.TransferID = ""
		if err := e.UpdateRecord(ctx, &edited); err != nil {
			t.Fatalf("UpdateRecord failed: %v", err)
		}
		stored, err := e.GetRecord(ctx, out.ID)
		if err != nil {
			t.Fatalf("GetRecord failed: %v", err)
		}
		if stored.TransferID != out.TransferID || stored.Description != "rent share" {
			t.Errorf("stored = (%q, %q), want (%q, %q)", stored.TransferID, stored.Description, out.TransferID, "rent share")
		}
		assertConsistent(t, e, a.ID)
		assertConsistent(t, e, b.ID)
	})
}

func TestDebts(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	account := createAccount(t, e, "Checking", 0, monthOf(2024, time.January))

	debt := &models.Debt{WalletID: "wallet-1", Payee: "Alice"}
	if err := e.CreateDebt(ctx, debt); err != nil {
		t.Fatalf("CreateDebt failed: %v", err)
	}

	assertDebt := func(t *testing.T, wantBalance float64, wantClosed bool) {
		t.Helper()
		got, err := e.GetDebt(ctx, debt.ID)
		if err != nil {
			t.Fatalf("GetDebt failed: %v", err)
		}
		if !money.Equal(got.Balance, wantBalance) || got.Closed != wantClosed {
			t.Errorf("debt = (%.2f, closed %v), want (%.2f, closed %v)", got.Balance, got.Closed, wantBalance, wantClosed)
		}
		if got.Closed != money.IsZero(got.Balance) {
			t.Errorf("closed %v does not match balance %.2f", got.Closed, got.Balance)
		}
	}

	t.Run("new debt without records is closed", func(t *testing.T) {
		assertDebt(t, 0, true)
	})

	borrowed := &models.Record{AccountID: account.ID, DebtID: debt.ID, Value: 50, Payee: "Alice", Datetime: at(2024, time.March, 2)}
	repaid := &models.Record{AccountID: account.ID, DebtID: debt.ID, Value: -50, Payee: "Alice", Datetime: at(2024, time.March, 3)}

	t.Run("linked records drive the balance", func(t *testing.T) {
		if err := e.CreateRecord(ctx, borrowed); err != nil {
			t.Fatalf("CreateRecord failed: %v", err)
		}
		assertDebt(t, 50, false)

		if err := e.CreateRecord(ctx, repaid); err != nil {
			t.Fatalf("CreateRecord failed: %v", err)
		}
		assertDebt(t, 0, true)

		repaid.Value = -20
		if err := e.UpdateRecord(ctx, repaid); err != nil {
			t.Fatalf("UpdateRecord failed: %v", err)
		}
		assertDebt(t, 30, false)
	})

	t.Run("dropping the reference refreshes the old debt", func(t *testing.T) {
		borrowed.DebtID = ""
		if err := e.UpdateRecord(ctx, borrowed); err != nil {
			t.Fatalf("UpdateRecord failed: %v", err)
		}
		assertDebt(t, -20, false)
	})

	t.Run("payee rename cascades to records", func(t *testing.T) {
		debt.Payee = "Alicia"
		if err := e.UpdateDebt(ctx, debt); err != nil {
			t.Fatalf("UpdateDebt failed: %v", err)
		}

		got, err := e.GetRecord(ctx, repaid.ID)
		if err != nil {
			t.Fatalf("GetRecord failed: %v", err)
		}
		if got.Payee != "Alicia" {
			t.Errorf("payee = %q, want Alicia", got.Payee)
		}
		if got.Value != -20 {
			t.Errorf("value = %v, want -20", got.Value)
		}

		untouched, err := e.GetRecord(ctx, borrowed.ID)
		if err != nil {
			t.Fatalf("GetRecord failed: %v", err)
		}
		if untouched.Payee != "Alice" {
			t.Errorf("unlinked record payee = %q, want Alice", untouched.Payee)
		}
		assertDebt(t, -20, false)
	})

	t.Run("deleting a linked record refreshes the debt", func(t *testing.T) {
		if err := e.DeleteRecord(ctx, repaid.ID); err != nil {
			t.Fatalf("DeleteRecord failed: %v", err)
		}
		assertDebt(t, 0, true)
	})

	t.Run("delete and validation", func(t *testing.T) {
		if err := e.CreateDebt(ctx, &models.Debt{WalletID: "wallet-1", Payee: "  "}); !IsInvalid(err) {
			t.Errorf("expected ErrInvalidInput for empty payee, got %v", err)
		}
		if err := e.DeleteDebt(ctx, debt.ID); err != nil {
			t.Fatalf("DeleteDebt failed: %v", err)
		}
		if err := e.RefreshDebtBalance(ctx, debt.ID); !storage.IsNotFound(err) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	a := createAccount(t, e, "A", 0, monthOf(2024, time.January))
	b := createAccount(t, e, "B", 0, monthOf(2024, time.January))

	debt := &models.Debt{WalletID: "wallet-1", Payee: "Bob"}
	if err := e.CreateDebt(ctx, debt); err != nil {
		t.Fatalf("CreateDebt failed: %v", err)
	}
	if err := e.CreateRecord(ctx, &models.Record{AccountID: a.ID, DebtID: debt.ID, Value: 75, Datetime: at(2024, time.February, 1)}); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	_, in, err := e.CreateTransfer(ctx, Transfer{FromAccountID: a.ID, ToAccountID: b.ID, Value: 30, Datetime: at(2024, time.February, 2)})
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}
	createRecord(t, e, b.ID, 5, at(2024, time.March, 1))
	assertBalance(t, e, b.ID, 35)

	if err := e.DeleteAccount(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	if _, err := e.GetAccount(ctx, a.ID); !storage.IsNotFound(err) {
		t.Errorf("expected account to be gone, got %v", err)
	}
	if _, err := e.GetRecord(ctx, in.ID); !storage.IsNotFound(err) {
		t.Errorf("expected transfer counterpart to be gone, got %v", err)
	}
	assertBalance(t, e, b.ID, 5)
	assertConsistent(t, e, b.ID)

	got, err := e.GetDebt(ctx, debt.ID)
	if err != nil {
		t.Fatalf("GetDebt failed: %v", err)
	}
	if got.Balance != 0 || !got.Closed {
		t.Errorf("debt = (%.2f, closed %v), want (0.00, closed true)", got.Balance, got.Closed)
	}

	if err := e.DeleteAccount(ctx, a.ID); !storage.IsNotFound(err) {
		t.Errorf("repeated DeleteAccount: expected ErrNotFound, got %v", err)
	}
}

func TestCreateAccount_DefaultAnchorIsEngineNow(t *testing.T) {
	e := newTestEngine(t)

	account := &models.Account{WalletID: "wallet-1", Name: "Cash", Currency: "EUR", StartBalance: 50}
	if err := e.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	got := getAccount(t, e, account.ID)
	if got.StartBalanceDate != testNow.UnixMilli() {
		t.Errorf("StartBalanceDate = %d, want %d", got.StartBalanceDate, testNow.UnixMilli())
	}

	createRecord(t, e, account.ID, -10, testNow.UnixMilli())
	assertBalance(t, e, account.ID, 40)
	assertConsistent(t, e, account.ID)
}

func TestCreateAccount_Validation(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name    string
		account *models.Account
	}{
		{"missing name", &models.Account{Currency: "EUR"}},
		{"unsupported currency", &models.Account{Name: "Cash", Currency: "XYZ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.CreateAccount(context.Background(), tt.account); !IsInvalid(err) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
