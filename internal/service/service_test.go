package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/walletledger/internal/ledger"
	"github.com/mmynk/walletledger/internal/middleware"
	"github.com/mmynk/walletledger/internal/storage/sqlite"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func at(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC).UnixMilli()
}

// setupTestServer creates a test server backed by a temporary database.
func setupTestServer(t *testing.T, cacheTTL time.Duration) (*httptest.Server, func()) {
	t.Helper()

	// Create temp database
	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	engine := ledger.New(store, ledger.WithClock(func() time.Time { return testNow }))

	svc := NewLedgerService(engine, cacheTTL)

	mux := http.NewServeMux()
	svc.Register(mux)
	path, handler := NewBalanceServiceHandler(svc, connect.WithInterceptors(middleware.LoggingInterceptor()))
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	cleanup := func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	}

	return server, cleanup
}

// do sends a JSON request and decodes the JSON response into out when non-nil.
func do(t *testing.T, server *httptest.Server, method, path string, body, out interface{}) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
	}

	req, err := http.NewRequest(method, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response of %s %s: %v", method, path, err)
		}
	}

	return resp.StatusCode
}

func createTestAccount(t *testing.T, server *httptest.Server, name string, startBalance float64) Account {
	t.Helper()

	var account Account
	status := do(t, server, http.MethodPost, "/api/accounts", CreateAccountRequest{
		WalletID:         "wallet-1",
		Name:             name,
		Currency:         "USD",
		StartBalance:     startBalance,
		StartBalanceDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
	}, &account)
	if status != http.StatusCreated {
		t.Fatalf("CreateAccount status = %d, want %d", status, http.StatusCreated)
	}
	return account
}

func getBalance(t *testing.T, server *httptest.Server, accountID string) Account {
	t.Helper()

	var account Account
	if status := do(t, server, http.MethodGet, "/api/accounts/"+accountID, nil, &account); status != http.StatusOK {
		t.Fatalf("GetAccount status = %d, want %d", status, http.StatusOK)
	}
	return account
}

func TestLedgerService_Records(t *testing.T) {
	server, cleanup := setupTestServer(t, time.Minute)
	defer cleanup()

	account := createTestAccount(t, server, "Checking", 100)

	var record Record
	t.Run("create refreshes the balance", func(t *testing.T) {
		status := do(t, server, http.MethodPost, "/api/records", Record{
			AccountID:  account.ID,
			CategoryID: "groceries",
			Value:      -30,
			Datetime:   at(2024, time.March, 5),
		}, &record)
		if status != http.StatusCreated {
			t.Fatalf("status = %d, want %d", status, http.StatusCreated)
		}
		if record.ID == "" {
			t.Fatal("expected record ID to be set")
		}

		got := getBalance(t, server, account.ID)
		if got.Balance != 70 {
			t.Errorf("balance = %v, want 70", got.Balance)
		}
		if got.BalanceDisplay != "$70.00" {
			t.Errorf("balance display = %q, want $70.00", got.BalanceDisplay)
		}
	})

	t.Run("update invalidates cached reads", func(t *testing.T) {
		record.Value = -40
		if status := do(t, server, http.MethodPut, "/api/records/"+record.ID, record, &record); status != http.StatusOK {
			t.Fatalf("status = %d, want %d", status, http.StatusOK)
		}

		if got := getBalance(t, server, account.ID); got.Balance != 60 {
			t.Errorf("balance = %v, want 60", got.Balance)
		}
	})

	t.Run("monthlies", func(t *testing.T) {
		if status := do(t, server, http.MethodPost, "/api/records", Record{
			AccountID: account.ID,
			Value:     12.5,
			Datetime:  at(2024, time.February, 1),
		}, nil); status != http.StatusCreated {
			t.Fatalf("status = %d, want %d", status, http.StatusCreated)
		}

		var monthlies []Monthly
		if status := do(t, server, http.MethodGet, "/api/accounts/"+account.ID+"/monthlies", nil, &monthlies); status != http.StatusOK {
			t.Fatalf("status = %d, want %d", status, http.StatusOK)
		}
		// The walk starts at February and writes the March checkpoint only.
		if len(monthlies) != 1 {
			t.Fatalf("got %d checkpoints, want 1", len(monthlies))
		}
		if monthlies[0].Balance != 112.5 {
			t.Errorf("March checkpoint = %v, want 112.5", monthlies[0].Balance)
		}
	})

	t.Run("delete without refresh", func(t *testing.T) {
		if status := do(t, server, http.MethodDelete, "/api/records/"+record.ID+"?refresh=false", nil, nil); status != http.StatusNoContent {
			t.Fatalf("status = %d, want %d", status, http.StatusNoContent)
		}
		if got := getBalance(t, server, account.ID); got.Balance != 72.5 {
			t.Errorf("balance = %v, want the stale 72.5", got.Balance)
		}

		var refreshed Account
		if status := do(t, server, http.MethodPost, "/api/accounts/"+account.ID+"/refresh", nil, &refreshed); status != http.StatusOK {
			t.Fatalf("status = %d, want %d", status, http.StatusOK)
		}
		if refreshed.Balance != 112.5 {
			t.Errorf("balance = %v, want 112.5", refreshed.Balance)
		}
	})

	t.Run("list records", func(t *testing.T) {
		var records []Record
		if status := do(t, server, http.MethodGet, "/api/accounts/"+account.ID+"/records", nil, &records); status != http.StatusOK {
			t.Fatalf("status = %d, want %d", status, http.StatusOK)
		}
		if len(records) != 1 {
			t.Errorf("got %d records, want 1", len(records))
		}
	})
}

func TestLedgerService_Transfers(t *testing.T) {
	server, cleanup := setupTestServer(t, 0)
	defer cleanup()

	a := createTestAccount(t, server, "A", 100)
	b := createTestAccount(t, server, "B", 0)

	var transfer TransferResponse
	status := do(t, server, http.MethodPost, "/api/transfers", TransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   b.ID,
		Value:         25,
		Datetime:      at(2024, time.February, 3),
	}, &transfer)
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want %d", status, http.StatusCreated)
	}
	if transfer.Out.TransferID != transfer.In.TransferID {
		t.Errorf("halves not linked: %q and %q", transfer.Out.TransferID, transfer.In.TransferID)
	}

	edited := transfer.Out
	edited.Value = -40
	if status := do(t, server, http.MethodPut, "/api/records/"+edited.ID, edited, nil); status != http.StatusBadRequest {
		t.Errorf("value change on transfer half status = %d, want %d", status, http.StatusBadRequest)
	}

	if status := do(t, server, http.MethodDelete, "/api/records/"+transfer.In.ID, nil, nil); status != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", status, http.StatusNoContent)
	}
	if status := do(t, server, http.MethodDelete, "/api/records/"+transfer.In.ID, nil, nil); status != http.StatusNoContent {
		t.Errorf("repeated delete status = %d, want %d", status, http.StatusNoContent)
	}

	if got := getBalance(t, server, a.ID); got.Balance != 100 {
		t.Errorf("A balance = %v, want 100", got.Balance)
	}
	if got := getBalance(t, server, b.ID); got.Balance != 0 {
		t.Errorf("B balance = %v, want 0", got.Balance)
	}
	if status := do(t, server, http.MethodGet, "/api/records/"+transfer.Out.ID, nil, nil); status != http.StatusNotFound {
		t.Errorf("counterpart status = %d, want %d", status, http.StatusNotFound)
	}
}

func TestLedgerService_Debts(t *testing.T) {
	server, cleanup := setupTestServer(t, time.Minute)
	defer cleanup()

	account := createTestAccount(t, server, "Checking", 0)

	var debt Debt
	if status := do(t, server, http.MethodPost, "/api/debts", DebtRequest{WalletID: "wallet-1", Payee: "Alice"}, &debt); status != http.StatusCreated {
		t.Fatalf("status = %d, want %d", status, http.StatusCreated)
	}
	if !debt.Closed {
		t.Error("expected new debt without records to be closed")
	}

	var record Record
	if status := do(t, server, http.MethodPost, "/api/records", Record{
		AccountID: account.ID,
		DebtID:    debt.ID,
		Value:     -45,
		Payee:     "Alice",
		Datetime:  at(2024, time.March, 1),
	}, &record); status != http.StatusCreated {
		t.Fatalf("status = %d, want %d", status, http.StatusCreated)
	}

	if status := do(t, server, http.MethodGet, "/api/debts/"+debt.ID, nil, &debt); status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if debt.Balance != -45 || debt.Closed {
		t.Errorf("debt = (%v, closed %v), want (-45, closed false)", debt.Balance, debt.Closed)
	}

	if status := do(t, server, http.MethodPut, "/api/debts/"+debt.ID, DebtRequest{Payee: "Alicia"}, &debt); status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if status := do(t, server, http.MethodGet, "/api/records/"+record.ID, nil, &record); status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if record.Payee != "Alicia" {
		t.Errorf("record payee = %q, want Alicia", record.Payee)
	}

	var debts []Debt
	if status := do(t, server, http.MethodGet, "/api/wallets/wallet-1/debts", nil, &debts); status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if len(debts) != 1 {
		t.Errorf("got %d debts, want 1", len(debts))
	}

	if status := do(t, server, http.MethodDelete, "/api/debts/"+debt.ID, nil, nil); status != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", status, http.StatusNoContent)
	}
	if status := do(t, server, http.MethodGet, "/api/debts/"+debt.ID, nil, nil); status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", status, http.StatusNotFound)
	}
}

func TestLedgerService_Errors(t *testing.T) {
	server, cleanup := setupTestServer(t, time.Minute)
	defer cleanup()

	account := createTestAccount(t, server, "Checking", 0)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"unknown account", http.MethodGet, "/api/accounts/missing", nil, http.StatusNotFound},
		{"unknown record", http.MethodGet, "/api/records/missing", nil, http.StatusNotFound},
		{"delete unknown record is a no-op", http.MethodDelete, "/api/records/missing", nil, http.StatusNoContent},
		{"monthlies of unknown account", http.MethodGet, "/api/accounts/missing/monthlies", nil, http.StatusNotFound},
		{"record for unknown account", http.MethodPost, "/api/records", Record{AccountID: "missing", Value: 1, Datetime: at(2024, time.March, 1)}, http.StatusNotFound},
		{"record without datetime", http.MethodPost, "/api/records", Record{AccountID: account.ID, Value: 1}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/records", map[string]interface{}{"amount": 1}, http.StatusBadRequest},
		{"bad refresh flag", http.MethodDelete, "/api/records/x?refresh=maybe", nil, http.StatusBadRequest},
		{"bad monthlies bound", http.MethodGet, fmt.Sprintf("/api/accounts/%s/monthlies?from=yesterday", account.ID), nil, http.StatusBadRequest},
		{"self transfer", http.MethodPost, "/api/transfers", TransferRequest{FromAccountID: account.ID, ToAccountID: account.ID, Value: 1, Datetime: 1}, http.StatusBadRequest},
		{"unsupported currency", http.MethodPost, "/api/accounts", CreateAccountRequest{Name: "X", Currency: "ABC"}, http.StatusBadRequest},
		{"debt without payee", http.MethodPost, "/api/debts", DebtRequest{WalletID: "wallet-1"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := do(t, server, tt.method, tt.path, tt.body, nil); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}
