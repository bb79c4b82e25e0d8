// Package service exposes the ledger engine over a JSON HTTP API.
package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mmynk/walletledger/internal/ledger"
	"github.com/mmynk/walletledger/internal/storage"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// LedgerService implements the HTTP handlers of the ledger API.
type LedgerService struct {
	engine *ledger.Engine

	// reads caches GET responses. Any successful mutation flushes it,
	// since one record change can touch several accounts and debts.
	reads *cache.Cache
}

// NewLedgerService creates a LedgerService. Cached reads expire after cacheTTL;
// a zero cacheTTL disables caching.
func NewLedgerService(engine *ledger.Engine, cacheTTL time.Duration) *LedgerService {
	s := &LedgerService{engine: engine}
	if cacheTTL > 0 {
		s.reads = cache.New(cacheTTL, 2*cacheTTL)
	}
	return s
}

// Register adds the API routes to mux.
func (s *LedgerService) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/wallets/{id}/accounts", s.ListAccounts)
	mux.HandleFunc("GET /api/wallets/{id}/debts", s.ListDebts)

	mux.HandleFunc("POST /api/accounts", s.CreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.GetAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.UpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.DeleteAccount)
	mux.HandleFunc("PUT /api/accounts/{id}/start-balance", s.SetStartBalance)
	mux.HandleFunc("POST /api/accounts/{id}/refresh", s.RefreshAccount)
	mux.HandleFunc("GET /api/accounts/{id}/monthlies", s.ListMonthlies)
	mux.HandleFunc("GET /api/accounts/{id}/records", s.ListRecords)

	mux.HandleFunc("POST /api/records", s.CreateRecord)
	mux.HandleFunc("GET /api/records/{id}", s.GetRecord)
	mux.HandleFunc("PUT /api/records/{id}", s.UpdateRecord)
	mux.HandleFunc("DELETE /api/records/{id}", s.DeleteRecord)

	mux.HandleFunc("POST /api/transfers", s.CreateTransfer)

	mux.HandleFunc("POST /api/debts", s.CreateDebt)
	mux.HandleFunc("GET /api/debts/{id}", s.GetDebt)
	mux.HandleFunc("PUT /api/debts/{id}", s.UpdateDebt)
	mux.HandleFunc("DELETE /api/debts/{id}", s.DeleteDebt)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps engine and storage errors to HTTP status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case storage.IsNotFound(err):
		status = http.StatusNotFound
	case ledger.IsInvalid(err):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", "error", err)
	} else {
		slog.Warn(op+" rejected", "status", status, "error", err)
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", ledger.ErrInvalidInput, err)
	}
	return nil
}

// queryInt64 parses an optional integer query parameter.
func queryInt64(r *http.Request, key string) (*int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a millisecond timestamp", ledger.ErrInvalidInput, key)
	}
	return &v, nil
}

// mutationOptions reads ?refresh=false.
func mutationOptions(r *http.Request) ([]ledger.MutationOption, error) {
	raw := r.URL.Query().Get("refresh")
	if raw == "" {
		return nil, nil
	}
	refresh, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh must be a boolean", ledger.ErrInvalidInput)
	}
	if refresh {
		return nil, nil
	}
	return []ledger.MutationOption{ledger.WithoutRefresh()}, nil
}

// cached serves key from the read cache, or computes it with load.
func (s *LedgerService) cached(key string, load func() (interface{}, error)) (interface{}, error) {
	if s.reads != nil {
		if v, ok := s.reads.Get(key); ok {
			return v, nil
		}
	}

	v, err := load()
	if err != nil {
		return nil, err
	}

	if s.reads != nil {
		s.reads.SetDefault(key, v)
	}
	return v, nil
}

// invalidate drops every cached read after a mutation.
func (s *LedgerService) invalidate() {
	if s.reads != nil {
		s.reads.Flush()
	}
}
