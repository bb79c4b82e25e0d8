package service

import (
	"log/slog"
	"net/http"

	"github.com/mmynk/walletledger/internal/models"
	"github.com/mmynk/walletledger/internal/storage"
)

// CreateAccount handles POST /api/accounts.
func (s *LedgerService) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "CreateAccount", err)
		return
	}

	slog.Info("CreateAccount request received",
		"wallet_id", req.WalletID,
		"name", req.Name,
		"currency", req.Currency,
	)

	account := &models.Account{
		WalletID:         req.WalletID,
		Name:             req.Name,
		Color:            req.Color,
		Currency:         req.Currency,
		StartBalance:     req.StartBalance,
		StartBalanceDate: req.StartBalanceDate,
	}
	if err := s.engine.CreateAccount(r.Context(), account); err != nil {
		writeError(w, "CreateAccount", err)
		return
	}
	s.invalidate()

	writeJSON(w, http.StatusCreated, toAccount(account))
}

// GetAccount handles GET /api/accounts/{id}.
func (s *LedgerService) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	v, err := s.cached("account:"+id, func() (interface{}, error) {
		account, err := s.engine.GetAccount(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return toAccount(account), nil
	})
	if err != nil {
		writeError(w, "GetAccount", err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// ListAccounts handles GET /api/wallets/{id}/accounts.
func (s *LedgerService) ListAccounts(w http.ResponseWriter, r *http.Request) {
	walletID := r.PathValue("id")

	v, err := s.cached("accounts:"+walletID, func() (interface{}, error) {
		accounts, err := s.engine.ListAccounts(r.Context(), walletID)
		if err != nil {
			return nil, err
		}
		out := make([]Account, len(accounts))
		for i, a := range accounts {
			out[i] = toAccount(a)
		}
		return out, nil
	})
	if err != nil {
		writeError(w, "ListAccounts", err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// UpdateAccount handles PUT /api/accounts/{id}.
func (s *LedgerService) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UpdateAccountRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "UpdateAccount", err)
		return
	}

	slog.Info("UpdateAccount request received", "account_id", id, "name", req.Name)

	account, err := s.engine.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, "UpdateAccount", err)
		return
	}
	account.Name = req.Name
	account.Color = req.Color
	account.Currency = req.Currency

	if err := s.engine.UpdateAccount(r.Context(), account); err != nil {
		writeError(w, "UpdateAccount", err)
		return
	}
	s.invalidate()

	writeJSON(w, http.StatusOK, toAccount(account))
}

// DeleteAccount handles DELETE /api/accounts/{id}.
func (s *LedgerService) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Info("DeleteAccount request received", "account_id", id)

	if err := s.engine.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, "DeleteAccount", err)
		return
	}
	s.invalidate()

	w.WriteHeader(http.StatusNoContent)
}

// SetStartBalance handles PUT /api/accounts/{id}/start-balance.
func (s *LedgerService) SetStartBalance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req SetStartBalanceRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "SetStartBalance", err)
		return
	}

	slog.Info("SetStartBalance request received",
		"account_id", id,
		"start_balance", req.StartBalance,
		"start_balance_date", req.StartBalanceDate,
	)

	if err := s.engine.SetStartBalance(r.Context(), id, req.StartBalance, req.StartBalanceDate); err != nil {
		writeError(w, "SetStartBalance", err)
		return
	}
	s.invalidate()

	s.respondAccount(w, r, id)
}

// RefreshAccount handles POST /api/accounts/{id}/refresh.
func (s *LedgerService) RefreshAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Info("RefreshAccount request received", "account_id", id)

	if _, err := s.engine.RefreshAccount(r.Context(), id); err != nil {
		writeError(w, "RefreshAccount", err)
		return
	}
	s.invalidate()

	s.respondAccount(w, r, id)
}

// ListMonthlies handles GET /api/accounts/{id}/monthlies?from=&to=.
// Both bounds are inclusive millisecond timestamps.
func (s *LedgerService) ListMonthlies(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	q, err := rangeFromQuery(r)
	if err != nil {
		writeError(w, "ListMonthlies", err)
		return
	}

	v, err := s.cached("monthlies:"+id+"?"+r.URL.RawQuery, func() (interface{}, error) {
		// Distinguish an unknown account from one without checkpoints.
		if _, err := s.engine.GetAccount(r.Context(), id); err != nil {
			return nil, err
		}
		list, err := s.engine.ListMonthlies(r.Context(), id, q)
		if err != nil {
			return nil, err
		}
		out := make([]Monthly, len(list))
		for i, m := range list {
			out[i] = Monthly{Datetime: m.Datetime, Balance: m.Balance}
		}
		return out, nil
	})
	if err != nil {
		writeError(w, "ListMonthlies", err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// ListRecords handles GET /api/accounts/{id}/records?from=&to=.
func (s *LedgerService) ListRecords(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	q, err := rangeFromQuery(r)
	if err != nil {
		writeError(w, "ListRecords", err)
		return
	}

	v, err := s.cached("records:"+id+"?"+r.URL.RawQuery, func() (interface{}, error) {
		if _, err := s.engine.GetAccount(r.Context(), id); err != nil {
			return nil, err
		}
		list, err := s.engine.ListRecords(r.Context(), id, q)
		if err != nil {
			return nil, err
		}
		out := make([]Record, len(list))
		for i, rec := range list {
			out[i] = toRecord(rec)
		}
		return out, nil
	})
	if err != nil {
		writeError(w, "ListRecords", err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (s *LedgerService) respondAccount(w http.ResponseWriter, r *http.Request, id string) {
	account, err := s.engine.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, "GetAccount", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccount(account))
}

func rangeFromQuery(r *http.Request) (storage.RangeQuery, error) {
	from, err := queryInt64(r, "from")
	if err != nil {
		return storage.RangeQuery{}, err
	}
	to, err := queryInt64(r, "to")
	if err != nil {
		return storage.RangeQuery{}, err
	}
	return storage.RangeQuery{Start: from, End: to, IncludeStart: true, IncludeEnd: true}, nil
}
