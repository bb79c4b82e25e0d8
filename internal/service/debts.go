package service

import (
	"log/slog"
	"net/http"

	"github.com/mmynk/walletledger/internal/models"
)

// CreateDebt handles POST /api/debts.
func (s *LedgerService) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req DebtRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "CreateDebt", err)
		return
	}

	slog.Info("CreateDebt request received", "wallet_id", req.WalletID, "payee", req.Payee)

	debt := &models.Debt{
		WalletID:    req.WalletID,
		Payee:       req.Payee,
		Description: req.Description,
		Balance:     req.Balance,
	}
	if err := s.engine.CreateDebt(r.Context(), debt); err != nil {
		writeError(w, "CreateDebt", err)
		return
	}
	s.invalidate()

	writeJSON(w, http.StatusCreated, toDebt(debt))
}

// GetDebt handles GET /api/debts/{id}.
func (s *LedgerService) GetDebt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	v, err := s.cached("debt:"+id, func() (interface{}, error) {
		debt, err := s.engine.GetDebt(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return toDebt(debt), nil
	})
	if err != nil {
		writeError(w, "GetDebt", err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// ListDebts handles GET /api/wallets/{id}/debts.
func (s *LedgerService) ListDebts(w http.ResponseWriter, r *http.Request) {
	walletID := r.PathValue("id")

	v, err := s.cached("debts:"+walletID, func() (interface{}, error) {
		debts, err := s.engine.ListDebts(r.Context(), walletID)
		if err != nil {
			return nil, err
		}
		out := make([]Debt, len(debts))
		for i, d := range debts {
			out[i] = toDebt(d)
		}
		return out, nil
	})
	if err != nil {
		writeError(w, "ListDebts", err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// UpdateDebt handles PUT /api/debts/{id}. Only payee and description change.
func (s *LedgerService) UpdateDebt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req DebtRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "UpdateDebt", err)
		return
	}

	slog.Info("UpdateDebt request received", "debt_id", id, "payee", req.Payee)

	if err := s.engine.UpdateDebt(r.Context(), &models.Debt{
		ID:          id,
		Payee:       req.Payee,
		Description: req.Description,
	}); err != nil {
		writeError(w, "UpdateDebt", err)
		return
	}
	s.invalidate()

	debt, err := s.engine.GetDebt(r.Context(), id)
	if err != nil {
		writeError(w, "UpdateDebt", err)
		return
	}
	writeJSON(w, http.StatusOK, toDebt(debt))
}

// DeleteDebt handles DELETE /api/debts/{id}.
func (s *LedgerService) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Info("DeleteDebt request received", "debt_id", id)

	if err := s.engine.DeleteDebt(r.Context(), id); err != nil {
		writeError(w, "DeleteDebt", err)
		return
	}
	s.invalidate()

	w.WriteHeader(http.StatusNoContent)
}
