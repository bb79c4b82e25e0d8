package service

import (
	"log/slog"
	"net/http"

	"github.com/mmynk/walletledger/internal/ledger"
	"github.com/mmynk/walletledger/internal/storage"
)

// CreateRecord handles POST /api/records[?refresh=false].
func (s *LedgerService) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req Record
	if err := decode(w, r, &req); err != nil {
		writeError(w, "CreateRecord", err)
		return
	}
	opts, err := mutationOptions(r)
	if err != nil {
		writeError(w, "CreateRecord", err)
		return
	}

	slog.Info("CreateRecord request received",
		"account_id", req.AccountID,
		"value", req.Value,
		"datetime", req.Datetime,
		"refresh", len(opts) == 0,
	)

	record := req.model("")
	record.TransferID = ""
	if err := s.engine.CreateRecord(r.Context(), record, opts...); err != nil {
		writeError(w, "CreateRecord", err)
		return
	}
	s.invalidate()

	writeJSON(w, http.StatusCreated, toRecord(record))
}

// GetRecord handles GET /api/records/{id}.
func (s *LedgerService) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	v, err := s.cached("record:"+id, func() (interface{}, error) {
		record, err := s.engine.GetRecord(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return toRecord(record), nil
	})
	if err != nil {
		writeError(w, "GetRecord", err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// UpdateRecord handles PUT /api/records/{id}[?refresh=false].
// The transfer reference of a record cannot be changed through the API.
// Transfer halves only accept changes that keep the pair opposite.
func (s *LedgerService) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req Record
	if err := decode(w, r, &req); err != nil {
		writeError(w, "UpdateRecord", err)
		return
	}
	opts, err := mutationOptions(r)
	if err != nil {
		writeError(w, "UpdateRecord", err)
		return
	}

	slog.Info("UpdateRecord request received",
		"record_id", id,
		"account_id", req.AccountID,
		"value", req.Value,
		"datetime", req.Datetime,
	)

	record := req.model(id)
	if err := s.engine.UpdateRecord(r.Context(), record, opts...); err != nil {
		writeError(w, "UpdateRecord", err)
		return
	}
	s.invalidate()

	writeJSON(w, http.StatusOK, toRecord(record))
}

// DeleteRecord handles DELETE /api/records/{id}[?refresh=false].
func (s *LedgerService) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	opts, err := mutationOptions(r)
	if err != nil {
		writeError(w, "DeleteRecord", err)
		return
	}

	slog.Info("DeleteRecord request received", "record_id", id, "refresh", len(opts) == 0)

	if err := s.engine.DeleteRecord(r.Context(), id, opts...); err != nil {
		// A repeated delete is a no-op for HTTP clients.
		if storage.IsNotFound(err) {
			slog.Debug("DeleteRecord on missing record", "record_id", id)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, "DeleteRecord", err)
		return
	}
	s.invalidate()

	w.WriteHeader(http.StatusNoContent)
}

// CreateTransfer handles POST /api/transfers.
func (s *LedgerService) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "CreateTransfer", err)
		return
	}

	slog.Info("CreateTransfer request received",
		"from", req.FromAccountID,
		"to", req.ToAccountID,
		"value", req.Value,
	)

	out, in, err := s.engine.CreateTransfer(r.Context(), ledger.Transfer{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		CategoryID:    req.CategoryID,
		LabelIDs:      req.LabelIDs,
		Value:         req.Value,
		Payee:         req.Payee,
		Description:   req.Description,
		Datetime:      req.Datetime,
	})
	if err != nil {
		writeError(w, "CreateTransfer", err)
		return
	}
	s.invalidate()

	writeJSON(w, http.StatusCreated, TransferResponse{Out: toRecord(out), In: toRecord(in)})
}
