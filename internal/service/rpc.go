package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/walletledger/internal/ledger"
	"github.com/mmynk/walletledger/internal/storage"
)

// BalanceServiceName is the fully-qualified name of the balance maintenance service.
const BalanceServiceName = "walletledger.v1.BalanceService"

// Procedure paths of BalanceService.
const (
	BalanceServiceRefreshBalanceProcedure       = "/" + BalanceServiceName + "/RefreshBalance"
	BalanceServiceRecomputeMonthliesProcedure   = "/" + BalanceServiceName + "/RecomputeMonthlies"
	BalanceServiceExtendAnchorBackwardProcedure = "/" + BalanceServiceName + "/ExtendAnchorBackward"
	BalanceServiceRefreshAccountProcedure       = "/" + BalanceServiceName + "/RefreshAccount"
	BalanceServiceRefreshDebtBalanceProcedure   = "/" + BalanceServiceName + "/RefreshDebtBalance"
)

// JSONCodec marshals plain Go structs as JSON. It replaces connect's
// protobuf-based "json" codec so the procedures need no generated messages.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// AccountRequest names the account a procedure works on.
type AccountRequest struct {
	AccountID string `json:"account_id"`
}

// BalanceResponse carries a freshly computed account balance.
type BalanceResponse struct {
	AccountID      string  `json:"account_id"`
	Balance        float64 `json:"balance"`
	BalanceDisplay string  `json:"balance_display"`
}

// RecomputeMonthliesRequest recomputes checkpoints after a change at ChangedAt.
type RecomputeMonthliesRequest struct {
	AccountID string `json:"account_id"`
	ChangedAt int64  `json:"changed_at"`
}

// RecomputeMonthliesResponse lists the checkpoints from the recomputed month on.
type RecomputeMonthliesResponse struct {
	Monthlies []Monthly `json:"monthlies"`
}

// DebtIDRequest names the debt a procedure works on.
type DebtIDRequest struct {
	DebtID string `json:"debt_id"`
}

// NewBalanceServiceHandler builds an HTTP handler serving the BalanceService
// procedures of s. It returns the path to mount the handler on.
func NewBalanceServiceHandler(s *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(BalanceServiceRefreshBalanceProcedure,
		connect.NewUnaryHandler(BalanceServiceRefreshBalanceProcedure, s.RefreshBalance, opts...))
	mux.Handle(BalanceServiceRecomputeMonthliesProcedure,
		connect.NewUnaryHandler(BalanceServiceRecomputeMonthliesProcedure, s.RecomputeMonthlies, opts...))
	mux.Handle(BalanceServiceExtendAnchorBackwardProcedure,
		connect.NewUnaryHandler(BalanceServiceExtendAnchorBackwardProcedure, s.ExtendAnchorBackward, opts...))
	mux.Handle(BalanceServiceRefreshAccountProcedure,
		connect.NewUnaryHandler(BalanceServiceRefreshAccountProcedure, s.RefreshAccountRPC, opts...))
	mux.Handle(BalanceServiceRefreshDebtBalanceProcedure,
		connect.NewUnaryHandler(BalanceServiceRefreshDebtBalanceProcedure, s.RefreshDebtBalance, opts...))

	return "/" + BalanceServiceName + "/", mux
}

// BalanceServiceClient calls the BalanceService procedures.
type BalanceServiceClient struct {
	refreshBalance       *connect.Client[AccountRequest, BalanceResponse]
	recomputeMonthlies   *connect.Client[RecomputeMonthliesRequest, RecomputeMonthliesResponse]
	extendAnchorBackward *connect.Client[AccountRequest, Account]
	refreshAccount       *connect.Client[AccountRequest, Account]
	refreshDebtBalance   *connect.Client[DebtIDRequest, Debt]
}

// NewBalanceServiceClient creates a client for the BalanceService at baseURL.
func NewBalanceServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *BalanceServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)

	return &BalanceServiceClient{
		refreshBalance: connect.NewClient[AccountRequest, BalanceResponse](
			httpClient, baseURL+BalanceServiceRefreshBalanceProcedure, opts...),
		recomputeMonthlies: connect.NewClient[RecomputeMonthliesRequest, RecomputeMonthliesResponse](
			httpClient, baseURL+BalanceServiceRecomputeMonthliesProcedure, opts...),
		extendAnchorBackward: connect.NewClient[AccountRequest, Account](
			httpClient, baseURL+BalanceServiceExtendAnchorBackwardProcedure, opts...),
		refreshAccount: connect.NewClient[AccountRequest, Account](
			httpClient, baseURL+BalanceServiceRefreshAccountProcedure, opts...),
		refreshDebtBalance: connect.NewClient[DebtIDRequest, Debt](
			httpClient, baseURL+BalanceServiceRefreshDebtBalanceProcedure, opts...),
	}
}

// RefreshBalance calls walletledger.v1.BalanceService.RefreshBalance.
func (c *BalanceServiceClient) RefreshBalance(ctx context.Context, req *connect.Request[AccountRequest]) (*connect.Response[BalanceResponse], error) {
	return c.refreshBalance.CallUnary(ctx, req)
}

// RecomputeMonthlies calls walletledger.v1.BalanceService.RecomputeMonthlies.
func (c *BalanceServiceClient) RecomputeMonthlies(ctx context.Context, req *connect.Request[RecomputeMonthliesRequest]) (*connect.Response[RecomputeMonthliesResponse], error) {
	return c.recomputeMonthlies.CallUnary(ctx, req)
}

// ExtendAnchorBackward calls walletledger.v1.BalanceService.ExtendAnchorBackward.
func (c *BalanceServiceClient) ExtendAnchorBackward(ctx context.Context, req *connect.Request[AccountRequest]) (*connect.Response[Account], error) {
	return c.extendAnchorBackward.CallUnary(ctx, req)
}

// RefreshAccount calls walletledger.v1.BalanceService.RefreshAccount.
func (c *BalanceServiceClient) RefreshAccount(ctx context.Context, req *connect.Request[AccountRequest]) (*connect.Response[Account], error) {
	return c.refreshAccount.CallUnary(ctx, req)
}

// RefreshDebtBalance calls walletledger.v1.BalanceService.RefreshDebtBalance.
func (c *BalanceServiceClient) RefreshDebtBalance(ctx context.Context, req *connect.Request[DebtIDRequest]) (*connect.Response[Debt], error) {
	return c.refreshDebtBalance.CallUnary(ctx, req)
}

// connectError maps engine and storage errors to connect codes.
func connectError(op string, err error) error {
	code := connect.CodeInternal
	switch {
	case storage.IsNotFound(err):
		code = connect.CodeNotFound
	case ledger.IsInvalid(err):
		code = connect.CodeInvalidArgument
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	}

	if code == connect.CodeInternal {
		slog.Error(op+" failed", "error", err)
	}
	return connect.NewError(code, err)
}

func requireID(name, id string) error {
	if strings.TrimSpace(id) == "" {
		return connect.NewError(connect.CodeInvalidArgument, errors.New(name+" is required"))
	}
	return nil
}

// RefreshBalance recomputes the cached balance of an account.
func (s *LedgerService) RefreshBalance(ctx context.Context, req *connect.Request[AccountRequest]) (*connect.Response[BalanceResponse], error) {
	slog.Info("RefreshBalance request received", "account_id", req.Msg.AccountID)
	if err := requireID("account_id", req.Msg.AccountID); err != nil {
		return nil, err
	}

	balance, err := s.engine.RefreshBalance(ctx, req.Msg.AccountID)
	if err != nil {
		return nil, connectError("RefreshBalance", err)
	}
	s.invalidate()

	account, err := s.engine.GetAccount(ctx, req.Msg.AccountID)
	if err != nil {
		return nil, connectError("RefreshBalance", err)
	}

	slog.Info("RefreshBalance successful", "account_id", account.ID, "balance", balance)

	return connect.NewResponse(&BalanceResponse{
		AccountID:      account.ID,
		Balance:        balance,
		BalanceDisplay: toAccount(account).BalanceDisplay,
	}), nil
}

// RecomputeMonthlies rewrites the checkpoints of an account from the month of
// ChangedAt and returns them.
func (s *LedgerService) RecomputeMonthlies(ctx context.Context, req *connect.Request[RecomputeMonthliesRequest]) (*connect.Response[RecomputeMonthliesResponse], error) {
	slog.Info("RecomputeMonthlies request received",
		"account_id", req.Msg.AccountID,
		"changed_at", req.Msg.ChangedAt,
	)
	if err := requireID("account_id", req.Msg.AccountID); err != nil {
		return nil, err
	}

	if err := s.engine.RecomputeMonthliesFrom(ctx, req.Msg.AccountID, req.Msg.ChangedAt); err != nil {
		return nil, connectError("RecomputeMonthlies", err)
	}
	s.invalidate()

	from := ledger.MonthStart(req.Msg.ChangedAt)
	list, err := s.engine.ListMonthlies(ctx, req.Msg.AccountID, storage.RangeQuery{Start: &from, IncludeStart: true})
	if err != nil {
		return nil, connectError("RecomputeMonthlies", err)
	}

	out := make([]Monthly, len(list))
	for i, m := range list {
		out[i] = Monthly{Datetime: m.Datetime, Balance: m.Balance}
	}
	return connect.NewResponse(&RecomputeMonthliesResponse{Monthlies: out}), nil
}

// ExtendAnchorBackward folds records dated before the anchor into it.
func (s *LedgerService) ExtendAnchorBackward(ctx context.Context, req *connect.Request[AccountRequest]) (*connect.Response[Account], error) {
	slog.Info("ExtendAnchorBackward request received", "account_id", req.Msg.AccountID)
	if err := requireID("account_id", req.Msg.AccountID); err != nil {
		return nil, err
	}

	if err := s.engine.ExtendAnchorBackward(ctx, req.Msg.AccountID); err != nil {
		return nil, connectError("ExtendAnchorBackward", err)
	}
	s.invalidate()

	account, err := s.engine.GetAccount(ctx, req.Msg.AccountID)
	if err != nil {
		return nil, connectError("ExtendAnchorBackward", err)
	}
	resp := toAccount(account)
	return connect.NewResponse(&resp), nil
}

// RefreshAccountRPC runs the full account refresh.
func (s *LedgerService) RefreshAccountRPC(ctx context.Context, req *connect.Request[AccountRequest]) (*connect.Response[Account], error) {
	slog.Info("RefreshAccount request received", "account_id", req.Msg.AccountID)
	if err := requireID("account_id", req.Msg.AccountID); err != nil {
		return nil, err
	}

	if _, err := s.engine.RefreshAccount(ctx, req.Msg.AccountID); err != nil {
		return nil, connectError("RefreshAccount", err)
	}
	s.invalidate()

	account, err := s.engine.GetAccount(ctx, req.Msg.AccountID)
	if err != nil {
		return nil, connectError("RefreshAccount", err)
	}
	resp := toAccount(account)
	return connect.NewResponse(&resp), nil
}

// RefreshDebtBalance recomputes a debt balance from its records.
func (s *LedgerService) RefreshDebtBalance(ctx context.Context, req *connect.Request[DebtIDRequest]) (*connect.Response[Debt], error) {
	slog.Info("RefreshDebtBalance request received", "debt_id", req.Msg.DebtID)
	if err := requireID("debt_id", req.Msg.DebtID); err != nil {
		return nil, err
	}

	if err := s.engine.RefreshDebtBalance(ctx, req.Msg.DebtID); err != nil {
		return nil, connectError("RefreshDebtBalance", err)
	}
	s.invalidate()

	debt, err := s.engine.GetDebt(ctx, req.Msg.DebtID)
	if err != nil {
		return nil, connectError("RefreshDebtBalance", err)
	}
	resp := toDebt(debt)
	return connect.NewResponse(&resp), nil
}
