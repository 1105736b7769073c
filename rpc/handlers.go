package rpc

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tradeflow/codec"
	"tradeflow/crypto"
	"tradeflow/currency"
	"tradeflow/escrow"
	"tradeflow/observability"
	"tradeflow/query"
	"tradeflow/txbuild"
)

type tradeResponse struct {
	TradeID        uint64 `json:"tradeId"`
	Buyer          string `json:"buyer"`
	Seller         string `json:"seller"`
	EscrowProvider string `json:"escrowProvider,omitempty"`
	Amount         uint64 `json:"amount"`
	AmountUsd      string `json:"amountUsd"`
	Fee            uint64 `json:"fee"`
	Total          uint64 `json:"total"`
	State          uint8  `json:"state"`
	StateLabel     string `json:"stateLabel"`
	StateCategory  string `json:"stateCategory"`
	CreatedAt      int64  `json:"createdAt"`
	ProductType    string `json:"productType"`
	Description    string `json:"description"`
	DocumentRef    string `json:"documentRef"`
}

type operationResponse struct {
	Kind string `json:"kind"`
	// Data is the base64 canonical unsigned encoding handed to the
	// wallet provider.
	Data string `json:"data"`
}

type fundingRequest struct {
	Actor   string `json:"actor"`
	Role    string `json:"role"`
	AssetID uint64 `json:"assetId"`
}

type fundingResponse struct {
	TradeID    uint64              `json:"tradeId"`
	Method     string              `json:"method"`
	GroupID    string              `json:"groupId"`
	Operations []operationResponse `json:"operations"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) tradeToResponse(v query.TradeView) tradeResponse {
	fee, total := uint64(0), v.Trade.Amount
	if f, err := currency.ComputeFee(v.Trade.Amount, s.cfg.FeeBps); err == nil {
		fee = f
		total = v.Trade.Amount + f
	}
	resp := tradeResponse{
		TradeID:       v.Trade.ID,
		Buyer:         v.Trade.Buyer.String(),
		Seller:        v.Trade.Seller.String(),
		Amount:        v.Trade.Amount,
		AmountUsd:     s.conv.MicroUnitToUsd(v.Trade.Amount).StringFixed(2),
		Fee:           fee,
		Total:         total,
		State:         uint8(v.Trade.State),
		StateLabel:    escrow.Describe(v.Trade.State).Label,
		StateCategory: escrow.Describe(v.Trade.State).Category,
		CreatedAt:     v.Trade.CreatedAt,
		ProductType:   v.Metadata.ProductType,
		Description:   v.Metadata.Description,
		DocumentRef:   v.Metadata.DocumentRef,
	}
	if !v.Trade.EscrowProvider.IsZero() {
		resp.EscrowProvider = v.Trade.EscrowProvider.String()
	}
	return resp
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	metrics := observability.Escrow()
	started := time.Now()
	views, err := s.svc.ListAllTrades(r.Context())
	metrics.QueryLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.QueryRequests.WithLabelValues("error").Inc()
		s.writeQueryError(w, err)
		return
	}
	metrics.QueryRequests.WithLabelValues("ok").Inc()
	metrics.TradesListed.Set(float64(len(views)))

	q := r.URL.Query()
	if roleStr := q.Get("role"); roleStr != "" {
		role, err := escrow.ParseRole(roleStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		addr, err := crypto.DecodeAddress(q.Get("address"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		views = query.FilterByRole(views, addr, role)
	}
	if stateStr := q.Get("state"); stateStr != "" {
		stateVal, err := strconv.ParseUint(stateStr, 10, 8)
		if err != nil || !escrow.TradeState(stateVal).Valid() {
			writeError(w, http.StatusBadRequest, errors.New("unknown trade state"))
			return
		}
		views = query.FilterByState(views, escrow.TradeState(stateVal))
	}
	views = query.SortByRecency(views)

	out := make([]tradeResponse, 0, len(views))
	for _, v := range views {
		out = append(out, s.tradeToResponse(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	tradeID, err := strconv.ParseUint(chi.URLParam(r, "tradeID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid trade id"))
		return
	}
	view, ok, err := s.svc.GetTrade(r.Context(), tradeID)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("trade not found"))
		return
	}
	writeJSON(w, http.StatusOK, s.tradeToResponse(*view))
}

func (s *Server) handleBuildFunding(w http.ResponseWriter, r *http.Request) {
	metrics := observability.Escrow()
	tradeID, err := strconv.ParseUint(chi.URLParam(r, "tradeID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid trade id"))
		return
	}
	var req fundingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
		return
	}
	actor, err := crypto.DecodeAddress(req.Actor)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	role, err := escrow.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, ok, err := s.svc.GetTrade(r.Context(), tradeID)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("trade not found"))
		return
	}
	trade := view.Trade

	if !s.states.CanTransition(&trade, escrow.TradeEscrowed, actor, role, s.nowFn()) {
		metrics.BuildRequests.WithLabelValues(req.Role, "illegal").Inc()
		writeError(w, http.StatusConflict, escrow.ErrIllegalTransition)
		return
	}

	signature, err := txbuild.MethodSignature(role, req.AssetID)
	if err != nil {
		metrics.BuildRequests.WithLabelValues(req.Role, "unsupported").Inc()
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	group, err := s.builder.BuildFunding(&trade, actor, role, req.AssetID)
	if err != nil {
		metrics.BuildRequests.WithLabelValues(req.Role, "error").Inc()
		s.writeBuildError(w, err)
		return
	}
	metrics.BuildRequests.WithLabelValues(req.Role, "ok").Inc()

	resp := fundingResponse{
		TradeID: tradeID,
		Method:  txbuild.MethodName(signature),
		GroupID: hex.EncodeToString(group.ID[:]),
	}
	for _, op := range group.Operations {
		raw, err := op.EncodeUnsigned()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.Operations = append(resp.Operations, operationResponse{
			Kind: op.Kind(),
			Data: base64.StdEncoding.EncodeToString(raw),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, query.ErrStoreUnavailable):
		s.log.Error("box store read failed", "error", err)
		writeError(w, http.StatusBadGateway, query.ErrStoreUnavailable)
	case errors.Is(err, codec.ErrCorruptRecord):
		s.log.Error("box snapshot undecodable", "error", err)
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeBuildError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, txbuild.ErrUnsupportedRoleAsset):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, escrow.ErrInvalidTrade):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
