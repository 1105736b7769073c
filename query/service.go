// Package query reads trade and metadata records out of the contract's box
// store, joins them, and provides the filtered and sorted views the
// dashboards render.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"tradeflow/codec"
	"tradeflow/crypto"
	"tradeflow/escrow"
)

// ErrStoreUnavailable is returned when the box store cannot be read. Retry
// policy belongs to the caller; the service never retries on its own.
var ErrStoreUnavailable = errors.New("query: store unavailable")

// Box is one raw record from the store.
type Box struct {
	Name  []byte
	Value []byte
}

// BoxReader supplies the raw records under a box-name prefix. The store has
// no cross-key transaction guarantee: a snapshot taken while the contract is
// writing may be slightly stale, but each record is internally consistent.
type BoxReader interface {
	ListBoxes(ctx context.Context, prefix []byte) ([]Box, error)
}

// TradeView joins a trade with its metadata record.
type TradeView struct {
	Trade    escrow.Trade
	Metadata escrow.TradeMetadata
}

// Service decodes and joins box records into typed trade views.
type Service struct {
	boxes BoxReader
	log   *slog.Logger
}

func NewService(boxes BoxReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{boxes: boxes, log: logger}
}

// ListAllTrades reads every trade and metadata record, decodes both sets and
// joins them by trade identifier. The result is all-or-nothing: an I/O
// failure surfaces as ErrStoreUnavailable and a record that fails to decode
// or lacks its metadata pair aborts the whole read. Partial lists are never
// returned.
func (s *Service) ListAllTrades(ctx context.Context) ([]TradeView, error) {
	tradeBoxes, err := s.boxes.ListBoxes(ctx, []byte(codec.PrefixTrades))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	metaBoxes, err := s.boxes.ListBoxes(ctx, []byte(codec.PrefixMetadata))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	metadata := make(map[uint64]*escrow.TradeMetadata, len(metaBoxes))
	for _, box := range metaBoxes {
		meta, err := codec.UnmarshalMetadata(box.Value)
		if err != nil {
			return nil, fmt.Errorf("metadata box %x: %w", box.Name, err)
		}
		metadata[meta.TradeID] = meta
	}

	views := make([]TradeView, 0, len(tradeBoxes))
	for _, box := range tradeBoxes {
		trade, err := codec.UnmarshalTrade(box.Value)
		if err != nil {
			return nil, fmt.Errorf("trade box %x: %w", box.Name, err)
		}
		meta, ok := metadata[trade.ID]
		if !ok {
			// Metadata is written atomically with the trade, so a
			// missing pair means the snapshot is unusable.
			return nil, fmt.Errorf("trade %d: %w: metadata record missing", trade.ID, codec.ErrCorruptRecord)
		}
		views = append(views, TradeView{Trade: *trade, Metadata: *meta})
	}
	s.log.Debug("loaded trade snapshot", "trades", len(views))
	return views, nil
}

// GetTrade returns the joined view for a single trade identifier.
func (s *Service) GetTrade(ctx context.Context, tradeID uint64) (*TradeView, bool, error) {
	views, err := s.ListAllTrades(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := range views {
		if views[i].Trade.ID == tradeID {
			return &views[i], true, nil
		}
	}
	return nil, false, nil
}

// FilterByRole narrows trades to the ones the given account cares about in
// the given capacity. Pure function over its inputs.
func FilterByRole(views []TradeView, addr crypto.Address, role escrow.Role) []TradeView {
	out := make([]TradeView, 0, len(views))
	for _, v := range views {
		switch role {
		case escrow.RoleSeller:
			if v.Trade.Seller == addr && v.Trade.State == escrow.TradeEscrowed {
				out = append(out, v)
			}
		case escrow.RoleBuyer:
			if v.Trade.Buyer == addr {
				out = append(out, v)
			}
		case escrow.RoleFinancier:
			fundable := v.Trade.State == escrow.TradeCreated && v.Trade.Buyer != addr
			funded := v.Trade.EscrowProvider == addr
			if fundable || funded {
				out = append(out, v)
			}
		case escrow.RoleSystem:
			out = append(out, v)
		}
	}
	return out
}

// FilterByState keeps trades in the given lifecycle state.
func FilterByState(views []TradeView, state escrow.TradeState) []TradeView {
	out := make([]TradeView, 0, len(views))
	for _, v := range views {
		if v.Trade.State == state {
			out = append(out, v)
		}
	}
	return out
}

// SortByRecency orders trades newest first. Trade identifiers are assigned
// monotonically, so descending id is the recency proxy. The input slice is
// not modified.
func SortByRecency(views []TradeView) []TradeView {
	out := make([]TradeView, len(views))
	copy(out, views)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Trade.ID > out[j].Trade.ID
	})
	return out
}
