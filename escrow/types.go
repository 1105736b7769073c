package escrow

import (
	"errors"
	"fmt"
	"strings"

	"tradeflow/crypto"
)

var (
	// ErrInvalidTrade is returned when a trade fails basic sanity checks.
	ErrInvalidTrade = errors.New("escrow: invalid trade")
	// ErrIllegalTransition is returned when a lifecycle transition falls
	// outside the transition table. The contract enforces the same table
	// on-chain; this is the client-side mirror used to decide which
	// operation to build.
	ErrIllegalTransition = errors.New("escrow: illegal state transition")
)

// TradeState represents the lifecycle phases of an escrowed trade. The
// numeric values are stored in the contract's trade records and must not be
// reordered.
type TradeState uint8

const (
	TradeCreated TradeState = iota
	TradeEscrowed
	TradeExecuted
	TradePaymentAcked
	TradeExpired
	TradeCompleted
)

// Valid reports whether the state value is supported.
func (s TradeState) Valid() bool {
	switch s {
	case TradeCreated, TradeEscrowed, TradeExecuted, TradePaymentAcked, TradeExpired, TradeCompleted:
		return true
	default:
		return false
	}
}

// Terminal reports whether the state admits no further transitions.
func (s TradeState) Terminal() bool {
	return s == TradeExpired || s == TradeCompleted
}

// Role identifies the capacity in which an account acts on a trade.
type Role uint8

const (
	RoleBuyer Role = iota
	RoleSeller
	RoleFinancier
	RoleSystem
)

// ParseRole maps the wire form of a role to its typed value.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buyer":
		return RoleBuyer, nil
	case "seller":
		return RoleSeller, nil
	case "financier":
		return RoleFinancier, nil
	case "system":
		return RoleSystem, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleBuyer:
		return "buyer"
	case RoleSeller:
		return "seller"
	case RoleFinancier:
		return "financier"
	case RoleSystem:
		return "system"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Trade encapsulates the immutable terms and runtime state of one escrow
// agreement between a buyer and a seller. The escrow provider stays the zero
// sentinel until someone funds the trade.
type Trade struct {
	ID             uint64
	Buyer          crypto.Address
	Seller         crypto.Address
	EscrowProvider crypto.Address
	Amount         uint64
	State          TradeState
	CreatedAt      int64
}

// Clone returns a copy of the trade so callers can mutate the result without
// affecting the stored instance.
func (t *Trade) Clone() *Trade {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// Funded reports whether an escrow provider has funded the trade.
func (t *Trade) Funded() bool {
	return t != nil && !t.EscrowProvider.IsZero()
}

// SanitizeTrade validates the supplied trade definition and returns a cloned
// instance. The function does not mutate the original value.
func SanitizeTrade(t *Trade) (*Trade, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil trade", ErrInvalidTrade)
	}
	clone := t.Clone()
	if clone.Buyer.IsZero() {
		return nil, fmt.Errorf("%w: missing buyer", ErrInvalidTrade)
	}
	if clone.Seller.IsZero() {
		return nil, fmt.Errorf("%w: missing seller", ErrInvalidTrade)
	}
	if clone.Buyer == clone.Seller {
		return nil, fmt.Errorf("%w: buyer and seller are the same account", ErrInvalidTrade)
	}
	if clone.Amount == 0 {
		return nil, fmt.Errorf("%w: zero amount", ErrInvalidTrade)
	}
	if !clone.State.Valid() {
		return nil, fmt.Errorf("%w: invalid state %d", ErrInvalidTrade, clone.State)
	}
	return clone, nil
}

// TradeMetadata is the descriptive payload written atomically with a trade
// and immutable afterwards.
type TradeMetadata struct {
	TradeID     uint64
	ProductType string
	Description string
	// DocumentRef is the content-addressed reference of the shipping
	// document attached at creation.
	DocumentRef string
}

// AccountAsset is a read-only projection of one balance held by an external
// account. It is consumed as input and never mutated here.
type AccountAsset struct {
	AssetID uint64
	Balance uint64
	Frozen  bool
}
