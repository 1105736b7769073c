package escrow

import (
	"fmt"

	"tradeflow/crypto"
)

// StateInfo is the presentation description of a lifecycle state.
type StateInfo struct {
	Label    string
	Category string
}

var stateInfos = map[TradeState]StateInfo{
	TradeCreated:      {Label: "CREATED - Awaiting Funding", Category: "open"},
	TradeEscrowed:     {Label: "ESCROWED - Funded", Category: "active"},
	TradeExecuted:     {Label: "EXECUTED", Category: "active"},
	TradePaymentAcked: {Label: "PAYMENT ACKNOWLEDGED", Category: "active"},
	TradeExpired:      {Label: "EXPIRED", Category: "terminal"},
	TradeCompleted:    {Label: "COMPLETED", Category: "terminal"},
}

// Describe returns the display label and category for a state. Unknown
// values get an explicit UNKNOWN label rather than an error so render paths
// stay total.
func Describe(s TradeState) StateInfo {
	if info, ok := stateInfos[s]; ok {
		return info
	}
	return StateInfo{Label: fmt.Sprintf("UNKNOWN (%d)", s), Category: "unknown"}
}

// StateMachine evaluates the legality of trade lifecycle transitions. It
// mirrors the transition table the escrow contract enforces on-chain; a
// mismatch here means the contract rejects the resulting transaction, so the
// guards must stay exact.
type StateMachine struct {
	validityWindowSecs int64
}

// NewStateMachine constructs a state machine with the given funding validity
// window. A trade still unfunded once the window elapses becomes eligible
// for expiry.
func NewStateMachine(validityWindowSecs int64) *StateMachine {
	if validityWindowSecs <= 0 {
		validityWindowSecs = DefaultValidityWindowSecs
	}
	return &StateMachine{validityWindowSecs: validityWindowSecs}
}

// DefaultValidityWindowSecs is the funding window applied when none is
// configured: seven days.
const DefaultValidityWindowSecs int64 = 7 * 24 * 60 * 60

// CanTransition reports whether actor, acting in the given role, may move
// the trade to the target state at time now. It is a pure predicate and
// never mutates the trade.
func (m *StateMachine) CanTransition(t *Trade, target TradeState, actor crypto.Address, role Role, now int64) bool {
	if m == nil || t == nil || !t.State.Valid() || !target.Valid() {
		return false
	}
	if t.State.Terminal() {
		return false
	}
	switch {
	case t.State == TradeCreated && target == TradeEscrowed:
		if t.Funded() {
			return false
		}
		switch role {
		case RoleBuyer:
			return actor == t.Buyer
		case RoleFinancier:
			// Any financier may fund, except the seller paying themselves.
			return !actor.IsZero() && actor != t.Seller
		default:
			return false
		}
	case t.State == TradeCreated && target == TradeExpired:
		return now >= t.CreatedAt+m.validityWindowSecs
	case t.State == TradeEscrowed && target == TradeExecuted:
		return role == RoleSeller && actor == t.Seller
	case t.State == TradeExecuted && target == TradePaymentAcked:
		return role == RoleBuyer && actor == t.Buyer
	case t.State == TradePaymentAcked && target == TradeCompleted:
		return role == RoleSystem
	default:
		return false
	}
}

// Transition applies a legal transition and returns the updated clone,
// leaving the input untouched. Callers use this to mirror a confirmed
// on-chain transition; the authoritative record remains the contract's.
func (m *StateMachine) Transition(t *Trade, target TradeState, actor crypto.Address, role Role, now int64) (*Trade, error) {
	sanitized, err := SanitizeTrade(t)
	if err != nil {
		return nil, err
	}
	if !m.CanTransition(sanitized, target, actor, role, now) {
		return nil, fmt.Errorf("%w: %s -> %s as %s", ErrIllegalTransition,
			Describe(sanitized.State).Label, Describe(target).Label, role)
	}
	sanitized.State = target
	if target == TradeEscrowed {
		sanitized.EscrowProvider = actor
	}
	return sanitized, nil
}

// NextStates lists the states the given actor could legally move the trade
// to right now. Used to render action affordances.
func (m *StateMachine) NextStates(t *Trade, actor crypto.Address, role Role, now int64) []TradeState {
	var out []TradeState
	for _, target := range []TradeState{TradeEscrowed, TradeExecuted, TradePaymentAcked, TradeExpired, TradeCompleted} {
		if m.CanTransition(t, target, actor, role, now) {
			out = append(out, target)
		}
	}
	return out
}
