package txbuild

import (
	"crypto/sha512"
	"errors"
	"fmt"

	"tradeflow/codec"
	"tradeflow/crypto"
	"tradeflow/currency"
	"tradeflow/escrow"
)

var (
	// ErrUnsupportedRoleAsset is returned when the acting role and
	// settlement asset type have no method in the contract's table.
	ErrUnsupportedRoleAsset = errors.New("txbuild: unsupported role/asset combination")
	errNilBuilder           = errors.New("txbuild: builder not configured")
)

// NativeAssetID marks settlement in the network's native currency.
const NativeAssetID uint64 = 0

// Method signatures published by the escrow contract. The selector is the
// first four bytes of the SHA-512/256 digest of the signature; the contract
// dispatches on the same bytes, so the strings must match it exactly.
const (
	sigEscrowTrade              = "escrowTrade(pay,uint64)bool"
	sigEscrowTradeWithAsset     = "escrowTradeWithAsset(axfer,uint64)bool"
	sigEscrowFinancier          = "escrowTradeAsFinancier(pay,uint64)bool"
	sigEscrowFinancierWithAsset = "escrowTradeAsFinancierWithAsset(axfer,uint64)bool"
)

// MethodSignature resolves the contract method for the role and settlement
// asset combination.
func MethodSignature(role escrow.Role, assetID uint64) (string, error) {
	native := assetID == NativeAssetID
	switch role {
	case escrow.RoleBuyer:
		if native {
			return sigEscrowTrade, nil
		}
		return sigEscrowTradeWithAsset, nil
	case escrow.RoleFinancier:
		if native {
			return sigEscrowFinancier, nil
		}
		return sigEscrowFinancierWithAsset, nil
	default:
		return "", fmt.Errorf("%w: role %s", ErrUnsupportedRoleAsset, role)
	}
}

// MethodName returns just the method identifier of a signature.
func MethodName(signature string) string {
	for i := 0; i < len(signature); i++ {
		if signature[i] == '(' {
			return signature[:i]
		}
	}
	return signature
}

// MethodSelector computes the 4-byte dispatch selector of a method
// signature.
func MethodSelector(signature string) []byte {
	digest := sha512.Sum512_256([]byte(signature))
	return digest[:4]
}

// Params configures a Builder. Values arrive from configuration rather than
// package globals so tests can supply deterministic fixtures.
type Params struct {
	// AppID is the escrow contract's application identifier.
	AppID uint64
	// AppAddress is the contract's escrow account, the receiver of every
	// funding transfer.
	AppAddress crypto.Address
	// FeeBps is the marketplace fee in basis points, charged on top of
	// the trade amount.
	FeeBps uint32
}

// Builder assembles funding operation groups for escrow trades.
type Builder struct {
	params Params
}

// NewBuilder validates the parameters and returns a Builder.
func NewBuilder(p Params) (*Builder, error) {
	if p.AppID == 0 {
		return nil, fmt.Errorf("txbuild: app id must be set")
	}
	if p.AppAddress.IsZero() {
		return nil, fmt.Errorf("txbuild: app address must be set")
	}
	if p.FeeBps > currency.MaxFeeBps {
		return nil, fmt.Errorf("%w: %d bps", currency.ErrInvalidRate, p.FeeBps)
	}
	return &Builder{params: p}, nil
}

// BuildFunding produces the ordered [transfer, invocation] pair that moves a
// CREATED trade to ESCROWED. The transfer carries the fee-inclusive total;
// the invocation declares every record the contract touches and encodes
// [selector, tradeID] as its arguments. Both operations are bound under one
// group identifier and must be submitted together, in order.
func (b *Builder) BuildFunding(trade *escrow.Trade, actor crypto.Address, role escrow.Role, assetID uint64) (*Group, error) {
	if b == nil {
		return nil, errNilBuilder
	}
	sanitized, err := escrow.SanitizeTrade(trade)
	if err != nil {
		return nil, err
	}
	if sanitized.State != escrow.TradeCreated {
		return nil, fmt.Errorf("%w: trade %d is %s, funding requires %s",
			escrow.ErrInvalidTrade, sanitized.ID,
			escrow.Describe(sanitized.State).Label, escrow.Describe(escrow.TradeCreated).Label)
	}
	if actor.IsZero() {
		return nil, fmt.Errorf("%w: missing actor", escrow.ErrInvalidTrade)
	}
	signature, err := MethodSignature(role, assetID)
	if err != nil {
		return nil, err
	}
	total, err := currency.ComputeTotal(sanitized.Amount, b.params.FeeBps)
	if err != nil {
		return nil, err
	}

	var transfer Operation
	if assetID == NativeAssetID {
		transfer = PaymentOp{Sender: actor, Receiver: b.params.AppAddress, Amount: total}
	} else {
		transfer = AssetTransferOp{Sender: actor, Receiver: b.params.AppAddress, AssetID: assetID, Amount: total}
	}

	call := AppCallOp{
		Sender: actor,
		AppID:  b.params.AppID,
		Args:   [][]byte{MethodSelector(signature), codec.EncodeUint64(sanitized.ID)},
		Boxes: []BoxRef{
			{AppID: b.params.AppID, Name: codec.TradeKey(sanitized.ID)},
			{AppID: b.params.AppID, Name: codec.MetadataKey(sanitized.ID)},
			{AppID: b.params.AppID, Name: codec.BuyerKey(sanitized.Buyer)},
			{AppID: b.params.AppID, Name: codec.SellerKey(sanitized.Seller)},
		},
	}
	if assetID != NativeAssetID {
		call.ForeignAssets = []uint64{assetID}
	}

	ops := []Operation{transfer, call}
	id, err := computeGroupID(ops)
	if err != nil {
		return nil, err
	}
	return &Group{Operations: ops, ID: id}, nil
}
