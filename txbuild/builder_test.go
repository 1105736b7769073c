package txbuild

import (
	"bytes"
	"crypto/sha512"
	"errors"
	"testing"

	"tradeflow/codec"
	"tradeflow/crypto"
	"tradeflow/escrow"
)

func newTestAddress(tag byte) crypto.Address {
	var addr crypto.Address
	for i := range addr {
		addr[i] = tag
	}
	return addr
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(Params{AppID: 746_822_940, AppAddress: newTestAddress(0xEE), FeeBps: 25})
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	return b
}

func newFundableTrade() *escrow.Trade {
	return &escrow.Trade{
		ID:        7,
		Buyer:     newTestAddress(0x01),
		Seller:    newTestAddress(0x02),
		Amount:    1_000_000,
		State:     escrow.TradeCreated,
		CreatedAt: 1_000,
	}
}

func TestMethodSignatureTable(t *testing.T) {
	cases := []struct {
		role    escrow.Role
		assetID uint64
		want    string
	}{
		{escrow.RoleBuyer, 0, "escrowTrade"},
		{escrow.RoleBuyer, 31_566_704, "escrowTradeWithAsset"},
		{escrow.RoleFinancier, 0, "escrowTradeAsFinancier"},
		{escrow.RoleFinancier, 31_566_704, "escrowTradeAsFinancierWithAsset"},
	}
	for _, tc := range cases {
		sig, err := MethodSignature(tc.role, tc.assetID)
		if err != nil {
			t.Fatalf("MethodSignature(%s, %d): %v", tc.role, tc.assetID, err)
		}
		if MethodName(sig) != tc.want {
			t.Fatalf("MethodSignature(%s, %d) = %s, want method %s", tc.role, tc.assetID, sig, tc.want)
		}
	}
	if _, err := MethodSignature(escrow.RoleSeller, 0); !errors.Is(err, ErrUnsupportedRoleAsset) {
		t.Fatalf("seller role must be unsupported, got %v", err)
	}
}

func TestMethodSelector(t *testing.T) {
	sig := "escrowTrade(pay,uint64)bool"
	want := sha512.Sum512_256([]byte(sig))
	sel := MethodSelector(sig)
	if len(sel) != 4 || !bytes.Equal(sel, want[:4]) {
		t.Fatalf("selector mismatch: %x", sel)
	}
}

func TestBuildFundingNativePayment(t *testing.T) {
	b := newTestBuilder(t)
	trade := newFundableTrade()
	group, err := b.BuildFunding(trade, trade.Buyer, escrow.RoleBuyer, NativeAssetID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(group.Operations) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(group.Operations))
	}

	pay, ok := group.Operations[0].(PaymentOp)
	if !ok {
		t.Fatalf("first operation must be the payment, got %T", group.Operations[0])
	}
	if pay.Amount != 1_002_500 {
		t.Fatalf("payment must carry the fee-inclusive total, got %d", pay.Amount)
	}
	if pay.Sender != trade.Buyer || pay.Receiver != newTestAddress(0xEE) {
		t.Fatalf("payment endpoints wrong: %+v", pay)
	}

	call, ok := group.Operations[1].(AppCallOp)
	if !ok {
		t.Fatalf("second operation must be the invocation, got %T", group.Operations[1])
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected [selector, tradeID] args, got %d", len(call.Args))
	}
	if !bytes.Equal(call.Args[0], MethodSelector("escrowTrade(pay,uint64)bool")) {
		t.Fatalf("wrong method selector for buyer/native")
	}
	if !bytes.Equal(call.Args[1], codec.EncodeUint64(7)) {
		t.Fatalf("trade id arg mismatch: %x", call.Args[1])
	}
	if len(call.ForeignAssets) != 0 {
		t.Fatalf("native payment must not declare foreign assets")
	}

	wantBoxes := [][]byte{
		codec.TradeKey(7),
		codec.MetadataKey(7),
		codec.BuyerKey(trade.Buyer),
		codec.SellerKey(trade.Seller),
	}
	if len(call.Boxes) != len(wantBoxes) {
		t.Fatalf("expected %d box refs, got %d", len(wantBoxes), len(call.Boxes))
	}
	for i, want := range wantBoxes {
		if !bytes.Equal(call.Boxes[i].Name, want) {
			t.Fatalf("box ref %d = %x, want %x", i, call.Boxes[i].Name, want)
		}
		if call.Boxes[i].AppID != 746_822_940 {
			t.Fatalf("box ref %d bound to wrong app", i)
		}
	}
}

func TestBuildFundingFinancierAsset(t *testing.T) {
	b := newTestBuilder(t)
	trade := newFundableTrade()
	financier := newTestAddress(0x0F)
	const usdc = uint64(31_566_704)

	group, err := b.BuildFunding(trade, financier, escrow.RoleFinancier, usdc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	axfer, ok := group.Operations[0].(AssetTransferOp)
	if !ok {
		t.Fatalf("first operation must be an asset transfer, got %T", group.Operations[0])
	}
	if axfer.AssetID != usdc || axfer.Amount != 1_002_500 {
		t.Fatalf("unexpected transfer: %+v", axfer)
	}
	call := group.Operations[1].(AppCallOp)
	if !bytes.Equal(call.Args[0], MethodSelector("escrowTradeAsFinancierWithAsset(axfer,uint64)bool")) {
		t.Fatalf("wrong selector for financier/asset")
	}
	if len(call.ForeignAssets) != 1 || call.ForeignAssets[0] != usdc {
		t.Fatalf("asset settlement must declare the asset, got %v", call.ForeignAssets)
	}
}

func TestGroupIDBindsOperations(t *testing.T) {
	b := newTestBuilder(t)
	trade := newFundableTrade()

	first, err := b.BuildFunding(trade, trade.Buyer, escrow.RoleBuyer, NativeAssetID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	second, err := b.BuildFunding(trade, trade.Buyer, escrow.RoleBuyer, NativeAssetID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("group id must be deterministic")
	}

	other := newFundableTrade()
	other.ID = 8
	third, err := b.BuildFunding(other, other.Buyer, escrow.RoleBuyer, NativeAssetID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if third.ID == first.ID {
		t.Fatalf("different trades must not share a group id")
	}
}

func TestBuildFundingRejectsBadInput(t *testing.T) {
	b := newTestBuilder(t)

	trade := newFundableTrade()
	trade.State = escrow.TradeEscrowed
	if _, err := b.BuildFunding(trade, trade.Buyer, escrow.RoleBuyer, NativeAssetID); !errors.Is(err, escrow.ErrInvalidTrade) {
		t.Fatalf("funding a non-created trade must fail, got %v", err)
	}

	trade = newFundableTrade()
	trade.State = escrow.TradeCompleted
	if _, err := b.BuildFunding(trade, trade.Buyer, escrow.RoleBuyer, NativeAssetID); !errors.Is(err, escrow.ErrInvalidTrade) {
		t.Fatalf("funding a terminal trade must fail, got %v", err)
	}

	trade = newFundableTrade()
	trade.Amount = 0
	if _, err := b.BuildFunding(trade, trade.Buyer, escrow.RoleBuyer, NativeAssetID); !errors.Is(err, escrow.ErrInvalidTrade) {
		t.Fatalf("zero amount must fail, got %v", err)
	}

	trade = newFundableTrade()
	if _, err := b.BuildFunding(trade, trade.Seller, escrow.RoleSeller, NativeAssetID); !errors.Is(err, ErrUnsupportedRoleAsset) {
		t.Fatalf("seller role must be unsupported, got %v", err)
	}
}

func TestEncodeUnsignedIsDeterministic(t *testing.T) {
	op := PaymentOp{Sender: newTestAddress(1), Receiver: newTestAddress(2), Amount: 5}
	first, err := op.EncodeUnsigned()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	second, err := op.EncodeUnsigned()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("unsigned encoding must be deterministic")
	}
}
