// Package txbuild assembles the unsigned, atomically-grouped operation sets
// for escrow lifecycle transitions. Assembly is pure: signing and network
// submission belong to external collaborators, which must submit the
// operations of one group together and in the emitted order.
package txbuild

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"tradeflow/crypto"
)

const (
	opKindPayment       = "pay"
	opKindAssetTransfer = "axfer"
	opKindAppCall       = "appl"
)

// Operation is one unsigned entry of a transaction group.
type Operation interface {
	// Kind returns the wire discriminator of the operation.
	Kind() string
	// EncodeUnsigned renders the canonical unsigned byte form handed to
	// the signing provider. The group identifier is derived from these
	// bytes, so the encoding must be deterministic.
	EncodeUnsigned() ([]byte, error)
}

// PaymentOp transfers native currency micro-units.
type PaymentOp struct {
	Sender   crypto.Address
	Receiver crypto.Address
	Amount   uint64
}

func (op PaymentOp) Kind() string { return opKindPayment }

func (op PaymentOp) EncodeUnsigned() ([]byte, error) {
	return rlp.EncodeToBytes(struct {
		Kind     string
		Sender   crypto.Address
		Receiver crypto.Address
		Amount   uint64
	}{opKindPayment, op.Sender, op.Receiver, op.Amount})
}

// AssetTransferOp transfers units of a fungible asset.
type AssetTransferOp struct {
	Sender   crypto.Address
	Receiver crypto.Address
	AssetID  uint64
	Amount   uint64
}

func (op AssetTransferOp) Kind() string { return opKindAssetTransfer }

func (op AssetTransferOp) EncodeUnsigned() ([]byte, error) {
	return rlp.EncodeToBytes(struct {
		Kind     string
		Sender   crypto.Address
		Receiver crypto.Address
		AssetID  uint64
		Amount   uint64
	}{opKindAssetTransfer, op.Sender, op.Receiver, op.AssetID, op.Amount})
}

// BoxRef declares a contract record the invocation will touch. The contract
// rejects invocations whose declarations miss a referenced record.
type BoxRef struct {
	AppID uint64
	Name  []byte
}

// AppCallOp invokes a contract method.
type AppCallOp struct {
	Sender        crypto.Address
	AppID         uint64
	Args          [][]byte
	Boxes         []BoxRef
	ForeignAssets []uint64
}

func (op AppCallOp) Kind() string { return opKindAppCall }

func (op AppCallOp) EncodeUnsigned() ([]byte, error) {
	return rlp.EncodeToBytes(struct {
		Kind          string
		Sender        crypto.Address
		AppID         uint64
		Args          [][]byte
		Boxes         []BoxRef
		ForeignAssets []uint64
	}{opKindAppCall, op.Sender, op.AppID, op.Args, op.Boxes, op.ForeignAssets})
}

// Group is an ordered operation set bound under one atomic identifier. The
// network applies all operations of a group or none of them; that atomicity
// is enforced externally, this type only carries the binding.
type Group struct {
	Operations []Operation
	ID         [32]byte
}

// computeGroupID derives the binding identifier from the canonical unsigned
// encodings of the grouped operations.
func computeGroupID(ops []Operation) ([32]byte, error) {
	encoded := make([][]byte, 0, len(ops))
	for _, op := range ops {
		raw, err := op.EncodeUnsigned()
		if err != nil {
			return [32]byte{}, err
		}
		encoded = append(encoded, raw)
	}
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256(encoded...))
	return id, nil
}
