// Package codec produces the canonical binary keys and record layouts used
// to address per-trade and per-party boxes in the escrow contract's store.
// The contract derives the same keys independently at lookup time, so every
// function here is a pure, deterministic byte construction.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"tradeflow/crypto"
)

// Box name prefixes understood by the escrow contract. Keys are the UTF-8
// prefix bytes followed immediately by the identifier; the absence of a
// separator is part of the contract's addressing scheme.
const (
	PrefixTrades   = "trades"
	PrefixMetadata = "metadata"
	PrefixBuyer    = "buyer"
	PrefixSeller   = "seller"
)

// ErrOutOfRange is returned when a fixed-width decode receives input of the
// wrong size.
var ErrOutOfRange = errors.New("codec: value out of range")

// EncodeUint64 renders v as exactly 8 big-endian bytes.
func EncodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// DecodeUint64 is the inverse of EncodeUint64.
func DecodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: uint64 field is %d bytes, want 8", ErrOutOfRange, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// MakeKey concatenates the UTF-8 bytes of prefix with the identifier
// verbatim.
func MakeKey(prefix string, id []byte) []byte {
	key := make([]byte, 0, len(prefix)+len(id))
	key = append(key, prefix...)
	key = append(key, id...)
	return key
}

// TradeKey addresses the trade record for the given trade identifier.
func TradeKey(tradeID uint64) []byte {
	return MakeKey(PrefixTrades, EncodeUint64(tradeID))
}

// MetadataKey addresses the metadata record for the given trade identifier.
func MetadataKey(tradeID uint64) []byte {
	return MakeKey(PrefixMetadata, EncodeUint64(tradeID))
}

// BuyerKey addresses the per-buyer record for the given account.
func BuyerKey(addr crypto.Address) []byte {
	return MakeKey(PrefixBuyer, addr.Bytes())
}

// SellerKey addresses the per-seller record for the given account.
func SellerKey(addr crypto.Address) []byte {
	return MakeKey(PrefixSeller, addr.Bytes())
}
