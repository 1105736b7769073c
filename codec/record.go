package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"tradeflow/crypto"
	"tradeflow/escrow"
)

// ErrCorruptRecord is returned when a stored record cannot be decoded into
// its typed form. Decoding is all-or-nothing: a partially populated struct
// is never handed back.
var ErrCorruptRecord = errors.New("codec: corrupt record")

// tradeRecordSize is the fixed wire size of a trade box value:
// id(8) buyer(32) seller(32) provider(32) amount(8) state(1) createdAt(8).
const tradeRecordSize = 8 + 3*crypto.AddressLength + 8 + 1 + 8

// MarshalTrade renders a trade into its fixed-width box representation.
func MarshalTrade(t *escrow.Trade) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil trade", ErrCorruptRecord)
	}
	buf := make([]byte, 0, tradeRecordSize)
	buf = append(buf, EncodeUint64(t.ID)...)
	buf = append(buf, t.Buyer[:]...)
	buf = append(buf, t.Seller[:]...)
	buf = append(buf, t.EscrowProvider[:]...)
	buf = append(buf, EncodeUint64(t.Amount)...)
	buf = append(buf, byte(t.State))
	buf = append(buf, EncodeUint64(uint64(t.CreatedAt))...)
	return buf, nil
}

// UnmarshalTrade parses a trade box value. The state byte is validated
// against the known lifecycle values so an unrecognised record fails loudly
// instead of flowing through the state machine.
func UnmarshalTrade(b []byte) (*escrow.Trade, error) {
	if len(b) != tradeRecordSize {
		return nil, fmt.Errorf("%w: trade record is %d bytes, want %d", ErrCorruptRecord, len(b), tradeRecordSize)
	}
	trade := &escrow.Trade{}
	offset := 0
	trade.ID = binary.BigEndian.Uint64(b[offset : offset+8])
	offset += 8
	copy(trade.Buyer[:], b[offset:offset+crypto.AddressLength])
	offset += crypto.AddressLength
	copy(trade.Seller[:], b[offset:offset+crypto.AddressLength])
	offset += crypto.AddressLength
	copy(trade.EscrowProvider[:], b[offset:offset+crypto.AddressLength])
	offset += crypto.AddressLength
	trade.Amount = binary.BigEndian.Uint64(b[offset : offset+8])
	offset += 8
	trade.State = escrow.TradeState(b[offset])
	offset++
	trade.CreatedAt = int64(binary.BigEndian.Uint64(b[offset : offset+8]))
	if !trade.State.Valid() {
		return nil, fmt.Errorf("%w: unknown trade state %d", ErrCorruptRecord, trade.State)
	}
	return trade, nil
}

// MarshalMetadata renders a metadata record: the trade id followed by three
// length-prefixed strings (product type, description, document reference).
func MarshalMetadata(m *escrow.TradeMetadata) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil metadata", ErrCorruptRecord)
	}
	fields := []string{m.ProductType, m.Description, m.DocumentRef}
	size := 8
	for _, f := range fields {
		if len(f) > 0xFFFF {
			return nil, fmt.Errorf("%w: metadata field exceeds %d bytes", ErrCorruptRecord, 0xFFFF)
		}
		size += 2 + len(f)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, EncodeUint64(m.TradeID)...)
	for _, f := range fields {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(f)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, f...)
	}
	return buf, nil
}

// UnmarshalMetadata parses a metadata box value.
func UnmarshalMetadata(b []byte) (*escrow.TradeMetadata, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("%w: metadata record is %d bytes", ErrCorruptRecord, len(b))
	}
	meta := &escrow.TradeMetadata{TradeID: binary.BigEndian.Uint64(b[:8])}
	rest := b[8:]
	fields := []*string{&meta.ProductType, &meta.Description, &meta.DocumentRef}
	for _, field := range fields {
		if len(rest) < 2 {
			return nil, fmt.Errorf("%w: truncated metadata field header", ErrCorruptRecord)
		}
		n := int(binary.BigEndian.Uint16(rest[:2]))
		rest = rest[2:]
		if len(rest) < n {
			return nil, fmt.Errorf("%w: metadata field wants %d bytes, %d remain", ErrCorruptRecord, n, len(rest))
		}
		*field = string(rest[:n])
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes in metadata record", ErrCorruptRecord, len(rest))
	}
	return meta, nil
}
