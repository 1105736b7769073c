package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix is the human-readable prefix carried by every rendered
// account identifier.
const AddressPrefix = "tfw"

// AddressLength is the size of the raw public key backing an address.
const AddressLength = 32

// ErrInvalidAddress is returned when a human-readable account identifier
// fails checksum validation or decodes to the wrong length.
var ErrInvalidAddress = errors.New("crypto: invalid address")

// Address is a 32-byte account public key. The zero value is the sentinel
// used for unset participants (an unfunded trade's escrow provider).
type Address [AddressLength]byte

// NewAddress wraps raw public key bytes into an Address.
func NewAddress(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidAddress, len(b), AddressLength)
	}
	var addr Address
	copy(addr[:], b)
	return addr, nil
}

// String renders the address in its bech32 human-readable form.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressPrefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns a copy of the raw public key bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// IsZero reports whether the address is the unset sentinel.
func (a Address) IsZero() bool {
	return a == Address{}
}

// DecodeAddress parses a bech32 account identifier back into its 32-byte
// public key form. Both this library and the escrow contract derive record
// keys from the decoded bytes, so the decode must be strict: a bad checksum,
// a foreign prefix or a wrong-length payload is rejected rather than
// truncated.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if prefix != AddressPrefix {
		return Address{}, fmt.Errorf("%w: unexpected prefix %q", ErrInvalidAddress, prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return NewAddress(conv)
}

// --- Key Management ---

// PrivateKey is an ed25519 signing key. Signing itself happens in the
// external wallet provider; the key helpers exist for account generation and
// deterministic test fixtures.
type PrivateKey struct {
	key ed25519.PrivateKey
}

type PublicKey struct {
	key ed25519.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return []byte(k.key)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{key: k.key.Public().(ed25519.PublicKey)}
}

func (k *PublicKey) Address() Address {
	var addr Address
	copy(addr[:], k.key)
	return addr
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length: %d", len(b))
	}
	return &PrivateKey{key: ed25519.PrivateKey(b)}, nil
}
