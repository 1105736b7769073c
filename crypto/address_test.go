package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	encoded := addr.String()
	if !strings.HasPrefix(encoded, AddressPrefix+"1") {
		t.Fatalf("unexpected encoding %q", encoded)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != addr {
		t.Fatalf("round trip mismatch: %x != %x", decoded, addr)
	}
	if !bytes.Equal(decoded.Bytes(), addr[:]) {
		t.Fatalf("bytes mismatch")
	}
}

func TestDecodeAddressRejectsCorruptChecksum(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	encoded := key.PubKey().Address().String()
	// Flip the final checksum character.
	last := encoded[len(encoded)-1]
	replacement := byte('q')
	if last == 'q' {
		replacement = 'p'
	}
	corrupted := encoded[:len(encoded)-1] + string(replacement)
	if _, err := DecodeAddress(corrupted); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestDecodeAddressRejectsForeignPrefix(t *testing.T) {
	if _, err := DecodeAddress("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestNewAddressLength(t *testing.T) {
	if _, err := NewAddress(make([]byte, 20)); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress for short input, got %v", err)
	}
	if _, err := NewAddress(make([]byte, AddressLength)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestZeroAddressSentinel(t *testing.T) {
	var addr Address
	if !addr.IsZero() {
		t.Fatalf("zero value must report IsZero")
	}
	addr[0] = 1
	if addr.IsZero() {
		t.Fatalf("non-zero address must not report IsZero")
	}
}
