package types

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const (
	HashLength    = 32
	AddressLength = 20

	// ValueTokenID is the reserved id of the value currency (EMB). Market
	// tokens start from 1.
	ValueTokenID = TokenID(0)
)

// TokenID is the stable identifier of a market's token.
type TokenID uint32

// VenueType names the downstream exchange a graduated market hands its
// liquidity to.
type VenueType byte

const (
	VenueConstantProduct VenueType = iota + 1
)

func (v VenueType) String() string {
	switch v {
	case VenueConstantProduct:
		return "constant_product"
	}

	return fmt.Sprintf("unknown venue %d", byte(v))
}

// ParseVenueType maps the exported venue name back to its tag.
func ParseVenueType(s string) (VenueType, error) {
	switch s {
	case "constant_product":
		return VenueConstantProduct, nil
	}

	return 0, fmt.Errorf("unknown venue type %q", s)
}

func (t TokenID) Uint32() uint32 {
	return uint32(t)
}

func (t TokenID) String() string {
	return fmt.Sprintf("%d", t)
}

// Bytes returns the big-endian form used in state tree paths.
func (t TokenID) Bytes() []byte {
	return []byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)}
}

// Hash is the 32 byte Keccak256 hash of a trade's canonical encoding.
type Hash [HashLength]byte

func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

func (h *Hash) SetBytes(b []byte) {
	if len(b) > len(h) {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) String() string {
	return fmt.Sprintf("Eh%x", h[:])
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", h.String())), nil
}

// Address is a 20 byte actor identifier, rendered with the Ex prefix.
type Address [AddressLength]byte

func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress parses an Ex-prefixed hex string. Input longer than 20
// bytes is cropped from the left.
func HexToAddress(s string) Address {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "Ex"), "EX")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return BytesToAddress(b)
}

// IsValidAddress reports whether s is an Ex-prefixed 20 byte hex string.
func IsValidAddress(s string) bool {
	if len(s) != 2+2*AddressLength {
		return false
	}
	if s[:2] != "Ex" && s[:2] != "EX" {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

func (a *Address) SetBytes(b []byte) {
	if len(b) > len(a) {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) Big() *big.Int { return new(big.Int).SetBytes(a[:]) }

func (a Address) String() string {
	return fmt.Sprintf("Ex%x", a[:])
}

func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", a.String())), nil
}

func (a *Address) UnmarshalJSON(input []byte) error {
	s := string(input)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("address must be a string")
	}
	s = s[1 : len(s)-1]
	if !IsValidAddress(s) {
		return fmt.Errorf("invalid address %q", s)
	}
	*a = HexToAddress(s)
	return nil
}

func (a *Address) Compare(a2 Address) int {
	for i := 0; i < AddressLength; i++ {
		switch {
		case a[i] < a2[i]:
			return -1
		case a[i] > a2[i]:
			return 1
		}
	}
	return 0
}
