package testcase

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// ParseWei parses a balance/value/fee field, accepting decimal or 0x-hex.
func ParseWei(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(uint256.Int), nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		// Authored hex routinely carries leading zero digits, the way
		// storage keys are conventionally left-padded, so the canonical
		// hex parsers are too strict here.
		b, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, fmt.Errorf("invalid wei value %q", s)
		}
		v, overflow := uint256.FromBig(b)
		if overflow {
			return nil, fmt.Errorf("wei value %q overflows 256 bits", s)
		}
		return v, nil
	}
	v := new(uint256.Int)
	if err := v.SetFromDecimal(s); err != nil {
		return nil, fmt.Errorf("invalid wei value %q: %w", s, err)
	}
	return v, nil
}

// ParseBytes parses a hex byte field; the empty string means empty bytes.
func ParseBytes(s string) (hexutil.Bytes, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" {
		return hexutil.Bytes{}, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex bytes %q: %w", s, err)
	}
	return b, nil
}

// ParseAddress parses a 20-byte hex address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// ParseHash parses a 32-byte hex word, zero-padding shorter values on the
// left as the classic test formats do for storage keys.
func ParseHash(s string) (common.Hash, error) {
	v, err := ParseWei(s)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(v.Bytes32()), nil
}

// SenderAddress derives the sender account of a transaction from its secret
// key: secp256k1 public key, keccak256, last twenty bytes.
func SenderAddress(secretKey string) (common.Address, error) {
	b, err := hexutil.Decode(secretKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid secret key: %w", err)
	}
	if len(b) != 32 {
		return common.Address{}, fmt.Errorf("secret key must be 32 bytes, got %d", len(b))
	}
	priv := secp256k1.PrivKeyFromBytes(b)
	return crypto.PubkeyToAddress(*priv.PubKey().ToECDSA()), nil
}

// Substitute replaces every {{name}} placeholder in s with its bound value.
// Unbound placeholders are left in place and will fail later parsing, which
// is the desired loud failure for a typoed parameter name.
func Substitute(s string, binding map[string]string) string {
	if len(binding) == 0 || !strings.Contains(s, "{{") {
		return s
	}
	for name, value := range binding {
		s = strings.ReplaceAll(s, "{{"+name+"}}", value)
	}
	return s
}
