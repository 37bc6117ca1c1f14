package utils

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseAddress validates and parses a 0x-prefixed 20-byte address string.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// ParseHash validates and parses a 0x-prefixed 32-byte hash string.
func ParseHash(s string) (common.Hash, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if len(trimmed) != 64 {
		return common.Hash{}, fmt.Errorf("invalid 32-byte hash %q", s)
	}
	if _, err := hexutil.Decode("0x" + trimmed); err != nil {
		return common.Hash{}, fmt.Errorf("invalid 32-byte hash %q: %w", s, err)
	}
	return common.HexToHash(s), nil
}

// ParseProof decodes a 0x-prefixed proof blob.
func ParseProof(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	proof, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid proof hex: %w", err)
	}
	return proof, nil
}

// ParsePublicInputs decodes a list of 0x-prefixed public input blobs.
func ParsePublicInputs(in []string) ([][]byte, error) {
	out := make([][]byte, 0, len(in))
	for i, s := range in {
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("invalid public input %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}
