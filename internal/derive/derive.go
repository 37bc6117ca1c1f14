// Deterministic derivation of proxy addresses, withdrawal request IDs and
// batch roots. All derivations are keccak256 over a domain-separation tag
// followed by the big-endian serialization of the inputs, so the same
// inputs always produce the same output on every node.
package derive

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Domain separation tags. Changing any of these changes every derived
// address and ID, so they are frozen.
const (
	proxyAddressTag = "hedgevault.proxy.v1"
	withdrawalIDTag = "hedgevault.withdrawal.v1"
	batchRootTag    = "hedgevault.batch.v1"
)

// ProxyAddress computes the sub-account address for (owner, nonce,
// bindingHash). The digest is interpreted as an address by taking its low
// 20 bytes.
func ProxyAddress(owner common.Address, nonce uint64, bindingHash common.Hash) common.Address {
	data := make([]byte, 0, len(proxyAddressTag)+common.AddressLength+8+common.HashLength)
	data = append(data, proxyAddressTag...)
	data = append(data, owner.Bytes()...)
	data = binary.BigEndian.AppendUint64(data, nonce)
	data = append(data, bindingHash.Bytes()...)
	return common.BytesToAddress(crypto.Keccak256(data))
}

// WithdrawalID computes the identifier of a time-locked withdrawal request
// from (owner, proxyID, amount, requestedAt). requestedAt is a millisecond
// timestamp supplied by the caller, never read from the clock here.
func WithdrawalID(owner common.Address, proxyID string, amount uint64, requestedAt uint64) common.Hash {
	data := make([]byte, 0, len(withdrawalIDTag)+common.AddressLength+len(proxyID)+16)
	data = append(data, withdrawalIDTag...)
	data = append(data, owner.Bytes()...)
	data = append(data, proxyID...)
	data = binary.BigEndian.AppendUint64(data, amount)
	data = binary.BigEndian.AppendUint64(data, requestedAt)
	return crypto.Keccak256Hash(data)
}

// BatchRoot computes the aggregate digest over commitment IDs in insertion
// order. This is a flat hash for bulk record keeping, not a Merkle tree:
// no membership proofs can be derived from it.
func BatchRoot(commitmentIDs []string) common.Hash {
	data := make([]byte, 0, len(batchRootTag)+len(commitmentIDs)*40)
	data = append(data, batchRootTag...)
	for _, id := range commitmentIDs {
		data = binary.BigEndian.AppendUint64(data, uint64(len(id)))
		data = append(data, id...)
	}
	return crypto.Keccak256Hash(data)
}
