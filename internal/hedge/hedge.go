// Hedge commitment registry: opaque commitments to off-chain hedge
// positions, one-time nullifiers against double settlement, and interval
// batching of pending commitments.
//
// Like the vault, the state is single-writer by construction and all time
// values are injected millisecond timestamps.
package hedge

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/notify"
	"go-hedgevault/internal/verifier"
)

// Batching policy.
const (
	BatchInterval uint64 = 3_600_000 // one hour in ms
	MaxBatchSize         = 100
)

// HedgeCommitment is one stored commitment. CommitmentHash binds to the
// private hedge parameters without revealing them; StealthAddress is the
// submitting address, meant to be unlinkable off-chain. MerkleRoot is
// caller-supplied and stored as-is, never recomputed here.
type HedgeCommitment struct {
	ID             string
	CommitmentHash common.Hash
	Nullifier      common.Hash
	StealthAddress common.Address
	MerkleRoot     common.Hash
	Timestamp      uint64
	Settled        bool
	BatchID        uint64 // 0 until batched; batch IDs start at 1
}

// BatchCommitment is a formed batch of up to MaxBatchSize commitments in
// FIFO submission order. BatchRoot is a flat aggregate digest over the
// member IDs, not a Merkle tree.
type BatchCommitment struct {
	ID            string
	BatchID       uint64
	CommitmentIDs []string
	BatchRoot     common.Hash
	Timestamp     uint64
	Aggregated    bool
}

// State is the process-wide hedge registry singleton.
type State struct {
	TotalCommitments uint64
	TotalSettled     uint64
	// TotalValueLocked is administratively set; it is not derived from the
	// stored commitments, which reveal no amounts.
	TotalValueLocked uint64
	LastBatchTime    uint64
	CurrentBatchID   uint64
	Paused           bool

	nullifierUsed map[common.Hash]struct{}
	commitmentIdx map[common.Hash]string
	commitments   map[string]*HedgeCommitment
	pending       pendingQueue
	batchIdx      map[uint64]string
	batches       map[string]*BatchCommitment

	authority *capability.Authority
	verifier  verifier.ProofVerifier
}

// NewState builds the hedge registry singleton with the placeholder proof
// gate installed.
func NewState(authority *capability.Authority) *State {
	return &State{
		nullifierUsed: make(map[common.Hash]struct{}),
		commitmentIdx: make(map[common.Hash]string),
		commitments:   make(map[string]*HedgeCommitment),
		batchIdx:      make(map[uint64]string),
		batches:       make(map[string]*BatchCommitment),
		authority:     authority,
		verifier:      verifier.Placeholder{},
	}
}

// StoreCommitment records a commitment and permanently consumes its
// nullifier. Open to any caller; the stealth address is whatever the
// submitter presents.
func (s *State) StoreCommitment(stealth common.Address, commitmentHash, nullifier, merkleRoot common.Hash, now uint64) (*HedgeCommitment, notify.Notification, error) {
	if s.Paused {
		return nil, notify.Notification{}, ErrPaused
	}
	if _, used := s.nullifierUsed[nullifier]; used {
		return nil, notify.Notification{}, ErrNullifierAlreadyUsed
	}
	if _, dup := s.commitmentIdx[commitmentHash]; dup {
		return nil, notify.Notification{}, ErrAlreadyExists
	}

	c := &HedgeCommitment{
		ID:             uuid.New().String(),
		CommitmentHash: commitmentHash,
		Nullifier:      nullifier,
		StealthAddress: stealth,
		MerkleRoot:     merkleRoot,
		Timestamp:      now,
	}

	s.nullifierUsed[nullifier] = struct{}{}
	s.commitmentIdx[commitmentHash] = c.ID
	s.commitments[c.ID] = c
	s.pending.push(c.ID)
	s.TotalCommitments++

	n := notify.Notification{
		Kind:      notify.KindCommitmentStored,
		EmittedAt: now,
		Data: map[string]interface{}{
			"commitment_id":   c.ID,
			"commitment_hash": commitmentHash.Hex(),
			"stealth_address": stealth.Hex(),
			"merkle_root":     merkleRoot.Hex(),
		},
	}
	return c, n, nil
}

// SettleCommitment marks a commitment settled after proof verification
// against its commitment hash. Relayer-gated; settles exactly once. None
// of the underlying hedge parameters are required or revealed.
func (s *State) SettleCommitment(c *HedgeCommitment, relayer *capability.Token, proof []byte, now uint64) (notify.Notification, error) {
	if !s.authority.Holds(relayer, capability.RoleRelayer) {
		return notify.Notification{}, ErrUnauthorized
	}
	if s.Paused {
		return notify.Notification{}, ErrPaused
	}
	if c == nil {
		return notify.Notification{}, ErrNotFound
	}
	if c.Settled {
		return notify.Notification{}, ErrAlreadySettled
	}
	if !s.verifier.Verify(proof, [][]byte{c.CommitmentHash.Bytes()}, verifier.ContextHedgeSettlement) {
		return notify.Notification{}, ErrInvalidProof
	}

	c.Settled = true
	s.TotalSettled++

	n := notify.Notification{
		Kind:      notify.KindHedgeSettled,
		EmittedAt: now,
		Data: map[string]interface{}{
			"commitment_id":   c.ID,
			"commitment_hash": c.CommitmentHash.Hex(),
			"total_settled":   s.TotalSettled,
		},
	}
	return n, nil
}

// CommitmentByID looks up a published commitment.
func (s *State) CommitmentByID(id string) (*HedgeCommitment, error) {
	c, ok := s.commitments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// CommitmentByHash looks up a commitment by its commitment hash.
func (s *State) CommitmentByHash(hash common.Hash) (*HedgeCommitment, error) {
	id, ok := s.commitmentIdx[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return s.commitments[id], nil
}

// NullifierUsed reports whether a nullifier has been consumed.
func (s *State) NullifierUsed(nullifier common.Hash) bool {
	_, used := s.nullifierUsed[nullifier]
	return used
}

// PendingCount reports how many commitments await batching.
func (s *State) PendingCount() int {
	return s.pending.len()
}

// PendingIDs returns the queued commitment IDs in FIFO order without
// consuming them.
func (s *State) PendingIDs() []string {
	return s.pending.snapshot()
}
