package hedge

import (
	"fmt"

	"github.com/google/uuid"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/derive"
	"go-hedgevault/internal/notify"
	"go-hedgevault/internal/verifier"
)

// CreateBatch drains up to MaxBatchSize of the oldest pending commitments
// into a new batch. Callable by anyone once BatchInterval has elapsed since
// the previous batch. An empty queue is a successful no-op: no batch
// object, no notification, and LastBatchTime stays put.
func (s *State) CreateBatch(now uint64) (*BatchCommitment, notify.Notification, error) {
	if s.Paused {
		return nil, notify.Notification{}, ErrPaused
	}
	if now < s.LastBatchTime+BatchInterval {
		return nil, notify.Notification{}, ErrBatchNotReady
	}
	if s.pending.len() == 0 {
		return nil, notify.Notification{}, nil
	}

	ids := s.pending.popN(MaxBatchSize)
	s.CurrentBatchID++

	batch := &BatchCommitment{
		ID:            uuid.New().String(),
		BatchID:       s.CurrentBatchID,
		CommitmentIDs: ids,
		BatchRoot:     derive.BatchRoot(ids),
		Timestamp:     now,
	}

	for _, id := range ids {
		s.commitments[id].BatchID = batch.BatchID
	}
	s.batchIdx[batch.BatchID] = batch.ID
	s.batches[batch.ID] = batch
	s.LastBatchTime = now

	n := notify.Notification{
		Kind:      notify.KindCommitmentBatched,
		EmittedAt: now,
		Data: map[string]interface{}{
			"batch_id":   batch.BatchID,
			"batch_root": batch.BatchRoot.Hex(),
			"size":       len(ids),
			"remaining":  s.pending.len(),
		},
	}
	return batch, n, nil
}

// AggregateBatch marks a batch as externally processed. Relayer-gated and
// one-way; the actual trade execution happens outside this core.
func (s *State) AggregateBatch(batch *BatchCommitment, relayer *capability.Token, now uint64) (notify.Notification, error) {
	if !s.authority.Holds(relayer, capability.RoleRelayer) {
		return notify.Notification{}, ErrUnauthorized
	}
	if batch == nil {
		return notify.Notification{}, ErrNotFound
	}
	if batch.Aggregated {
		return notify.Notification{}, ErrAlreadyAggregated
	}

	batch.Aggregated = true

	n := notify.Notification{
		Kind:      notify.KindBatchAggregated,
		EmittedAt: now,
		Data: map[string]interface{}{
			"batch_id":   batch.BatchID,
			"batch_root": batch.BatchRoot.Hex(),
			"size":       len(batch.CommitmentIDs),
		},
	}
	return n, nil
}

// BatchByNumber looks up a batch by its monotonic batch ID.
func (s *State) BatchByNumber(batchID uint64) (*BatchCommitment, error) {
	id, ok := s.batchIdx[batchID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.batches[id], nil
}

// BatchByID looks up a batch by its object ID.
func (s *State) BatchByID(id string) (*BatchCommitment, error) {
	b, ok := s.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

// Pause halts commitment intake, settlement and batch formation.
// Guardian-gated, same asymmetry as the vault.
func (s *State) Pause(guardian *capability.Token) error {
	if !s.authority.Holds(guardian, capability.RoleGuardian) {
		return ErrUnauthorized
	}
	s.Paused = true
	return nil
}

// Unpause resumes normal operation. Admin only.
func (s *State) Unpause(admin *capability.Token) error {
	if !s.authority.Holds(admin, capability.RoleAdmin) {
		return ErrUnauthorized
	}
	s.Paused = false
	return nil
}

// SetTotalValueLocked administratively sets the reported TVL. The stored
// commitments carry no amounts, so this figure can only come from the
// operator. Admin only.
func (s *State) SetTotalValueLocked(admin *capability.Token, tvl uint64) error {
	if !s.authority.Holds(admin, capability.RoleAdmin) {
		return ErrUnauthorized
	}
	s.TotalValueLocked = tvl
	return nil
}

// SetVerifier swaps the proof gateway used by SettleCommitment. Admin only.
func (s *State) SetVerifier(admin *capability.Token, v verifier.ProofVerifier, now uint64) (notify.Notification, error) {
	if !s.authority.Holds(admin, capability.RoleAdmin) {
		return notify.Notification{}, ErrUnauthorized
	}
	if v == nil {
		return notify.Notification{}, fmt.Errorf("hedge: verifier must not be nil")
	}
	s.verifier = v

	n := notify.Notification{
		Kind:      notify.KindVerifierUpdated,
		EmittedAt: now,
		Data: map[string]interface{}{
			"scope": "hedge",
		},
	}
	return n, nil
}
