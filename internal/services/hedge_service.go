package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/hedge"
	"go-hedgevault/internal/metrics"
	"go-hedgevault/internal/models"
	"go-hedgevault/internal/notify"
	"go-hedgevault/internal/repository"
	"go-hedgevault/internal/verifier"
)

// HedgeService owns the hedge commitment registry state machine.
type HedgeService struct {
	mu    sync.Mutex
	state *hedge.State

	commitmentRepo repository.CommitmentRepository
	batchRepo      repository.BatchRepository
	publisher      notify.Publisher
}

// NewHedgeService creates a new HedgeService instance. Repositories and
// publisher may be nil.
func NewHedgeService(state *hedge.State, commitmentRepo repository.CommitmentRepository, batchRepo repository.BatchRepository, publisher notify.Publisher) *HedgeService {
	return &HedgeService{
		state:          state,
		commitmentRepo: commitmentRepo,
		batchRepo:      batchRepo,
		publisher:      publisher,
	}
}

func (s *HedgeService) publish(n notify.Notification) {
	if s.publisher == nil || n.Kind == "" {
		return
	}
	if err := s.publisher.Publish(n); err != nil {
		metrics.NotificationPublishFailures.WithLabelValues(string(n.Kind)).Inc()
		log.Printf("⚠️ Failed to publish %s notification: %v", n.Kind, err)
		return
	}
	metrics.NotificationsPublished.WithLabelValues(string(n.Kind)).Inc()
}

// StoreCommitment records a new hedge commitment and queues it for the
// next batch.
func (s *HedgeService) StoreCommitment(ctx context.Context, stealth common.Address, commitmentHash, nullifier, merkleRoot common.Hash) (*hedge.HedgeCommitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, n, err := s.state.StoreCommitment(stealth, commitmentHash, nullifier, merkleRoot, nowMs())
	if err != nil {
		metrics.HedgeOperationFailures.WithLabelValues("store_commitment", failureReason(err)).Inc()
		return nil, err
	}
	metrics.HedgeCommitmentsStored.Inc()
	metrics.HedgePendingCommitments.Set(float64(s.state.PendingCount()))

	s.indexCommitment(ctx, c)
	s.publish(n)

	log.Printf("✅ Commitment %s stored (pending %d)", commitmentHash.Hex(), s.state.PendingCount())
	return c, nil
}

// SettleCommitment settles a commitment, looked up by its commitment hash,
// after proof verification. Relayer-gated.
func (s *HedgeService) SettleCommitment(ctx context.Context, commitmentHash common.Hash, relayer *capability.Token, proof []byte) (*hedge.HedgeCommitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.state.CommitmentByHash(commitmentHash)
	if err != nil {
		metrics.HedgeOperationFailures.WithLabelValues("settle_commitment", failureReason(err)).Inc()
		return nil, err
	}

	n, err := s.state.SettleCommitment(c, relayer, proof, nowMs())
	if err != nil {
		metrics.HedgeOperationFailures.WithLabelValues("settle_commitment", failureReason(err)).Inc()
		return nil, err
	}
	metrics.HedgeCommitmentsSettled.Inc()

	s.indexCommitmentSettled(ctx, c.ID)
	s.publish(n)

	log.Printf("✅ Commitment %s settled", commitmentHash.Hex())
	return c, nil
}

// CreateBatch attempts to drain the pending queue into a new batch. A nil
// batch with nil error means the queue was empty before the interval gate
// released anything. ErrBatchNotReady means the interval has not elapsed.
func (s *HedgeService) CreateBatch(ctx context.Context) (*hedge.BatchCommitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, n, err := s.state.CreateBatch(nowMs())
	if err != nil {
		metrics.HedgeOperationFailures.WithLabelValues("create_batch", failureReason(err)).Inc()
		return nil, err
	}
	if batch == nil {
		return nil, nil
	}
	metrics.BatchesCreated.Inc()
	metrics.BatchSize.Observe(float64(len(batch.CommitmentIDs)))
	metrics.HedgePendingCommitments.Set(float64(s.state.PendingCount()))

	s.indexBatch(ctx, batch)
	s.publish(n)

	log.Printf("✅ Batch #%d formed: %d commitments, root %s", batch.BatchID, len(batch.CommitmentIDs), batch.BatchRoot.Hex())
	return batch, nil
}

// AggregateBatch marks a batch, looked up by its monotonic number, as
// externally processed. Relayer-gated.
func (s *HedgeService) AggregateBatch(ctx context.Context, batchNumber uint64, relayer *capability.Token) (*hedge.BatchCommitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.state.BatchByNumber(batchNumber)
	if err != nil {
		metrics.HedgeOperationFailures.WithLabelValues("aggregate_batch", failureReason(err)).Inc()
		return nil, err
	}

	n, err := s.state.AggregateBatch(batch, relayer, nowMs())
	if err != nil {
		metrics.HedgeOperationFailures.WithLabelValues("aggregate_batch", failureReason(err)).Inc()
		return nil, err
	}

	s.indexBatchAggregated(ctx, batch.ID)
	s.publish(n)

	log.Printf("✅ Batch #%d aggregated", batchNumber)
	return batch, nil
}

// Pause halts the registry under a Guardian capability.
func (s *HedgeService) Pause(guardian *capability.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.Pause(guardian); err != nil {
		metrics.HedgeOperationFailures.WithLabelValues("pause", failureReason(err)).Inc()
		return err
	}
	log.Println("⚠️ Hedge registry paused")
	return nil
}

// Unpause resumes the registry under an Admin capability.
func (s *HedgeService) Unpause(admin *capability.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.Unpause(admin); err != nil {
		metrics.HedgeOperationFailures.WithLabelValues("unpause", failureReason(err)).Inc()
		return err
	}
	log.Println("✅ Hedge registry unpaused")
	return nil
}

// SetTotalValueLocked sets the operator-reported TVL figure. Admin only.
func (s *HedgeService) SetTotalValueLocked(admin *capability.Token, tvl uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetTotalValueLocked(admin, tvl)
}

// SetVerifier swaps the settlement proof gateway. Admin only.
func (s *HedgeService) SetVerifier(admin *capability.Token, v verifier.ProofVerifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.state.SetVerifier(admin, v, nowMs())
	if err != nil {
		return err
	}
	s.publish(n)
	log.Println("✅ Hedge proof verifier updated")
	return nil
}

// HedgeStats is a read-only snapshot of the registry counters.
type HedgeStats struct {
	TotalCommitments   uint64 `json:"total_commitments"`
	TotalSettled       uint64 `json:"total_settled"`
	TotalValueLocked   uint64 `json:"total_value_locked"`
	PendingCommitments int    `json:"pending_commitments"`
	CurrentBatchID     uint64 `json:"current_batch_id"`
	LastBatchTime      uint64 `json:"last_batch_time"`
	Paused             bool   `json:"paused"`
}

// Stats snapshots the registry counters under the service lock.
func (s *HedgeService) Stats() HedgeStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HedgeStats{
		TotalCommitments:   s.state.TotalCommitments,
		TotalSettled:       s.state.TotalSettled,
		TotalValueLocked:   s.state.TotalValueLocked,
		PendingCommitments: s.state.PendingCount(),
		CurrentBatchID:     s.state.CurrentBatchID,
		LastBatchTime:      s.state.LastBatchTime,
		Paused:             s.state.Paused,
	}
}

// CommitmentByHash returns the live commitment for a hash.
func (s *HedgeService) CommitmentByHash(hash common.Hash) (*hedge.HedgeCommitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CommitmentByHash(hash)
}

// NullifierUsed reports whether a nullifier has been consumed.
func (s *HedgeService) NullifierUsed(nullifier common.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.NullifierUsed(nullifier)
}

// BatchByNumber returns a formed batch by its monotonic number.
func (s *HedgeService) BatchByNumber(batchNumber uint64) (*hedge.BatchCommitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.BatchByNumber(batchNumber)
}

func (s *HedgeService) indexCommitment(ctx context.Context, c *hedge.HedgeCommitment) {
	if s.commitmentRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, indexWriteTimeout)
	defer cancel()

	record := &models.CommitmentRecord{
		ID:             c.ID,
		CommitmentHash: c.CommitmentHash.Hex(),
		Nullifier:      c.Nullifier.Hex(),
		StealthAddress: c.StealthAddress.Hex(),
		MerkleRoot:     c.MerkleRoot.Hex(),
		TimestampMs:    c.Timestamp,
	}
	if err := s.commitmentRepo.Create(ctx, record); err != nil {
		log.Printf("❌ Failed to index commitment %s: %v", c.ID, err)
	}
}

func (s *HedgeService) indexCommitmentSettled(ctx context.Context, id string) {
	if s.commitmentRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, indexWriteTimeout)
	defer cancel()

	if err := s.commitmentRepo.MarkSettled(ctx, id); err != nil {
		log.Printf("❌ Failed to index settlement for %s: %v", id, err)
	}
}

func (s *HedgeService) indexBatch(ctx context.Context, batch *hedge.BatchCommitment) {
	if s.batchRepo == nil && s.commitmentRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, indexWriteTimeout)
	defer cancel()

	if s.batchRepo != nil {
		memberIDs, err := json.Marshal(batch.CommitmentIDs)
		if err != nil {
			log.Printf("❌ Failed to serialize batch #%d members: %v", batch.BatchID, err)
			memberIDs = []byte("[]")
		}
		record := &models.BatchRecord{
			ID:            batch.ID,
			BatchNumber:   batch.BatchID,
			BatchRoot:     batch.BatchRoot.Hex(),
			CommitmentIDs: string(memberIDs),
			Size:          len(batch.CommitmentIDs),
			TimestampMs:   batch.Timestamp,
		}
		if err := s.batchRepo.Create(ctx, record); err != nil {
			log.Printf("❌ Failed to index batch #%d: %v", batch.BatchID, err)
		}
	}
	if s.commitmentRepo != nil {
		if err := s.commitmentRepo.AssignBatch(ctx, batch.CommitmentIDs, batch.BatchID); err != nil {
			log.Printf("❌ Failed to index batch assignment for #%d: %v", batch.BatchID, err)
		}
	}
}

func (s *HedgeService) indexBatchAggregated(ctx context.Context, id string) {
	if s.batchRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, indexWriteTimeout)
	defer cancel()

	if err := s.batchRepo.MarkAggregated(ctx, id); err != nil {
		log.Printf("❌ Failed to index aggregation for batch %s: %v", id, err)
	}
}
