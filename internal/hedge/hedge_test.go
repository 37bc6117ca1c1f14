package hedge

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/derive"
	"go-hedgevault/internal/notify"
)

const t0 = uint64(1_700_000_000_000)

var (
	deployer = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	stealth  = common.HexToAddress("0x00000000000000000000000000000000000000cc")

	okProof = bytes.Repeat([]byte{0x42}, 64)
)

func newTestState(t *testing.T) (*State, *capability.Token, *capability.Token, *capability.Token) {
	t.Helper()
	auth, admin := capability.NewAuthority(deployer)
	relayer, err := auth.Grant(admin, capability.RoleRelayer, deployer)
	if err != nil {
		t.Fatalf("grant relayer: %v", err)
	}
	guardian, err := auth.Grant(admin, capability.RoleGuardian, deployer)
	if err != nil {
		t.Fatalf("grant guardian: %v", err)
	}
	return NewState(auth), admin, guardian, relayer
}

func hashOf(label string, i int) common.Hash {
	data := binary.BigEndian.AppendUint64([]byte(label), uint64(i))
	return crypto.Keccak256Hash(data)
}

func mustStore(t *testing.T, s *State, i int, now uint64) *HedgeCommitment {
	t.Helper()
	c, _, err := s.StoreCommitment(stealth, hashOf("commitment", i), hashOf("nullifier", i), hashOf("root", i), now)
	if err != nil {
		t.Fatalf("StoreCommitment(%d): %v", i, err)
	}
	return c
}

func TestStoreCommitment(t *testing.T) {
	s, _, _, _ := newTestState(t)

	c, n, err := s.StoreCommitment(stealth, hashOf("commitment", 1), hashOf("nullifier", 1), hashOf("root", 1), t0)
	if err != nil {
		t.Fatalf("StoreCommitment: %v", err)
	}
	if n.Kind != notify.KindCommitmentStored {
		t.Fatalf("notification kind = %s", n.Kind)
	}
	if c.Settled || c.BatchID != 0 {
		t.Fatalf("fresh commitment state: %+v", c)
	}
	if s.TotalCommitments != 1 || s.PendingCount() != 1 {
		t.Fatalf("counters: total=%d pending=%d", s.TotalCommitments, s.PendingCount())
	}
	if !s.NullifierUsed(hashOf("nullifier", 1)) {
		t.Fatal("nullifier not recorded")
	}

	got, err := s.CommitmentByHash(hashOf("commitment", 1))
	if err != nil || got != c {
		t.Fatalf("CommitmentByHash: %v", err)
	}
}

func TestStoreCommitmentNullifierReplay(t *testing.T) {
	s, _, _, _ := newTestState(t)
	mustStore(t, s, 1, t0)

	// Same nullifier under a different commitment hash is still rejected.
	_, _, err := s.StoreCommitment(stealth, hashOf("commitment", 2), hashOf("nullifier", 1), hashOf("root", 2), t0)
	if !errors.Is(err, ErrNullifierAlreadyUsed) {
		t.Fatalf("got %v, want ErrNullifierAlreadyUsed", err)
	}
	if s.TotalCommitments != 1 || s.PendingCount() != 1 {
		t.Fatal("rejected store mutated state")
	}
}

func TestStoreCommitmentDuplicateHash(t *testing.T) {
	s, _, _, _ := newTestState(t)
	mustStore(t, s, 1, t0)

	_, _, err := s.StoreCommitment(stealth, hashOf("commitment", 1), hashOf("nullifier", 9), hashOf("root", 1), t0)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}
	// The losing nullifier must not have been burned.
	if s.NullifierUsed(hashOf("nullifier", 9)) {
		t.Fatal("nullifier consumed by a rejected store")
	}
}

func TestStoreCommitmentPaused(t *testing.T) {
	s, admin, guardian, _ := newTestState(t)

	if err := s.Pause(admin); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("admin pause: got %v, want ErrUnauthorized", err)
	}
	if err := s.Pause(guardian); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, _, err := s.StoreCommitment(stealth, hashOf("commitment", 1), hashOf("nullifier", 1), hashOf("root", 1), t0); !errors.Is(err, ErrPaused) {
		t.Fatalf("got %v, want ErrPaused", err)
	}
	if err := s.Unpause(admin); err != nil {
		t.Fatalf("Unpause: %v", err)
	}
	mustStore(t, s, 1, t0)
}

func TestSettleCommitment(t *testing.T) {
	s, admin, _, relayer := newTestState(t)
	c := mustStore(t, s, 1, t0)

	// Only a relayer token settles.
	if _, err := s.SettleCommitment(c, admin, okProof, t0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("admin settle: got %v, want ErrUnauthorized", err)
	}

	// Proof below the length gate is rejected.
	if _, err := s.SettleCommitment(c, relayer, okProof[:16], t0); !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("short proof: got %v, want ErrInvalidProof", err)
	}

	n, err := s.SettleCommitment(c, relayer, okProof, t0)
	if err != nil {
		t.Fatalf("SettleCommitment: %v", err)
	}
	if n.Kind != notify.KindHedgeSettled {
		t.Fatalf("notification kind = %s", n.Kind)
	}
	if !c.Settled || s.TotalSettled != 1 {
		t.Fatalf("settled=%v total=%d", c.Settled, s.TotalSettled)
	}

	// Settlement is exactly-once.
	if _, err := s.SettleCommitment(c, relayer, okProof, t0); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("double settle: got %v, want ErrAlreadySettled", err)
	}
	if s.TotalSettled != 1 {
		t.Fatalf("total settled drifted to %d", s.TotalSettled)
	}
}

func TestCreateBatchIntervalGate(t *testing.T) {
	s, _, _, _ := newTestState(t)
	mustStore(t, s, 1, t0)

	if _, _, err := s.CreateBatch(t0); err != nil {
		t.Fatalf("first batch: %v", err)
	}

	mustStore(t, s, 2, t0)
	if _, _, err := s.CreateBatch(t0 + BatchInterval - 1); !errors.Is(err, ErrBatchNotReady) {
		t.Fatalf("early batch: got %v, want ErrBatchNotReady", err)
	}
	if _, _, err := s.CreateBatch(t0 + BatchInterval); err != nil {
		t.Fatalf("on-time batch: %v", err)
	}
}

func TestCreateBatchEmptyQueueNoOp(t *testing.T) {
	s, _, _, _ := newTestState(t)

	batch, n, err := s.CreateBatch(t0)
	if err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if batch != nil || n.Kind != "" {
		t.Fatalf("empty queue must be a silent no-op, got %+v / %+v", batch, n)
	}
	if s.CurrentBatchID != 0 {
		t.Fatalf("batch ID allocated on no-op: %d", s.CurrentBatchID)
	}
	// A no-op does not consume the interval.
	mustStore(t, s, 1, t0)
	if _, _, err := s.CreateBatch(t0 + 1); err != nil {
		t.Fatalf("batch right after no-op: %v", err)
	}
}

func TestCreateBatchDrainsFIFOUpToCap(t *testing.T) {
	s, _, _, _ := newTestState(t)

	for i := 0; i < 150; i++ {
		mustStore(t, s, i, t0)
	}

	batch, n, err := s.CreateBatch(t0)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if len(batch.CommitmentIDs) != MaxBatchSize {
		t.Fatalf("batch size = %d, want %d", len(batch.CommitmentIDs), MaxBatchSize)
	}
	if s.PendingCount() != 50 {
		t.Fatalf("remaining = %d, want 50", s.PendingCount())
	}
	if batch.BatchID != 1 {
		t.Fatalf("first batch ID = %d, want 1", batch.BatchID)
	}
	if n.Kind != notify.KindCommitmentBatched {
		t.Fatalf("notification kind = %s", n.Kind)
	}

	// Oldest 100 in submission order, root over exactly those IDs.
	for i, id := range batch.CommitmentIDs {
		c, err := s.CommitmentByID(id)
		if err != nil {
			t.Fatalf("member %d missing: %v", i, err)
		}
		if c.CommitmentHash != hashOf("commitment", i) {
			t.Fatalf("member %d out of FIFO order", i)
		}
		if c.BatchID != 1 {
			t.Fatalf("member %d batch ID = %d", i, c.BatchID)
		}
	}
	if batch.BatchRoot != derive.BatchRoot(batch.CommitmentIDs) {
		t.Fatal("batch root mismatch")
	}

	// Next interval drains the remaining 50 into batch 2.
	second, _, err := s.CreateBatch(t0 + BatchInterval)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if second.BatchID != 2 || len(second.CommitmentIDs) != 50 {
		t.Fatalf("second batch = id %d size %d", second.BatchID, len(second.CommitmentIDs))
	}
	if s.PendingCount() != 0 {
		t.Fatalf("pending after second batch = %d", s.PendingCount())
	}
}

func TestAggregateBatch(t *testing.T) {
	s, admin, _, relayer := newTestState(t)
	mustStore(t, s, 1, t0)

	batch, _, err := s.CreateBatch(t0)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	if _, err := s.AggregateBatch(batch, admin, t0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("admin aggregate: got %v, want ErrUnauthorized", err)
	}

	n, err := s.AggregateBatch(batch, relayer, t0)
	if err != nil {
		t.Fatalf("AggregateBatch: %v", err)
	}
	if n.Kind != notify.KindBatchAggregated || !batch.Aggregated {
		t.Fatalf("aggregate outcome: kind=%s aggregated=%v", n.Kind, batch.Aggregated)
	}

	if _, err := s.AggregateBatch(batch, relayer, t0); !errors.Is(err, ErrAlreadyAggregated) {
		t.Fatalf("double aggregate: got %v, want ErrAlreadyAggregated", err)
	}

	got, err := s.BatchByNumber(batch.BatchID)
	if err != nil || got != batch {
		t.Fatalf("BatchByNumber: %v", err)
	}
}

func TestSetTotalValueLocked(t *testing.T) {
	s, admin, guardian, _ := newTestState(t)

	if err := s.SetTotalValueLocked(guardian, 10); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("guardian set TVL: got %v, want ErrUnauthorized", err)
	}
	if err := s.SetTotalValueLocked(admin, 1_000_000); err != nil {
		t.Fatalf("SetTotalValueLocked: %v", err)
	}
	if s.TotalValueLocked != 1_000_000 {
		t.Fatalf("TVL = %d", s.TotalValueLocked)
	}
}

func TestPendingQueue(t *testing.T) {
	var q pendingQueue
	for i := 0; i < 500; i++ {
		q.push(fmt.Sprintf("c%03d", i))
	}

	first := q.popN(100)
	if len(first) != 100 || first[0] != "c000" || first[99] != "c099" {
		t.Fatalf("first drain wrong: %v ... %v", first[0], first[len(first)-1])
	}
	if q.len() != 400 {
		t.Fatalf("len after drain = %d", q.len())
	}

	// Interleave pushes and pops across the compaction boundary.
	q.push("extra")
	rest := q.popN(1000)
	if len(rest) != 401 || rest[0] != "c100" || rest[400] != "extra" {
		t.Fatalf("second drain wrong: len=%d first=%s last=%s", len(rest), rest[0], rest[len(rest)-1])
	}
	if q.len() != 0 {
		t.Fatalf("queue not empty: %d", q.len())
	}
	if got := q.popN(10); got != nil {
		t.Fatalf("pop on empty = %v", got)
	}
}
