package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/hedge"
	"go-hedgevault/internal/notify"
)

func labelHash(label string, i int) common.Hash {
	return crypto.Keccak256Hash([]byte(fmt.Sprintf("%s-%d", label, i)))
}

func newTestHedgeService(t *testing.T) (*HedgeService, *capability.Token, *capability.Token, *fakeCommitmentRepo, *fakeBatchRepo, *notify.Recorder) {
	t.Helper()
	authority, admin := capability.NewAuthority(testOwner)
	relayer, err := authority.Grant(admin, capability.RoleRelayer, common.HexToAddress("0x4444444444444444444444444444444444444444"))
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}

	state := hedge.NewState(authority)
	commitmentRepo := newFakeCommitmentRepo()
	batchRepo := &fakeBatchRepo{}
	recorder := &notify.Recorder{}
	svc := NewHedgeService(state, commitmentRepo, batchRepo, recorder)
	return svc, admin, relayer, commitmentRepo, batchRepo, recorder
}

func TestHedgeServiceStoreCommitment(t *testing.T) {
	svc, _, _, commitmentRepo, _, recorder := newTestHedgeService(t)
	ctx := context.Background()

	c, err := svc.StoreCommitment(ctx, testOwner, labelHash("commit", 1), labelHash("null", 1), labelHash("root", 1))
	if err != nil {
		t.Fatalf("StoreCommitment: %v", err)
	}
	if len(commitmentRepo.created) != 1 || commitmentRepo.created[0].ID != c.ID {
		t.Fatalf("commitment index = %+v", commitmentRepo.created)
	}
	if recorder.Last().Kind != notify.KindCommitmentStored {
		t.Fatalf("expected CommitmentStored notification, got %s", recorder.Last().Kind)
	}

	// Replayed nullifier under a fresh hash must be rejected.
	if _, err := svc.StoreCommitment(ctx, testOwner, labelHash("commit", 2), labelHash("null", 1), labelHash("root", 1)); !errors.Is(err, hedge.ErrNullifierAlreadyUsed) {
		t.Fatalf("nullifier replay = %v, want ErrNullifierAlreadyUsed", err)
	}
}

func TestHedgeServiceSettleCommitment(t *testing.T) {
	svc, admin, relayer, commitmentRepo, _, recorder := newTestHedgeService(t)
	ctx := context.Background()

	hash := labelHash("commit", 1)
	c, err := svc.StoreCommitment(ctx, testOwner, hash, labelHash("null", 1), labelHash("root", 1))
	if err != nil {
		t.Fatalf("StoreCommitment: %v", err)
	}

	if _, err := svc.SettleCommitment(ctx, hash, admin, okProof()); !errors.Is(err, hedge.ErrUnauthorized) {
		t.Fatalf("settle with admin token = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.SettleCommitment(ctx, hash, relayer, okProof()); err != nil {
		t.Fatalf("SettleCommitment: %v", err)
	}
	if len(commitmentRepo.settled) != 1 || commitmentRepo.settled[0] != c.ID {
		t.Fatalf("settled index = %v", commitmentRepo.settled)
	}
	if recorder.Last().Kind != notify.KindHedgeSettled {
		t.Fatalf("expected HedgeSettled notification, got %s", recorder.Last().Kind)
	}
	if _, err := svc.SettleCommitment(ctx, hash, relayer, okProof()); !errors.Is(err, hedge.ErrAlreadySettled) {
		t.Fatalf("double settle = %v, want ErrAlreadySettled", err)
	}
}

func TestHedgeServiceBatchLifecycle(t *testing.T) {
	svc, _, relayer, commitmentRepo, batchRepo, recorder := newTestHedgeService(t)
	ctx := context.Background()

	for i := 0; i < hedge.MaxBatchSize+20; i++ {
		if _, err := svc.StoreCommitment(ctx, testOwner, labelHash("commit", i), labelHash("null", i), labelHash("root", i)); err != nil {
			t.Fatalf("StoreCommitment %d: %v", i, err)
		}
	}

	batch, err := svc.CreateBatch(ctx)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if batch == nil || len(batch.CommitmentIDs) != hedge.MaxBatchSize {
		t.Fatalf("first batch should carry the full cap, got %+v", batch)
	}
	if len(batchRepo.created) != 1 || batchRepo.created[0].Size != hedge.MaxBatchSize {
		t.Fatalf("batch index = %+v", batchRepo.created)
	}
	if got := commitmentRepo.assignments[batch.BatchID]; len(got) != hedge.MaxBatchSize {
		t.Fatalf("assignment index carried %d ids", len(got))
	}
	if recorder.Last().Kind != notify.KindCommitmentBatched {
		t.Fatalf("expected CommitmentBatched notification, got %s", recorder.Last().Kind)
	}

	// The interval gate holds until an hour of real time passes.
	if _, err := svc.CreateBatch(ctx); !errors.Is(err, hedge.ErrBatchNotReady) {
		t.Fatalf("immediate second batch = %v, want ErrBatchNotReady", err)
	}

	if _, err := svc.AggregateBatch(ctx, batch.BatchID, relayer); err != nil {
		t.Fatalf("AggregateBatch: %v", err)
	}
	if len(batchRepo.aggregated) != 1 || batchRepo.aggregated[0] != batch.ID {
		t.Fatalf("aggregation index = %v", batchRepo.aggregated)
	}
	if _, err := svc.AggregateBatch(ctx, batch.BatchID, relayer); !errors.Is(err, hedge.ErrAlreadyAggregated) {
		t.Fatalf("double aggregate = %v, want ErrAlreadyAggregated", err)
	}
}

func TestHedgeServiceCreateBatchEmptyQueue(t *testing.T) {
	svc, _, _, _, batchRepo, _ := newTestHedgeService(t)

	batch, err := svc.CreateBatch(context.Background())
	if err != nil {
		t.Fatalf("CreateBatch on empty queue: %v", err)
	}
	if batch != nil {
		t.Fatalf("empty queue should be a no-op, got %+v", batch)
	}
	if len(batchRepo.created) != 0 {
		t.Fatal("no batch record should be written for the no-op")
	}
}

func TestHedgeServiceAdminOps(t *testing.T) {
	svc, admin, relayer, _, _, _ := newTestHedgeService(t)

	if err := svc.SetTotalValueLocked(relayer, 5000); !errors.Is(err, hedge.ErrUnauthorized) {
		t.Fatalf("set TVL with relayer token = %v, want ErrUnauthorized", err)
	}
	if err := svc.SetTotalValueLocked(admin, 5000); err != nil {
		t.Fatalf("SetTotalValueLocked: %v", err)
	}
	if got := svc.Stats().TotalValueLocked; got != 5000 {
		t.Fatalf("TVL = %d, want 5000", got)
	}
}
