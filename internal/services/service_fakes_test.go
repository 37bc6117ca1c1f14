package services

import (
	"context"
	"errors"

	"go-hedgevault/internal/models"
	"go-hedgevault/internal/notify"
)

// In-memory repository fakes. Only the write paths the services exercise
// are recorded; reads go through the live state machines in these tests.

type fakeProxyRepo struct {
	created        []*models.ProxyRecord
	balanceUpdates map[string][2]uint64 // id -> {deposited, balance}
}

func newFakeProxyRepo() *fakeProxyRepo {
	return &fakeProxyRepo{balanceUpdates: make(map[string][2]uint64)}
}

func (r *fakeProxyRepo) Create(_ context.Context, p *models.ProxyRecord) error {
	r.created = append(r.created, p)
	return nil
}
func (r *fakeProxyRepo) GetByID(context.Context, string) (*models.ProxyRecord, error) {
	return nil, nil
}
func (r *fakeProxyRepo) GetByAddress(context.Context, string) (*models.ProxyRecord, error) {
	return nil, nil
}
func (r *fakeProxyRepo) FindByOwner(context.Context, string) ([]*models.ProxyRecord, error) {
	return nil, nil
}
func (r *fakeProxyRepo) Update(context.Context, *models.ProxyRecord) error { return nil }
func (r *fakeProxyRepo) UpdateBalances(_ context.Context, id string, deposited, balance uint64) error {
	r.balanceUpdates[id] = [2]uint64{deposited, balance}
	return nil
}
func (r *fakeProxyRepo) List(context.Context, int, int) ([]*models.ProxyRecord, int64, error) {
	return nil, 0, nil
}

type fakeWithdrawalRepo struct {
	created  []*models.WithdrawalRecord
	statuses map[string]models.WithdrawalStatus
}

func newFakeWithdrawalRepo() *fakeWithdrawalRepo {
	return &fakeWithdrawalRepo{statuses: make(map[string]models.WithdrawalStatus)}
}

func (r *fakeWithdrawalRepo) Create(_ context.Context, w *models.WithdrawalRecord) error {
	r.created = append(r.created, w)
	return nil
}
func (r *fakeWithdrawalRepo) GetByID(context.Context, string) (*models.WithdrawalRecord, error) {
	return nil, nil
}
func (r *fakeWithdrawalRepo) GetByWithdrawalID(context.Context, string) (*models.WithdrawalRecord, error) {
	return nil, nil
}
func (r *fakeWithdrawalRepo) FindByOwner(context.Context, string) ([]*models.WithdrawalRecord, error) {
	return nil, nil
}
func (r *fakeWithdrawalRepo) FindByStatus(context.Context, models.WithdrawalStatus) ([]*models.WithdrawalRecord, error) {
	return nil, nil
}
func (r *fakeWithdrawalRepo) UpdateStatus(_ context.Context, id string, status models.WithdrawalStatus) error {
	r.statuses[id] = status
	return nil
}

type fakeCommitmentRepo struct {
	created     []*models.CommitmentRecord
	settled     []string
	assignments map[uint64][]string // batch number -> member IDs
}

func newFakeCommitmentRepo() *fakeCommitmentRepo {
	return &fakeCommitmentRepo{assignments: make(map[uint64][]string)}
}

func (r *fakeCommitmentRepo) Create(_ context.Context, c *models.CommitmentRecord) error {
	r.created = append(r.created, c)
	return nil
}
func (r *fakeCommitmentRepo) GetByID(context.Context, string) (*models.CommitmentRecord, error) {
	return nil, nil
}
func (r *fakeCommitmentRepo) GetByCommitmentHash(context.Context, string) (*models.CommitmentRecord, error) {
	return nil, nil
}
func (r *fakeCommitmentRepo) FindByStealthAddress(context.Context, string) ([]*models.CommitmentRecord, error) {
	return nil, nil
}
func (r *fakeCommitmentRepo) FindUnbatched(context.Context) ([]*models.CommitmentRecord, error) {
	return nil, nil
}
func (r *fakeCommitmentRepo) MarkSettled(_ context.Context, id string) error {
	r.settled = append(r.settled, id)
	return nil
}
func (r *fakeCommitmentRepo) AssignBatch(_ context.Context, ids []string, batchNumber uint64) error {
	r.assignments[batchNumber] = append([]string(nil), ids...)
	return nil
}
func (r *fakeCommitmentRepo) List(context.Context, int, int) ([]*models.CommitmentRecord, int64, error) {
	return nil, 0, nil
}

type fakeBatchRepo struct {
	created    []*models.BatchRecord
	aggregated []string
}

func (r *fakeBatchRepo) Create(_ context.Context, b *models.BatchRecord) error {
	r.created = append(r.created, b)
	return nil
}
func (r *fakeBatchRepo) GetByID(context.Context, string) (*models.BatchRecord, error) {
	return nil, nil
}
func (r *fakeBatchRepo) GetByBatchNumber(context.Context, uint64) (*models.BatchRecord, error) {
	return nil, nil
}
func (r *fakeBatchRepo) MarkAggregated(_ context.Context, id string) error {
	r.aggregated = append(r.aggregated, id)
	return nil
}
func (r *fakeBatchRepo) List(context.Context, int, int) ([]*models.BatchRecord, int64, error) {
	return nil, 0, nil
}

// failingPublisher always errors, to show publish failures never surface
// as operation failures.
type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(notify.Notification) error {
	p.calls++
	return errors.New("publisher down")
}
