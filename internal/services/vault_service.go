// Service layer: serializes access to the in-memory state machines,
// mirrors committed transitions into the index tables, publishes
// notifications and keeps the Prometheus gauges current.
package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/hedge"
	"go-hedgevault/internal/metrics"
	"go-hedgevault/internal/models"
	"go-hedgevault/internal/notify"
	"go-hedgevault/internal/repository"
	"go-hedgevault/internal/vault"
	"go-hedgevault/internal/verifier"
)

const indexWriteTimeout = 5 * time.Second

// nowMs is the single clock read injected into every state transition.
func nowMs() uint64 {
	return uint64(time.Now().UnixMilli())
}

// failureReason maps a rejection to a stable metric label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, vault.ErrPaused), errors.Is(err, hedge.ErrPaused):
		return "paused"
	case errors.Is(err, vault.ErrUnauthorized), errors.Is(err, hedge.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, vault.ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, vault.ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, vault.ErrAlreadyExists), errors.Is(err, hedge.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, vault.ErrNotFound), errors.Is(err, hedge.ErrNotFound):
		return "not_found"
	case errors.Is(err, vault.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, vault.ErrProxyInactive):
		return "proxy_inactive"
	case errors.Is(err, vault.ErrInvalidProof), errors.Is(err, hedge.ErrInvalidProof):
		return "invalid_proof"
	case errors.Is(err, vault.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, vault.ErrWithdrawalNotReady):
		return "not_ready"
	case errors.Is(err, vault.ErrAlreadyExecuted):
		return "already_executed"
	case errors.Is(err, vault.ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, hedge.ErrNullifierAlreadyUsed):
		return "nullifier_used"
	case errors.Is(err, hedge.ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, hedge.ErrBatchNotReady):
		return "batch_not_ready"
	case errors.Is(err, hedge.ErrAlreadyAggregated):
		return "already_aggregated"
	default:
		return "internal"
	}
}

// VaultService owns the proxy vault state machine. All mutations go through
// its mutex; the core state itself carries no locks.
type VaultService struct {
	mu    sync.Mutex
	state *vault.State

	proxyRepo      repository.ProxyRepository
	withdrawalRepo repository.WithdrawalRepository
	publisher      notify.Publisher

	pendingCount int
}

// NewVaultService creates a new VaultService instance. Repositories and
// publisher may be nil (tests, index-less deployments); the state machine
// remains authoritative either way.
func NewVaultService(state *vault.State, proxyRepo repository.ProxyRepository, withdrawalRepo repository.WithdrawalRepository, publisher notify.Publisher) *VaultService {
	return &VaultService{
		state:          state,
		proxyRepo:      proxyRepo,
		withdrawalRepo: withdrawalRepo,
		publisher:      publisher,
	}
}

func (s *VaultService) publish(n notify.Notification) {
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

func (s *VaultService) syncGauges() {
	metrics.VaultTotalValueLocked.Set(float64(s.state.TotalValueLocked))
	metrics.VaultTotalProxies.Set(float64(s.state.TotalProxies))
	metrics.PendingWithdrawals.Set(float64(s.pendingCount))
}

// CreateProxy derives and publishes a new sub-account for the owner.
func (s *VaultService) CreateProxy(ctx context.Context, owner common.Address, bindingHash common.Hash) (*vault.ProxyBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowMs()
	proxy, n, err := s.state.CreateProxy(owner, bindingHash, now)
	if err != nil {
		metrics.VaultOperationFailures.WithLabelValues("create_proxy", failureReason(err)).Inc()
		return nil, err
	}
	metrics.VaultOperations.WithLabelValues("create_proxy").Inc()
	s.syncGauges()

	s.indexProxy(ctx, proxy)
	s.publish(n)

	log.Printf("✅ Proxy %s created for %s (nonce %d)", proxy.ProxyAddress.Hex(), owner.Hex(), proxy.Nonce)
	return proxy, nil
}

// Deposit credits funds to a proxy, looked up by its derived address.
func (s *VaultService) Deposit(ctx context.Context, proxyAddress common.Address, amount uint64) (*vault.ProxyBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proxy, err := s.state.ProxyByAddress(proxyAddress)
	if err != nil {
		metrics.VaultOperationFailures.WithLabelValues("deposit", failureReason(err)).Inc()
		return nil, err
	}

	n, err := s.state.Deposit(proxy, amount, nowMs())
	if err != nil {
		metrics.VaultOperationFailures.WithLabelValues("deposit", failureReason(err)).Inc()
		return nil, err
	}
	metrics.VaultOperations.WithLabelValues("deposit").Inc()
	s.syncGauges()

	s.indexProxyBalances(ctx, proxy)
	s.publish(n)
	return proxy, nil
}

// Withdraw runs the proof-gated withdrawal flow against the proxy at the
// given derived address. The result carries either an immediate payout or
// the pending time-locked request.
func (s *VaultService) Withdraw(ctx context.Context, proxyAddress common.Address, caller common.Address, amount uint64, proof []byte, publicInputs [][]byte) (*vault.WithdrawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proxy, err := s.state.ProxyByAddress(proxyAddress)
	if err != nil {
		metrics.VaultOperationFailures.WithLabelValues("withdraw", failureReason(err)).Inc()
		return nil, err
	}

	result, n, err := s.state.Withdraw(proxy, caller, amount, proof, publicInputs, nowMs())
	if err != nil {
		metrics.VaultOperationFailures.WithLabelValues("withdraw", failureReason(err)).Inc()
		return nil, err
	}
	metrics.VaultOperations.WithLabelValues("withdraw").Inc()

	s.indexProxyBalances(ctx, proxy)
	if result.Pending != nil {
		s.pendingCount++
		s.indexWithdrawal(ctx, result.Pending)
	}
	s.syncGauges()
	s.publish(n)
	return result, nil
}

// ExecuteWithdrawal pays out a matured withdrawal, looked up by its derived
// withdrawal identifier.
func (s *VaultService) ExecuteWithdrawal(ctx context.Context, withdrawalID common.Hash, caller common.Address) (*vault.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, proxy, err := s.resolveWithdrawal(withdrawalID)
	if err != nil {
		metrics.VaultOperationFailures.WithLabelValues("execute_withdrawal", failureReason(err)).Inc()
		return nil, err
	}

	payout, n, err := s.state.ExecuteWithdrawal(pending, proxy, caller, nowMs())
	if err != nil {
		metrics.VaultOperationFailures.WithLabelValues("execute_withdrawal", failureReason(err)).Inc()
		return nil, err
	}
	metrics.VaultOperations.WithLabelValues("execute_withdrawal").Inc()
	s.pendingCount--
	s.syncGauges()

	s.indexProxyBalances(ctx, proxy)
	s.indexWithdrawalStatus(ctx, pending.ID, models.WithdrawalStatusExecuted)
	s.publish(n)

	log.Printf("✅ Withdrawal %s executed: %d to %s", withdrawalID.Hex(), payout.Amount, payout.Recipient.Hex())
	return payout, nil
}

// CancelWithdrawal abandons a pending withdrawal on behalf of its owner.
func (s *VaultService) CancelWithdrawal(ctx context.Context, withdrawalID common.Hash, caller common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, proxy, err := s.resolveWithdrawal(withdrawalID)
	if err != nil {
		metrics.VaultOperationFailures.WithLabelValues("cancel_withdrawal", failureReason(err)).Inc()
		return err
	}

	n, err := s.state.CancelWithdrawal(pending, proxy, caller, nowMs())
	if err != nil {
		metrics.VaultOperationFailures.WithLabelValues("cancel_withdrawal", failureReason(err)).Inc()
		return err
	}
	s.finishCancel(ctx, pending, proxy, n, "cancel_withdrawal")
	return nil
}

// GuardianCancelWithdrawal abandons a pending withdrawal under a Guardian
// capability, typically in response to a compromised owner key.
func (s *VaultService) GuardianCancelWithdrawal(ctx context.Context, withdrawalID common.Hash, guardian *capability.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, proxy, err := s.resolveWithdrawal(withdrawalID)
	if err != nil {
		metrics.VaultOperationFailures.WithLabelValues("guardian_cancel", failureReason(err)).Inc()
		return err
	}

	n, err := s.state.GuardianCancelWithdrawal(pending, proxy, guardian, nowMs())
	if err != nil {
		metrics.VaultOperationFailures.WithLabelValues("guardian_cancel", failureReason(err)).Inc()
		return err
	}
	s.finishCancel(ctx, pending, proxy, n, "guardian_cancel")
	return nil
}

func (s *VaultService) finishCancel(ctx context.Context, pending *vault.PendingWithdrawal, proxy *vault.ProxyBinding, n notify.Notification, op string) {
	metrics.VaultOperations.WithLabelValues(op).Inc()
	s.pendingCount--
	s.syncGauges()

	s.indexProxyBalances(ctx, proxy)
	s.indexWithdrawalStatus(ctx, pending.ID, models.WithdrawalStatusCancelled)
	s.publish(n)
}

// Pause halts the vault under a Guardian capability.
func (s *VaultService) Pause(guardian *capability.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.Pause(guardian); err != nil {
		metrics.VaultOperationFailures.WithLabelValues("pause", failureReason(err)).Inc()
		return err
	}
	metrics.VaultOperations.WithLabelValues("pause").Inc()
	log.Println("⚠️ Vault paused")
	return nil
}

// Unpause resumes the vault under an Admin capability.
func (s *VaultService) Unpause(admin *capability.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.Unpause(admin); err != nil {
		metrics.VaultOperationFailures.WithLabelValues("unpause", failureReason(err)).Inc()
		return err
	}
	metrics.VaultOperations.WithLabelValues("unpause").Inc()
	log.Println("✅ Vault unpaused")
	return nil
}

// SetTimeLockThreshold updates the time-lock boundary. Admin only.
func (s *VaultService) SetTimeLockThreshold(admin *capability.Token, threshold uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetTimeLockThreshold(admin, threshold)
}

// SetTimeLockDuration updates the time-lock delay in milliseconds. Admin only.
func (s *VaultService) SetTimeLockDuration(admin *capability.Token, duration uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetTimeLockDuration(admin, duration)
}

// SetVerifier swaps the proof gateway. Admin only.
func (s *VaultService) SetVerifier(admin *capability.Token, v verifier.ProofVerifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.state.SetVerifier(admin, v, nowMs())
	if err != nil {
		return err
	}
	s.publish(n)
	log.Println("✅ Vault proof verifier updated")
	return nil
}

// VaultStats is a read-only snapshot of the vault counters and policy.
type VaultStats struct {
	TotalValueLocked   uint64 `json:"total_value_locked"`
	TotalProxies       uint64 `json:"total_proxies"`
	PendingWithdrawals int    `json:"pending_withdrawals"`
	TimeLockThreshold  uint64 `json:"time_lock_threshold"`
	TimeLockDuration   uint64 `json:"time_lock_duration_ms"`
	Paused             bool   `json:"paused"`
}

// Stats snapshots the vault counters under the service lock.
func (s *VaultService) Stats() VaultStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return VaultStats{
		TotalValueLocked:   s.state.TotalValueLocked,
		TotalProxies:       s.state.TotalProxies,
		PendingWithdrawals: s.pendingCount,
		TimeLockThreshold:  s.state.TimeLockThreshold,
		TimeLockDuration:   s.state.TimeLockDuration,
		Paused:             s.state.Paused,
	}
}

// ProxyByAddress returns the live binding for a derived address.
func (s *VaultService) ProxyByAddress(addr common.Address) (*vault.ProxyBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ProxyByAddress(addr)
}

// ProxiesByOwner returns the owner's bindings in creation order.
func (s *VaultService) ProxiesByOwner(owner common.Address) []*vault.ProxyBinding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ProxiesByOwner(owner)
}

// WithdrawalByDerivedID returns the live pending withdrawal, if any.
func (s *VaultService) WithdrawalByDerivedID(withdrawalID common.Hash) (*vault.PendingWithdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.WithdrawalByDerivedID(withdrawalID)
}

func (s *VaultService) resolveWithdrawal(withdrawalID common.Hash) (*vault.PendingWithdrawal, *vault.ProxyBinding, error) {
	pending, err := s.state.WithdrawalByDerivedID(withdrawalID)
	if err != nil {
		return nil, nil, err
	}
	proxy, err := s.state.ProxyByID(pending.ProxyID)
	if err != nil {
		return nil, nil, err
	}
	return pending, proxy, nil
}

// Index writes are best-effort: the in-memory state is authoritative and a
// failed mirror write must not roll back a committed transition.

func (s *VaultService) indexProxy(ctx context.Context, proxy *vault.ProxyBinding) {
	if s.proxyRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, indexWriteTimeout)
	defer cancel()

	record := &models.ProxyRecord{
		ID:              proxy.ID,
		ProxyAddress:    proxy.ProxyAddress.Hex(),
		Owner:           proxy.Owner.Hex(),
		BindingHash:     proxy.BindingHash.Hex(),
		Nonce:           proxy.Nonce,
		DepositedAmount: proxy.DepositedAmount,
		Balance:         proxy.Balance,
		IsActive:        proxy.IsActive,
		CreatedAtMs:     proxy.CreatedAt,
	}
	if err := s.proxyRepo.Create(ctx, record); err != nil {
		log.Printf("❌ Failed to index proxy %s: %v", proxy.ID, err)
	}
}

func (s *VaultService) indexProxyBalances(ctx context.Context, proxy *vault.ProxyBinding) {
	if s.proxyRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, indexWriteTimeout)
	defer cancel()

	if err := s.proxyRepo.UpdateBalances(ctx, proxy.ID, proxy.DepositedAmount, proxy.Balance); err != nil {
		log.Printf("❌ Failed to index balances for proxy %s: %v", proxy.ID, err)
	}
}

func (s *VaultService) indexWithdrawal(ctx context.Context, pending *vault.PendingWithdrawal) {
	if s.withdrawalRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, indexWriteTimeout)
	defer cancel()

	record := &models.WithdrawalRecord{
		ID:           pending.ID,
		WithdrawalID: pending.WithdrawalID.Hex(),
		ProxyID:      pending.ProxyID,
		Owner:        pending.Owner.Hex(),
		Amount:       pending.Amount,
		UnlockTime:   pending.UnlockTime,
		Status:       models.WithdrawalStatusPending,
	}
	if err := s.withdrawalRepo.Create(ctx, record); err != nil {
		log.Printf("❌ Failed to index withdrawal %s: %v", pending.ID, err)
	}
}

func (s *VaultService) indexWithdrawalStatus(ctx context.Context, id string, status models.WithdrawalStatus) {
	if s.withdrawalRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, indexWriteTimeout)
	defer cancel()

	if err := s.withdrawalRepo.UpdateStatus(ctx, id, status); err != nil {
		log.Printf("❌ Failed to index withdrawal status %s=%s: %v", id, status, err)
	}
}
