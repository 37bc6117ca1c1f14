package vault

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/derive"
	"go-hedgevault/internal/notify"
	"go-hedgevault/internal/verifier"
)

// WithdrawResult is the outcome of a Withdraw call: exactly one of Payout
// (instant branch) or Pending (time-locked branch) is set.
type WithdrawResult struct {
	Payout  *Payout
	Pending *PendingWithdrawal
}

// Withdraw takes funds out of a proxy after proof verification. Amounts
// below TimeLockThreshold pay out immediately; amounts at or above it only
// create a PendingWithdrawal unlocking at now + TimeLockDuration.
//
// The time-locked branch decrements the proxy's logical DepositedAmount
// right away but moves neither the Balance nor TotalValueLocked; both move
// at execution.
func (s *State) Withdraw(proxy *ProxyBinding, caller common.Address, amount uint64, proof []byte, publicInputs [][]byte, now uint64) (*WithdrawResult, notify.Notification, error) {
	if s.Paused {
		return nil, notify.Notification{}, ErrPaused
	}
	if proxy == nil {
		return nil, notify.Notification{}, ErrNotFound
	}
	if amount == 0 {
		return nil, notify.Notification{}, ErrZeroAmount
	}
	if !proxy.IsActive {
		return nil, notify.Notification{}, ErrProxyInactive
	}
	if caller != proxy.Owner {
		return nil, notify.Notification{}, ErrNotOwner
	}
	if proxy.DepositedAmount < amount {
		return nil, notify.Notification{}, ErrInsufficientBalance
	}
	if !s.verifier.Verify(proof, publicInputs, verifier.ContextVaultWithdraw) {
		return nil, notify.Notification{}, ErrInvalidProof
	}

	if amount < s.TimeLockThreshold {
		proxy.DepositedAmount -= amount
		proxy.Balance -= amount
		s.TotalValueLocked -= amount

		payout := &Payout{Recipient: proxy.Owner, Amount: amount}
		n := notify.Notification{
			Kind:      notify.KindInstantWithdrawal,
			EmittedAt: now,
			Data: map[string]interface{}{
				"proxy_id":         proxy.ID,
				"owner":            proxy.Owner.Hex(),
				"amount":           amount,
				"deposited_amount": proxy.DepositedAmount,
			},
		}
		return &WithdrawResult{Payout: payout}, n, nil
	}

	withdrawalID := derive.WithdrawalID(proxy.Owner, proxy.ID, amount, now)
	if _, exists := s.pendingWithdrawalIndex[withdrawalID]; exists {
		return nil, notify.Notification{}, ErrAlreadyExists
	}

	pending := &PendingWithdrawal{
		ID:           uuid.New().String(),
		WithdrawalID: withdrawalID,
		Owner:        proxy.Owner,
		ProxyID:      proxy.ID,
		Amount:       amount,
		UnlockTime:   now + s.TimeLockDuration,
	}

	proxy.DepositedAmount -= amount
	s.pendingWithdrawalIndex[withdrawalID] = pending.ID
	s.withdrawals[pending.ID] = pending

	n := notify.Notification{
		Kind:      notify.KindWithdrawalRequested,
		EmittedAt: now,
		Data: map[string]interface{}{
			"withdrawal_id": withdrawalID.Hex(),
			"pending_id":    pending.ID,
			"proxy_id":      proxy.ID,
			"owner":         proxy.Owner.Hex(),
			"amount":        amount,
			"unlock_time":   pending.UnlockTime,
		},
	}
	return &WithdrawResult{Pending: pending}, n, nil
}

// ExecuteWithdrawal pays out a matured time-locked withdrawal. It takes
// both the pending object and its proxy so the cross-object accounting is
// atomic within one call. Deliberately not gated by the paused flag: a
// pause must not trap matured withdrawals.
func (s *State) ExecuteWithdrawal(pending *PendingWithdrawal, proxy *ProxyBinding, caller common.Address, now uint64) (*Payout, notify.Notification, error) {
	if pending == nil || proxy == nil || pending.ProxyID != proxy.ID {
		return nil, notify.Notification{}, ErrNotFound
	}
	if caller != pending.Owner {
		return nil, notify.Notification{}, ErrNotOwner
	}
	if pending.Executed {
		return nil, notify.Notification{}, ErrAlreadyExecuted
	}
	if pending.Cancelled {
		return nil, notify.Notification{}, ErrAlreadyCancelled
	}
	if now < pending.UnlockTime {
		return nil, notify.Notification{}, ErrWithdrawalNotReady
	}
	if proxy.Balance < pending.Amount {
		return nil, notify.Notification{}, ErrInsufficientBalance
	}

	pending.Executed = true
	proxy.Balance -= pending.Amount
	s.TotalValueLocked -= pending.Amount

	payout := &Payout{Recipient: pending.Owner, Amount: pending.Amount}
	n := notify.Notification{
		Kind:      notify.KindWithdrawalExecuted,
		EmittedAt: now,
		Data: map[string]interface{}{
			"withdrawal_id": pending.WithdrawalID.Hex(),
			"pending_id":    pending.ID,
			"proxy_id":      proxy.ID,
			"owner":         pending.Owner.Hex(),
			"amount":        pending.Amount,
		},
	}
	return payout, n, nil
}

// CancelWithdrawal abandons a pending withdrawal and restores the proxy's
// logical entitlement. TotalValueLocked is untouched, mirroring that the
// request never decremented it. Owner-gated, not paused-gated.
func (s *State) CancelWithdrawal(pending *PendingWithdrawal, proxy *ProxyBinding, caller common.Address, now uint64) (notify.Notification, error) {
	if pending == nil || proxy == nil || pending.ProxyID != proxy.ID {
		return notify.Notification{}, ErrNotFound
	}
	if caller != pending.Owner {
		return notify.Notification{}, ErrNotOwner
	}
	return s.cancel(pending, proxy, "owner", now)
}

// GuardianCancelWithdrawal is the same transition as CancelWithdrawal but
// authorized by a Guardian capability instead of owner identity.
func (s *State) GuardianCancelWithdrawal(pending *PendingWithdrawal, proxy *ProxyBinding, guardian *capability.Token, now uint64) (notify.Notification, error) {
	if !s.authority.Holds(guardian, capability.RoleGuardian) {
		return notify.Notification{}, ErrUnauthorized
	}
	if pending == nil || proxy == nil || pending.ProxyID != proxy.ID {
		return notify.Notification{}, ErrNotFound
	}
	return s.cancel(pending, proxy, "guardian", now)
}

func (s *State) cancel(pending *PendingWithdrawal, proxy *ProxyBinding, by string, now uint64) (notify.Notification, error) {
	if pending.Executed {
		return notify.Notification{}, ErrAlreadyExecuted
	}
	if pending.Cancelled {
		return notify.Notification{}, ErrAlreadyCancelled
	}

	pending.Cancelled = true
	proxy.DepositedAmount += pending.Amount

	n := notify.Notification{
		Kind:      notify.KindWithdrawalCancelled,
		EmittedAt: now,
		Data: map[string]interface{}{
			"withdrawal_id": pending.WithdrawalID.Hex(),
			"pending_id":    pending.ID,
			"proxy_id":      proxy.ID,
			"owner":         pending.Owner.Hex(),
			"amount":        pending.Amount,
			"cancelled_by":  by,
		},
	}
	return n, nil
}
