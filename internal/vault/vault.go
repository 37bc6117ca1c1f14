// Proxy vault state machine: deterministically derived custodial
// sub-accounts, zero-knowledge gated withdrawals and time-locked large
// withdrawals.
//
// The state is single-writer by construction: callers (the service layer)
// serialize operations touching the same State. Operations that must mutate
// several objects atomically take references to all of them in one call.
// Time is always an injected millisecond timestamp.
package vault

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/derive"
	"go-hedgevault/internal/notify"
	"go-hedgevault/internal/verifier"
)

// ProxyBinding is a custodial sub-account bound to one owner. Address,
// owner, binding hash and nonce are immutable after creation.
//
// DepositedAmount is the logical entitlement; Balance is the funds actually
// held. The two diverge while a time-locked withdrawal is pending: the
// request decrements DepositedAmount immediately but leaves Balance (and
// the vault's TotalValueLocked) untouched until execution.
type ProxyBinding struct {
	ID              string
	ProxyAddress    common.Address
	Owner           common.Address
	BindingHash     common.Hash
	DepositedAmount uint64
	Balance         uint64
	CreatedAt       uint64
	IsActive        bool
	Nonce           uint64
}

// PendingWithdrawal is a time-locked withdrawal request. Exactly one of
// Executed/Cancelled ever becomes true; both false means pending.
type PendingWithdrawal struct {
	ID           string
	WithdrawalID common.Hash
	Owner        common.Address
	ProxyID      string
	Amount       uint64
	UnlockTime   uint64
	Executed     bool
	Cancelled    bool
}

// Pending reports whether the withdrawal has not reached a terminal state.
func (w *PendingWithdrawal) Pending() bool {
	return !w.Executed && !w.Cancelled
}

// Payout describes funds leaving the vault toward an owner. The host
// transfer layer consumes it; the state machine only does the accounting.
type Payout struct {
	Recipient common.Address
	Amount    uint64
}

// State is the process-wide vault singleton, created once at deploy time
// and threaded through every operation by reference.
type State struct {
	TimeLockThreshold uint64
	TimeLockDuration  uint64
	TotalValueLocked  uint64
	TotalProxies      uint64
	Paused            bool

	ownerNonces            map[common.Address]uint64
	proxyAddressIndex      map[common.Address]string
	ownerProxyIndex        map[common.Address][]string
	pendingWithdrawalIndex map[common.Hash]string

	proxies     map[string]*ProxyBinding
	withdrawals map[string]*PendingWithdrawal

	authority *capability.Authority
	verifier  verifier.ProofVerifier
}

// NewState builds the vault singleton. The verifier starts as the
// placeholder gate and can be swapped by an Admin through SetVerifier.
func NewState(authority *capability.Authority, timeLockThreshold, timeLockDuration uint64) *State {
	return &State{
		TimeLockThreshold:      timeLockThreshold,
		TimeLockDuration:       timeLockDuration,
		ownerNonces:            make(map[common.Address]uint64),
		proxyAddressIndex:      make(map[common.Address]string),
		ownerProxyIndex:        make(map[common.Address][]string),
		pendingWithdrawalIndex: make(map[common.Hash]string),
		proxies:                make(map[string]*ProxyBinding),
		withdrawals:            make(map[string]*PendingWithdrawal),
		authority:              authority,
		verifier:               verifier.Placeholder{},
	}
}

// CreateProxy derives a fresh sub-account for the caller from their next
// nonce and the supplied binding hash, and publishes the binding.
func (s *State) CreateProxy(caller common.Address, bindingHash common.Hash, now uint64) (*ProxyBinding, notify.Notification, error) {
	if s.Paused {
		return nil, notify.Notification{}, ErrPaused
	}
	if caller == (common.Address{}) {
		return nil, notify.Notification{}, ErrInvalidAddress
	}

	nonce := s.ownerNonces[caller]
	addr := derive.ProxyAddress(caller, nonce, bindingHash)
	if _, exists := s.proxyAddressIndex[addr]; exists {
		return nil, notify.Notification{}, ErrAlreadyExists
	}

	proxy := &ProxyBinding{
		ID:           uuid.New().String(),
		ProxyAddress: addr,
		Owner:        caller,
		BindingHash:  bindingHash,
		CreatedAt:    now,
		IsActive:     true,
		Nonce:        nonce,
	}

	s.ownerNonces[caller] = nonce + 1
	s.proxyAddressIndex[addr] = proxy.ID
	s.ownerProxyIndex[caller] = append(s.ownerProxyIndex[caller], proxy.ID)
	s.proxies[proxy.ID] = proxy
	s.TotalProxies++

	n := notify.Notification{
		Kind:      notify.KindProxyCreated,
		EmittedAt: now,
		Data: map[string]interface{}{
			"proxy_id":      proxy.ID,
			"proxy_address": addr.Hex(),
			"owner":         caller.Hex(),
			"binding_hash":  bindingHash.Hex(),
			"nonce":         nonce,
		},
	}
	return proxy, n, nil
}

// Deposit merges funds into the proxy. Anyone may deposit into any active
// proxy; only withdrawal is owner-gated.
func (s *State) Deposit(proxy *ProxyBinding, amount uint64, now uint64) (notify.Notification, error) {
	if s.Paused {
		return notify.Notification{}, ErrPaused
	}
	if proxy == nil {
		return notify.Notification{}, ErrNotFound
	}
	if !proxy.IsActive {
		return notify.Notification{}, ErrProxyInactive
	}
	if amount == 0 {
		return notify.Notification{}, ErrZeroAmount
	}

	proxy.Balance += amount
	proxy.DepositedAmount += amount
	s.TotalValueLocked += amount

	n := notify.Notification{
		Kind:      notify.KindDeposited,
		EmittedAt: now,
		Data: map[string]interface{}{
			"proxy_id":         proxy.ID,
			"proxy_address":    proxy.ProxyAddress.Hex(),
			"amount":           amount,
			"deposited_amount": proxy.DepositedAmount,
		},
	}
	return n, nil
}

// ProxyByID looks up a published proxy binding.
func (s *State) ProxyByID(id string) (*ProxyBinding, error) {
	p, ok := s.proxies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// ProxyByAddress looks up a proxy binding by its derived address.
func (s *State) ProxyByAddress(addr common.Address) (*ProxyBinding, error) {
	id, ok := s.proxyAddressIndex[addr]
	if !ok {
		return nil, ErrNotFound
	}
	return s.proxies[id], nil
}

// ProxiesByOwner returns the owner's bindings in creation order.
func (s *State) ProxiesByOwner(owner common.Address) []*ProxyBinding {
	ids := s.ownerProxyIndex[owner]
	out := make([]*ProxyBinding, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.proxies[id])
	}
	return out
}

// WithdrawalByID looks up a published pending withdrawal by its object ID.
func (s *State) WithdrawalByID(id string) (*PendingWithdrawal, error) {
	w, ok := s.withdrawals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return w, nil
}

// WithdrawalByDerivedID looks up a pending withdrawal by its derived
// withdrawal identifier.
func (s *State) WithdrawalByDerivedID(withdrawalID common.Hash) (*PendingWithdrawal, error) {
	id, ok := s.pendingWithdrawalIndex[withdrawalID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.withdrawals[id], nil
}

// NextNonce reports the nonce the owner's next CreateProxy will consume.
func (s *State) NextNonce(owner common.Address) uint64 {
	return s.ownerNonces[owner]
}
