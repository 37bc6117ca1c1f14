package vault

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/notify"
)

const (
	threshold = 100
	duration  = 86_400_000 // 24h in ms
	t0        = uint64(1_700_000_000_000)
)

var (
	deployer = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000b2")

	bindingHash = common.HexToHash("0x0102030405060708")

	okProof  = bytes.Repeat([]byte{0x42}, 64)
	okInputs = [][]byte{{1}, {2}, {3}, {4}}
)

func newTestState(t *testing.T) (*State, *capability.Authority, *capability.Token) {
	t.Helper()
	auth, admin := capability.NewAuthority(deployer)
	return NewState(auth, threshold, duration), auth, admin
}

func mustCreateProxy(t *testing.T, s *State, owner common.Address) *ProxyBinding {
	t.Helper()
	proxy, _, err := s.CreateProxy(owner, bindingHash, t0)
	if err != nil {
		t.Fatalf("CreateProxy: %v", err)
	}
	return proxy
}

func mustDeposit(t *testing.T, s *State, proxy *ProxyBinding, amount uint64) {
	t.Helper()
	if _, err := s.Deposit(proxy, amount, t0); err != nil {
		t.Fatalf("Deposit(%d): %v", amount, err)
	}
}

func TestCreateProxyNoncesStrictlyIncrease(t *testing.T) {
	s, _, _ := newTestState(t)

	seen := make(map[common.Address]bool)
	for i := uint64(0); i < 5; i++ {
		proxy := mustCreateProxy(t, s, alice)
		if proxy.Nonce != i {
			t.Fatalf("proxy %d consumed nonce %d", i, proxy.Nonce)
		}
		if seen[proxy.ProxyAddress] {
			t.Fatalf("derived address reused: %s", proxy.ProxyAddress.Hex())
		}
		seen[proxy.ProxyAddress] = true
	}
	if s.NextNonce(alice) != 5 {
		t.Fatalf("next nonce = %d, want 5", s.NextNonce(alice))
	}
	if s.TotalProxies != 5 {
		t.Fatalf("TotalProxies = %d, want 5", s.TotalProxies)
	}
}

func TestCreateProxyDistinctOwnersDistinctAddresses(t *testing.T) {
	s, _, _ := newTestState(t)

	// Both consume nonce 0 with the same binding hash; the owner is part of
	// the derivation so the addresses still differ.
	pa := mustCreateProxy(t, s, alice)
	pb := mustCreateProxy(t, s, bob)
	if pa.ProxyAddress == pb.ProxyAddress {
		t.Fatal("two owners at nonce 0 derived the same address")
	}
}

func TestCreateProxyRejections(t *testing.T) {
	s, _, admin := newTestState(t)
	auth := s.authority
	guardian, _ := auth.Grant(admin, capability.RoleGuardian, deployer)

	if _, _, err := s.CreateProxy(common.Address{}, bindingHash, t0); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("zero owner: got %v, want ErrInvalidAddress", err)
	}

	if err := s.Pause(guardian); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, _, err := s.CreateProxy(alice, bindingHash, t0); !errors.Is(err, ErrPaused) {
		t.Fatalf("paused: got %v, want ErrPaused", err)
	}
}

func TestDeposit(t *testing.T) {
	s, _, _ := newTestState(t)
	proxy := mustCreateProxy(t, s, alice)

	n, err := s.Deposit(proxy, 50, t0)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if n.Kind != notify.KindDeposited {
		t.Fatalf("notification kind = %s", n.Kind)
	}
	if proxy.Balance != 50 || proxy.DepositedAmount != 50 || s.TotalValueLocked != 50 {
		t.Fatalf("accounting after deposit: balance=%d deposited=%d tvl=%d",
			proxy.Balance, proxy.DepositedAmount, s.TotalValueLocked)
	}

	if _, err := s.Deposit(proxy, 0, t0); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("zero deposit: got %v, want ErrZeroAmount", err)
	}

	proxy.IsActive = false
	if _, err := s.Deposit(proxy, 10, t0); !errors.Is(err, ErrProxyInactive) {
		t.Fatalf("inactive deposit: got %v, want ErrProxyInactive", err)
	}
}

func TestInstantWithdrawal(t *testing.T) {
	// Deposit 50, withdraw 30 below threshold 100: instant payout, logical
	// balance 20, TVL down by 30.
	s, _, _ := newTestState(t)
	proxy := mustCreateProxy(t, s, alice)
	mustDeposit(t, s, proxy, 50)

	res, n, err := s.Withdraw(proxy, alice, 30, okProof, okInputs, t0)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if res.Payout == nil || res.Pending != nil {
		t.Fatalf("expected instant payout, got %+v", res)
	}
	if res.Payout.Recipient != alice || res.Payout.Amount != 30 {
		t.Fatalf("payout = %+v", res.Payout)
	}
	if n.Kind != notify.KindInstantWithdrawal {
		t.Fatalf("notification kind = %s", n.Kind)
	}
	if proxy.DepositedAmount != 20 || proxy.Balance != 20 || s.TotalValueLocked != 20 {
		t.Fatalf("accounting: deposited=%d balance=%d tvl=%d",
			proxy.DepositedAmount, proxy.Balance, s.TotalValueLocked)
	}
}

func TestWithdrawRejections(t *testing.T) {
	s, _, _ := newTestState(t)
	proxy := mustCreateProxy(t, s, alice)
	mustDeposit(t, s, proxy, 50)

	tests := []struct {
		name    string
		caller  common.Address
		amount  uint64
		proof   []byte
		inputs  [][]byte
		wantErr error
	}{
		{"zero amount", alice, 0, okProof, okInputs, ErrZeroAmount},
		{"not owner", bob, 10, okProof, okInputs, ErrNotOwner},
		{"insufficient", alice, 60, okProof, okInputs, ErrInsufficientBalance},
		{"short proof", alice, 10, okProof[:32], okInputs, ErrInvalidProof},
		{"thin public inputs", alice, 10, okProof, okInputs[:2], ErrInvalidProof},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Withdraw(proxy, tt.caller, tt.amount, tt.proof, tt.inputs, t0)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	// No rejection above may have mutated anything.
	if proxy.DepositedAmount != 50 || proxy.Balance != 50 || s.TotalValueLocked != 50 {
		t.Fatalf("rejected ops mutated state: deposited=%d balance=%d tvl=%d",
			proxy.DepositedAmount, proxy.Balance, s.TotalValueLocked)
	}
}

func TestTimeLockedWithdrawalLifecycle(t *testing.T) {
	// Deposit 200, withdraw 150 (>= threshold): deposited drops to 50
	// immediately, TVL and balance move only at execution.
	s, _, _ := newTestState(t)
	proxy := mustCreateProxy(t, s, alice)
	mustDeposit(t, s, proxy, 200)

	res, n, err := s.Withdraw(proxy, alice, 150, okProof, okInputs, t0)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if res.Pending == nil || res.Payout != nil {
		t.Fatalf("expected pending withdrawal, got %+v", res)
	}
	pending := res.Pending

	if n.Kind != notify.KindWithdrawalRequested {
		t.Fatalf("notification kind = %s", n.Kind)
	}
	if pending.UnlockTime != t0+duration {
		t.Fatalf("unlock time = %d, want %d", pending.UnlockTime, t0+duration)
	}
	if proxy.DepositedAmount != 50 {
		t.Fatalf("deposited = %d, want 50", proxy.DepositedAmount)
	}
	if proxy.Balance != 200 || s.TotalValueLocked != 200 {
		t.Fatalf("funds moved early: balance=%d tvl=%d", proxy.Balance, s.TotalValueLocked)
	}

	// One tick before unlock: not ready.
	if _, _, err := s.ExecuteWithdrawal(pending, proxy, alice, t0+duration-1); !errors.Is(err, ErrWithdrawalNotReady) {
		t.Fatalf("early execute: got %v, want ErrWithdrawalNotReady", err)
	}

	// Wrong caller.
	if _, _, err := s.ExecuteWithdrawal(pending, proxy, bob, t0+duration); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("wrong caller: got %v, want ErrNotOwner", err)
	}

	// At unlock: succeeds exactly once, TVL drops by 150 now.
	payout, en, err := s.ExecuteWithdrawal(pending, proxy, alice, t0+duration)
	if err != nil {
		t.Fatalf("ExecuteWithdrawal: %v", err)
	}
	if en.Kind != notify.KindWithdrawalExecuted {
		t.Fatalf("notification kind = %s", en.Kind)
	}
	if payout.Amount != 150 || payout.Recipient != alice {
		t.Fatalf("payout = %+v", payout)
	}
	if proxy.Balance != 50 || s.TotalValueLocked != 50 {
		t.Fatalf("post-execute accounting: balance=%d tvl=%d", proxy.Balance, s.TotalValueLocked)
	}

	// Second execution fails.
	if _, _, err := s.ExecuteWithdrawal(pending, proxy, alice, t0+duration+1); !errors.Is(err, ErrAlreadyExecuted) {
		t.Fatalf("replay execute: got %v, want ErrAlreadyExecuted", err)
	}

	// Cancellation after execution fails too.
	if _, err := s.CancelWithdrawal(pending, proxy, alice, t0+duration+1); !errors.Is(err, ErrAlreadyExecuted) {
		t.Fatalf("cancel after execute: got %v, want ErrAlreadyExecuted", err)
	}
}

func TestCancelWithdrawalRestoresEntitlement(t *testing.T) {
	s, _, _ := newTestState(t)
	proxy := mustCreateProxy(t, s, alice)
	mustDeposit(t, s, proxy, 200)

	res, _, err := s.Withdraw(proxy, alice, 150, okProof, okInputs, t0)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	pending := res.Pending

	if _, err := s.CancelWithdrawal(pending, proxy, bob, t0); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("stranger cancel: got %v, want ErrNotOwner", err)
	}

	n, err := s.CancelWithdrawal(pending, proxy, alice, t0)
	if err != nil {
		t.Fatalf("CancelWithdrawal: %v", err)
	}
	if n.Kind != notify.KindWithdrawalCancelled {
		t.Fatalf("notification kind = %s", n.Kind)
	}
	if proxy.DepositedAmount != 200 {
		t.Fatalf("deposited after cancel = %d, want 200", proxy.DepositedAmount)
	}
	// Cancellation never touches TVL.
	if s.TotalValueLocked != 200 {
		t.Fatalf("tvl after cancel = %d, want 200", s.TotalValueLocked)
	}

	// Terminal state is one-way: neither execute nor re-cancel succeeds.
	if _, _, err := s.ExecuteWithdrawal(pending, proxy, alice, t0+duration); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("execute after cancel: got %v, want ErrAlreadyCancelled", err)
	}
	if _, err := s.CancelWithdrawal(pending, proxy, alice, t0); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("double cancel: got %v, want ErrAlreadyCancelled", err)
	}
}

func TestGuardianCancelWithdrawal(t *testing.T) {
	s, auth, admin := newTestState(t)
	guardian, _ := auth.Grant(admin, capability.RoleGuardian, deployer)
	relayer, _ := auth.Grant(admin, capability.RoleRelayer, deployer)

	proxy := mustCreateProxy(t, s, alice)
	mustDeposit(t, s, proxy, 200)
	res, _, err := s.Withdraw(proxy, alice, 150, okProof, okInputs, t0)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	if _, err := s.GuardianCancelWithdrawal(res.Pending, proxy, relayer, t0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("relayer cancel: got %v, want ErrUnauthorized", err)
	}
	if _, err := s.GuardianCancelWithdrawal(res.Pending, proxy, guardian, t0); err != nil {
		t.Fatalf("guardian cancel: %v", err)
	}
	if proxy.DepositedAmount != 200 {
		t.Fatalf("deposited after guardian cancel = %d, want 200", proxy.DepositedAmount)
	}
}

func TestExecuteNotGatedByPause(t *testing.T) {
	s, auth, admin := newTestState(t)
	guardian, _ := auth.Grant(admin, capability.RoleGuardian, deployer)

	proxy := mustCreateProxy(t, s, alice)
	mustDeposit(t, s, proxy, 200)
	res, _, err := s.Withdraw(proxy, alice, 150, okProof, okInputs, t0)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	if err := s.Pause(guardian); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	// New withdrawals are blocked while paused...
	if _, _, err := s.Withdraw(proxy, alice, 10, okProof, okInputs, t0); !errors.Is(err, ErrPaused) {
		t.Fatalf("withdraw while paused: got %v, want ErrPaused", err)
	}

	// ...but matured ones still execute.
	if _, _, err := s.ExecuteWithdrawal(res.Pending, proxy, alice, t0+duration); err != nil {
		t.Fatalf("execute while paused: %v", err)
	}
}

func TestPauseAuthorizationAsymmetry(t *testing.T) {
	s, auth, admin := newTestState(t)
	guardian, _ := auth.Grant(admin, capability.RoleGuardian, deployer)

	// Admin cannot pause; Guardian can.
	if err := s.Pause(admin); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("admin pause: got %v, want ErrUnauthorized", err)
	}
	if err := s.Pause(guardian); err != nil {
		t.Fatalf("guardian pause: %v", err)
	}

	// Guardian cannot unpause; Admin can.
	if err := s.Unpause(guardian); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("guardian unpause: got %v, want ErrUnauthorized", err)
	}
	if err := s.Unpause(admin); err != nil {
		t.Fatalf("admin unpause: %v", err)
	}
	if s.Paused {
		t.Fatal("state still paused")
	}
}

func TestAdminConfigOps(t *testing.T) {
	s, auth, admin := newTestState(t)
	guardian, _ := auth.Grant(admin, capability.RoleGuardian, deployer)

	if err := s.SetTimeLockThreshold(guardian, 500); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("guardian set threshold: got %v, want ErrUnauthorized", err)
	}
	if err := s.SetTimeLockThreshold(admin, 500); err != nil {
		t.Fatalf("SetTimeLockThreshold: %v", err)
	}
	if err := s.SetTimeLockDuration(admin, 1000); err != nil {
		t.Fatalf("SetTimeLockDuration: %v", err)
	}
	if s.TimeLockThreshold != 500 || s.TimeLockDuration != 1000 {
		t.Fatalf("policy = (%d, %d), want (500, 1000)", s.TimeLockThreshold, s.TimeLockDuration)
	}

	// With threshold 500 a 150 withdrawal is now instant.
	proxy := mustCreateProxy(t, s, alice)
	mustDeposit(t, s, proxy, 200)
	res, _, err := s.Withdraw(proxy, alice, 150, okProof, okInputs, t0)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if res.Payout == nil {
		t.Fatal("150 below new threshold should be instant")
	}
}

func TestLookups(t *testing.T) {
	s, _, _ := newTestState(t)
	proxy := mustCreateProxy(t, s, alice)

	byID, err := s.ProxyByID(proxy.ID)
	if err != nil || byID != proxy {
		t.Fatalf("ProxyByID: %v", err)
	}
	byAddr, err := s.ProxyByAddress(proxy.ProxyAddress)
	if err != nil || byAddr != proxy {
		t.Fatalf("ProxyByAddress: %v", err)
	}
	if _, err := s.ProxyByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing proxy: got %v, want ErrNotFound", err)
	}

	owned := s.ProxiesByOwner(alice)
	if len(owned) != 1 || owned[0] != proxy {
		t.Fatalf("ProxiesByOwner = %v", owned)
	}

	mustDeposit(t, s, proxy, 200)
	res, _, err := s.Withdraw(proxy, alice, 150, okProof, okInputs, t0)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	w, err := s.WithdrawalByDerivedID(res.Pending.WithdrawalID)
	if err != nil || w != res.Pending {
		t.Fatalf("WithdrawalByDerivedID: %v", err)
	}
}
