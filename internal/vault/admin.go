package vault

import (
	"fmt"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/notify"
	"go-hedgevault/internal/verifier"
)

// SetTimeLockThreshold updates the amount above which withdrawals are
// time-locked. Admin only.
func (s *State) SetTimeLockThreshold(admin *capability.Token, threshold uint64) error {
	if !s.authority.Holds(admin, capability.RoleAdmin) {
		return ErrUnauthorized
	}
	s.TimeLockThreshold = threshold
	return nil
}

// SetTimeLockDuration updates the delay applied to large withdrawals, in
// milliseconds. Admin only.
func (s *State) SetTimeLockDuration(admin *capability.Token, duration uint64) error {
	if !s.authority.Holds(admin, capability.RoleAdmin) {
		return ErrUnauthorized
	}
	s.TimeLockDuration = duration
	return nil
}

// SetVerifier swaps the proof gateway implementation every subsequent
// Withdraw dispatches through. Admin only.
func (s *State) SetVerifier(admin *capability.Token, v verifier.ProofVerifier, now uint64) (notify.Notification, error) {
	if !s.authority.Holds(admin, capability.RoleAdmin) {
		return notify.Notification{}, ErrUnauthorized
	}
	if v == nil {
		return notify.Notification{}, fmt.Errorf("vault: verifier must not be nil")
	}
	s.verifier = v

	n := notify.Notification{
		Kind:      notify.KindVerifierUpdated,
		EmittedAt: now,
		Data: map[string]interface{}{
			"scope": "vault",
		},
	}
	return n, nil
}

// Pause halts creation, deposits and withdrawal requests. Guardian-gated:
// anyone trusted enough to halt operations need not be trusted to resume
// them, so Unpause requires Admin instead.
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
