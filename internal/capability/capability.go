// Capability tokens gate the privileged operations of the vault and hedge
// state machines. Possession of a token with the right role is the whole
// authorization check; there are no ambient identity checks.
package capability

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Role is a closed set of capability variants.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleGuardian Role = "guardian"
	RoleRelayer  Role = "relayer"
	RoleUpgrader Role = "upgrader"
)

var (
	ErrUnauthorized = errors.New("capability: token does not carry the required role")
	ErrUnknownRole  = errors.New("capability: unknown role")
)

func validRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleGuardian, RoleRelayer, RoleUpgrader:
		return true
	}
	return false
}

// Token is an unforgeable, transferable permission object. Tokens can only
// be minted through an Authority; the zero value and hand-built tokens
// never validate. Tokens are never revoked.
type Token struct {
	id     string
	role   Role
	holder common.Address
}

// Role reports the variant this token carries.
func (t *Token) Role() Role { return t.role }

// Holder reports the address currently holding the token.
func (t *Token) Holder() common.Address { return t.holder }

// ID returns the token identifier assigned at issuance.
func (t *Token) ID() string { return t.id }

// Transfer hands the token to another address. Capability tokens are bearer
// objects, so transfer needs no further authorization than having the token.
func (t *Token) Transfer(to common.Address) {
	t.holder = to
}

// Authority is the sole minter of capability tokens. It records every
// issued token ID so forged Token values can be told apart from real ones.
type Authority struct {
	mu     sync.Mutex
	issued map[string]Role
}

// NewAuthority creates the authority and its genesis Admin token, held by
// the deployer address. This is the only way an Admin token comes into
// existence without another Admin granting it.
func NewAuthority(deployer common.Address) (*Authority, *Token) {
	a := &Authority{issued: make(map[string]Role)}
	genesis := a.mint(RoleAdmin, deployer)
	return a, genesis
}

func (a *Authority) mint(role Role, holder common.Address) *Token {
	t := &Token{
		id:     uuid.New().String(),
		role:   role,
		holder: holder,
	}
	a.mu.Lock()
	a.issued[t.id] = role
	a.mu.Unlock()
	return t
}

// Grant issues a new token of the given role to the target address. The
// caller must present a valid Admin token.
func (a *Authority) Grant(admin *Token, role Role, target common.Address) (*Token, error) {
	if !validRole(role) {
		return nil, ErrUnknownRole
	}
	if !a.Holds(admin, RoleAdmin) {
		return nil, ErrUnauthorized
	}
	return a.mint(role, target), nil
}

// Holds reports whether t is a genuine token from this authority carrying
// the given role. Guardian and Relayer are distinct variants; callers that
// accept either check both.
func (a *Authority) Holds(t *Token, role Role) bool {
	if t == nil || t.id == "" {
		return false
	}
	a.mu.Lock()
	issuedRole, ok := a.issued[t.id]
	a.mu.Unlock()
	return ok && issuedRole == t.role && t.role == role
}
