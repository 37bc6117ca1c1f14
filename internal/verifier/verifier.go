// Proof gateway contract. The engine only consumes a boolean verdict; the
// real STARK verifier lives outside this repository and is plugged in
// through the ProofVerifier interface.
package verifier

// Context tells a verifier which state machine the proof is gating, since
// the two circuits have different public input shapes.
type Context string

const (
	ContextVaultWithdraw   Context = "vault.withdraw"
	ContextHedgeSettlement Context = "hedge.settlement"
)

// ProofVerifier checks a zero-knowledge proof against its public inputs.
// Implementations must be side-effect free: the state machines call Verify
// before any state write.
type ProofVerifier interface {
	Verify(proof []byte, publicInputs [][]byte, ctx Context) bool
}

// Placeholder is the development stand-in. It only enforces the syntactic
// minimums of the wire format and performs no cryptographic check. It must
// be replaced wholesale by a genuine verifier before production use.
type Placeholder struct{}

const (
	minProofLen          = 64
	minVaultPublicInputs = 4
)

func (Placeholder) Verify(proof []byte, publicInputs [][]byte, ctx Context) bool {
	if len(proof) < minProofLen {
		return false
	}
	if ctx == ContextVaultWithdraw && len(publicInputs) < minVaultPublicInputs {
		return false
	}
	return true
}

// Static is a test double returning a fixed verdict and recording the last
// call.
type Static struct {
	Verdict bool

	LastProof        []byte
	LastPublicInputs [][]byte
	LastContext      Context
	Calls            int
}

func (s *Static) Verify(proof []byte, publicInputs [][]byte, ctx Context) bool {
	s.LastProof = proof
	s.LastPublicInputs = publicInputs
	s.LastContext = ctx
	s.Calls++
	return s.Verdict
}
