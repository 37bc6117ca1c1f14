package derive

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestProxyAddressDeterministic(t *testing.T) {
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	binding := common.HexToHash("0xdeadbeef")

	a := ProxyAddress(owner, 0, binding)
	b := ProxyAddress(owner, 0, binding)
	if a != b {
		t.Fatalf("same inputs produced different addresses: %s vs %s", a.Hex(), b.Hex())
	}
}

func TestProxyAddressDistinctPerInput(t *testing.T) {
	owner1 := common.HexToAddress("0x1111111111111111111111111111111111111111")
	owner2 := common.HexToAddress("0x2222222222222222222222222222222222222222")
	binding := common.HexToHash("0xdeadbeef")

	tests := []struct {
		name string
		a, b common.Address
	}{
		{
			name: "different owners, same nonce and binding",
			a:    ProxyAddress(owner1, 0, binding),
			b:    ProxyAddress(owner2, 0, binding),
		},
		{
			name: "same owner, different nonces",
			a:    ProxyAddress(owner1, 0, binding),
			b:    ProxyAddress(owner1, 1, binding),
		},
		{
			name: "same owner and nonce, different binding",
			a:    ProxyAddress(owner1, 3, binding),
			b:    ProxyAddress(owner1, 3, common.HexToHash("0xcafe")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a == tt.b {
				t.Fatalf("expected distinct addresses, both were %s", tt.a.Hex())
			}
		})
	}
}

func TestWithdrawalIDDeterministic(t *testing.T) {
	owner := common.HexToAddress("0x3333333333333333333333333333333333333333")

	a := WithdrawalID(owner, "proxy-1", 150, 1_000_000)
	b := WithdrawalID(owner, "proxy-1", 150, 1_000_000)
	if a != b {
		t.Fatalf("same inputs produced different IDs")
	}

	c := WithdrawalID(owner, "proxy-1", 150, 1_000_001)
	if a == c {
		t.Fatalf("different timestamps produced the same ID")
	}
}

func TestBatchRootOrderSensitive(t *testing.T) {
	forward := BatchRoot([]string{"c1", "c2", "c3"})
	reversed := BatchRoot([]string{"c3", "c2", "c1"})
	if forward == reversed {
		t.Fatalf("batch root must depend on insertion order")
	}

	again := BatchRoot([]string{"c1", "c2", "c3"})
	if forward != again {
		t.Fatalf("batch root not deterministic")
	}
}

func TestBatchRootLengthPrefixed(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide through concatenation.
	x := BatchRoot([]string{"ab", "c"})
	y := BatchRoot([]string{"a", "bc"})
	if x == y {
		t.Fatalf("length-prefix missing: ambiguous concatenation collided")
	}
}
