// Off-ledger index models. The engine state lives in memory inside the
// state machines; these tables mirror it for querying and audit, the same
// role an event indexer plays next to a chain.
package models

import "time"

// WithdrawalStatus index-side status of a pending withdrawal.
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusExecuted  WithdrawalStatus = "executed"
	WithdrawalStatusCancelled WithdrawalStatus = "cancelled"
)

// ProxyRecord mirrors a proxy binding.
type ProxyRecord struct {
	ID string `json:"id" gorm:"primaryKey"` // UUID, same as the binding's object ID

	ProxyAddress string `json:"proxy_address" gorm:"size:42;uniqueIndex;not null"` // derived address (hex)
	Owner        string `json:"owner" gorm:"size:42;index;not null"`
	BindingHash  string `json:"binding_hash" gorm:"size:66;not null"`
	Nonce        uint64 `json:"nonce" gorm:"not null"` // nonce consumed at derivation

	DepositedAmount uint64 `json:"deposited_amount" gorm:"not null;default:0"` // logical entitlement
	Balance         uint64 `json:"balance" gorm:"not null;default:0"`          // held funds
	IsActive        bool   `json:"is_active" gorm:"not null;default:true"`

	CreatedAtMs uint64 `json:"created_at_ms" gorm:"not null"` // injected op timestamp

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WithdrawalRecord mirrors a pending withdrawal and its terminal state.
type WithdrawalRecord struct {
	ID string `json:"id" gorm:"primaryKey"` // UUID

	WithdrawalID string `json:"withdrawal_id" gorm:"size:66;uniqueIndex;not null"` // derived ID (hex)
	ProxyID      string `json:"proxy_id" gorm:"index;not null"`
	Owner        string `json:"owner" gorm:"size:42;index;not null"`
	Amount       uint64 `json:"amount" gorm:"not null"`
	UnlockTime   uint64 `json:"unlock_time" gorm:"not null"` // ms

	Status WithdrawalStatus `json:"status" gorm:"not null;default:'pending';index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommitmentRecord mirrors a hedge commitment.
type CommitmentRecord struct {
	ID string `json:"id" gorm:"primaryKey"` // UUID

	CommitmentHash string `json:"commitment_hash" gorm:"size:66;uniqueIndex;not null"`
	Nullifier      string `json:"nullifier" gorm:"size:66;uniqueIndex;not null"`
	StealthAddress string `json:"stealth_address" gorm:"size:42;index;not null"`
	MerkleRoot     string `json:"merkle_root" gorm:"size:66"`

	Settled bool    `json:"settled" gorm:"not null;default:false;index"`
	BatchID *uint64 `json:"batch_id,omitempty" gorm:"index"` // NULL until batched

	TimestampMs uint64 `json:"timestamp_ms" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BatchRecord mirrors a formed batch.
type BatchRecord struct {
	ID string `json:"id" gorm:"primaryKey"` // UUID

	BatchNumber   uint64 `json:"batch_number" gorm:"uniqueIndex;not null"` // monotonic, starts at 1
	BatchRoot     string `json:"batch_root" gorm:"size:66;not null"`
	CommitmentIDs string `json:"commitment_ids" gorm:"type:json"` // JSON array of member UUIDs, FIFO order
	Size          int    `json:"size" gorm:"not null"`
	Aggregated    bool   `json:"aggregated" gorm:"not null;default:false;index"`

	TimestampMs uint64 `json:"timestamp_ms" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotificationRecord is the append-only log of emitted notifications.
type NotificationRecord struct {
	ID uint64 `json:"id" gorm:"primaryKey;autoIncrement"`

	Kind      string `json:"kind" gorm:"not null;index"`
	EmittedAt uint64 `json:"emitted_at" gorm:"not null;index"` // ms, injected op timestamp
	Payload   string `json:"payload" gorm:"type:jsonb"`        // serialized notification data

	CreatedAt time.Time `json:"created_at"`
}
