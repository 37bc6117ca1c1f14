// Structured notification records describing every state transition, for
// off-ledger observers (indexer, websocket subscribers, NATS consumers).
package notify

// Kind enumerates the transition notifications the two state machines emit.
type Kind string

const (
	KindProxyCreated        Kind = "ProxyCreated"
	KindDeposited           Kind = "Deposited"
	KindInstantWithdrawal   Kind = "InstantWithdrawal"
	KindWithdrawalRequested Kind = "WithdrawalRequested"
	KindWithdrawalExecuted  Kind = "WithdrawalExecuted"
	KindWithdrawalCancelled Kind = "WithdrawalCancelled"
	KindCommitmentStored    Kind = "CommitmentStored"
	KindHedgeSettled        Kind = "HedgeSettled"
	KindCommitmentBatched   Kind = "CommitmentBatched"
	KindBatchAggregated     Kind = "BatchAggregated"
	KindVerifierUpdated     Kind = "VerifierUpdated"
)

// Notification is one emitted transition record. EmittedAt carries the
// injected operation timestamp (milliseconds), not a clock read.
type Notification struct {
	Kind      Kind                   `json:"kind"`
	EmittedAt uint64                 `json:"emitted_at"`
	Data      map[string]interface{} `json:"data"`
}

// Publisher delivers notifications to an observer channel. Publish failures
// must not affect the state transition that produced the notification; the
// transition has already committed.
type Publisher interface {
	Publish(n Notification) error
}

// Multi fans a notification out to several publishers, returning the first
// error after attempting all of them.
type Multi []Publisher

func (m Multi) Publish(n Notification) error {
	var first error
	for _, p := range m {
		if err := p.Publish(n); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Recorder collects notifications in memory, for tests.
type Recorder struct {
	Notifications []Notification
}

func (r *Recorder) Publish(n Notification) error {
	r.Notifications = append(r.Notifications, n)
	return nil
}

// Last returns the most recent notification, or a zero value when empty.
func (r *Recorder) Last() Notification {
	if len(r.Notifications) == 0 {
		return Notification{}
	}
	return r.Notifications[len(r.Notifications)-1]
}
