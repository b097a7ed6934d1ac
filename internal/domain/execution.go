package domain

import (
	"time"

	"github.com/google/uuid"
)

// Rejection is a soft execution failure: a precondition was not met, the
// transaction rolled back, and the order row is untouched. It is a value,
// never an error; hard failures travel the error return instead.
type Rejection struct {
	Reason string
	// Insufficiency is set when the rejection was caused by a balance
	// shortfall, carrying the typed amounts.
	Insufficiency *InsufficientBalanceError
}

// Settlement is what a settlement strategy hands back to the orchestrator.
// Exactly one of Rejection or a successful fill (Message, optional Contract)
// is meaningful.
type Settlement struct {
	Rejection *Rejection
	Contract  *Contract
	Message   string
}

// Rejected reports whether the settlement was a soft failure.
func (s Settlement) Rejected() bool { return s.Rejection != nil }

// Reject builds a rejected settlement from a plain reason.
func Reject(reason string) Settlement {
	return Settlement{Rejection: &Rejection{Reason: reason}}
}

// RejectInsufficient builds a rejected settlement from a balance shortfall.
func RejectInsufficient(ib *InsufficientBalanceError) Settlement {
	return Settlement{Rejection: &Rejection{Reason: ib.Error(), Insufficiency: ib}}
}

// ExecutionResult is the uniform outcome of ExecuteOrder. Success=false with
// a nil error means the order was rejected; the Message explains why.
type ExecutionResult struct {
	Order     Order
	Contract  *Contract
	Success   bool
	Message   string
	Rejection *Rejection
}

// AuditEntry is one line of the execution audit trail.
type AuditEntry struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	OrderNumber string
	Outcome     string
	Message     string
	CreatedAt   time.Time
}

const (
	AuditOutcomeFilled   = "filled"
	AuditOutcomeRejected = "rejected"
	AuditOutcomeError    = "error"
)
