/*
Package ledger contains the equipment loan ledger: the append-only
transaction log that is the source of truth for equipment state, the
engine that gates every write to it, and the read-side reports derived
from it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Equipment:   A physical asset with a cached, ledger-derived status
  - Employee:    A directory entry used to prefill loan forms
  - Transaction: An immutable ledger entry recording a hand-off or return
  - Kind/Status: The two enumerations driving the state machine

INVARIANTS:
  1. APPEND-ONLY: Transactions are never updated or deleted.
  2. ALTERNATION: Per equipment id, transaction kinds in timestamp order
     strictly alternate Issue, Return, Issue, ... starting with Issue.
  3. STATUS CACHE: Equipment.Status is Loaned iff the latest transaction
     for that id is an Issue; maintained atomically with every append.
  4. DENORMALIZATION: Employee fields on a Transaction are copied at
     write time; later directory edits never change history.

SEE ALSO:
  - engine.go:  The only write path into the ledger
  - reports.go: Read-side aggregations
  - store.go:   Persistence interfaces
*/
package ledger

import "time"

// =============================================================================
// ENUMERATIONS
// =============================================================================

// Status is the lifecycle state of an equipment item.
type Status string

const (
	StatusAvailable Status = "Available"
	StatusLoaned    Status = "Loaned"
)

// Kind is the type of a ledger transaction.
type Kind string

const (
	// KindIssue records that an item was handed to an employee.
	KindIssue Kind = "Issue"
	// KindReturn records that a previously issued item was given back.
	KindReturn Kind = "Return"
)

// Valid reports whether k is a known transaction kind.
func (k Kind) Valid() bool {
	return k == KindIssue || k == KindReturn
}

// StatusAfter returns the equipment status once a transaction of this
// kind has been recorded.
func (k Kind) StatusAfter() Status {
	if k == KindIssue {
		return StatusLoaned
	}
	return StatusAvailable
}

// =============================================================================
// RECORDS
// =============================================================================

// Equipment identifies a physical asset.
//
// ID is user-assigned and immutable. Status is a cached derived value,
// mutated only by the engine's append path, never by callers.
type Equipment struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status Status `json:"status"`
}

// Employee is a directory entry usable to prefill loan forms. The ledger
// references employees by captured strings, not by this id, so directory
// edits are independent of ledger correctness.
//
// Duplicate (name, surname) pairs are allowed.
type Employee struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Area         string    `json:"area"`
	Email        string    `json:"email,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Transaction is an immutable, append-only ledger entry. Employee fields
// are denormalized copies captured at write time.
type Transaction struct {
	ID            int64     `json:"id"`
	EquipmentID   string    `json:"equipment_id"`
	EmployeeName  string    `json:"employee_name"`
	EmployeeEmail string    `json:"employee_email,omitempty"`
	EmployeeArea  string    `json:"employee_area,omitempty"`
	Kind          Kind      `json:"kind"`
	Timestamp     time.Time `json:"timestamp"`
	Notes         string    `json:"notes,omitempty"`
	HandledBy     string    `json:"handled_by"`
}

// LedgerEntry is a Transaction joined with the equipment display name,
// as returned by the full-history listing.
type LedgerEntry struct {
	Transaction
	EquipmentName string `json:"equipment_name"`
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

// StatusInfo is the derived view of a single equipment item: its current
// status, who holds it (empty when available), and the timestamp of the
// last transaction (zero when the ledger has no entry for it yet).
type StatusInfo struct {
	Status     Status    `json:"status"`
	HolderName string    `json:"holder_name,omitempty"`
	LastMoveAt time.Time `json:"last_move_at,omitempty"`
}

// ActiveLoan projects a Loaned equipment item together with the holder
// fields of its most recent Issue transaction.
type ActiveLoan struct {
	EquipmentID   string    `json:"equipment_id"`
	EquipmentName string    `json:"equipment_name"`
	HolderName    string    `json:"holder_name"`
	HolderEmail   string    `json:"holder_email,omitempty"`
	HolderArea    string    `json:"holder_area,omitempty"`
	LoanedSince   time.Time `json:"loaned_since"`
}

// Holder is a deduplicated (name, email, area) triple taken from Issue
// transactions; the set of people who have ever held equipment.
type Holder struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Area  string `json:"area,omitempty"`
}

// Summary holds the headline counts for the dashboard.
type Summary struct {
	TotalEquipment    int `json:"total_equipment"`
	TotalLoaned       int `json:"total_loaned"`
	TotalTransactions int `json:"total_transactions"`
}
