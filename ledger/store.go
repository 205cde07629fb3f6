/*
store.go - Persistence interface for the equipment loan ledger

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Equipment/employee records plus ledger reads and appends
  TxStore: Transactional closure for the atomic append unit

APPEND-ONLY CONTRACT:
  Transactions have exactly one write operation, AppendTransaction.
  No Update or Delete methods exist for them.

ATOMIC APPEND UNIT:
  The engine runs "read last transaction -> validate -> append ->
  update status cache" inside WithTx. Implementations must guarantee
  that two such units on the same equipment id cannot interleave.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - engine.go: The only caller of the write path
*/
package ledger

import "context"

// =============================================================================
// STORE - Record persistence and ledger reads
// =============================================================================

// Store handles persistence of equipment, employees and transactions.
// Transactions are APPEND-ONLY: no update, no delete, ever.
type Store interface {
	// CreateEquipment registers a new item with status Available.
	// Returns ErrAlreadyExists if the id is taken; the existing record
	// is left unchanged.
	CreateEquipment(ctx context.Context, eq Equipment) error

	// GetEquipment returns the item or ErrUnknownEquipment.
	GetEquipment(ctx context.Context, id string) (*Equipment, error)

	// ListEquipment returns all items ordered by id.
	ListEquipment(ctx context.Context) ([]Equipment, error)

	// CreateEmployee adds a directory entry and returns its assigned id.
	// No uniqueness constraint: duplicate names are allowed.
	CreateEmployee(ctx context.Context, emp Employee) (int64, error)

	// DeleteEmployee removes a directory entry by id. Historical
	// transactions are unaffected (they carry copied fields).
	DeleteEmployee(ctx context.Context, id int64) error

	// ListEmployees returns the directory ordered by (area, surname, name).
	ListEmployees(ctx context.Context) ([]Employee, error)

	// ListAreas returns the distinct area strings, ordered.
	ListAreas(ctx context.Context) ([]string, error)

	// FindEmployeeByFullName looks up "Name Surname" (or a bare name when
	// no surname is given) and returns the first match, or
	// ErrEmployeeNotFound. Resolution is ambiguous when duplicates exist.
	FindEmployeeByFullName(ctx context.Context, full string) (*Employee, error)

	// AppendTransaction persists tx, assigns its id and returns it.
	// Validation happens in the engine before this is called.
	AppendTransaction(ctx context.Context, tx Transaction) (*Transaction, error)

	// SetEquipmentStatus updates the cached status column. Only the
	// engine calls this, inside the same unit as AppendTransaction.
	SetEquipmentStatus(ctx context.Context, id string, status Status) error

	// LastTransaction returns the entry with the greatest timestamp for
	// the equipment id, ties broken by greatest id, or nil when the
	// ledger has none for it.
	LastTransaction(ctx context.Context, equipmentID string) (*Transaction, error)

	// LastIssue returns the most recent Issue entry for the equipment
	// id, or nil when it was never issued.
	LastIssue(ctx context.Context, equipmentID string) (*Transaction, error)

	// ListTransactions returns the full history, newest first, joined
	// with each equipment's display name.
	ListTransactions(ctx context.Context) ([]LedgerEntry, error)

	// DistinctHolders returns the distinct (name, email, area) triples
	// over all Issue entries, ordered by name.
	DistinctHolders(ctx context.Context) ([]Holder, error)

	// Counts returns the headline totals.
	Counts(ctx context.Context) (Summary, error)
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic append unit
// =============================================================================

// TxStore extends Store with a transactional closure.
type TxStore interface {
	Store

	// WithTx executes fn atomically. If fn returns an error the unit is
	// rolled back and prior committed state is unchanged; otherwise it
	// commits. Two units touching the same equipment id are serialized.
	WithTx(ctx context.Context, fn func(Store) error) error
}
