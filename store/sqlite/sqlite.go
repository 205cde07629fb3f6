/*
Package sqlite provides the SQLite-backed implementation of the ledger
storage interfaces.

INTERFACES IMPLEMENTED:
  ledger.Store:   Equipment/employee records, ledger reads and appends
  ledger.TxStore: The atomic append unit (WithTx)

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statement ever touches the transactions table.
  The only UPDATE in this package maintains the equipment status cache,
  and it runs inside the same database transaction as the append.

CONCURRENCY:
  A sync.RWMutex serializes writers on top of the database transaction;
  SQLite is opened in WAL mode so readers do not block. With PostgreSQL
  the same contract would be met by row locks instead of the mutex.

SCHEMA:
  equipment:    Catalog with the cached status column
  employees:    Directory entries (duplicates allowed)
  transactions: Immutable loan ledger, AUTOINCREMENT ids

  Schema is auto-migrated on New(). For production, use a versioned
  migration tool.

USAGE:
  store, err := sqlite.New("./data/loans.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store)

SEE ALSO:
  - ledger/store.go:        Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/equipment-ledger/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Equipment catalog with the cached, ledger-derived status column
	CREATE TABLE IF NOT EXISTS equipment (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Available'
	);

	-- Employee directory. No uniqueness constraint on names: duplicates
	-- are allowed and resolution by full name is first-match.
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		surname TEXT NOT NULL,
		area TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		registered_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_area
		ON employees(area, surname, name);

	-- Append-only loan ledger. Employee fields are denormalized copies
	-- captured at write time.
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		equipment_id TEXT NOT NULL,
		employee_name TEXT NOT NULL DEFAULT '',
		employee_email TEXT NOT NULL DEFAULT '',
		employee_area TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		handled_by TEXT NOT NULL,
		FOREIGN KEY (equipment_id) REFERENCES equipment (id)
	);

	-- Hot path: last transaction per equipment id
	CREATE INDEX IF NOT EXISTS idx_transactions_equipment
		ON transactions(equipment_id, timestamp DESC, id DESC);

	-- For holder reports over Issue entries
	CREATE INDEX IF NOT EXISTS idx_transactions_kind
		ON transactions(kind, employee_name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is the subset of *sql.DB and *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// querier implements the query set against either the root *sql.DB or
// an open *sql.Tx. Store locks and delegates here; the WithTx view
// delegates without re-locking.
type querier struct {
	db dbtx
}

// =============================================================================
// EQUIPMENT
// =============================================================================

func (s *Store) CreateEquipment(ctx context.Context, eq ledger.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return querier{s.db}.CreateEquipment(ctx, eq)
}

func (q querier) CreateEquipment(ctx context.Context, eq ledger.Equipment) error {
	if eq.Status == "" {
		eq.Status = ledger.StatusAvailable
	}
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO equipment (id, name, type, status) VALUES (?, ?, ?, ?)",
		eq.ID, eq.Name, eq.Type, string(eq.Status),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("equipment %s: %w", eq.ID, ledger.ErrAlreadyExists)
		}
		return storeErr("create equipment", err)
	}
	return nil
}

func (s *Store) GetEquipment(ctx context.Context, id string) (*ledger.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querier{s.db}.GetEquipment(ctx, id)
}

func (q querier) GetEquipment(ctx context.Context, id string) (*ledger.Equipment, error) {
	var eq ledger.Equipment
	var status string
	err := q.db.QueryRowContext(ctx,
		"SELECT id, name, type, status FROM equipment WHERE id = ?", id,
	).Scan(&eq.ID, &eq.Name, &eq.Type, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("equipment %s: %w", id, ledger.ErrUnknownEquipment)
	}
	if err != nil {
		return nil, storeErr("get equipment", err)
	}
	eq.Status = ledger.Status(status)
	return &eq, nil
}

func (s *Store) ListEquipment(ctx context.Context) ([]ledger.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querier{s.db}.ListEquipment(ctx)
}

func (q querier) ListEquipment(ctx context.Context) ([]ledger.Equipment, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, name, type, status FROM equipment ORDER BY id")
	if err != nil {
		return nil, storeErr("list equipment", err)
	}
	defer rows.Close()

	var out []ledger.Equipment
	for rows.Next() {
		var eq ledger.Equipment
		var status string
		if err := rows.Scan(&eq.ID, &eq.Name, &eq.Type, &status); err != nil {
			return nil, storeErr("scan equipment", err)
		}
		eq.Status = ledger.Status(status)
		out = append(out, eq)
	}
	return out, rows.Err()
}

func (s *Store) SetEquipmentStatus(ctx context.Context, id string, status ledger.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return querier{s.db}.SetEquipmentStatus(ctx, id, status)
}

func (q querier) SetEquipmentStatus(ctx context.Context, id string, status ledger.Status) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE equipment SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return storeErr("set equipment status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("equipment %s: %w", id, ledger.ErrUnknownEquipment)
	}
	return nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) CreateEmployee(ctx context.Context, emp ledger.Employee) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return querier{s.db}.CreateEmployee(ctx, emp)
}

func (q querier) CreateEmployee(ctx context.Context, emp ledger.Employee) (int64, error) {
	registeredAt := emp.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = time.Now().UTC()
	}
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO employees (name, surname, area, email, registered_at) VALUES (?, ?, ?, ?, ?)",
		emp.Name, emp.Surname, emp.Area, emp.Email, registeredAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, storeErr("create employee", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("create employee", err)
	}
	return id, nil
}

func (s *Store) DeleteEmployee(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return querier{s.db}.DeleteEmployee(ctx, id)
}

func (q querier) DeleteEmployee(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return storeErr("delete employee", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("employee %d: %w", id, ledger.ErrEmployeeNotFound)
	}
	return nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]ledger.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querier{s.db}.ListEmployees(ctx)
}

func (q querier) ListEmployees(ctx context.Context) ([]ledger.Employee, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, surname, area, email, registered_at
		 FROM employees ORDER BY area, surname, name`)
	if err != nil {
		return nil, storeErr("list employees", err)
	}
	defer rows.Close()

	var out []ledger.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) ListAreas(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querier{s.db}.ListAreas(ctx)
}

func (q querier) ListAreas(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT DISTINCT area FROM employees ORDER BY area")
	if err != nil {
		return nil, storeErr("list areas", err)
	}
	defer rows.Close()

	var areas []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, storeErr("scan area", err)
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

func (s *Store) FindEmployeeByFullName(ctx context.Context, full string) (*ledger.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querier{s.db}.FindEmployeeByFullName(ctx, full)
}

func (q querier) FindEmployeeByFullName(ctx context.Context, full string) (*ledger.Employee, error) {
	parts := strings.SplitN(strings.TrimSpace(full), " ", 2)

	var row *sql.Row
	if len(parts) == 2 {
		row = q.db.QueryRowContext(ctx,
			`SELECT id, name, surname, area, email, registered_at
			 FROM employees WHERE name = ? AND surname = ? ORDER BY id LIMIT 1`,
			parts[0], strings.TrimSpace(parts[1]))
	} else {
		row = q.db.QueryRowContext(ctx,
			`SELECT id, name, surname, area, email, registered_at
			 FROM employees WHERE name = ? ORDER BY id LIMIT 1`,
			parts[0])
	}

	var emp ledger.Employee
	var registeredAt string
	err := row.Scan(&emp.ID, &emp.Name, &emp.Surname, &emp.Area, &emp.Email, &registeredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %q: %w", full, ledger.ErrEmployeeNotFound)
	}
	if err != nil {
		return nil, storeErr("find employee", err)
	}
	emp.RegisteredAt, _ = time.Parse(time.RFC3339, registeredAt)
	return &emp, nil
}

func scanEmployee(rows *sql.Rows) (ledger.Employee, error) {
	var emp ledger.Employee
	var registeredAt string
	if err := rows.Scan(&emp.ID, &emp.Name, &emp.Surname, &emp.Area, &emp.Email, &registeredAt); err != nil {
		return emp, storeErr("scan employee", err)
	}
	emp.RegisteredAt, _ = time.Parse(time.RFC3339, registeredAt)
	return emp, nil
}

// =============================================================================
// TRANSACTIONS (append-only)
// =============================================================================

const txColumns = `id, equipment_id, employee_name, employee_email, employee_area,
	kind, timestamp, notes, handled_by`

func (s *Store) AppendTransaction(ctx context.Context, tx ledger.Transaction) (*ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return querier{s.db}.AppendTransaction(ctx, tx)
}

func (q querier) AppendTransaction(ctx context.Context, tx ledger.Transaction) (*ledger.Transaction, error) {
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions
		 (equipment_id, employee_name, employee_email, employee_area, kind, timestamp, notes, handled_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.EquipmentID, tx.EmployeeName, tx.EmployeeEmail, tx.EmployeeArea,
		string(tx.Kind), tx.Timestamp.Format(time.RFC3339Nano), tx.Notes, tx.HandledBy,
	)
	if err != nil {
		return nil, storeErr("append transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storeErr("append transaction", err)
	}
	tx.ID = id
	return &tx, nil
}

func (s *Store) LastTransaction(ctx context.Context, equipmentID string) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querier{s.db}.LastTransaction(ctx, equipmentID)
}

func (q querier) LastTransaction(ctx context.Context, equipmentID string) (*ledger.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE equipment_id = ?
		 ORDER BY timestamp DESC, id DESC LIMIT 1`, equipmentID)
	return scanOneTransaction(row)
}

func (s *Store) LastIssue(ctx context.Context, equipmentID string) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querier{s.db}.LastIssue(ctx, equipmentID)
}

func (q querier) LastIssue(ctx context.Context, equipmentID string) (*ledger.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE equipment_id = ? AND kind = ?
		 ORDER BY timestamp DESC, id DESC LIMIT 1`,
		equipmentID, string(ledger.KindIssue))
	return scanOneTransaction(row)
}

func scanOneTransaction(row *sql.Row) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	var kind, timestamp string
	err := row.Scan(&tx.ID, &tx.EquipmentID, &tx.EmployeeName, &tx.EmployeeEmail,
		&tx.EmployeeArea, &kind, &timestamp, &tx.Notes, &tx.HandledBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("scan transaction", err)
	}
	tx.Kind = ledger.Kind(kind)
	tx.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
	return &tx, nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]ledger.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querier{s.db}.ListTransactions(ctx)
}

func (q querier) ListTransactions(ctx context.Context) ([]ledger.LedgerEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT t.id, t.equipment_id, t.employee_name, t.employee_email, t.employee_area,
		        t.kind, t.timestamp, t.notes, t.handled_by,
		        COALESCE(e.name, '') AS equipment_name
		 FROM transactions t
		 LEFT JOIN equipment e ON t.equipment_id = e.id
		 ORDER BY t.timestamp DESC, t.id DESC`)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	defer rows.Close()

	var out []ledger.LedgerEntry
	for rows.Next() {
		var entry ledger.LedgerEntry
		var kind, timestamp string
		if err := rows.Scan(&entry.ID, &entry.EquipmentID, &entry.EmployeeName,
			&entry.EmployeeEmail, &entry.EmployeeArea, &kind, &timestamp,
			&entry.Notes, &entry.HandledBy, &entry.EquipmentName); err != nil {
			return nil, storeErr("scan transaction", err)
		}
		entry.Kind = ledger.Kind(kind)
		entry.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) DistinctHolders(ctx context.Context) ([]ledger.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querier{s.db}.DistinctHolders(ctx)
}

func (q querier) DistinctHolders(ctx context.Context) ([]ledger.Holder, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT DISTINCT employee_name, employee_email, employee_area
		 FROM transactions
		 WHERE kind = ?
		 ORDER BY employee_name`, string(ledger.KindIssue))
	if err != nil {
		return nil, storeErr("distinct holders", err)
	}
	defer rows.Close()

	var holders []ledger.Holder
	for rows.Next() {
		var h ledger.Holder
		if err := rows.Scan(&h.Name, &h.Email, &h.Area); err != nil {
			return nil, storeErr("scan holder", err)
		}
		holders = append(holders, h)
	}
	return holders, rows.Err()
}

func (s *Store) Counts(ctx context.Context) (ledger.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querier{s.db}.Counts(ctx)
}

func (q querier) Counts(ctx context.Context) (ledger.Summary, error) {
	var sum ledger.Summary
	err := q.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM equipment),
			(SELECT COUNT(*) FROM equipment WHERE status = ?),
			(SELECT COUNT(*) FROM transactions)`,
		string(ledger.StatusLoaned),
	).Scan(&sum.TotalEquipment, &sum.TotalLoaned, &sum.TotalTransactions)
	if err != nil {
		return ledger.Summary{}, storeErr("counts", err)
	}
	return sum, nil
}

// =============================================================================
// TRANSACTIONAL UNIT (ledger.TxStore)
// =============================================================================

// WithTx executes fn within a database transaction while holding the
// write lock, so the read-validate-append-update sequence for one
// equipment id cannot interleave with another writer's.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(txView{querier{sqlTx}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return storeErr("commit transaction", err)
	}
	return nil
}

// txView exposes the querier as a ledger.Store bound to one open
// database transaction.
type txView struct {
	q querier
}

func (v txView) CreateEquipment(ctx context.Context, eq ledger.Equipment) error {
	return v.q.CreateEquipment(ctx, eq)
}
func (v txView) GetEquipment(ctx context.Context, id string) (*ledger.Equipment, error) {
	return v.q.GetEquipment(ctx, id)
}
func (v txView) ListEquipment(ctx context.Context) ([]ledger.Equipment, error) {
	return v.q.ListEquipment(ctx)
}
func (v txView) SetEquipmentStatus(ctx context.Context, id string, status ledger.Status) error {
	return v.q.SetEquipmentStatus(ctx, id, status)
}
func (v txView) CreateEmployee(ctx context.Context, emp ledger.Employee) (int64, error) {
	return v.q.CreateEmployee(ctx, emp)
}
func (v txView) DeleteEmployee(ctx context.Context, id int64) error {
	return v.q.DeleteEmployee(ctx, id)
}
func (v txView) ListEmployees(ctx context.Context) ([]ledger.Employee, error) {
	return v.q.ListEmployees(ctx)
}
func (v txView) ListAreas(ctx context.Context) ([]string, error) {
	return v.q.ListAreas(ctx)
}
func (v txView) FindEmployeeByFullName(ctx context.Context, full string) (*ledger.Employee, error) {
	return v.q.FindEmployeeByFullName(ctx, full)
}
func (v txView) AppendTransaction(ctx context.Context, tx ledger.Transaction) (*ledger.Transaction, error) {
	return v.q.AppendTransaction(ctx, tx)
}
func (v txView) LastTransaction(ctx context.Context, equipmentID string) (*ledger.Transaction, error) {
	return v.q.LastTransaction(ctx, equipmentID)
}
func (v txView) LastIssue(ctx context.Context, equipmentID string) (*ledger.Transaction, error) {
	return v.q.LastIssue(ctx, equipmentID)
}
func (v txView) ListTransactions(ctx context.Context) ([]ledger.LedgerEntry, error) {
	return v.q.ListTransactions(ctx)
}
func (v txView) DistinctHolders(ctx context.Context) ([]ledger.Holder, error) {
	return v.q.DistinctHolders(ctx)
}
func (v txView) Counts(ctx context.Context) (ledger.Summary, error) {
	return v.q.Counts(ctx)
}

// =============================================================================
// HELPERS
// =============================================================================

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, ledger.ErrStoreUnavailable)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
