// Package store provides an in-memory ledger.TxStore for tests and demos.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warp/equipment-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps all records in process. It honors the same contract as
// the SQLite store: append-only transactions, serialized write units,
// rollback on WithTx failure.
type Memory struct {
	mu             sync.RWMutex
	equipment      map[string]ledger.Equipment
	employees      []ledger.Employee
	nextEmployeeID int64
	transactions   []ledger.Transaction
	nextTxID       int64
}

func NewMemory() *Memory {
	return &Memory{
		equipment:      make(map[string]ledger.Equipment),
		nextEmployeeID: 1,
		nextTxID:       1,
	}
}

// =============================================================================
// EQUIPMENT
// =============================================================================

func (m *Memory) CreateEquipment(ctx context.Context, eq ledger.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return view{m}.CreateEquipment(ctx, eq)
}

func (m *Memory) GetEquipment(ctx context.Context, id string) (*ledger.Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return view{m}.GetEquipment(ctx, id)
}

func (m *Memory) ListEquipment(ctx context.Context) ([]ledger.Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return view{m}.ListEquipment(ctx)
}

func (m *Memory) SetEquipmentStatus(ctx context.Context, id string, status ledger.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return view{m}.SetEquipmentStatus(ctx, id, status)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) CreateEmployee(ctx context.Context, emp ledger.Employee) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return view{m}.CreateEmployee(ctx, emp)
}

func (m *Memory) DeleteEmployee(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return view{m}.DeleteEmployee(ctx, id)
}

func (m *Memory) ListEmployees(ctx context.Context) ([]ledger.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return view{m}.ListEmployees(ctx)
}

func (m *Memory) ListAreas(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return view{m}.ListAreas(ctx)
}

func (m *Memory) FindEmployeeByFullName(ctx context.Context, full string) (*ledger.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return view{m}.FindEmployeeByFullName(ctx, full)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) AppendTransaction(ctx context.Context, tx ledger.Transaction) (*ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return view{m}.AppendTransaction(ctx, tx)
}

func (m *Memory) LastTransaction(ctx context.Context, equipmentID string) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return view{m}.LastTransaction(ctx, equipmentID)
}

func (m *Memory) LastIssue(ctx context.Context, equipmentID string) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return view{m}.LastIssue(ctx, equipmentID)
}

func (m *Memory) ListTransactions(ctx context.Context) ([]ledger.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return view{m}.ListTransactions(ctx)
}

func (m *Memory) DistinctHolders(ctx context.Context) ([]ledger.Holder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return view{m}.DistinctHolders(ctx)
}

func (m *Memory) Counts(ctx context.Context) (ledger.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return view{m}.Counts(ctx)
}

// =============================================================================
// TRANSACTIONAL UNIT
// =============================================================================

// WithTx serializes the unit under the write lock and restores a
// snapshot when fn fails, so a rejected operation leaves no trace.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshotLocked()
	if err := fn(view{m}); err != nil {
		m.restoreLocked(snap)
		return err
	}
	return nil
}

type snapshot struct {
	equipment      map[string]ledger.Equipment
	employees      []ledger.Employee
	nextEmployeeID int64
	transactions   []ledger.Transaction
	nextTxID       int64
}

func (m *Memory) snapshotLocked() snapshot {
	eq := make(map[string]ledger.Equipment, len(m.equipment))
	for k, v := range m.equipment {
		eq[k] = v
	}
	return snapshot{
		equipment:      eq,
		employees:      append([]ledger.Employee(nil), m.employees...),
		nextEmployeeID: m.nextEmployeeID,
		transactions:   append([]ledger.Transaction(nil), m.transactions...),
		nextTxID:       m.nextTxID,
	}
}

func (m *Memory) restoreLocked(s snapshot) {
	m.equipment = s.equipment
	m.employees = s.employees
	m.nextEmployeeID = s.nextEmployeeID
	m.transactions = s.transactions
	m.nextTxID = s.nextTxID
}

// =============================================================================
// VIEW - lock-free operations, used under the caller's lock
// =============================================================================

// view implements ledger.Store against a Memory whose mutex the caller
// already holds. The context is unused in memory.
type view struct{ m *Memory }

func (v view) CreateEquipment(_ context.Context, eq ledger.Equipment) error {
	if _, ok := v.m.equipment[eq.ID]; ok {
		return ledger.ErrAlreadyExists
	}
	if eq.Status == "" {
		eq.Status = ledger.StatusAvailable
	}
	v.m.equipment[eq.ID] = eq
	return nil
}

func (v view) GetEquipment(_ context.Context, id string) (*ledger.Equipment, error) {
	eq, ok := v.m.equipment[id]
	if !ok {
		return nil, ledger.ErrUnknownEquipment
	}
	return &eq, nil
}

func (v view) ListEquipment(_ context.Context) ([]ledger.Equipment, error) {
	out := make([]ledger.Equipment, 0, len(v.m.equipment))
	for _, eq := range v.m.equipment {
		out = append(out, eq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v view) SetEquipmentStatus(_ context.Context, id string, status ledger.Status) error {
	eq, ok := v.m.equipment[id]
	if !ok {
		return ledger.ErrUnknownEquipment
	}
	eq.Status = status
	v.m.equipment[id] = eq
	return nil
}

func (v view) CreateEmployee(_ context.Context, emp ledger.Employee) (int64, error) {
	emp.ID = v.m.nextEmployeeID
	v.m.nextEmployeeID++
	v.m.employees = append(v.m.employees, emp)
	return emp.ID, nil
}

func (v view) DeleteEmployee(_ context.Context, id int64) error {
	for i, emp := range v.m.employees {
		if emp.ID == id {
			v.m.employees = append(v.m.employees[:i], v.m.employees[i+1:]...)
			return nil
		}
	}
	return ledger.ErrEmployeeNotFound
}

func (v view) ListEmployees(_ context.Context) ([]ledger.Employee, error) {
	out := append([]ledger.Employee(nil), v.m.employees...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Area != out[j].Area {
			return out[i].Area < out[j].Area
		}
		if out[i].Surname != out[j].Surname {
			return out[i].Surname < out[j].Surname
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (v view) ListAreas(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var areas []string
	for _, emp := range v.m.employees {
		if !seen[emp.Area] {
			seen[emp.Area] = true
			areas = append(areas, emp.Area)
		}
	}
	sort.Strings(areas)
	return areas, nil
}

func (v view) FindEmployeeByFullName(_ context.Context, full string) (*ledger.Employee, error) {
	parts := strings.SplitN(strings.TrimSpace(full), " ", 2)
	for _, emp := range v.m.employees {
		if len(parts) == 2 {
			if emp.Name == parts[0] && emp.Surname == strings.TrimSpace(parts[1]) {
				e := emp
				return &e, nil
			}
		} else if emp.Name == parts[0] {
			e := emp
			return &e, nil
		}
	}
	return nil, ledger.ErrEmployeeNotFound
}

func (v view) AppendTransaction(_ context.Context, tx ledger.Transaction) (*ledger.Transaction, error) {
	tx.ID = v.m.nextTxID
	v.m.nextTxID++
	v.m.transactions = append(v.m.transactions, tx)
	return &tx, nil
}

func (v view) LastTransaction(_ context.Context, equipmentID string) (*ledger.Transaction, error) {
	var last *ledger.Transaction
	for i := range v.m.transactions {
		tx := &v.m.transactions[i]
		if tx.EquipmentID != equipmentID {
			continue
		}
		if last == nil || tx.Timestamp.After(last.Timestamp) ||
			(tx.Timestamp.Equal(last.Timestamp) && tx.ID > last.ID) {
			last = tx
		}
	}
	if last == nil {
		return nil, nil
	}
	out := *last
	return &out, nil
}

func (v view) LastIssue(_ context.Context, equipmentID string) (*ledger.Transaction, error) {
	var last *ledger.Transaction
	for i := range v.m.transactions {
		tx := &v.m.transactions[i]
		if tx.EquipmentID != equipmentID || tx.Kind != ledger.KindIssue {
			continue
		}
		if last == nil || tx.Timestamp.After(last.Timestamp) ||
			(tx.Timestamp.Equal(last.Timestamp) && tx.ID > last.ID) {
			last = tx
		}
	}
	if last == nil {
		return nil, nil
	}
	out := *last
	return &out, nil
}

func (v view) ListTransactions(_ context.Context) ([]ledger.LedgerEntry, error) {
	out := make([]ledger.LedgerEntry, 0, len(v.m.transactions))
	for _, tx := range v.m.transactions {
		entry := ledger.LedgerEntry{Transaction: tx}
		if eq, ok := v.m.equipment[tx.EquipmentID]; ok {
			entry.EquipmentName = eq.Name
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (v view) DistinctHolders(_ context.Context) ([]ledger.Holder, error) {
	type triple struct{ name, email, area string }
	seen := make(map[triple]bool)
	var holders []ledger.Holder
	for _, tx := range v.m.transactions {
		if tx.Kind != ledger.KindIssue {
			continue
		}
		t := triple{tx.EmployeeName, tx.EmployeeEmail, tx.EmployeeArea}
		if seen[t] {
			continue
		}
		seen[t] = true
		holders = append(holders, ledger.Holder{Name: t.name, Email: t.email, Area: t.area})
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i].Name < holders[j].Name })
	return holders, nil
}

func (v view) Counts(_ context.Context) (ledger.Summary, error) {
	loaned := 0
	for _, eq := range v.m.equipment {
		if eq.Status == ledger.StatusLoaned {
			loaned++
		}
	}
	return ledger.Summary{
		TotalEquipment:    len(v.m.equipment),
		TotalLoaned:       loaned,
		TotalTransactions: len(v.m.transactions),
	}, nil
}
