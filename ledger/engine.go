/*
engine.go - The equipment state engine

PURPOSE:
  The engine is the ONLY gate through which transactions enter the
  ledger. It enforces the state machine:

    Available --Issue--> Loaned --Return--> Available

  Issue requires a non-empty employee name; both kinds require a
  non-empty handler name. Illegal transitions are rejected before any
  write happens, so no partial state is ever persisted.

CONCURRENCY:
  The whole sequence "read last transaction -> validate -> append ->
  update status cache" runs inside a single store transaction
  (TxStore.WithTx). Two racing Issue operations on the same item cannot
  both succeed: the second one observes the committed Loaned state and
  is rejected.

SEE ALSO:
  - store.go:   Persistence contract
  - reports.go: Read-side views, no gating
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine validates and records ledger operations.
type Engine struct {
	store TxStore

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine creates an engine on top of a transactional store.
func NewEngine(store TxStore) *Engine {
	return &Engine{store: store, now: time.Now}
}

// OperationRequest carries everything needed to record one hand-off or
// return. Employee fields are captured verbatim onto the transaction.
type OperationRequest struct {
	EquipmentID   string
	Kind          Kind
	EmployeeName  string
	EmployeeEmail string
	EmployeeArea  string
	Notes         string
	HandledBy     string
}

// =============================================================================
// EQUIPMENT REGISTRATION
// =============================================================================

// RegisterEquipment creates a new catalog entry with status Available.
// Fails with ErrAlreadyExists when the id is taken and with
// MissingFieldError when id or name is blank.
func (e *Engine) RegisterEquipment(ctx context.Context, id, name, equipType string) (*Equipment, error) {
	var missing []string
	if strings.TrimSpace(id) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(name) == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return nil, &MissingFieldError{Fields: missing}
	}

	eq := Equipment{
		ID:     strings.TrimSpace(id),
		Name:   strings.TrimSpace(name),
		Type:   strings.TrimSpace(equipType),
		Status: StatusAvailable,
	}
	if err := e.store.CreateEquipment(ctx, eq); err != nil {
		return nil, err
	}
	return &eq, nil
}

// =============================================================================
// RECORD OPERATION - the single write path into the ledger
// =============================================================================

// RecordOperation validates req against the state machine and, if legal,
// appends the transaction and updates the status cache as one atomic
// unit. Rejections are ordinary error values (IsClientError/IsNotFound);
// nothing is persisted on rejection.
func (e *Engine) RecordOperation(ctx context.Context, req OperationRequest) (*Transaction, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("unknown operation kind %q: %w", req.Kind, ErrMissingField)
	}
	if err := validateFields(req); err != nil {
		return nil, err
	}

	var created *Transaction
	err := e.store.WithTx(ctx, func(s Store) error {
		eq, err := s.GetEquipment(ctx, req.EquipmentID)
		if err != nil {
			return err
		}

		last, err := s.LastTransaction(ctx, eq.ID)
		if err != nil {
			return err
		}
		current := StatusAvailable
		if last != nil {
			current = last.Kind.StatusAfter()
		}

		if !legalFrom(current, req.Kind) {
			return &IllegalTransitionError{
				EquipmentID: eq.ID,
				Status:      current,
				Kind:        req.Kind,
			}
		}

		tx := Transaction{
			EquipmentID:   eq.ID,
			EmployeeName:  strings.TrimSpace(req.EmployeeName),
			EmployeeEmail: strings.TrimSpace(req.EmployeeEmail),
			EmployeeArea:  strings.TrimSpace(req.EmployeeArea),
			Kind:          req.Kind,
			Timestamp:     e.now().UTC(),
			Notes:         req.Notes,
			HandledBy:     strings.TrimSpace(req.HandledBy),
		}
		created, err = s.AppendTransaction(ctx, tx)
		if err != nil {
			return err
		}
		return s.SetEquipmentStatus(ctx, eq.ID, req.Kind.StatusAfter())
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// validateFields checks the per-kind field policy. handled_by is required
// unconditionally; the employee name only for an Issue.
func validateFields(req OperationRequest) error {
	var missing []string
	if req.Kind == KindIssue && strings.TrimSpace(req.EmployeeName) == "" {
		missing = append(missing, "employee_name")
	}
	if strings.TrimSpace(req.HandledBy) == "" {
		missing = append(missing, "handled_by")
	}
	if len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}
	return nil
}

func legalFrom(current Status, kind Kind) bool {
	switch kind {
	case KindIssue:
		return current == StatusAvailable
	case KindReturn:
		return current == StatusLoaned
	}
	return false
}

// =============================================================================
// DERIVED STATUS
// =============================================================================

// DeriveStatus reconstructs the current state of one item from the
// ledger: Loaned with the holder's name when the latest transaction is
// an Issue, Available otherwise. Pure read, runs against committed state.
func (e *Engine) DeriveStatus(ctx context.Context, equipmentID string) (StatusInfo, error) {
	if _, err := e.store.GetEquipment(ctx, equipmentID); err != nil {
		return StatusInfo{}, err
	}

	last, err := e.store.LastTransaction(ctx, equipmentID)
	if err != nil {
		return StatusInfo{}, err
	}
	if last == nil {
		return StatusInfo{Status: StatusAvailable}, nil
	}
	info := StatusInfo{Status: last.Kind.StatusAfter(), LastMoveAt: last.Timestamp}
	if last.Kind == KindIssue {
		info.HolderName = last.EmployeeName
	}
	return info, nil
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

// AddEmployee validates and creates one directory entry. Name, surname
// and area are required; email is optional.
func (e *Engine) AddEmployee(ctx context.Context, emp Employee) (*Employee, error) {
	var missing []string
	if strings.TrimSpace(emp.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(emp.Surname) == "" {
		missing = append(missing, "surname")
	}
	if strings.TrimSpace(emp.Area) == "" {
		missing = append(missing, "area")
	}
	if len(missing) > 0 {
		return nil, &MissingFieldError{Fields: missing}
	}

	emp.Name = strings.TrimSpace(emp.Name)
	emp.Surname = strings.TrimSpace(emp.Surname)
	emp.Area = strings.TrimSpace(emp.Area)
	emp.Email = strings.TrimSpace(emp.Email)
	emp.RegisteredAt = e.now().UTC()

	id, err := e.store.CreateEmployee(ctx, emp)
	if err != nil {
		return nil, err
	}
	emp.ID = id
	return &emp, nil
}

// ImportEmployees bulk-inserts records that already passed importer
// validation and returns the number inserted. Rows are independent;
// a failing row stops the import and reports the row's position.
func (e *Engine) ImportEmployees(ctx context.Context, emps []Employee) (int, error) {
	imported := 0
	for i, emp := range emps {
		emp.RegisteredAt = e.now().UTC()
		if _, err := e.store.CreateEmployee(ctx, emp); err != nil {
			return imported, fmt.Errorf("record %d: %w", i+1, err)
		}
		imported++
	}
	return imported, nil
}
