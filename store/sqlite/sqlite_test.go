package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/equipment-ledger/ledger"
	"github.com/warp/equipment-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedEquipment(t *testing.T, s *sqlite.Store, id, name string) {
	t.Helper()
	require.NoError(t, s.CreateEquipment(context.Background(), ledger.Equipment{
		ID: id, Name: name, Type: "Laptop", Status: ledger.StatusAvailable,
	}))
}

// =============================================================================
// EQUIPMENT
// =============================================================================

func TestCreateEquipment_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedEquipment(t, s, "E1", "ThinkPad")

	err := s.CreateEquipment(ctx, ledger.Equipment{ID: "E1", Name: "MacBook"})
	assert.ErrorIs(t, err, ledger.ErrAlreadyExists)

	eq, err := s.GetEquipment(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "ThinkPad", eq.Name)
}

func TestGetEquipment_Unknown(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetEquipment(context.Background(), "nope")
	assert.ErrorIs(t, err, ledger.ErrUnknownEquipment)
}

func TestListEquipment_OrderedByID(t *testing.T) {
	s := newTestStore(t)

	seedEquipment(t, s, "E3", "Mouse")
	seedEquipment(t, s, "E1", "ThinkPad")
	seedEquipment(t, s, "E2", "Monitor")

	items, err := s.ListEquipment(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "E1", items[0].ID)
	assert.Equal(t, "E2", items[1].ID)
	assert.Equal(t, "E3", items[2].ID)
}

func TestSetEquipmentStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedEquipment(t, s, "E1", "ThinkPad")
	require.NoError(t, s.SetEquipmentStatus(ctx, "E1", ledger.StatusLoaned))

	eq, err := s.GetEquipment(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusLoaned, eq.Status)

	err = s.SetEquipmentStatus(ctx, "nope", ledger.StatusLoaned)
	assert.ErrorIs(t, err, ledger.ErrUnknownEquipment)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployees_OrderingAndAreas(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, e := range []ledger.Employee{
		{Name: "Luis", Surname: "Gomez", Area: "IT"},
		{Name: "Ana", Surname: "Ruiz", Area: "Finance"},
		{Name: "Berta", Surname: "Ruiz", Area: "Finance"},
		{Name: "Carla", Surname: "Diaz", Area: "Finance"},
	} {
		_, err := s.CreateEmployee(ctx, e)
		require.NoError(t, err)
	}

	emps, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, emps, 4)

	// (area, surname, name)
	assert.Equal(t, "Carla", emps[0].Name)
	assert.Equal(t, "Ana", emps[1].Name)
	assert.Equal(t, "Berta", emps[2].Name)
	assert.Equal(t, "Luis", emps[3].Name)

	areas, err := s.ListAreas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Finance", "IT"}, areas)
}

func TestDeleteEmployee(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateEmployee(ctx, ledger.Employee{Name: "Ana", Surname: "Ruiz", Area: "Finance"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteEmployee(ctx, id))
	assert.ErrorIs(t, s.DeleteEmployee(ctx, id), ledger.ErrEmployeeNotFound)
}

func TestFindEmployeeByFullName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateEmployee(ctx, ledger.Employee{Name: "Ana", Surname: "Ruiz", Area: "Finance"})
	require.NoError(t, err)
	_, err = s.CreateEmployee(ctx, ledger.Employee{Name: "Ana", Surname: "Ruiz", Area: "Legal"})
	require.NoError(t, err)

	// Duplicates resolve to the first match by id.
	emp, err := s.FindEmployeeByFullName(ctx, "Ana Ruiz")
	require.NoError(t, err)
	assert.Equal(t, first, emp.ID)
	assert.Equal(t, "Finance", emp.Area)

	// Bare first name matches too.
	emp, err = s.FindEmployeeByFullName(ctx, "Ana")
	require.NoError(t, err)
	assert.Equal(t, first, emp.ID)

	_, err = s.FindEmployeeByFullName(ctx, "Nadie Aqui")
	assert.ErrorIs(t, err, ledger.ErrEmployeeNotFound)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestLastTransaction_TieBrokenByID(t *testing.T) {
	// Two entries with the same timestamp: the one with the greater id
	// wins.

	s := newTestStore(t)
	ctx := context.Background()

	seedEquipment(t, s, "E1", "ThinkPad")
	at := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	_, err := s.AppendTransaction(ctx, ledger.Transaction{
		EquipmentID: "E1", Kind: ledger.KindIssue,
		EmployeeName: "Ana Ruiz", HandledBy: "IT1", Timestamp: at,
	})
	require.NoError(t, err)
	second, err := s.AppendTransaction(ctx, ledger.Transaction{
		EquipmentID: "E1", Kind: ledger.KindReturn,
		HandledBy: "IT1", Timestamp: at,
	})
	require.NoError(t, err)

	last, err := s.LastTransaction(ctx, "E1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, second.ID, last.ID)
	assert.Equal(t, ledger.KindReturn, last.Kind)
}

func TestLastTransaction_EmptyLedger(t *testing.T) {
	s := newTestStore(t)
	seedEquipment(t, s, "E1", "ThinkPad")

	last, err := s.LastTransaction(context.Background(), "E1")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestLastIssue_SkipsReturns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedEquipment(t, s, "E1", "ThinkPad")
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	_, err := s.AppendTransaction(ctx, ledger.Transaction{
		EquipmentID: "E1", Kind: ledger.KindIssue,
		EmployeeName: "Ana Ruiz", HandledBy: "IT1", Timestamp: base,
	})
	require.NoError(t, err)
	_, err = s.AppendTransaction(ctx, ledger.Transaction{
		EquipmentID: "E1", Kind: ledger.KindReturn,
		HandledBy: "IT1", Timestamp: base.Add(time.Hour),
	})
	require.NoError(t, err)

	issue, err := s.LastIssue(ctx, "E1")
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, ledger.KindIssue, issue.Kind)
	assert.Equal(t, "Ana Ruiz", issue.EmployeeName)
}

func TestListTransactions_NewestFirstWithNames(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedEquipment(t, s, "E1", "ThinkPad")
	seedEquipment(t, s, "E2", "Monitor")
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	_, err := s.AppendTransaction(ctx, ledger.Transaction{
		EquipmentID: "E1", Kind: ledger.KindIssue,
		EmployeeName: "Ana Ruiz", HandledBy: "IT1", Timestamp: base,
	})
	require.NoError(t, err)
	_, err = s.AppendTransaction(ctx, ledger.Transaction{
		EquipmentID: "E2", Kind: ledger.KindIssue,
		EmployeeName: "Luis Gomez", HandledBy: "IT1", Timestamp: base.Add(time.Hour),
	})
	require.NoError(t, err)

	entries, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "E2", entries[0].EquipmentID)
	assert.Equal(t, "Monitor", entries[0].EquipmentName)
	assert.Equal(t, "ThinkPad", entries[1].EquipmentName)
}

func TestDistinctHolders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedEquipment(t, s, "E1", "ThinkPad")
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	for i, tx := range []ledger.Transaction{
		{EquipmentID: "E1", Kind: ledger.KindIssue, EmployeeName: "Luis Gomez", EmployeeArea: "IT", HandledBy: "IT1"},
		{EquipmentID: "E1", Kind: ledger.KindReturn, HandledBy: "IT1"},
		{EquipmentID: "E1", Kind: ledger.KindIssue, EmployeeName: "Ana Ruiz", EmployeeArea: "Finance", HandledBy: "IT1"},
		{EquipmentID: "E1", Kind: ledger.KindReturn, HandledBy: "IT1"},
		{EquipmentID: "E1", Kind: ledger.KindIssue, EmployeeName: "Ana Ruiz", EmployeeArea: "Finance", HandledBy: "IT2"},
	} {
		tx.Timestamp = base.Add(time.Duration(i) * time.Hour)
		_, err := s.AppendTransaction(ctx, tx)
		require.NoError(t, err)
	}

	holders, err := s.DistinctHolders(ctx)
	require.NoError(t, err)
	require.Len(t, holders, 2)
	assert.Equal(t, "Ana Ruiz", holders[0].Name)
	assert.Equal(t, "Luis Gomez", holders[1].Name)
}

func TestCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedEquipment(t, s, "E1", "ThinkPad")
	seedEquipment(t, s, "E2", "Monitor")
	require.NoError(t, s.SetEquipmentStatus(ctx, "E1", ledger.StatusLoaned))
	_, err := s.AppendTransaction(ctx, ledger.Transaction{
		EquipmentID: "E1", Kind: ledger.KindIssue,
		EmployeeName: "Ana Ruiz", HandledBy: "IT1",
	})
	require.NoError(t, err)

	sum, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.Summary{
		TotalEquipment:    2,
		TotalLoaned:       1,
		TotalTransactions: 1,
	}, sum)
}

// =============================================================================
// TRANSACTIONAL UNIT
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	// A failing unit must leave no trace: neither the appended entry
	// nor the status update survives.

	s := newTestStore(t)
	ctx := context.Background()

	seedEquipment(t, s, "E1", "ThinkPad")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx ledger.Store) error {
		if _, err := tx.AppendTransaction(ctx, ledger.Transaction{
			EquipmentID: "E1", Kind: ledger.KindIssue,
			EmployeeName: "Ana Ruiz", HandledBy: "IT1",
		}); err != nil {
			return err
		}
		if err := tx.SetEquipmentStatus(ctx, "E1", ledger.StatusLoaned); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	eq, err := s.GetEquipment(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusAvailable, eq.Status)

	last, err := s.LastTransaction(ctx, "E1")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedEquipment(t, s, "E1", "ThinkPad")

	err := s.WithTx(ctx, func(tx ledger.Store) error {
		if _, err := tx.AppendTransaction(ctx, ledger.Transaction{
			EquipmentID: "E1", Kind: ledger.KindIssue,
			EmployeeName: "Ana Ruiz", HandledBy: "IT1",
		}); err != nil {
			return err
		}
		return tx.SetEquipmentStatus(ctx, "E1", ledger.StatusLoaned)
	})
	require.NoError(t, err)

	eq, err := s.GetEquipment(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusLoaned, eq.Status)
}

// =============================================================================
// ENGINE ON SQLITE - end-to-end over the real store
// =============================================================================

func TestEngineOnSQLite_FullCycle(t *testing.T) {
	s := newTestStore(t)
	engine := ledger.NewEngine(s)
	ctx := context.Background()

	_, err := engine.RegisterEquipment(ctx, "E1", "ThinkPad", "Laptop")
	require.NoError(t, err)

	_, err = engine.RecordOperation(ctx, ledger.OperationRequest{
		EquipmentID: "E1", Kind: ledger.KindIssue,
		EmployeeName: "Ana Ruiz", HandledBy: "IT1",
	})
	require.NoError(t, err)

	// Double issue is rejected and rolled back.
	_, err = engine.RecordOperation(ctx, ledger.OperationRequest{
		EquipmentID: "E1", Kind: ledger.KindIssue,
		EmployeeName: "Luis Gomez", HandledBy: "IT1",
	})
	assert.ErrorIs(t, err, ledger.ErrIllegalTransition)

	info, err := engine.DeriveStatus(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusLoaned, info.Status)
	assert.Equal(t, "Ana Ruiz", info.HolderName)

	_, err = engine.RecordOperation(ctx, ledger.OperationRequest{
		EquipmentID: "E1", Kind: ledger.KindReturn, HandledBy: "IT1",
	})
	require.NoError(t, err)

	sum, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalTransactions)
	assert.Equal(t, 0, sum.TotalLoaned)
}
