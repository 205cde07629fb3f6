package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/equipment-ledger/api"
	"github.com/warp/equipment-ledger/ledger"
	"github.com/warp/equipment-ledger/ledger/store"
	"github.com/warp/equipment-ledger/qrlink"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	h := api.NewHandler(store.NewMemory(), qrlink.NewBuilder("https://loans.corp.example"))
	return api.NewRouter(h)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out),
		"body: %s", rec.Body.String())
	return out
}

func createEquipment(t *testing.T, router http.Handler, id, name string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/equipment",
		map[string]string{"id": id, "name": name, "type": "Laptop"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func issue(t *testing.T, router http.Handler, id, employee string) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, router, http.MethodPost, "/api/equipment/"+id+"/operations",
		map[string]string{
			"kind":          "Issue",
			"employee_name": employee,
			"handled_by":    "IT1",
		})
}

// =============================================================================
// EQUIPMENT
// =============================================================================

func TestCreateAndGetEquipment(t *testing.T) {
	router := newTestRouter(t)

	createEquipment(t, router, "E1", "ThinkPad")

	rec := doJSON(t, router, http.MethodGet, "/api/equipment/E1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[api.EquipmentDTO](t, rec)
	assert.Equal(t, "E1", got.ID)
	assert.Equal(t, "ThinkPad", got.Name)
	assert.Equal(t, "Available", got.Status)
	assert.Contains(t, got.Link, "equipo_id=E1")
	assert.Contains(t, got.Link, "nombre_equipo=ThinkPad")
}

func TestCreateEquipment_Duplicate409(t *testing.T) {
	router := newTestRouter(t)

	createEquipment(t, router, "E1", "ThinkPad")
	rec := doJSON(t, router, http.MethodPost, "/api/equipment",
		map[string]string{"id": "E1", "name": "Other", "type": "Laptop"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetEquipment_Unknown404(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/equipment/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEquipment_StatusFilter(t *testing.T) {
	router := newTestRouter(t)

	createEquipment(t, router, "E1", "ThinkPad")
	createEquipment(t, router, "E2", "Monitor")
	require.Equal(t, http.StatusCreated, issue(t, router, "E1", "Ana Ruiz").Code)

	rec := doJSON(t, router, http.MethodGet, "/api/equipment?status=Loaned", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	loaned := decode[[]api.EquipmentDTO](t, rec)
	require.Len(t, loaned, 1)
	assert.Equal(t, "E1", loaned[0].ID)

	rec = doJSON(t, router, http.MethodGet, "/api/equipment?status=Available", nil)
	available := decode[[]api.EquipmentDTO](t, rec)
	require.Len(t, available, 1)
	assert.Equal(t, "E2", available[0].ID)

	rec = doJSON(t, router, http.MethodGet, "/api/equipment?status=Broken", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetQR_ReturnsPNG(t *testing.T) {
	router := newTestRouter(t)

	createEquipment(t, router, "E1", "ThinkPad")

	req := httptest.NewRequest(http.MethodGet, "/api/equipment/E1/qr", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

// =============================================================================
// OPERATIONS
// =============================================================================

func TestIssueReturnFlow(t *testing.T) {
	router := newTestRouter(t)
	createEquipment(t, router, "E1", "ThinkPad")

	rec := issue(t, router, "E1", "Ana Ruiz")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decode[api.TransactionDTO](t, rec)
	assert.Equal(t, "Issue", tx.Kind)
	assert.Equal(t, "Ana Ruiz", tx.EmployeeName)
	assert.NotEmpty(t, tx.Timestamp)

	rec = doJSON(t, router, http.MethodGet, "/api/equipment/E1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[api.StatusDTO](t, rec)
	assert.Equal(t, "Loaned", status.Status)
	assert.Equal(t, "Ana Ruiz", status.HolderName)
	assert.NotEmpty(t, status.LastMoveAt)

	rec = doJSON(t, router, http.MethodPost, "/api/equipment/E1/operations",
		map[string]string{"kind": "Return", "handled_by": "IT1", "notes": "charger included"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/equipment/E1/status", nil)
	status = decode[api.StatusDTO](t, rec)
	assert.Equal(t, "Available", status.Status)
	assert.Empty(t, status.HolderName)
}

func TestDoubleIssue_409(t *testing.T) {
	router := newTestRouter(t)
	createEquipment(t, router, "E1", "ThinkPad")

	require.Equal(t, http.StatusCreated, issue(t, router, "E1", "Ana Ruiz").Code)

	rec := issue(t, router, "E1", "Luis Gomez")
	assert.Equal(t, http.StatusConflict, rec.Code)

	body := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, "Conflict", body.Error)
}

func TestOperation_MissingFields400(t *testing.T) {
	router := newTestRouter(t)
	createEquipment(t, router, "E1", "ThinkPad")

	rec := doJSON(t, router, http.MethodPost, "/api/equipment/E1/operations",
		map[string]string{"kind": "Issue"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperation_UnknownEquipment404(t *testing.T) {
	router := newTestRouter(t)

	rec := issue(t, router, "nope", "Ana Ruiz")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTransactions_NewestFirst(t *testing.T) {
	router := newTestRouter(t)
	createEquipment(t, router, "E1", "ThinkPad")

	require.Equal(t, http.StatusCreated, issue(t, router, "E1", "Ana Ruiz").Code)
	rec := doJSON(t, router, http.MethodPost, "/api/equipment/E1/operations",
		map[string]string{"kind": "Return", "handled_by": "IT1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]api.TransactionDTO](t, rec)
	require.Len(t, history, 2)
	assert.Equal(t, "Return", history[0].Kind)
	assert.Equal(t, "Issue", history[1].Kind)
	assert.Equal(t, "ThinkPad", history[0].EquipmentName)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployeeLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/employees", map[string]string{
		"name": "Ana", "surname": "Ruiz", "area": "Finance", "email": "ana@corp.example",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[api.EmployeeDTO](t, rec)
	assert.NotZero(t, created.ID)
	assert.NotEmpty(t, created.RegisteredAt)

	rec = doJSON(t, router, http.MethodGet, "/api/employees/lookup?name=Ana+Ruiz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[api.EmployeeDTO](t, rec)
	assert.Equal(t, created.ID, found.ID)

	rec = doJSON(t, router, http.MethodGet, "/api/areas", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	areas := decode[[]string](t, rec)
	assert.Equal(t, []string{"Finance"}, areas)

	req := httptest.NewRequest(http.MethodDelete,
		"/api/employees/"+strconv.FormatInt(created.ID, 10), nil)
	del := httptest.NewRecorder()
	router.ServeHTTP(del, req)
	assert.Equal(t, http.StatusOK, del.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/employees/lookup?name=Ana+Ruiz", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEmployee_MissingFields400(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/employees",
		map[string]string{"name": "Ana"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteEmployee_Unknown404(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/employees/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportEmployees_RawCSVBody(t *testing.T) {
	router := newTestRouter(t)

	csv := "area,name,surname,email\n" +
		"Finance,Ana,Ruiz,ana@corp.example\n" +
		"Finance,,Ruiz,\n" +
		"IT,Luis,Gomez,\n"
	req := httptest.NewRequest(http.MethodPost, "/api/employees/import", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[api.ImportResultDTO](t, rec)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "row 3")

	list := doJSON(t, router, http.MethodGet, "/api/employees", nil)
	emps := decode[[]api.EmployeeDTO](t, list)
	assert.Len(t, emps, 2)
}

func TestImportEmployees_BadHeader400(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/employees/import",
		strings.NewReader("foo,bar\n1,2\n"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestReports(t *testing.T) {
	router := newTestRouter(t)
	createEquipment(t, router, "E1", "ThinkPad")
	createEquipment(t, router, "E2", "Monitor")

	require.Equal(t, http.StatusCreated, issue(t, router, "E1", "Ana Ruiz").Code)
	rec := doJSON(t, router, http.MethodPost, "/api/equipment/E1/operations",
		map[string]string{"kind": "Return", "handled_by": "IT1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, http.StatusCreated, issue(t, router, "E2", "Luis Gomez").Code)

	rec = doJSON(t, router, http.MethodGet, "/api/reports/loans", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	loans := decode[[]ledger.ActiveLoan](t, rec)
	require.Len(t, loans, 1)
	assert.Equal(t, "E2", loans[0].EquipmentID)
	assert.Equal(t, "Luis Gomez", loans[0].HolderName)

	rec = doJSON(t, router, http.MethodGet, "/api/reports/holders", nil)
	holders := decode[[]ledger.Holder](t, rec)
	require.Len(t, holders, 2)
	assert.Equal(t, "Ana Ruiz", holders[0].Name)

	rec = doJSON(t, router, http.MethodGet, "/api/reports/summary", nil)
	sum := decode[ledger.Summary](t, rec)
	assert.Equal(t, 2, sum.TotalEquipment)
	assert.Equal(t, 1, sum.TotalLoaned)
	assert.Equal(t, 3, sum.TotalTransactions)
}
