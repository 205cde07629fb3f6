/*
handlers.go - HTTP handlers for the equipment loan service

ENDPOINTS:
  Equipment:
    GET    /api/equipment                  List catalog (filter: ?status=)
    POST   /api/equipment                  Register item
    GET    /api/equipment/{id}             Get item
    GET    /api/equipment/{id}/status      Derived status (ledger truth)
    GET    /api/equipment/{id}/qr          Deep-link QR as PNG
    POST   /api/equipment/{id}/operations  Record Issue / Return

  Ledger:
    GET    /api/transactions               Full history, newest first

  Employees:
    GET    /api/employees                  Directory (area, surname, name)
    POST   /api/employees                  Add entry
    DELETE /api/employees/{id}             Remove entry
    GET    /api/employees/lookup?name=     First match by full name
    POST   /api/employees/import           Bulk CSV import
    GET    /api/areas                      Distinct areas

  Reports:
    GET    /api/reports/loans              Active loans with holder info
    GET    /api/reports/holders            Distinct prior holders
    GET    /api/reports/summary            Headline counts

ERROR MAPPING:
  404 missing records, 400 missing/invalid input, 409 id collisions and
  illegal transitions, 500 store failures. Rejections from the engine
  are ordinary values; the handler only translates them.
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/equipment-ledger/importer"
	"github.com/warp/equipment-ledger/ledger"
	"github.com/warp/equipment-ledger/qrlink"
)

// Handler holds the dependencies shared by all endpoints.
type Handler struct {
	Engine  *ledger.Engine
	Reports *ledger.Reports
	Store   ledger.TxStore
	Links   qrlink.Builder
}

// NewHandler wires the engine and reports facade over the given store.
func NewHandler(store ledger.TxStore, links qrlink.Builder) *Handler {
	return &Handler{
		Engine:  ledger.NewEngine(store),
		Reports: ledger.NewReports(store),
		Store:   store,
		Links:   links,
	}
}

// =============================================================================
// EQUIPMENT HANDLERS
// =============================================================================

// ListEquipment returns the catalog; ?status=Available|Loaned filters
// by the cached status.
func (h *Handler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	var (
		items []ledger.Equipment
		err   error
	)
	switch r.URL.Query().Get("status") {
	case "":
		items, err = h.Store.ListEquipment(r.Context())
	case string(ledger.StatusAvailable):
		items, err = h.Reports.ListAvailable(r.Context())
	case string(ledger.StatusLoaned):
		items, err = h.Reports.ListLoaned(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "Unknown status filter", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list equipment", err)
		return
	}

	dtos := make([]EquipmentDTO, len(items))
	for i, eq := range items {
		dtos[i] = toEquipmentDTO(eq, h.Links.DeepLink(eq.ID, eq.Name))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEquipment registers a new item.
func (h *Handler) CreateEquipment(w http.ResponseWriter, r *http.Request) {
	var req CreateEquipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	eq, err := h.Engine.RegisterEquipment(r.Context(), req.ID, req.Name, req.Type)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEquipmentDTO(*eq, h.Links.DeepLink(eq.ID, eq.Name)))
}

// GetEquipment returns one catalog entry.
func (h *Handler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	eq, err := h.Store.GetEquipment(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEquipmentDTO(*eq, h.Links.DeepLink(eq.ID, eq.Name)))
}

// GetStatus returns the ledger-derived state of one item.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	info, err := h.Engine.DeriveStatus(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	dto := StatusDTO{
		EquipmentID: id,
		Status:      string(info.Status),
		HolderName:  info.HolderName,
	}
	if !info.LastMoveAt.IsZero() {
		dto.LastMoveAt = info.LastMoveAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetQR renders the item's deep link as a PNG QR code.
func (h *Handler) GetQR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	eq, err := h.Store.GetEquipment(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	png, err := qrlink.RenderPNG(h.Links.DeepLink(eq.ID, eq.Name))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render QR code", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// RecordOperation records an Issue or Return through the engine.
func (h *Handler) RecordOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := h.Engine.RecordOperation(r.Context(), ledger.OperationRequest{
		EquipmentID:   id,
		Kind:          ledger.Kind(req.Kind),
		EmployeeName:  req.EmployeeName,
		EmployeeEmail: req.EmployeeEmail,
		EmployeeArea:  req.EmployeeArea,
		Notes:         req.Notes,
		HandledBy:     req.HandledBy,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx, ""))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListTransactions returns the full history, newest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Reports.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toTransactionDTO(e.Transaction, e.EquipmentName)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns the directory ordered by (area, surname, name).
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	emps, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(emps))
	for i, emp := range emps {
		dtos[i] = toEmployeeDTO(emp)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee adds one directory entry.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp, err := h.Engine.AddEmployee(r.Context(), ledger.Employee{
		Name:    req.Name,
		Surname: req.Surname,
		Area:    req.Area,
		Email:   req.Email,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*emp))
}

// DeleteEmployee removes a directory entry by id. History keeps its
// copied fields either way.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return
	}

	if err := h.Store.DeleteEmployee(r.Context(), id); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// LookupEmployee resolves ?name= as "Name Surname", first match only.
func (h *Handler) LookupEmployee(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Missing name parameter", nil)
		return
	}

	emp, err := h.Store.FindEmployeeByFullName(r.Context(), name)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// ImportEmployees bulk-loads a CSV body. Row-level problems come back
// as diagnostics with a 200; only unreadable input is an error.
func (h *Handler) ImportEmployees(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		body = file
	}

	res, err := importer.ParseCSV(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse CSV", err)
		return
	}

	imported, err := h.Engine.ImportEmployees(r.Context(), res.Records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Import failed", err)
		return
	}

	diags := res.Errors
	if diags == nil {
		diags = []string{}
	}
	writeJSON(w, http.StatusOK, ImportResultDTO{Imported: imported, Errors: diags})
}

// ListAreas returns the distinct department strings.
func (h *Handler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.Store.ListAreas(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list areas", err)
		return
	}
	if areas == nil {
		areas = []string{}
	}
	writeJSON(w, http.StatusOK, areas)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// ActiveLoans returns every loaned item with its holder projection.
func (h *Handler) ActiveLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.Reports.ActiveLoans(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list active loans", err)
		return
	}
	if loans == nil {
		loans = []ledger.ActiveLoan{}
	}
	writeJSON(w, http.StatusOK, loans)
}

// PriorHolders returns everyone who has ever received equipment.
func (h *Handler) PriorHolders(w http.ResponseWriter, r *http.Request) {
	holders, err := h.Reports.DistinctPriorHolders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holders", err)
		return
	}
	if holders == nil {
		holders = []ledger.Holder{}
	}
	writeJSON(w, http.StatusOK, holders)
}

// Summary returns headline counts.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Reports.SummaryCounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute summary", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError translates domain rejections into HTTP statuses.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, ledger.ErrAlreadyExists),
		errors.Is(err, ledger.ErrIllegalTransition):
		writeError(w, http.StatusConflict, "Conflict", err)
	case errors.Is(err, ledger.ErrMissingField):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
