/*
dto.go - Request/response types for the HTTP API

DTOs decouple the wire contract from the ledger types: field names can
evolve without touching the domain, and timestamps are always formatted
RFC 3339 on the way out. Validation happens in handlers, not here.
*/
package api

import (
	"time"

	"github.com/warp/equipment-ledger/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateEquipmentRequest registers a new catalog entry.
type CreateEquipmentRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// OperationRequest records one Issue or Return.
type OperationRequest struct {
	Kind          string `json:"kind"`
	EmployeeName  string `json:"employee_name"`
	EmployeeEmail string `json:"employee_email"`
	EmployeeArea  string `json:"employee_area"`
	Notes         string `json:"notes"`
	HandledBy     string `json:"handled_by"`
}

// CreateEmployeeRequest adds one directory entry.
type CreateEmployeeRequest struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Area    string `json:"area"`
	Email   string `json:"email"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// EquipmentDTO is a catalog entry in API responses.
type EquipmentDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Link   string `json:"link,omitempty"`
}

// StatusDTO is the derived state of one item.
type StatusDTO struct {
	EquipmentID string `json:"equipment_id"`
	Status      string `json:"status"`
	HolderName  string `json:"holder_name,omitempty"`
	LastMoveAt  string `json:"last_move_at,omitempty"`
}

// TransactionDTO is a ledger entry in API responses.
type TransactionDTO struct {
	ID            int64  `json:"id"`
	EquipmentID   string `json:"equipment_id"`
	EquipmentName string `json:"equipment_name,omitempty"`
	EmployeeName  string `json:"employee_name,omitempty"`
	EmployeeEmail string `json:"employee_email,omitempty"`
	EmployeeArea  string `json:"employee_area,omitempty"`
	Kind          string `json:"kind"`
	Timestamp     string `json:"timestamp"`
	Notes         string `json:"notes,omitempty"`
	HandledBy     string `json:"handled_by"`
}

// EmployeeDTO is a directory entry in API responses.
type EmployeeDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Surname      string `json:"surname"`
	Area         string `json:"area"`
	Email        string `json:"email,omitempty"`
	RegisteredAt string `json:"registered_at,omitempty"`
}

// ImportResultDTO reports a bulk import outcome.
type ImportResultDTO struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEquipmentDTO(eq ledger.Equipment, link string) EquipmentDTO {
	return EquipmentDTO{
		ID:     eq.ID,
		Name:   eq.Name,
		Type:   eq.Type,
		Status: string(eq.Status),
		Link:   link,
	}
}

func toTransactionDTO(tx ledger.Transaction, equipmentName string) TransactionDTO {
	return TransactionDTO{
		ID:            tx.ID,
		EquipmentID:   tx.EquipmentID,
		EquipmentName: equipmentName,
		EmployeeName:  tx.EmployeeName,
		EmployeeEmail: tx.EmployeeEmail,
		EmployeeArea:  tx.EmployeeArea,
		Kind:          string(tx.Kind),
		Timestamp:     tx.Timestamp.Format(time.RFC3339),
		Notes:         tx.Notes,
		HandledBy:     tx.HandledBy,
	}
}

func toEmployeeDTO(emp ledger.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:      emp.ID,
		Name:    emp.Name,
		Surname: emp.Surname,
		Area:    emp.Area,
		Email:   emp.Email,
	}
	if !emp.RegisteredAt.IsZero() {
		dto.RegisteredAt = emp.RegisteredAt.Format(time.RFC3339)
	}
	return dto
}
