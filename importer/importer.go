/*
Package importer turns loosely-shaped CSV rows into validated employee
records.

COLUMN MATCHING:
  Header names are matched case-insensitively after trimming, so
  "area", "Area" and "AREA" all bind the area column. Spanish headers
  from legacy exports (nombre, apellido) are accepted alongside the
  English ones.

ROW DIAGNOSTICS:
  A row missing area, name or surname after trimming is reported, not
  silently dropped. Row numbers count the header as line 1, so the
  first data row is reported as row 2. Parsing always completes:
  diagnostics are collected values, never raised errors.
*/
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/warp/equipment-ledger/ledger"
)

// Accepted header spellings per field, lowercase.
var (
	areaHeaders    = []string{"area", "área"}
	nameHeaders    = []string{"name", "nombre"}
	surnameHeaders = []string{"surname", "apellido"}
	emailHeaders   = []string{"email", "correo"}
)

// Result is the outcome of one import parse: the validated records and
// the per-row diagnostics for everything that was skipped.
type Result struct {
	Records []ledger.Employee
	Errors  []string
}

// Imported returns the number of validated records.
func (r Result) Imported() int { return len(r.Records) }

// ParseCSV reads the whole CSV stream and returns validated employee
// records plus per-row error messages. The first line must be a header
// naming at least the area, name and surname columns.
func ParseCSV(r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return Result{}, errors.New("empty file: missing header row")
	}
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}

	cols, err := bindColumns(header)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}

		emp := ledger.Employee{
			Area:    cols.get(row, cols.area),
			Name:    cols.get(row, cols.name),
			Surname: cols.get(row, cols.surname),
			Email:   cols.get(row, cols.email),
		}
		if emp.Area == "" || emp.Name == "" || emp.Surname == "" {
			res.Errors = append(res.Errors,
				fmt.Sprintf("row %d: missing required fields (area, name or surname)", line))
			continue
		}
		res.Records = append(res.Records, emp)
	}
	return res, nil
}

// columns holds the resolved index per field; -1 means absent.
type columns struct {
	area, name, surname, email int
}

func (c columns) get(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func bindColumns(header []string) (columns, error) {
	cols := columns{area: -1, name: -1, surname: -1, email: -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case cols.area < 0 && matches(h, areaHeaders):
			cols.area = i
		case cols.name < 0 && matches(h, nameHeaders):
			cols.name = i
		case cols.surname < 0 && matches(h, surnameHeaders):
			cols.surname = i
		case cols.email < 0 && matches(h, emailHeaders):
			cols.email = i
		}
	}

	var missing []string
	if cols.area < 0 {
		missing = append(missing, "area")
	}
	if cols.name < 0 {
		missing = append(missing, "name")
	}
	if cols.surname < 0 {
		missing = append(missing, "surname")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("header is missing required column(s): %s",
			strings.Join(missing, ", "))
	}
	return cols, nil
}

func matches(h string, accepted []string) bool {
	for _, a := range accepted {
		if h == a {
			return true
		}
	}
	return false
}
