// Package table reads address tables and writes geocoded output: CSV with
// WKT geometry, offline bulk batch files and ESRI shapefiles.
package table

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// DefaultIDColumn names the synthetic ID column added to tables that have none.
const DefaultIDColumn = "batch_id"

var (
	// ErrUnsupportedFormat is returned for input files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = eris.New("unsupported input format")
	// ErrMissingColumn is returned when a mapped column is absent from the header.
	ErrMissingColumn = eris.New("missing column")
	// ErrEmptyTable is returned for an input without a header row.
	ErrEmptyTable = eris.New("empty table")
)

// Columns maps address fields to header names. An empty ID means the table
// carries no ID column and IDs are assigned in input order.
type Columns struct {
	ID         string
	Street     string
	City       string
	State      string
	PostalCode string
}

// DefaultColumns returns the column names used when none are configured.
func DefaultColumns() Columns {
	return Columns{Street: "street", City: "city", State: "state", PostalCode: "zip"}
}

// Input is a parsed address table.
type Input struct {
	Header    []string
	Addresses []models.Address
	// HasIDs is true when the IDs were read from the table rather than left unset.
	HasIDs   bool
	IDColumn string
}

// ReadFile reads a CSV or XLSX file, chosen by extension. XLSX input is read
// from the first sheet.
func ReadFile(path string, cols Columns) (*Input, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to open %s", path)
		}
		defer f.Close()
		return ReadCSV(f, cols)
	case ".xlsx":
		return ReadXLSX(path, cols)
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "%s", path)
	}
}

// ReadCSV reads a headered CSV table.
func ReadCSV(r io.Reader, cols Columns) (*Input, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		rows = append(rows, record)
	}

	return fromRows(rows, cols)
}

// ReadXLSX reads the first sheet of an XLSX workbook.
func ReadXLSX(path string, cols Columns) (*Input, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Wrapf(ErrEmptyTable, "xlsx: %s has no sheets", path)
	}

	rows := make([][]string, 0, len(f.Sheets[0].Rows))
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}

	return fromRows(rows, cols)
}

func fromRows(rows [][]string, cols Columns) (*Input, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}

	header := rows[0]
	lookup := make(map[string]int, len(header))
	for i, h := range header {
		lookup[strings.ToLower(strings.TrimSpace(h))] = i
	}

	index := func(name string) (int, error) {
		i, ok := lookup[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, eris.Wrapf(ErrMissingColumn, "%q", name)
		}
		return i, nil
	}

	var fieldIdx [4]int
	for n, name := range []string{cols.Street, cols.City, cols.State, cols.PostalCode} {
		i, err := index(name)
		if err != nil {
			return nil, err
		}
		fieldIdx[n] = i
	}

	idIdx := -1
	if cols.ID != "" {
		i, err := index(cols.ID)
		if err != nil {
			return nil, err
		}
		idIdx = i
	}

	in := &Input{
		Header:    append([]string(nil), header...),
		Addresses: make([]models.Address, 0, len(rows)-1),
		HasIDs:    idIdx >= 0,
		IDColumn:  cols.ID,
	}

	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		columns := pad(row, len(header))
		addr := models.Address{
			Street:     strings.TrimSpace(columns[fieldIdx[0]]),
			City:       strings.TrimSpace(columns[fieldIdx[1]]),
			State:      strings.TrimSpace(columns[fieldIdx[2]]),
			PostalCode: strings.TrimSpace(columns[fieldIdx[3]]),
			Columns:    columns,
		}
		if idIdx >= 0 {
			raw := strings.TrimSpace(columns[idIdx])
			id, err := strconv.Atoi(raw)
			if err != nil || id <= 0 {
				return nil, eris.Errorf("row %d: invalid id %q", n+2, raw)
			}
			addr.ID = models.SyntheticID(id)
		}
		in.Addresses = append(in.Addresses, addr)
	}

	return in, nil
}

// EnsureIDColumn adds an ID column named name as the first column when the
// table has none, filling it from the addresses' assigned IDs.
func (in *Input) EnsureIDColumn(addrs []models.Address, name string) []models.Address {
	if in.HasIDs {
		return addrs
	}
	if name == "" {
		name = DefaultIDColumn
	}

	in.Header = append([]string{name}, in.Header...)
	in.IDColumn = name
	in.HasIDs = true

	out := make([]models.Address, len(addrs))
	for i, a := range addrs {
		a.Columns = append([]string{strconv.Itoa(int(a.ID))}, a.Columns...)
		out[i] = a
	}
	in.Addresses = out
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func pad(row []string, n int) []string {
	out := make([]string, max(n, len(row)))
	copy(out, row)
	return out
}
