package table_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

const sampleCSV = `name,Street,City,State,Zip
Ada,4600 Silver Hill Rd,Washington,DC,20233
Bob, 1 Nowhere Ln ,Lost,ZZ,00000
,,,,
Cy,12 Main St,Springfield,IL,62701
`

func TestReadCSV(t *testing.T) {
	in, err := table.ReadCSV(strings.NewReader(sampleCSV), table.DefaultColumns())

	require.NoError(t, err)
	assert.Equal(t, []string{"name", "Street", "City", "State", "Zip"}, in.Header)
	assert.False(t, in.HasIDs)
	require.Len(t, in.Addresses, 3, "blank rows are skipped")

	assert.Equal(t, "4600 Silver Hill Rd", in.Addresses[0].Street)
	assert.Equal(t, "1 Nowhere Ln", in.Addresses[1].Street)
	assert.Equal(t, "00000", in.Addresses[1].PostalCode)
	assert.Equal(t, []string{"Bob", " 1 Nowhere Ln ", "Lost", "ZZ", "00000"}, in.Addresses[1].Columns)
	assert.Equal(t, models.SyntheticID(0), in.Addresses[2].ID)
}

func TestReadCSV_IDColumn(t *testing.T) {
	data := "batch_id,street,city,state,zip\n10,a,b,c,d\n4,e,f,g,h\n"
	cols := table.DefaultColumns()
	cols.ID = "batch_id"

	in, err := table.ReadCSV(strings.NewReader(data), cols)

	require.NoError(t, err)
	assert.True(t, in.HasIDs)
	assert.Equal(t, models.SyntheticID(10), in.Addresses[0].ID)
	assert.Equal(t, models.SyntheticID(4), in.Addresses[1].ID)
}

func TestReadCSV_InvalidID(t *testing.T) {
	data := "batch_id,street,city,state,zip\nx,a,b,c,d\n"
	cols := table.DefaultColumns()
	cols.ID = "batch_id"

	_, err := table.ReadCSV(strings.NewReader(data), cols)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `row 2: invalid id "x"`)
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, err := table.ReadCSV(strings.NewReader("street,city,state\na,b,c\n"), table.DefaultColumns())

	require.ErrorIs(t, err, table.ErrMissingColumn)
	assert.Contains(t, err.Error(), `"zip"`)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := table.ReadCSV(strings.NewReader(""), table.DefaultColumns())

	require.ErrorIs(t, err, table.ErrEmptyTable)
}

func TestReadFile_CSV(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "addresses.csv")
	filet.File(t, path, sampleCSV)

	in, err := table.ReadFile(path, table.DefaultColumns())

	require.NoError(t, err)
	assert.Len(t, in.Addresses, 3)
}

func TestReadFile_XLSX(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "addresses.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range [][]string{
		{"street", "city", "state", "zip"},
		{"4600 Silver Hill Rd", "Washington", "DC", "20233"},
	} {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	require.NoError(t, f.Save(path))

	in, err := table.ReadFile(path, table.DefaultColumns())

	require.NoError(t, err)
	require.Len(t, in.Addresses, 1)
	assert.Equal(t, "Washington", in.Addresses[0].City)
	assert.Equal(t, "20233", in.Addresses[0].PostalCode)
}

func TestReadFile_Unsupported(t *testing.T) {
	_, err := table.ReadFile("addresses.json", table.DefaultColumns())

	require.ErrorIs(t, err, table.ErrUnsupportedFormat)
}

func TestEnsureIDColumn(t *testing.T) {
	in, err := table.ReadCSV(strings.NewReader("street,city,state,zip\na,b,c,d\ne,f,g,h\n"), table.DefaultColumns())
	require.NoError(t, err)

	addrs := make([]models.Address, len(in.Addresses))
	for i, a := range in.Addresses {
		a.ID = models.SyntheticID(i + 1)
		addrs[i] = a
	}

	out := in.EnsureIDColumn(addrs, "")

	assert.Equal(t, []string{"batch_id", "street", "city", "state", "zip"}, in.Header)
	assert.Equal(t, "batch_id", in.IDColumn)
	assert.Equal(t, []string{"2", "e", "f", "g", "h"}, out[1].Columns)
	assert.Equal(t, []string{"a", "b", "c", "d"}, addrs[0].Columns, "input addresses are not modified")

	again := in.EnsureIDColumn(out, "other")
	assert.Equal(t, out, again)
	assert.Len(t, in.Header, 5)
}
