package table_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/table"
	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []models.GeocodedRecord {
	return []models.GeocodedRecord{
		{
			Address: models.Address{
				ID: 1, Street: "4600 Silver Hill Rd", City: "Washington", State: "DC", PostalCode: "20233",
				Columns: []string{"1", "4600 Silver Hill Rd", "Washington", "DC", "20233"},
			},
			Geometry:   &models.Coordinates{Longitude: -76.92744, Latitude: 38.845985},
			Service:    models.ServiceCensus,
			MatchScore: "Exact",
		},
		{
			Address: models.Address{
				ID: 2, Street: "1 Nowhere Ln", City: "Lost", State: "ZZ", PostalCode: "00000",
				Columns: []string{"2", "1 Nowhere Ln", "Lost", "ZZ", "00000"},
			},
		},
	}
}

var sampleHeader = []string{"batch_id", "street", "city", "state", "zip"}

func TestGeometryWKT(t *testing.T) {
	got, err := table.GeometryWKT(models.Coordinates{Longitude: -76.92744, Latitude: 38.845985})

	require.NoError(t, err)
	assert.Equal(t, "POINT (-76.92744 38.845985)", got)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer

	err := table.WriteCSV(&buf, sampleHeader, sampleRecords())

	require.NoError(t, err)
	assert.Equal(t,
		"batch_id,street,city,state,zip,geometry,geocoding_service,match_score,latitude,longitude\n"+
			"1,4600 Silver Hill Rd,Washington,DC,20233,POINT (-76.92744 38.845985),census,Exact,38.845985,-76.92744\n"+
			"2,1 Nowhere Ln,Lost,ZZ,00000,,,,,\n",
		buf.String())
}

func TestWriteCSVFile(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "out.csv")

	require.NoError(t, table.WriteCSVFile(path, sampleHeader, sampleRecords()))

	assert.True(t, filet.Exists(t, path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "POINT (-76.92744 38.845985)")
}

func TestWriteSourceCSV(t *testing.T) {
	var buf bytes.Buffer
	addrs := []models.Address{sampleRecords()[0].Address}

	require.NoError(t, table.WriteSourceCSV(&buf, sampleHeader, addrs))

	assert.Equal(t, "batch_id,street,city,state,zip\n1,4600 Silver Hill Rd,Washington,DC,20233\n", buf.String())
}

func TestBatchFileName(t *testing.T) {
	batch := models.Batch{Addresses: []models.Address{{ID: 5001}, {ID: 10000}}}

	assert.Equal(t, "census_batch_5001_10000.csv", table.BatchFileName("", batch))
	assert.Equal(t, "census_batch_2024_5001_10000.csv", table.BatchFileName("2024", batch))
}

func TestWriteBatchFiles(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filepath.Join(filet.TmpDir(t, ""), "batches")

	batches := []models.Batch{
		{Index: 0, Addresses: []models.Address{
			{ID: 1, Street: "a", City: "b", State: "c", PostalCode: "d"},
			{ID: 2, Street: "e", City: "f", State: "g", PostalCode: "h"},
		}},
		{Index: 1, Addresses: []models.Address{{ID: 3, Street: "i", City: "j", State: "k", PostalCode: "l"}}},
	}

	paths, err := table.WriteBatchFiles(dir, "", batches)

	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "census_batch_1_2.csv"), paths[0])
	assert.True(t, filet.FileSays(t, paths[0], []byte("1,a,b,c,d\n2,e,f,g,h\n")))
	assert.True(t, filet.FileSays(t, paths[1], []byte("3,i,j,k,l\n")))
}

func TestWriteShapefile(t *testing.T) {
	defer filet.CleanUp(t)
	path := filepath.Join(filet.TmpDir(t, ""), "out.shp")

	written, err := table.WriteShapefile(path, sampleRecords())

	require.NoError(t, err)
	assert.Equal(t, 1, written)

	dir := filepath.Dir(path)
	assert.True(t, filet.Exists(t, filepath.Join(dir, "out.dbf")))
	assert.False(t, filet.Exists(t, filepath.Join(dir, "outdbf")))

	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer reader.Close()

	require.Len(t, reader.Fields(), 7)
	require.True(t, reader.Next())
	_, shape := reader.Shape()
	point, ok := shape.(*shp.Point)
	require.True(t, ok)
	assert.InDelta(t, -76.92744, point.X, 1e-9)
	assert.InDelta(t, 38.845985, point.Y, 1e-9)
	assert.Equal(t, "census", trimDBF(reader.Attribute(5)))
	assert.False(t, reader.Next())
}

func TestWriteShapefile_TruncatesLongValues(t *testing.T) {
	defer filet.CleanUp(t)
	path := filepath.Join(filet.TmpDir(t, ""), "long.shp")

	street := strings.Repeat("Long Street Name ", 6)
	label := "4600 SILVER HILL RD, WASHINGTON, DC, 20233"
	records := []models.GeocodedRecord{{
		Address:    models.Address{ID: 7, Street: street, City: "Washington", State: "DC", PostalCode: "20233"},
		Geometry:   &models.Coordinates{Longitude: -76.92744, Latitude: 38.845985},
		Service:    models.ServiceCensusOneLine,
		MatchScore: label,
	}}

	written, err := table.WriteShapefile(path, records)

	require.NoError(t, err)
	assert.Equal(t, 1, written)

	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer reader.Close()

	require.True(t, reader.Next())
	assert.Equal(t, strings.TrimSpace(street[:80]), trimDBF(reader.Attribute(1)))
	assert.Equal(t, label[:40], trimDBF(reader.Attribute(6)))
	assert.Equal(t, "census_oneline", trimDBF(reader.Attribute(5)))
}

func trimDBF(s string) string {
	return string(bytes.TrimSpace(bytes.TrimRight([]byte(s), "\x00")))
}
