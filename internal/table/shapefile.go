package table

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// DBF field names are limited to 10 characters.
var shapeFields = []shp.Field{
	shp.NumberField("id", 10),
	shp.StringField("street", 80),
	shp.StringField("city", 40),
	shp.StringField("state", 10),
	shp.StringField("postal", 10),
	shp.StringField("service", 16),
	shp.StringField("score", 40),
}

// WriteShapefile exports resolved records as a point shapefile (.shp, .shx,
// .dbf next to path). Unresolved records have no geometry and are skipped.
// Attribute values longer than their DBF field are truncated. It returns the
// number of points written.
func WriteShapefile(path string, records []models.GeocodedRecord) (int, error) {
	writer, err := shp.Create(path, shp.POINT)
	if err != nil {
		return 0, eris.Wrapf(err, "shapefile: create %s", path)
	}

	written, err := writeShapes(writer, records)
	writer.Close()
	if err != nil {
		return written, err
	}

	if err = fixDBFName(path); err != nil {
		return written, err
	}
	return written, nil
}

func writeShapes(writer *shp.Writer, records []models.GeocodedRecord) (int, error) {
	if err := writer.SetFields(shapeFields); err != nil {
		return 0, eris.Wrap(err, "shapefile: set fields")
	}

	written := 0
	for _, r := range records {
		if r.Geometry == nil {
			continue
		}

		n := int(writer.Write(&shp.Point{X: r.Geometry.Longitude, Y: r.Geometry.Latitude}))
		values := []string{
			strconv.Itoa(int(r.ID)),
			r.Street,
			r.City,
			r.State,
			r.PostalCode,
			string(r.Service),
			r.MatchScore,
		}
		for field, v := range values {
			v = fit(v, int(shapeFields[field].Size))
			if err := writer.WriteAttribute(n, field, v); err != nil {
				return written, eris.Wrapf(err, "shapefile: write attribute %d of record %d", field, r.ID)
			}
		}
		written++
	}

	return written, nil
}

// fixDBFName moves "<base>dbf", as written by go-shp v0.1.1, to "<base>.dbf"
// where shapefile readers look for it.
func fixDBFName(path string) error {
	base := strings.TrimSuffix(path, ".shp")
	if _, err := os.Stat(base + "dbf"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrapf(err, "shapefile: rename attribute table of %s", path)
	}
	return nil
}

// fit truncates v to at most size bytes without splitting a rune.
func fit(v string, size int) string {
	if len(v) <= size {
		return v
	}
	v = v[:size]
	for len(v) > 0 && !utf8.ValidString(v) {
		v = v[:len(v)-1]
	}
	return v
}
