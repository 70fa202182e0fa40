package table

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// OutputColumns are appended to the input header in the geocoded table.
var OutputColumns = []string{"geometry", "geocoding_service", "match_score", "latitude", "longitude"}

// GeometryWKT renders coordinates as a WKT point, "POINT (lon lat)".
func GeometryWKT(c models.Coordinates) (string, error) {
	point := geom.NewPointFlat(geom.XY, []float64{c.Longitude, c.Latitude})
	s, err := wkt.Marshal(point)
	if err != nil {
		return "", eris.Wrap(err, "failed to encode geometry")
	}
	return s, nil
}

// WriteCSV writes records with their original columns followed by
// OutputColumns. Unresolved records keep empty output columns.
func WriteCSV(w io.Writer, header []string, records []models.GeocodedRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(append(append([]string(nil), header...), OutputColumns...)); err != nil {
		return eris.Wrap(err, "csv: write header")
	}

	for _, r := range records {
		row := make([]string, 0, len(header)+len(OutputColumns))
		row = append(row, pad(r.Columns, len(header))...)

		if r.Geometry != nil {
			geometry, err := GeometryWKT(*r.Geometry)
			if err != nil {
				return eris.Wrapf(err, "row %d", r.ID)
			}
			row = append(row,
				geometry,
				string(r.Service),
				r.MatchScore,
				strconv.FormatFloat(r.Geometry.Latitude, 'f', -1, 64),
				strconv.FormatFloat(r.Geometry.Longitude, 'f', -1, 64),
			)
		} else {
			row = append(row, "", "", "", "", "")
		}

		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "csv: write row %d", r.ID)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "csv: flush")
	}
	return nil
}

// WriteCSVFile writes the geocoded table to path.
func WriteCSVFile(path string, header []string, records []models.GeocodedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", path)
	}

	if err = WriteCSV(f, header, records); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return eris.Wrapf(err, "failed to close %s", path)
	}
	return nil
}

// WriteSourceCSV writes the address table as read, without output columns.
func WriteSourceCSV(w io.Writer, header []string, addrs []models.Address) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, a := range addrs {
		if err := cw.Write(pad(a.Columns, len(header))); err != nil {
			return eris.Wrapf(err, "csv: write row %d", a.ID)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "csv: flush")
	}
	return nil
}
