package bulk

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// Census batch response columns.
const (
	colID = iota
	colInput
	colMatch
	colMatchType
	colMatchedAddress
	colCoordinates
	colTigerLineID
	colSide

	matchedColumns = colCoordinates + 1
)

// Match indicators in the response's third column.
const (
	IndicatorMatch   = "Match"
	IndicatorNoMatch = "No_Match"
	IndicatorTie     = "Tie"
)

// EncodeBatch writes batch in the bulk submission format: one unheadered CSV
// record "id,street,city,state,postal_code" per address.
func EncodeBatch(w io.Writer, batch models.Batch) error {
	cw := csv.NewWriter(w)
	for _, addr := range batch.Addresses {
		record := []string{
			strconv.Itoa(int(addr.ID)),
			addr.Street,
			addr.City,
			addr.State,
			addr.PostalCode,
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrapf(err, "failed to encode address %d", addr.ID)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "failed to flush batch")
	}
	return nil
}

// DecodeResults parses a bulk response. Every record whose ID parses yields a
// BulkResult; a record claiming a match without usable coordinates is
// downgraded to Matched=false. Records without a usable ID are logged and
// dropped, which makes them indistinguishable from absent ones.
func DecodeResults(r io.Reader, log *slog.Logger) ([]models.BulkResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var results []models.BulkResult
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				log.Warn("Skipping unparsable bulk result line", "line", line, "error", err)
				continue
			}
			return nil, eris.Wrap(err, "failed to read bulk response")
		}

		result, ok := decodeRecord(record)
		if !ok {
			log.Warn("Skipping bulk result without a usable id", "line", line, "record", record)
			continue
		}
		if !result.Matched && len(record) > colMatch && strings.EqualFold(field(record, colMatch), IndicatorMatch) {
			log.Warn("Bulk result claims a match without coordinates", "id", result.ID, "record", record)
		}

		results = append(results, result)
	}

	return results, nil
}

func decodeRecord(record []string) (models.BulkResult, bool) {
	id, err := strconv.Atoi(field(record, colID))
	if err != nil || id <= 0 {
		return models.BulkResult{}, false
	}

	result := models.BulkResult{ID: models.SyntheticID(id)}
	if !strings.EqualFold(field(record, colMatch), IndicatorMatch) || len(record) < matchedColumns {
		return result, true
	}

	coords, err := parseCoordinates(field(record, colCoordinates))
	if err != nil {
		return result, true
	}

	result.Coordinates = coords
	result.MatchType = field(record, colMatchType)
	result.Matched = true

	return result, true
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseCoordinates parses the bulk "lon,lat" pair.
func parseCoordinates(raw string) (*models.Coordinates, error) {
	lonRaw, latRaw, ok := strings.Cut(raw, ",")
	if !ok {
		return nil, eris.Errorf("invalid coordinates %q", raw)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(lonRaw), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid longitude %q", lonRaw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid latitude %q", latRaw)
	}

	return &models.Coordinates{Longitude: lon, Latitude: lat}, nil
}
