package chunker

import (
	"strings"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// Diagnostics summarizes the shape of a table before submission.
type Diagnostics struct {
	Rows          int
	MissingStreet int
	MissingCity   int
	MissingState  int
	MissingPostal int
	// PostalLengths maps trimmed postal code length to row count. US ZIP codes
	// read from spreadsheets often lose their leading zero and show up as 4.
	PostalLengths map[int]int
}

// Diagnose counts missing fields and postal code lengths.
func Diagnose(rows []models.Address) Diagnostics {
	d := Diagnostics{Rows: len(rows), PostalLengths: make(map[int]int)}
	for _, r := range rows {
		if strings.TrimSpace(r.Street) == "" {
			d.MissingStreet++
		}
		if strings.TrimSpace(r.City) == "" {
			d.MissingCity++
		}
		if strings.TrimSpace(r.State) == "" {
			d.MissingState++
		}
		postal := strings.TrimSpace(r.PostalCode)
		if postal == "" {
			d.MissingPostal++
		}
		d.PostalLengths[len(postal)]++
	}
	return d
}
