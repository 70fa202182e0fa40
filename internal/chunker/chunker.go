// Package chunker partitions an address table into provider-sized batches
// and assigns the synthetic IDs used to correlate bulk results.
package chunker

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// DefaultBatchSize is the largest batch the Census batch geocoder accepts
// comfortably in one upload.
const DefaultBatchSize = 5000

// ErrInvalidBatchSize is returned when the configured batch size is not positive.
var ErrInvalidBatchSize = eris.New("batch size must be positive")

// Plan is the outcome of chunking a table.
type Plan struct {
	// Batches hold every sendable row, in input order.
	Batches []models.Batch
	// Unsendable rows failed validation. They keep their IDs, skip the bulk
	// provider and go straight to the fallback cascade.
	Unsendable []models.Address
	// Invalid carries one ValidationError per unsendable row.
	Invalid []*ValidationError
}

// Sendable returns the number of rows across all batches.
func (p Plan) Sendable() int {
	total := 0
	for _, b := range p.Batches {
		total += b.Len()
	}
	return total
}

// Chunker splits address tables into batches of at most size rows.
type Chunker struct {
	size int
	log  *slog.Logger
}

// New creates a Chunker for the given maximum batch size.
func New(size int, log *slog.Logger) (*Chunker, error) {
	if size <= 0 {
		return nil, eris.Wrapf(ErrInvalidBatchSize, "got %d", size)
	}
	return &Chunker{size: size, log: log}, nil
}

// Size returns the configured maximum batch size.
func (c *Chunker) Size() int { return c.size }

// Chunk assigns synthetic IDs 1..n in input order and partitions the rows.
// The input slice is not modified.
func (c *Chunker) Chunk(rows []models.Address) Plan {
	return c.Partition(AssignIDs(rows))
}

// Partition groups rows that already carry IDs, e.g. a table re-read after an
// offline bulk round-trip. Rows failing validation are reported as
// unsendable. When several rows share an ID only the first is submitted; the
// reconciler later updates every row with that ID.
func (c *Chunker) Partition(rows []models.Address) Plan {
	var plan Plan
	seen := make(map[models.SyntheticID]bool, len(rows))
	current := make([]models.Address, 0, min(c.size, len(rows)))

	flush := func() {
		if len(current) == 0 {
			return
		}
		plan.Batches = append(plan.Batches, models.Batch{Index: len(plan.Batches), Addresses: current})
		current = make([]models.Address, 0, c.size)
	}

	for idx, row := range rows {
		if err := Validate(idx, row); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				plan.Invalid = append(plan.Invalid, verr)
			}
			plan.Unsendable = append(plan.Unsendable, row)
			c.log.Debug("Row is not sendable to the bulk geocoder", "row", idx, "id", row.ID, "error", err)
			continue
		}

		if seen[row.ID] {
			c.log.Debug("Duplicate ID, row will be filled from the first occurrence", "row", idx, "id", row.ID)
			continue
		}
		seen[row.ID] = true

		current = append(current, row)
		if len(current) == c.size {
			flush()
		}
	}
	flush()

	if len(plan.Unsendable) > 0 {
		c.log.Warn("Some rows are missing required address fields and will skip bulk geocoding",
			"unsendable", len(plan.Unsendable))
	}

	return plan
}

// AssignIDs returns a copy of rows with IDs 1..n in input order.
func AssignIDs(rows []models.Address) []models.Address {
	out := make([]models.Address, len(rows))
	for i, row := range rows {
		row.ID = models.SyntheticID(i + 1)
		out[i] = row
	}
	return out
}

// Validate checks that a row carries every field the bulk format requires.
func Validate(row int, addr models.Address) error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"street", addr.Street},
		{"city", addr.City},
		{"state", addr.State},
		{"postal_code", addr.PostalCode},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	if len(missing) > 0 {
		return &ValidationError{Row: row, ID: addr.ID, Missing: missing}
	}
	return nil
}
