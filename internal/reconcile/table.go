// Package reconcile merges bulk and cascade results into the address table.
// Rows are matched by their synthetic ID column, never by position.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// Table is the run's working copy of the address table. Not safe for
// concurrent use; the service applies results from a single goroutine.
type Table struct {
	records []models.GeocodedRecord
	index   map[models.SyntheticID][]int
	log     *slog.Logger
}

// NewTable indexes addrs by ID. Rows sharing an ID are all kept and updated
// together.
func NewTable(addrs []models.Address, log *slog.Logger) *Table {
	t := &Table{
		records: make([]models.GeocodedRecord, len(addrs)),
		index:   make(map[models.SyntheticID][]int, len(addrs)),
		log:     log,
	}
	for i, a := range addrs {
		t.records[i] = models.GeocodedRecord{Address: a}
		t.index[a.ID] = append(t.index[a.ID], i)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.records) }

// ApplyBulk writes every matched bulk result to the rows with its ID.
// Unmatched results are ignored. It returns the number of results applied and
// the results that could not be attributed to a row.
func (t *Table) ApplyBulk(ctx context.Context, results []models.BulkResult) (int, []*ReconciliationError) {
	var (
		applied int
		errs    []*ReconciliationError
	)
	for _, r := range results {
		if !r.Matched || r.Coordinates == nil {
			continue
		}
		if !t.set(ctx, r.ID, *r.Coordinates, models.ServiceCensus, r.MatchType) {
			errs = append(errs, t.unknown(ctx, r.ID, "bulk"))
			continue
		}
		applied++
	}
	return applied, errs
}

// ApplyCascade writes every resolved cascade result to the rows with its ID.
// Applying the same results twice leaves the table unchanged.
func (t *Table) ApplyCascade(ctx context.Context, results []models.CascadeResult) (int, []*ReconciliationError) {
	var (
		applied int
		errs    []*ReconciliationError
	)
	for _, r := range results {
		if !r.Resolved() {
			continue
		}
		if !t.set(ctx, r.ID, *r.Coordinates, r.Service, r.MatchLabel) {
			errs = append(errs, t.unknown(ctx, r.ID, "cascade"))
			continue
		}
		applied++
	}
	return applied, errs
}

func (t *Table) set(ctx context.Context, id models.SyntheticID, coords models.Coordinates, service models.Service, score string) bool {
	rows, ok := t.index[id]
	if !ok {
		return false
	}
	if len(rows) > 1 {
		t.log.DebugContext(ctx, "Updating duplicate id", "id", id, "rows", len(rows))
	}
	for _, i := range rows {
		geometry := coords
		t.records[i].Geometry = &geometry
		t.records[i].Service = service
		t.records[i].MatchScore = score
	}
	return true
}

func (t *Table) unknown(ctx context.Context, id models.SyntheticID, source string) *ReconciliationError {
	err := &ReconciliationError{ID: id, Source: source}
	t.log.WarnContext(ctx, "Discarding result", "error", err)
	return err
}

// Unresolved returns the addresses still missing a geometry, one per ID, in
// table order.
func (t *Table) Unresolved() []models.Address {
	seen := make(map[models.SyntheticID]bool)
	var out []models.Address
	for _, r := range t.records {
		if r.Geometry != nil || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r.Address)
	}
	return out
}

// Resolved returns the number of rows with a geometry.
func (t *Table) Resolved() int {
	n := 0
	for _, r := range t.records {
		if r.Resolved() {
			n++
		}
	}
	return n
}

// Records returns a copy of the table rows.
func (t *Table) Records() []models.GeocodedRecord {
	out := make([]models.GeocodedRecord, len(t.records))
	copy(out, t.records)
	return out
}
