package reconcile_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addresses(ids ...int) []models.Address {
	out := make([]models.Address, len(ids))
	for i, id := range ids {
		out[i] = models.Address{ID: models.SyntheticID(id), Street: "s"}
	}
	return out
}

func coords(lon, lat float64) *models.Coordinates {
	return &models.Coordinates{Longitude: lon, Latitude: lat}
}

func TestApplyBulk(t *testing.T) {
	table := reconcile.NewTable(addresses(1, 2, 3), slog.Default())

	applied, errs := table.ApplyBulk(t.Context(), []models.BulkResult{
		{ID: 3, Coordinates: coords(-76.9, 38.8), MatchType: "Exact", Matched: true},
		{ID: 2, Matched: false},
	})

	assert.Equal(t, 1, applied)
	assert.Empty(t, errs)

	records := table.Records()
	assert.Nil(t, records[0].Geometry)
	assert.Nil(t, records[1].Geometry)
	require.NotNil(t, records[2].Geometry)
	assert.Equal(t, models.ServiceCensus, records[2].Service)
	assert.Equal(t, "Exact", records[2].MatchScore)
	assert.Equal(t, 1, table.Resolved())
}

func TestApplyBulk_IDJoinIsNotPositional(t *testing.T) {
	// IDs out of order: a positional id-1 lookup would hit the wrong row.
	table := reconcile.NewTable(addresses(30, 10, 20), slog.Default())

	_, errs := table.ApplyBulk(t.Context(), []models.BulkResult{
		{ID: 10, Coordinates: coords(1, 1), Matched: true},
	})

	require.Empty(t, errs)
	records := table.Records()
	assert.Nil(t, records[0].Geometry)
	require.NotNil(t, records[1].Geometry)
	assert.Equal(t, models.SyntheticID(10), records[1].ID)
	assert.Nil(t, records[2].Geometry)
}

func TestApplyBulk_UnknownID(t *testing.T) {
	table := reconcile.NewTable(addresses(1), slog.Default())

	applied, errs := table.ApplyBulk(t.Context(), []models.BulkResult{
		{ID: 99, Coordinates: coords(1, 1), Matched: true},
	})

	assert.Equal(t, 0, applied)
	require.Len(t, errs, 1)
	assert.Equal(t, models.SyntheticID(99), errs[0].ID)
	assert.Equal(t, "bulk result for unknown id 99", errs[0].Error())
	assert.Equal(t, 0, table.Resolved())
}

func TestApply_DuplicateIDsUpdatesEveryRow(t *testing.T) {
	table := reconcile.NewTable(addresses(1, 2, 1), slog.Default())

	assert.Len(t, table.Unresolved(), 2)

	applied, errs := table.ApplyCascade(t.Context(), []models.CascadeResult{
		{ID: 1, Coordinates: coords(5, 6), Service: models.ServiceNominatim, MatchLabel: "N/A"},
	})

	assert.Equal(t, 1, applied)
	assert.Empty(t, errs)
	records := table.Records()
	require.NotNil(t, records[0].Geometry)
	require.NotNil(t, records[2].Geometry)
	assert.Equal(t, models.ServiceNominatim, records[2].Service)
	assert.Nil(t, records[1].Geometry)
}

func TestUnresolved(t *testing.T) {
	table := reconcile.NewTable(addresses(1, 2, 3), slog.Default())
	table.ApplyBulk(t.Context(), []models.BulkResult{{ID: 2, Coordinates: coords(1, 1), Matched: true}})

	unresolved := table.Unresolved()

	require.Len(t, unresolved, 2)
	assert.Equal(t, models.SyntheticID(1), unresolved[0].ID)
	assert.Equal(t, models.SyntheticID(3), unresolved[1].ID)
}

func TestApplyCascade_Idempotent(t *testing.T) {
	table := reconcile.NewTable(addresses(1, 2), slog.Default())
	results := []models.CascadeResult{
		{ID: 1, Coordinates: coords(5, 6), Service: models.ServiceOpenCage, MatchLabel: "8"},
		{ID: 2},
	}

	table.ApplyCascade(t.Context(), results)
	first := table.Records()
	table.ApplyCascade(t.Context(), results)
	second := table.Records()

	assert.Equal(t, first, second)
	assert.Nil(t, second[1].Geometry)
	assert.Empty(t, second[1].Service)
}

func TestApplyCascade_UnknownID(t *testing.T) {
	table := reconcile.NewTable(addresses(1), slog.Default())

	_, errs := table.ApplyCascade(t.Context(), []models.CascadeResult{
		{ID: 7, Coordinates: coords(1, 1), Service: models.ServiceOpenCage},
	})

	require.Len(t, errs, 1)
	assert.Equal(t, "cascade result for unknown id 7", errs[0].Error())
}

func TestRecords_ReturnsCopy(t *testing.T) {
	table := reconcile.NewTable(addresses(1), slog.Default())

	records := table.Records()
	records[0].Service = models.ServiceGoogle

	assert.Empty(t, table.Records()[0].Service)
}
