package stats

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// Order lists providers in pipeline order for reporting: the bulk provider
// first, then cascade steps. Providers not listed are appended alphabetically.
var Order = []models.Service{
	models.ServiceCensus,
	models.ServiceCensusOneLine,
	models.ServiceOpenCage,
	models.ServiceNominatim,
	models.ServiceGoogle,
}

// Render writes the snapshot as a table with one row per provider.
func (s Snapshot) Render(w io.Writer) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Service", "Successes", "Failures", "Invocations"})

	var total models.ProviderStats
	for _, p := range s.ordered() {
		st := s[p]
		tbl.AppendRow(table.Row{p, st.Successes, st.Failures, st.Invocations()})
		total.Successes += st.Successes
		total.Failures += st.Failures
	}

	tbl.AppendFooter(table.Row{"Total", total.Successes, total.Failures, total.Invocations()})
	tbl.Render()
}

// String renders the snapshot as a table.
func (s Snapshot) String() string {
	var sb strings.Builder
	s.Render(&sb)
	return sb.String()
}

func (s Snapshot) ordered() []models.Service {
	seen := make(map[models.Service]bool, len(s))
	out := make([]models.Service, 0, len(s))
	for _, p := range Order {
		if _, ok := s[p]; ok {
			out = append(out, p)
			seen[p] = true
		}
	}
	for _, p := range s.Providers() {
		if !seen[p] {
			out = append(out, p)
		}
	}
	return out
}
