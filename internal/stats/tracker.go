// Package stats keeps per-provider success and failure counters for a run.
package stats

import (
	"sort"
	"sync"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// Recorder is the write side of a Tracker. Provider-calling code paths depend
// on it rather than on the concrete type.
type Recorder interface {
	RecordSuccess(provider models.Service)
	RecordFailure(provider models.Service)
}

// Tracker accumulates success/failure counts per provider. It is created at
// the start of a run, shared by every component that calls a provider, and
// read once the run completes. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	counts map[models.Service]*models.ProviderStats
}

// NewTracker returns a Tracker with zeroed counters for the given providers so
// that they appear in reports even if never called.
func NewTracker(providers ...models.Service) *Tracker {
	tr := &Tracker{counts: make(map[models.Service]*models.ProviderStats, len(providers))}
	for _, p := range providers {
		tr.counts[p] = &models.ProviderStats{}
	}
	return tr
}

// RecordSuccess counts one successful invocation of provider.
func (tr *Tracker) RecordSuccess(provider models.Service) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.entry(provider).Successes++
}

// RecordFailure counts one failed invocation of provider. A miss (no
// acceptable match) is a failure just like a transport error.
func (tr *Tracker) RecordFailure(provider models.Service) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.entry(provider).Failures++
}

func (tr *Tracker) entry(provider models.Service) *models.ProviderStats {
	s, ok := tr.counts[provider]
	if !ok {
		s = &models.ProviderStats{}
		tr.counts[provider] = s
	}
	return s
}

// Snapshot is an immutable copy of the counters at one point in time.
type Snapshot map[models.Service]models.ProviderStats

// Snapshot copies the current counters.
func (tr *Tracker) Snapshot() Snapshot {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	snap := make(Snapshot, len(tr.counts))
	for p, s := range tr.counts {
		snap[p] = *s
	}
	return snap
}

// Providers returns the provider names in the snapshot, sorted.
func (s Snapshot) Providers() []models.Service {
	names := make([]models.Service, 0, len(s))
	for p := range s {
		names = append(names, p)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Get returns the counters for provider, zero if it was never recorded.
func (s Snapshot) Get(provider models.Service) models.ProviderStats {
	return s[provider]
}
