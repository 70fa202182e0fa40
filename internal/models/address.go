package models

import "strings"

// SyntheticID is the run-local key that correlates a submitted address with
// its bulk result. IDs are positive; zero means "not assigned".
type SyntheticID int

// Address is one input row. Street, City, State and PostalCode are the fields
// the geocoders need; Columns keeps the caller's full original row, aligned to
// the table header, so the output can reproduce it untouched.
type Address struct {
	ID         SyntheticID
	Street     string
	City       string
	State      string
	PostalCode string
	Columns    []string
}

// OneLine formats the address as a single free-text line for single-address
// providers, e.g. "123 Main St, Springfield, IL 62701".
func (a Address) OneLine() string {
	var parts []string
	for _, p := range []string{a.Street, a.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	region := strings.TrimSpace(strings.Join(nonEmpty(a.State, a.PostalCode), " "))
	if region != "" {
		parts = append(parts, region)
	}

	return strings.Join(parts, ", ")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Batch is an ordered, size-bounded group of addresses submitted to the bulk
// geocoder in one request. A batch is consumed once and never mutated.
type Batch struct {
	Index     int       // Index is the zero-based position of the batch in the run.
	Addresses []Address // Addresses carry their assigned synthetic IDs.
}

// Len returns the number of addresses in the batch.
func (b Batch) Len() int { return len(b.Addresses) }

// IDRange returns the smallest and largest synthetic IDs in the batch.
func (b Batch) IDRange() (SyntheticID, SyntheticID) {
	if len(b.Addresses) == 0 {
		return 0, 0
	}
	lo, hi := b.Addresses[0].ID, b.Addresses[0].ID
	for _, a := range b.Addresses[1:] {
		lo = min(lo, a.ID)
		hi = max(hi, a.ID)
	}
	return lo, hi
}
