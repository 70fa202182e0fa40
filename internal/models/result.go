package models

// Service names a geocoding provider. It is written to the output table's
// geocoding_service column and used as the StatsTracker key.
type Service string

const (
	// ServiceCensus is the batch geocoder. ServiceCensusOneLine is the same
	// backend queried one address at a time as a cascade step; the two are
	// counted separately.
	ServiceCensus        Service = "census"
	ServiceCensusOneLine Service = "census_oneline"
	ServiceOpenCage      Service = "opencage"
	ServiceNominatim     Service = "nominatim"
	ServiceGoogle        Service = "google"
)

// BulkResult is the normalized outcome of one row of a bulk submission.
// Matched is true only when Coordinates is set.
type BulkResult struct {
	ID          SyntheticID
	Coordinates *Coordinates
	MatchType   string
	Matched     bool
}

// CascadeResult is the outcome of running one address through the fallback
// cascade. Coordinates is nil when every provider missed.
type CascadeResult struct {
	ID          SyntheticID
	Coordinates *Coordinates
	Service     Service
	MatchLabel  string
}

// Resolved reports whether the cascade produced coordinates.
func (r CascadeResult) Resolved() bool { return r.Coordinates != nil }

// GeocodedRecord is one row of the final output table. A record with a nil
// Geometry is a terminal, unresolved address and is still written out.
type GeocodedRecord struct {
	Address
	Geometry   *Coordinates
	Service    Service
	MatchScore string
}

// Resolved reports whether the record has a geometry.
func (r GeocodedRecord) Resolved() bool { return r.Geometry != nil }

// ProviderStats holds the success and failure counts for one provider.
type ProviderStats struct {
	Successes int64
	Failures  int64
}

// Invocations is the total number of recorded calls.
func (s ProviderStats) Invocations() int64 { return s.Successes + s.Failures }
