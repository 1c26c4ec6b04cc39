package catalog

import "context"

// Store defines persistence operations for catalog entities.
type Store interface {
	// SaveAirports upserts airports by primary key in one transaction.
	SaveAirports(ctx context.Context, airports []Airport) (UpsertReport, error)

	// SaveAirlines upserts airlines by primary key in one transaction.
	SaveAirlines(ctx context.Context, airlines []Airline) (UpsertReport, error)

	// GetAirport returns an airport by ID.
	GetAirport(ctx context.Context, id int64) (Airport, error)

	// GetAirline returns an airline by ID.
	GetAirline(ctx context.Context, id int64) (Airline, error)

	// FindAirports retrieves airports matching the given options.
	FindAirports(ctx context.Context, options ...Option) ([]Airport, error)

	// FindAirlines retrieves airlines matching the given options.
	FindAirlines(ctx context.Context, options ...Option) ([]Airline, error)

	// Count returns the number of stored entities of a kind matching the
	// given options.
	Count(ctx context.Context, kind Kind, options ...Option) (int64, error)

	// Exists checks whether an entity of a kind exists.
	Exists(ctx context.Context, kind Kind, id int64) (bool, error)
}

// UpsertReport summarizes one batch upsert.
type UpsertReport struct {
	inserted int
	updated  int
	failed   int
}

// NewUpsertReport creates a new UpsertReport.
func NewUpsertReport(inserted, updated, failed int) UpsertReport {
	return UpsertReport{
		inserted: inserted,
		updated:  updated,
		failed:   failed,
	}
}

// Inserted returns the number of newly created rows.
func (r UpsertReport) Inserted() int { return r.inserted }

// Updated returns the number of rows whose key already existed.
func (r UpsertReport) Updated() int { return r.updated }

// Failed returns the number of rows that could not be written.
func (r UpsertReport) Failed() int { return r.failed }

// Total returns the number of rows attempted.
func (r UpsertReport) Total() int { return r.inserted + r.updated + r.failed }

// Merge returns the sum of two reports.
func (r UpsertReport) Merge(other UpsertReport) UpsertReport {
	return UpsertReport{
		inserted: r.inserted + other.inserted,
		updated:  r.updated + other.updated,
		failed:   r.failed + other.failed,
	}
}
