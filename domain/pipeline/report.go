package pipeline

import (
	"fmt"

	"github.com/skyvisionhq/skyvision/domain/catalog"
)

// IngestReport summarizes one parse of the source data.
type IngestReport struct {
	airports  int
	airlines  int
	imageRefs int
	skipped   int
	rowErrors []error
}

// NewIngestReport creates an IngestReport.
func NewIngestReport(airports, airlines, imageRefs, skipped int, rowErrors []error) IngestReport {
	return IngestReport{
		airports:  airports,
		airlines:  airlines,
		imageRefs: imageRefs,
		skipped:   skipped,
		rowErrors: copyErrors(rowErrors),
	}
}

// Airports returns the number of airports parsed.
func (r IngestReport) Airports() int { return r.airports }

// Airlines returns the number of airlines parsed.
func (r IngestReport) Airlines() int { return r.airlines }

// ImageRefs returns the number of image references parsed.
func (r IngestReport) ImageRefs() int { return r.imageRefs }

// Skipped returns the number of malformed rows skipped.
func (r IngestReport) Skipped() int { return r.skipped }

// RowErrors returns the collected per-row errors.
func (r IngestReport) RowErrors() []error { return copyErrors(r.rowErrors) }

// String returns a one-line summary.
func (r IngestReport) String() string {
	return fmt.Sprintf("airports=%d airlines=%d image_refs=%d skipped=%d",
		r.airports, r.airlines, r.imageRefs, r.skipped)
}

// LocalizeReport summarizes one image localization pass.
type LocalizeReport struct {
	downloaded int
	kept       int
	skipped    int
	failed     int
	rowErrors  []error
}

// NewLocalizeReport creates a LocalizeReport.
func NewLocalizeReport(downloaded, kept, skipped, failed int, rowErrors []error) LocalizeReport {
	return LocalizeReport{
		downloaded: downloaded,
		kept:       kept,
		skipped:    skipped,
		failed:     failed,
		rowErrors:  copyErrors(rowErrors),
	}
}

// Downloaded returns the number of images fetched this run.
func (r LocalizeReport) Downloaded() int { return r.downloaded }

// Kept returns the number of cache files reused without downloading.
func (r LocalizeReport) Kept() int { return r.kept }

// Skipped returns the number of refs skipped before fetching.
func (r LocalizeReport) Skipped() int { return r.skipped }

// Failed returns the number of refs whose download failed.
func (r LocalizeReport) Failed() int { return r.failed }

// RowErrors returns the collected per-ref errors.
func (r LocalizeReport) RowErrors() []error { return copyErrors(r.rowErrors) }

// String returns a one-line summary.
func (r LocalizeReport) String() string {
	return fmt.Sprintf("downloaded=%d kept=%d skipped=%d failed=%d",
		r.downloaded, r.kept, r.skipped, r.failed)
}

// EmbedReport summarizes one embedding pass.
type EmbedReport struct {
	fromImage    int
	fromText     int
	failed       int
	entityErrors []error
}

// NewEmbedReport creates an EmbedReport.
func NewEmbedReport(fromImage, fromText, failed int, entityErrors []error) EmbedReport {
	return EmbedReport{
		fromImage:    fromImage,
		fromText:     fromText,
		failed:       failed,
		entityErrors: copyErrors(entityErrors),
	}
}

// Embedded returns the total number of entities embedded.
func (r EmbedReport) Embedded() int { return r.fromImage + r.fromText }

// FromImage returns the number of vectors produced from localized images.
func (r EmbedReport) FromImage() int { return r.fromImage }

// FromText returns the number of vectors produced from text prompts.
func (r EmbedReport) FromText() int { return r.fromText }

// Failed returns the number of entities that could not be embedded.
func (r EmbedReport) Failed() int { return r.failed }

// EntityErrors returns the collected per-entity errors.
func (r EmbedReport) EntityErrors() []error { return copyErrors(r.entityErrors) }

// String returns a one-line summary.
func (r EmbedReport) String() string {
	return fmt.Sprintf("embedded=%d from_image=%d from_text=%d failed=%d",
		r.Embedded(), r.fromImage, r.fromText, r.failed)
}

// LoadReport summarizes one load into the store, per kind.
type LoadReport struct {
	airports catalog.UpsertReport
	airlines catalog.UpsertReport
}

// NewLoadReport creates a LoadReport.
func NewLoadReport(airports, airlines catalog.UpsertReport) LoadReport {
	return LoadReport{airports: airports, airlines: airlines}
}

// AirportUpserts returns the airport upsert counts.
func (r LoadReport) AirportUpserts() catalog.UpsertReport { return r.airports }

// AirlineUpserts returns the airline upsert counts.
func (r LoadReport) AirlineUpserts() catalog.UpsertReport { return r.airlines }

// Inserted returns the total rows inserted across both kinds.
func (r LoadReport) Inserted() int { return r.airports.Inserted() + r.airlines.Inserted() }

// Updated returns the total rows updated across both kinds.
func (r LoadReport) Updated() int { return r.airports.Updated() + r.airlines.Updated() }

// Failed returns the total rows failed across both kinds.
func (r LoadReport) Failed() int { return r.airports.Failed() + r.airlines.Failed() }

// String returns a one-line summary.
func (r LoadReport) String() string {
	return fmt.Sprintf("inserted=%d updated=%d failed=%d",
		r.Inserted(), r.Updated(), r.Failed())
}

func copyErrors(errs []error) []error {
	if errs == nil {
		return nil
	}
	out := make([]error, len(errs))
	copy(out, errs)
	return out
}
