package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/skyvisionhq/skyvision/domain/catalog"
)

func TestIngestReport(t *testing.T) {
	rowErr := NewParseError(5, errors.New("short row"))
	r := NewIngestReport(100, 50, 30, 1, []error{rowErr})

	if r.Airports() != 100 || r.Airlines() != 50 || r.ImageRefs() != 30 {
		t.Errorf("counts = %d/%d/%d", r.Airports(), r.Airlines(), r.ImageRefs())
	}
	if r.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", r.Skipped())
	}
	if len(r.RowErrors()) != 1 {
		t.Fatalf("expected 1 row error, got %d", len(r.RowErrors()))
	}
	if got := r.String(); got != "airports=100 airlines=50 image_refs=30 skipped=1" {
		t.Errorf("String() = %q", got)
	}
}

func TestIngestReport_ErrorsCopied(t *testing.T) {
	errs := []error{errors.New("a")}
	r := NewIngestReport(0, 0, 0, 1, errs)

	errs[0] = errors.New("b")
	if r.RowErrors()[0].Error() != "a" {
		t.Error("report shares memory with input error slice")
	}

	got := r.RowErrors()
	got[0] = errors.New("c")
	if r.RowErrors()[0].Error() != "a" {
		t.Error("RowErrors() returned internal slice")
	}
}

func TestLocalizeReport(t *testing.T) {
	r := NewLocalizeReport(12, 80, 2, 3, nil)

	if r.Downloaded() != 12 || r.Kept() != 80 || r.Skipped() != 2 || r.Failed() != 3 {
		t.Errorf("counts = %d/%d/%d/%d", r.Downloaded(), r.Kept(), r.Skipped(), r.Failed())
	}
	if got := r.String(); got != "downloaded=12 kept=80 skipped=2 failed=3" {
		t.Errorf("String() = %q", got)
	}
}

func TestEmbedReport_EmbeddedIsSum(t *testing.T) {
	r := NewEmbedReport(70, 25, 5, nil)

	if r.Embedded() != 95 {
		t.Errorf("Embedded() = %d, want 95", r.Embedded())
	}
	if got := r.String(); got != "embedded=95 from_image=70 from_text=25 failed=5" {
		t.Errorf("String() = %q", got)
	}
}

func TestLoadReport_Totals(t *testing.T) {
	r := NewLoadReport(
		catalog.NewUpsertReport(90, 10, 0),
		catalog.NewUpsertReport(40, 5, 2),
	)

	if r.Inserted() != 130 {
		t.Errorf("Inserted() = %d, want 130", r.Inserted())
	}
	if r.Updated() != 15 {
		t.Errorf("Updated() = %d, want 15", r.Updated())
	}
	if r.Failed() != 2 {
		t.Errorf("Failed() = %d, want 2", r.Failed())
	}
	if r.AirportUpserts().Inserted() != 90 {
		t.Errorf("AirportUpserts().Inserted() = %d", r.AirportUpserts().Inserted())
	}
}

func TestRun_AttachAndFinish(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	run := NewRun("run-abc", started)

	if run.ID() != "run-abc" {
		t.Errorf("ID() = %q", run.ID())
	}
	if run.Ingest() != nil || run.Load() != nil {
		t.Error("fresh run should have no reports")
	}

	run = run.
		WithIngest(NewIngestReport(10, 5, 3, 0, nil)).
		WithLoad(NewLoadReport(catalog.NewUpsertReport(15, 0, 0), catalog.UpsertReport{}))

	if run.Ingest() == nil || run.Ingest().Airports() != 10 {
		t.Error("ingest report not attached")
	}
	if run.Load() == nil || run.Load().Inserted() != 15 {
		t.Error("load report not attached")
	}
	if run.Localize() != nil || run.Embed() != nil {
		t.Error("unattached reports should stay nil")
	}

	finished := run.Finish(started.Add(42 * time.Second))
	if finished.Duration() != 42*time.Second {
		t.Errorf("Duration() = %v, want 42s", finished.Duration())
	}
	if run.Duration() != 0 {
		t.Error("Finish modified receiver")
	}
}
