package catalog

import (
	"slices"
	"testing"
)

func TestNewMetadata_SortsAndDedupesTags(t *testing.T) {
	m := NewMetadata("night", []string{"travel", "terminal", "travel", " runway ", ""}, "", "")

	want := []string{"runway", "terminal", "travel"}
	if !slices.Equal(m.Tags(), want) {
		t.Errorf("Tags() = %v, want %v", m.Tags(), want)
	}
}

func TestMetadata_TagsReturnsCopy(t *testing.T) {
	m := NewMetadata("", []string{"a", "b"}, "", "")

	tags := m.Tags()
	tags[0] = "MUTATED"

	if m.Tags()[0] == "MUTATED" {
		t.Error("Tags() should return a copy")
	}
}

func TestMetadata_IsZero(t *testing.T) {
	if !(Metadata{}).IsZero() {
		t.Error("zero Metadata should be zero")
	}
	if NewMetadata("aerial", nil, "", "").IsZero() {
		t.Error("Metadata with style should not be zero")
	}
	if NewMetadata("", []string{"x"}, "", "").IsZero() {
		t.Error("Metadata with tags should not be zero")
	}
}

func TestMetadata_Merge(t *testing.T) {
	base := NewMetadata("day", []string{"terminal"}, "cc-by", "photographer a")
	override := NewMetadata("night", []string{"runway", "terminal"}, "", "photographer b")

	merged := base.Merge(override)

	if merged.Style() != "night" {
		t.Errorf("Style() = %q, want %q", merged.Style(), "night")
	}
	if merged.License() != "cc-by" {
		t.Errorf("License() = %q, want %q (empty fields must not override)", merged.License(), "cc-by")
	}
	if merged.Attribution() != "photographer b" {
		t.Errorf("Attribution() = %q, want %q", merged.Attribution(), "photographer b")
	}
	want := []string{"runway", "terminal"}
	if !slices.Equal(merged.Tags(), want) {
		t.Errorf("Tags() = %v, want union %v", merged.Tags(), want)
	}
}

func TestMetadata_MergeKeepsReceiverUnchanged(t *testing.T) {
	base := NewMetadata("day", []string{"terminal"}, "", "")
	_ = base.Merge(NewMetadata("night", []string{"runway"}, "", ""))

	if base.Style() != "day" {
		t.Error("Merge should not modify the receiver")
	}
	if len(base.Tags()) != 1 {
		t.Error("Merge should not modify the receiver's tags")
	}
}

func TestMetadata_Equal(t *testing.T) {
	a := NewMetadata("night", []string{"b", "a"}, "mit", "x")
	b := NewMetadata("night", []string{"a", "b"}, "mit", "x")

	if !a.Equal(b) {
		t.Error("metadata with same fields and tag sets should be equal")
	}
	if a.Equal(NewMetadata("day", []string{"a", "b"}, "mit", "x")) {
		t.Error("metadata with different style should not be equal")
	}
}
