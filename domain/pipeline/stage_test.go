package pipeline

import (
	"errors"
	"testing"
)

func TestParseStage(t *testing.T) {
	tests := []struct {
		in   string
		want Stage
	}{
		{"ingest", StageIngest},
		{"localize", StageLocalize},
		{"embed", StageEmbed},
		{"load", StageLoad},
		{"INGEST", StageIngest},
		{"  load  ", StageLoad},
		{"skyvision.seed.embed", StageEmbed},
	}

	for _, tt := range tests {
		got, err := ParseStage(tt.in)
		if err != nil {
			t.Errorf("ParseStage(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStage(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseStage_Unknown(t *testing.T) {
	_, err := ParseStage("deploy")
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("expected ErrUnknownStage, got %v", err)
	}
}

func TestStage_Short(t *testing.T) {
	if got := StageLocalize.Short(); got != "localize" {
		t.Errorf("Short() = %q, want localize", got)
	}
}

func TestStage_Valid(t *testing.T) {
	if !StageEmbed.Valid() {
		t.Error("StageEmbed should be valid")
	}
	if Stage("skyvision.seed.deploy").Valid() {
		t.Error("unknown stage should be invalid")
	}
}

func TestStagesFrom_EmptyMeansAll(t *testing.T) {
	stages, err := StagesFrom("")
	if err != nil {
		t.Fatalf("StagesFrom: %v", err)
	}
	if len(stages) != 4 {
		t.Fatalf("expected 4 stages, got %d", len(stages))
	}
	if stages[0] != StageIngest || stages[3] != StageLoad {
		t.Errorf("stages out of order: %v", stages)
	}
}

func TestStagesFrom_PreservesPipelineOrder(t *testing.T) {
	stages, err := StagesFrom("load,ingest")
	if err != nil {
		t.Fatalf("StagesFrom: %v", err)
	}
	if len(stages) != 2 || stages[0] != StageIngest || stages[1] != StageLoad {
		t.Errorf("expected [ingest load], got %v", stages)
	}
}

func TestStagesFrom_DropsDuplicates(t *testing.T) {
	stages, err := StagesFrom("embed,embed,embed")
	if err != nil {
		t.Fatalf("StagesFrom: %v", err)
	}
	if len(stages) != 1 || stages[0] != StageEmbed {
		t.Errorf("expected [embed], got %v", stages)
	}
}

func TestStagesFrom_UnknownFails(t *testing.T) {
	_, err := StagesFrom("ingest,deploy")
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("expected ErrUnknownStage, got %v", err)
	}
}
