// Package pipeline provides domain types for seed pipeline runs: the stage
// sequence, per-stage reports and the errors stages collect.
package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStage is returned when a stage name cannot be parsed.
var ErrUnknownStage = errors.New("unknown pipeline stage")

// Stage identifies one step of the seed pipeline.
type Stage string

// Stage values in execution order.
const (
	StageIngest   Stage = "skyvision.seed.ingest"
	StageLocalize Stage = "skyvision.seed.localize"
	StageEmbed    Stage = "skyvision.seed.embed"
	StageLoad     Stage = "skyvision.seed.load"
)

// String returns the full stage identifier.
func (s Stage) String() string {
	return string(s)
}

// Short returns the bare stage name used by CLI flags and log output.
func (s Stage) Short() string {
	if i := strings.LastIndex(string(s), "."); i >= 0 {
		return string(s)[i+1:]
	}
	return string(s)
}

// Valid reports whether the stage is a known pipeline stage.
func (s Stage) Valid() bool {
	switch s {
	case StageIngest, StageLocalize, StageEmbed, StageLoad:
		return true
	}
	return false
}

// ParseStage resolves a short or full stage name.
func ParseStage(name string) (Stage, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, s := range AllStages() {
		if normalized == s.Short() || normalized == s.String() {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

// AllStages returns the full pipeline in execution order.
func AllStages() []Stage {
	return []Stage{StageIngest, StageLocalize, StageEmbed, StageLoad}
}

// StagesFrom resolves a comma-separated list of stage names, preserving
// pipeline order and dropping duplicates. An empty list means the full
// pipeline.
func StagesFrom(list string) ([]Stage, error) {
	if strings.TrimSpace(list) == "" {
		return AllStages(), nil
	}

	requested := make(map[Stage]struct{})
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		s, err := ParseStage(name)
		if err != nil {
			return nil, err
		}
		requested[s] = struct{}{}
	}

	var stages []Stage
	for _, s := range AllStages() {
		if _, ok := requested[s]; ok {
			stages = append(stages, s)
		}
	}
	return stages, nil
}
