package service

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skyvisionhq/skyvision/domain/pipeline"
)

// Manifest mirrors the seed command's flags in a YAML file, so one dataset
// can be described once and reseeded repeatedly.
type Manifest struct {
	Airports    string   `yaml:"airports,omitempty"`
	Airlines    string   `yaml:"airlines,omitempty"`
	Images      string   `yaml:"images,omitempty"`
	MediaDir    string   `yaml:"media_dir,omitempty"`
	Overwrite   bool     `yaml:"overwrite,omitempty"`
	PreferImage bool     `yaml:"prefer_image,omitempty"`
	SkipImages  bool     `yaml:"skip_images,omitempty"`
	BatchSize   int      `yaml:"batch_size,omitempty"`
	ErrorLimit  int      `yaml:"error_limit,omitempty"`
	Stages      []string `yaml:"stages,omitempty"`
}

// LoadManifest reads and validates a YAML seed manifest.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Validate checks that the manifest names at least one input file and only
// known stages.
func (m Manifest) Validate() error {
	if m.Airports == "" && m.Airlines == "" {
		return errors.New("at least one of airports or airlines is required")
	}
	if _, err := m.SeedStages(); err != nil {
		return err
	}
	return nil
}

// SeedStages resolves the manifest's stage names; an empty list means all
// stages.
func (m Manifest) SeedStages() ([]pipeline.Stage, error) {
	return pipeline.StagesFrom(strings.Join(m.Stages, ","))
}

// SeedParams converts the manifest into seed parameters. MediaDir, Overwrite
// and ErrorLimit configure the localizer and parser and are read by the
// caller assembling those.
func (m Manifest) SeedParams() (*SeedParams, error) {
	stages, err := m.SeedStages()
	if err != nil {
		return nil, err
	}
	return &SeedParams{
		AirportsPath: m.Airports,
		AirlinesPath: m.Airlines,
		ImagesPath:   m.Images,
		Stages:       stages,
		PreferImage:  m.PreferImage,
		SkipImages:   m.SkipImages,
		BatchSize:    m.BatchSize,
	}, nil
}
