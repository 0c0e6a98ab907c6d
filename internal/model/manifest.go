package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest describes one repair target: the buggy sources, the tests that
// separate good behavior from bad, and optional localization overrides.
type Manifest struct {
	// Files lists the source files the engine may modify.
	Files []Path `yaml:"files"`

	// PositiveTests name tests the original program already passes.
	PositiveTests []string `yaml:"positive_tests"`
	// NegativeTests name tests the original program fails.
	NegativeTests []string `yaml:"negative_tests"`

	// Fault and Fix optionally seed the weighted paths. When empty the
	// engine derives them from coverage.
	Fault []ManifestWeight `yaml:"fault,omitempty"`
	Fix   []ManifestWeight `yaml:"fix,omitempty"`
}

// ManifestWeight is the on-disk form of a weighted statement id.
type ManifestWeight struct {
	ID     int     `yaml:"id"`
	Weight float64 `yaml:"weight"`
}

// LoadManifest reads and validates a repair manifest.
func LoadManifest(path Path) (Manifest, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var man Manifest
	if err := yaml.Unmarshal(data, &man); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	if len(man.Files) == 0 {
		return Manifest{}, fmt.Errorf("manifest %s lists no source files", path)
	}

	return man, nil
}

// localized converts the on-disk weight to the engine form.
func (w ManifestWeight) localized() WeightedAtom {
	return WeightedAtom{ID: AtomID(w.ID), Weight: w.Weight}
}

// FaultLocalization returns the manifest's fault path, if any.
func (m Manifest) FaultLocalization() Localization {
	return toLocalization(m.Fault)
}

// FixLocalization returns the manifest's fix path, if any.
func (m Manifest) FixLocalization() Localization {
	return toLocalization(m.Fix)
}

func toLocalization(ws []ManifestWeight) Localization {
	if len(ws) == 0 {
		return nil
	}

	out := make(Localization, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.localized())
	}

	return out
}
