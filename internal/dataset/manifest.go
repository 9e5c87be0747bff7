// Package dataset loads labelled image pairs from YAML manifests.
//
//	root: faces            # optional, relative to the manifest
//	pairs:
//	  - first: alice/01.jpg
//	    second: alice/02.jpg
//	    same: true
//	samples:               # optional, for embedding summaries
//	  alice: [alice/01.jpg, alice/02.jpg]
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
	"github.com/saturnino-fabrica-de-software/siamese/internal/siamese"
)

type PairEntry struct {
	First  string `yaml:"first"`
	Second string `yaml:"second"`
	Same   bool   `yaml:"same"`
}

type Manifest struct {
	Root    string              `yaml:"root"`
	Pairs   []PairEntry         `yaml:"pairs"`
	Samples map[string][]string `yaml:"samples"`

	// dir is where relative paths are resolved from
	dir string
}

// Load reads and validates the manifest at path
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes a manifest whose relative paths resolve against dir
func Parse(data []byte, dir string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("parse manifest: %w", err))
	}
	m.dir = dir

	for i, p := range m.Pairs {
		if p.First == "" || p.Second == "" {
			return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("pair %d: first and second are required", i))
		}
	}
	return &m, nil
}

// Path resolves a manifest entry to a file path
func (m *Manifest) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(m.dir, m.Root, name)
}

// Labels returns the number of matching and non-matching pairs
func (m *Manifest) Labels() (same, diff int) {
	for _, p := range m.Pairs {
		if p.Same {
			same++
		} else {
			diff++
		}
	}
	return same, diff
}

// LabeledPairs reads every image referenced by the pairs. Images shared
// between pairs are read once.
func (m *Manifest) LabeledPairs() ([]siamese.LabeledPair[[]byte], error) {
	if len(m.Pairs) == 0 {
		return nil, domain.ErrInsufficientData
	}

	files := make(map[string][]byte)
	read := func(name string) ([]byte, error) {
		path := m.Path(name)
		if b, ok := files[path]; ok {
			return b, nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		files[path] = b
		return b, nil
	}

	out := make([]siamese.LabeledPair[[]byte], len(m.Pairs))
	for i, p := range m.Pairs {
		first, err := read(p.First)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		second, err := read(p.Second)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		out[i] = siamese.LabeledPair[[]byte]{First: first, Second: second, IsSame: p.Same}
	}
	return out, nil
}

// SampleImages reads the per-class samples, keyed by label
func (m *Manifest) SampleImages() (map[string][][]byte, error) {
	if len(m.Samples) == 0 {
		return nil, domain.ErrInsufficientData
	}

	labels := make([]string, 0, len(m.Samples))
	for label := range m.Samples {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := make(map[string][][]byte, len(labels))
	for _, label := range labels {
		for _, name := range m.Samples[label] {
			b, err := os.ReadFile(m.Path(name))
			if err != nil {
				return nil, fmt.Errorf("class %q: %w", label, err)
			}
			out[label] = append(out[label], b)
		}
	}
	return out, nil
}
