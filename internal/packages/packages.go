// Package packages loads registry package descriptors and classifies them.
package packages

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	docerrors "github.com/AndreyAkinshin/docsuite/internal/errors"
)

// Category classifies how a package is implemented.
type Category string

const (
	Component Category = "component"
	Native    Category = "native"
	Bridged   Category = "bridged"
)

func (c Category) String() string {
	return string(c)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Component, Native, Bridged:
		return true
	}
	return false
}

// Title returns the category name in title case for console output.
func (c Category) Title() string {
	return cases.Title(language.English).String(string(c))
}

// Descriptor is the package metadata read from one registry YAML file.
// Fields other than these are ignored.
type Descriptor struct {
	Name      string `yaml:"name"`
	Component bool   `yaml:"component"`
	Native    bool   `yaml:"native"`

	// Source is the file the descriptor was loaded from.
	Source string `yaml:"-"`
}

// Classify maps a descriptor to its category. Component takes precedence
// over native; a package with neither flag is bridged.
func Classify(d Descriptor) Category {
	switch {
	case d.Component:
		return Component
	case d.Native:
		return Native
	default:
		return Bridged
	}
}

// descriptorExtensions lists the recognized descriptor file extensions.
var descriptorExtensions = []string{".yaml", ".yml"}

func isDescriptorFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range descriptorExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// List reads every descriptor file in dir, ordered by file name.
func List(dir string) ([]Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, docerrors.IO(err, "read descriptor directory %s", dir)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !isDescriptorFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	descs := make([]Descriptor, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		d, err := Load(path)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// Load reads and parses a single descriptor file.
func Load(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, docerrors.IO(err, "read descriptor %s", path)
	}
	d, err := parse(data)
	if err != nil {
		return Descriptor{}, docerrors.Parse(err, "parse descriptor %s", path)
	}
	d.Source = path
	return d, nil
}

func parse(data []byte) (Descriptor, error) {
	var d Descriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&d); err != nil {
		return Descriptor{}, err
	}
	if strings.TrimSpace(d.Name) == "" {
		return Descriptor{}, errMissingName
	}
	return d, nil
}

// Filter returns the descriptors whose names are in names, preserving the
// order of descs. An empty names list returns descs unchanged. Names that
// match no descriptor are returned as unknown.
func Filter(descs []Descriptor, names []string) (kept []Descriptor, unknown []string) {
	if len(names) == 0 {
		return descs, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	found := make(map[string]bool, len(names))
	for _, d := range descs {
		if want[d.Name] {
			kept = append(kept, d)
			found[d.Name] = true
		}
	}
	for _, n := range names {
		if !found[n] {
			unknown = append(unknown, n)
		}
	}
	return kept, unknown
}

// Limit returns at most n descriptors. n <= 0 means no limit.
func Limit(descs []Descriptor, n int) []Descriptor {
	if n <= 0 || n >= len(descs) {
		return descs
	}
	return descs[:n]
}
