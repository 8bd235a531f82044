package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// descriptor is the on-disk shape of a segment manifest: a declarative list
// of named shared segments an operator wants present, grouped by which
// overlay (if any) owns them.
type descriptor struct {
	Segments []segmentSpec `yaml:"segments"`
}

// segmentSpec describes one named segment. Kind selects which package
// Open call creates it; ElementSize is the per-slot payload size (for list,
// excluding the link header the package adds itself).
type segmentSpec struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	ElementSize uint64 `yaml:"elementSize"`
	Capacity    uint64 `yaml:"capacity"`
}

const (
	kindVector  = "vector"
	kindList    = "list"
	kindCounter = "counter"
)

func (s segmentSpec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("segment: name must not be empty")
	}

	switch s.Kind {
	case kindVector, kindList:
		if s.ElementSize == 0 {
			return fmt.Errorf("segment %q: elementSize must be > 0 for kind %q", s.Name, s.Kind)
		}
	case kindCounter:
		// counter slots have a fixed layout; elementSize is ignored.
	default:
		return fmt.Errorf("segment %q: unknown kind %q (want %q, %q, or %q)", s.Name, s.Kind, kindVector, kindList, kindCounter)
	}

	if s.Capacity == 0 {
		return fmt.Errorf("segment %q: capacity must be > 0", s.Name)
	}

	return nil
}

func loadDescriptor(path string) (descriptor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return descriptor{}, fmt.Errorf("shmctl: read %s: %w", path, err)
	}

	var d descriptor
	if err := yaml.Unmarshal(b, &d); err != nil {
		return descriptor{}, fmt.Errorf("shmctl: parse %s: %w", path, err)
	}

	for _, s := range d.Segments {
		if err := s.validate(); err != nil {
			return descriptor{}, fmt.Errorf("shmctl: %s: %w", path, err)
		}
	}

	return d, nil
}
