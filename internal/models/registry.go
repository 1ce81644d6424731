package models

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownModel is returned by Resolve for ids missing from the registry.
var ErrUnknownModel = errors.New("unknown model")

// Registry is the immutable set of supported backends, keyed by model id.
// It is built once at startup and safe for concurrent reads.
type Registry struct {
	descriptors []Descriptor
	index       map[string]int
}

// NewRegistry builds a registry preserving the order of descs.
func NewRegistry(descs []Descriptor) (*Registry, error) {
	r := &Registry{
		descriptors: make([]Descriptor, 0, len(descs)),
		index:       make(map[string]int, len(descs)),
	}
	for _, d := range descs {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			return nil, errors.New("model id must not be empty")
		}
		if strings.TrimSpace(d.EndpointRef) == "" {
			return nil, fmt.Errorf("model %q: endpoint must not be empty", id)
		}
		if _, dup := r.index[id]; dup {
			return nil, fmt.Errorf("model %q defined twice", id)
		}
		d.ID = id
		r.index[id] = len(r.descriptors)
		r.descriptors = append(r.descriptors, d)
	}
	return r, nil
}

// Builtin returns a registry over BuiltinDescriptors.
func Builtin() *Registry {
	r, err := NewRegistry(BuiltinDescriptors())
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the descriptor for id, or an error wrapping ErrUnknownModel
// that lists the available ids.
func (r *Registry) Resolve(id string) (Descriptor, error) {
	if i, ok := r.index[id]; ok {
		return r.descriptors[i], nil
	}
	msg := fmt.Sprintf("model %q not found", id)
	if hint := strings.Join(r.IDs(), ", "); hint != "" {
		msg += "; available models: " + hint
	}
	return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownModel, msg)
}

// All returns a copy of the descriptors in registry order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// IDs returns the model ids in registry order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		ids[i] = d.ID
	}
	return ids
}

// Len reports the number of registered models.
func (r *Registry) Len() int {
	return len(r.descriptors)
}

// fileEntry is one model in a registry YAML file.
type fileEntry struct {
	ID      string `yaml:"id"`
	Space   string `yaml:"space"`
	Flags   string `yaml:"flags"`
	APIName string `yaml:"api_name"`
}

type registryFile struct {
	Models []fileEntry `yaml:"models"`
}

// Parse builds a registry from YAML of the form
//
//	models:
//	  - id: gemma-3-12b
//	    space: huggingface-projects/gemma-3-12b-it
//	    flags: "22"
//	    api_name: /chat
//
// Missing flags default to "00".
func Parse(data []byte) (*Registry, error) {
	var rf registryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse model registry: %w", err)
	}
	if len(rf.Models) == 0 {
		return nil, errors.New("model registry defines no models")
	}

	descs := make([]Descriptor, 0, len(rf.Models))
	for _, e := range rf.Models {
		raw := strings.TrimSpace(e.Flags)
		if raw == "" {
			raw = "00"
		}
		flags, err := ParseFlags(raw)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", e.ID, err)
		}
		descs = append(descs, Descriptor{
			ID:          e.ID,
			EndpointRef: strings.TrimSpace(e.Space),
			Flags:       flags,
			Operation:   strings.TrimSpace(e.APIName),
		})
	}
	return NewRegistry(descs)
}

// LoadFile reads a registry YAML file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model registry: %w", err)
	}
	return Parse(data)
}
