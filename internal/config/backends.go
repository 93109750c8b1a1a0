package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"linkbrief/internal/backend"
)

//go:embed backends.yaml
var defaultBackends []byte

type backendsFile struct {
	Backends []backend.Descriptor `yaml:"backends"`
}

// LoadBackends reads the backend chain from path, or the embedded defaults
// when path is empty.
func LoadBackends(path string) ([]backend.Descriptor, error) {
	if path == "" {
		return ParseBackends(defaultBackends)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backends file: %w", err)
	}

	descriptors, err := ParseBackends(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return descriptors, nil
}

func ParseBackends(raw []byte) ([]backend.Descriptor, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var file backendsFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if len(file.Backends) == 0 {
		return nil, fmt.Errorf("%w: no backends declared", ErrInvalidConfig)
	}

	for _, d := range file.Backends {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}

	return file.Backends, nil
}
