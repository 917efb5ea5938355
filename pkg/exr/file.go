package exr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ssargent/scalarfield/pkg/codec"
)

// SaveEXR writes field to path as a single-channel OpenEXR file.
func SaveEXR(path string, field *codec.ScalarField, opts ...func(o *Options)) error {
	data, err := Encode(field, opts...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Clean(path), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadEXR reads one channel of the OpenEXR file at path.
func LoadEXR(path string, opts ...func(o *Options)) (*codec.ScalarField, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	field, err := Decode(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return field, nil
}
