// Package fieldio reads and writes scalar fields in either the native SF01
// container or single-channel OpenEXR, picking the format from the data or
// the file name.
package fieldio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ssargent/scalarfield/pkg/codec"
	"github.com/ssargent/scalarfield/pkg/exr"
)

// Format identifies a field encoding
type Format string

const (
	FormatUnknown Format = ""
	FormatSF      Format = "sf"
	FormatEXR     Format = "exr"
)

// Content types used when fields travel over HTTP
const (
	ContentTypeSF  = "application/octet-stream"
	ContentTypeEXR = "image/x-exr"
)

// ParseFormat converts a user supplied name into a Format
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "sf", "sf01", "bin":
		return FormatSF, nil
	case "exr":
		return FormatEXR, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown field format %q", name)
	}
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	if f == FormatEXR {
		return ContentTypeEXR
	}
	return ContentTypeSF
}

// Detect identifies the format of data from its magic bytes
func Detect(data []byte) Format {
	switch {
	case exr.IsEXR(data):
		return FormatEXR
	case len(data) >= 4 && string(data[:4]) == codec.Magic:
		return FormatSF
	default:
		return FormatUnknown
	}
}

// FormatFromPath picks the output format from a file extension. Anything
// other than .exr is written as SF01.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".exr") {
		return FormatEXR
	}
	return FormatSF
}

// Unmarshal decodes data in whichever format it is in. Data that is neither
// EXR nor SF01 is handed to the SF01 decoder so the caller gets ErrBadMagic.
func Unmarshal(data []byte, opts ...func(o *exr.Options)) (*codec.ScalarField, error) {
	if Detect(data) == FormatEXR {
		return exr.Decode(data, opts...)
	}
	return codec.Decode(data)
}

// Marshal encodes field in the requested format
func Marshal(field *codec.ScalarField, format Format, opts ...func(o *exr.Options)) ([]byte, error) {
	switch format {
	case FormatEXR:
		return exr.Encode(field, opts...)
	case FormatSF:
		return codec.Encode(field)
	default:
		return nil, fmt.Errorf("unknown field format %q", format)
	}
}

// ReadFile loads a field from path, detecting the format from its contents
func ReadFile(path string, opts ...func(o *exr.Options)) (*codec.ScalarField, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	field, err := Unmarshal(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return field, nil
}

// WriteFile saves field to path in the format implied by its extension
func WriteFile(path string, field *codec.ScalarField, opts ...func(o *exr.Options)) error {
	data, err := Marshal(field, FormatFromPath(path), opts...)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
