// Package parser loads and saves unit registries. Two encodings are
// supported: structured YAML/JSON documents and the line-oriented legacy
// text format of ';', ',' and ':' delimited statements.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lemonberrylabs/unitcalc/pkg/convert"
	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// MaxSourceSize is the maximum registry document size in bytes (4 MB).
const MaxSourceSize = 4 * 1024 * 1024

// Format identifies a registry encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
	FormatText
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	case FormatText:
		return "text"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format name as used on the command line.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "text", "txt", "units", "csv", "legacy":
		return FormatText, nil
	default:
		return 0, fmt.Errorf("unknown registry format %q (want yaml, json or text)", name)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return 0, fmt.Errorf("cannot infer registry format of %q: no file extension", path)
	}
	return ParseFormat(ext)
}

// ParseError represents an error encountered while reading a registry
// document. It matches types.ErrFileFormat.
type ParseError struct {
	Message  string
	Location string // e.g., "units.N.scale (line 4)"
}

func (e *ParseError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("FileFormatError at %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("FileFormatError: %s", e.Message)
}

// Unwrap exposes the error kind to errors.Is and types.KindOf.
func (e *ParseError) Unwrap() error {
	return types.ErrFileFormat
}

// Decode reads a registry from data. Duplicate definitions are errors. The
// result is not validated; see convert.Validate.
func Decode(data []byte, format Format) (*convert.Registry, error) {
	return Merge(convert.NewRegistry(), data, format, false)
}

// Merge reads the definitions in data on top of a copy of base. With
// overwrite, a definition replaces an existing one of the same symbol;
// otherwise it is an error. base is never modified.
func Merge(base *convert.Registry, data []byte, format Format, overwrite bool) (*convert.Registry, error) {
	if len(data) > MaxSourceSize {
		return nil, &ParseError{Message: fmt.Sprintf("registry source size %d exceeds maximum %d bytes", len(data), MaxSourceSize)}
	}
	reg := base.Clone()
	var err error
	switch format {
	case FormatYAML, FormatJSON:
		err = decodeDocument(reg, data, overwrite)
	case FormatText:
		err = parseText(reg, tokenizeLines(string(data)), overwrite)
	default:
		err = fmt.Errorf("unsupported registry format %s", format)
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Encode serializes reg.
func Encode(reg *convert.Registry, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return encodeYAML(reg)
	case FormatJSON:
		return encodeJSON(reg)
	case FormatText:
		var b strings.Builder
		if err := WriteText(&b, reg); err != nil {
			return nil, err
		}
		return []byte(b.String()), nil
	default:
		return nil, fmt.Errorf("unsupported registry format %s", format)
	}
}

// LoadFile reads and validates the registry stored at path.
func LoadFile(path string) (*convert.Registry, error) {
	return MergeFile(convert.NewRegistry(), path, false)
}

// ReadFile reads the registry source at path and the format its extension
// selects.
func ReadFile(path string) ([]byte, Format, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading registry: %w", err)
	}
	return data, format, nil
}

// MergeFile reads path on top of a copy of base and validates the result.
func MergeFile(base *convert.Registry, path string, overwrite bool) (*convert.Registry, error) {
	data, format, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	reg, err := Merge(base, data, format, overwrite)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := convert.Validate(reg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// SaveFile writes reg to path in the format implied by its extension.
func SaveFile(path string, reg *convert.Registry) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Encode(reg, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	return nil
}
