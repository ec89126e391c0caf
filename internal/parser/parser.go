package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/workplan/internal/models"
	"gopkg.in/yaml.v3"
)

// Format represents the encoding of a WorkGraph document
type Format int

const (
	// FormatUnknown represents an unknown or unsupported file format
	FormatUnknown Format = iota
	// FormatJSON represents a JSON (.json) WorkGraph
	FormatJSON
	// FormatYAML represents a YAML (.yaml, .yml) WorkGraph
	FormatYAML
)

// String returns the string representation of the Format
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// now is the clock used to derive WorkGraph ids. Tests replace it.
var now = time.Now

// DetectFormat automatically detects the WorkGraph format based on file extension
// Supported extensions:
//   - .json -> FormatJSON
//   - .yaml, .yml -> FormatYAML
//   - all others -> FormatUnknown
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// Parse decodes and validates a WorkGraph. Structural violations are
// reported as *models.SchemaError; decoding failures are wrapped errors.
func Parse(data []byte, format Format) (*models.WorkGraph, error) {
	var raw wireWorkGraph
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode JSON workgraph: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode YAML workgraph: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %v", format)
	}
	return raw.build(now())
}

// ParseReader reads all of r and parses it in the given format.
func ParseReader(r io.Reader, format Format) (*models.WorkGraph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workgraph: %w", err)
	}
	return Parse(data, format)
}

// ParseFile is a convenience function that auto-detects the format from the
// file extension, reads the file, and parses it.
func ParseFile(path string) (*models.WorkGraph, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unknown file format: %s (supported: .json, .yaml, .yml)", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	wg, err := ParseReader(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workgraph %s: %w", path, err)
	}
	return wg, nil
}
