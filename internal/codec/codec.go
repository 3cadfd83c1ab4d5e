package codec

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrMalformedDocument is returned when input fails structural validation
	ErrMalformedDocument = errors.New("malformed document")

	// ErrUnsupportedFormat is returned for a format name with no codec
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Importer interface for importing graph documents from various formats
type Importer interface {
	Parse(r io.Reader) (*Document, error)
	Format() string
}

// Exporter interface for exporting graph documents to various formats
type Exporter interface {
	Export(doc *Document, w io.Writer) error
	Format() string
}

// NewImporter returns the importer registered for format
func NewImporter(format string) (Importer, error) {
	switch normalizeFormat(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("import %q: %w", format, ErrUnsupportedFormat)
}

// NewExporter returns the exporter registered for format
func NewExporter(format string) (Exporter, error) {
	switch normalizeFormat(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml":
		return NewYAMLCodec(), nil
	case "svg":
		return NewSVGExporter(), nil
	}
	return nil, fmt.Errorf("export %q: %w", format, ErrUnsupportedFormat)
}

// FormatFromPath infers a format name from a file extension
func FormatFromPath(path string) string {
	return normalizeFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ContentType returns the MIME type served for a format
func ContentType(format string) string {
	switch normalizeFormat(format) {
	case "yaml":
		return "application/x-yaml"
	case "svg":
		return "image/svg+xml"
	}
	return "application/json"
}

func normalizeFormat(format string) string {
	switch f := strings.ToLower(format); f {
	case "yml":
		return "yaml"
	default:
		return f
	}
}
