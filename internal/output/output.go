// Package output handles formatting CLI results in different formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// AllFormats returns the supported formats for flag completion.
func AllFormats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatYAML)}
}

// Writer handles output in the specified format.
type Writer struct {
	format Format
	w      io.Writer
}

// NewWriter creates a new output writer.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{format: format, w: w}
}

// Format returns the configured format.
func (w *Writer) Format() Format {
	return w.format
}

// IsText reports whether output is human readable text.
func (w *Writer) IsText() bool {
	return w.format == FormatText || w.format == ""
}

// Write outputs the given value in the configured format.
func (w *Writer) Write(v any) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return w.writeText(v)
	}
}

func (w *Writer) writeText(v any) error {
	switch t := v.(type) {
	case fmt.Stringer:
		_, err := fmt.Fprintln(w.w, t.String())
		return err
	case string:
		_, err := fmt.Fprintln(w.w, t)
		return err
	case []string:
		if len(t) == 0 {
			return nil
		}
		_, err := fmt.Fprintln(w.w, strings.Join(t, "\n"))
		return err
	default:
		_, err := fmt.Fprintf(w.w, "%+v\n", v)
		return err
	}
}

// ParseFormat parses a format string into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}
