// Package notes resolves the short list of release-note bullets shown
// alongside an update prompt, and maintains the local notes documents.
package notes

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// MaxBullets caps every bullet list returned by this package.
const MaxBullets = 8

const bulletMarker = "- "

// Entry is a structured release-notes record. Note wins over Body.
type Entry struct {
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
	Body string `json:"body,omitempty" yaml:"body,omitempty"`
}

// Normalize turns a raw release-notes payload into bullets.
// raw may be nil, a text blob, a list of strings or records, or one record;
// records expose a "note" or "body" field. Unknown shapes yield no bullets.
func Normalize(raw any) []string {
	return Extract(flatten(raw))
}

// Extract applies the bullet rule to text: lines are trimmed, and if any
// line starts with "- " only those lines are kept, otherwise the non-empty
// lines are kept. The result preserves order and holds at most MaxBullets.
func Extract(text string) []string {
	var (
		lines      []string
		hasBullets bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, bulletMarker) {
			hasBullets = true
		}
		lines = append(lines, line)
	}

	bullets := make([]string, 0, min(len(lines), MaxBullets))
	for _, line := range lines {
		if hasBullets && !strings.HasPrefix(line, bulletMarker) {
			continue
		}
		bullets = append(bullets, line)
		if len(bullets) == MaxBullets {
			break
		}
	}
	return bullets
}

func flatten(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		return strings.Join(v, "\n")
	case []Entry:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			parts = append(parts, e.text())
		}
		return strings.Join(parts, "\n")
	case []map[string]any:
		parts := make([]string, 0, len(v))
		for _, m := range v {
			parts = append(parts, recordText(m))
		}
		return strings.Join(parts, "\n")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, entryText(item))
		}
		return strings.Join(parts, "\n")
	case Entry, *Entry, map[string]any, map[string]string:
		return entryText(v)
	case fmt.Stringer:
		return v.String()
	default:
		log.Debugf("ignoring release notes of type %T", raw)
		return ""
	}
}

func entryText(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case Entry:
		return v.text()
	case *Entry:
		if v == nil {
			return ""
		}
		return v.text()
	case map[string]any:
		return recordText(v)
	case map[string]string:
		if v["note"] != "" {
			return v["note"]
		}
		return v["body"]
	default:
		return ""
	}
}

func recordText(m map[string]any) string {
	for _, key := range []string{"note", "body"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (e Entry) text() string {
	if e.Note != "" {
		return e.Note
	}
	return e.Body
}
