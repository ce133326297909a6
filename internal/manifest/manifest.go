// Package manifest parses and serializes SKILL.md files: a front-matter
// block bounded by "---" lines holding YAML metadata, followed by a
// free-form markdown body.
package manifest

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skilldeck/skilldeck/internal/types"
)

const delimiter = "---"

// Document is a parsed SKILL.md file.
type Document struct {
	Manifest types.Manifest
	Body     string
}

// Parse parses the content of a SKILL.md file. It fails with a typed
// ParseError when the opening delimiter is missing, the front matter is
// unterminated, or the metadata is not valid YAML.
func Parse(content string) (*Document, error) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, delimiter+"\n") && normalized != delimiter {
		return nil, &ParseError{
			Type:    ErrorTypeNoFrontMatter,
			Message: "manifest has no front matter block",
		}
	}

	rest := strings.TrimPrefix(normalized, delimiter+"\n")

	var raw, body string
	if rest == delimiter || strings.HasPrefix(rest, delimiter+"\n") {
		// Closing delimiter at the very start of rest: empty front matter.
		raw = ""
		body = strings.TrimPrefix(rest, delimiter)
	} else {
		idx := closingDelimiter(rest)
		if idx < 0 {
			return nil, &ParseError{
				Type:    ErrorTypeUnterminatedFrontMatter,
				Message: "manifest front matter is not terminated",
			}
		}
		raw = rest[:idx]
		body = rest[idx+len("\n"+delimiter):]
	}
	body = strings.TrimPrefix(body, "\n")

	meta, err := decodeMetadata(raw)
	if err != nil {
		return nil, err
	}

	return &Document{Manifest: meta, Body: body}, nil
}

// closingDelimiter finds the newline that starts the closing "---" line.
// The delimiter has to occupy a full line: metadata lines that merely begin
// with dashes ("----", "---key: v") never terminate the block.
func closingDelimiter(s string) int {
	from := 0
	for {
		i := strings.Index(s[from:], "\n"+delimiter)
		if i < 0 {
			return -1
		}
		i += from
		end := i + 1 + len(delimiter)
		if end == len(s) || s[end] == '\n' {
			return i
		}
		from = i + 1
	}
}

// ParseWithFallback parses content, substituting a placeholder manifest
// named after the skill id when parsing fails. Scans use this so one
// malformed skill never aborts a listing.
func ParseWithFallback(content, id string) *Document {
	doc, err := Parse(content)
	if err != nil {
		return &Document{Manifest: types.Manifest{Name: id}}
	}
	return doc
}

func decodeMetadata(raw string) (types.Manifest, error) {
	var m types.Manifest
	if strings.TrimSpace(raw) == "" {
		return m, nil
	}

	fields := map[string]any{}
	if err := yaml.Unmarshal([]byte(raw), &fields); err != nil {
		return m, &ParseError{
			Type:    ErrorTypeMalformedMetadata,
			Message: "manifest front matter is not valid YAML",
			Err:     err,
		}
	}

	m.Name = popString(fields, "name")
	m.Description = popString(fields, "description")
	m.License = popString(fields, "license")

	if nested, ok := fields["metadata"].(map[string]any); ok {
		m.Author, _ = nested["author"].(string)
		m.Version = stringify(nested["version"])
		delete(nested, "author")
		delete(nested, "version")
		if len(nested) == 0 {
			delete(fields, "metadata")
		}
	}

	if raw, ok := fields["allowed-tools"]; ok {
		switch v := raw.(type) {
		case []any:
			for _, item := range v {
				m.AllowedTools = append(m.AllowedTools, stringify(item))
			}
		case string:
			for _, item := range strings.Split(v, ",") {
				if trimmed := strings.TrimSpace(item); trimmed != "" {
					m.AllowedTools = append(m.AllowedTools, trimmed)
				}
			}
		}
		delete(fields, "allowed-tools")
	}

	if len(fields) > 0 {
		m.Extra = fields
	}
	return m, nil
}

func popString(fields map[string]any, key string) string {
	s := stringify(fields[key])
	if s != "" {
		delete(fields, key)
	}
	return s
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Serialize renders the document back to SKILL.md form. Front-matter keys
// the engine models are written first in a stable order; extra keys follow
// sorted alphabetically.
func Serialize(doc *Document) string {
	var b strings.Builder
	b.WriteString(delimiter + "\n")

	m := doc.Manifest
	writeScalar(&b, "name", m.Name)
	writeScalar(&b, "description", m.Description)
	writeScalar(&b, "license", m.License)
	if m.Author != "" || m.Version != "" {
		b.WriteString("metadata:\n")
		if m.Author != "" {
			b.WriteString("  ")
			writeScalar(&b, "author", m.Author)
		}
		if m.Version != "" {
			b.WriteString("  ")
			writeScalar(&b, "version", m.Version)
		}
	}
	if len(m.AllowedTools) > 0 {
		out, _ := yaml.Marshal(map[string][]string{"allowed-tools": m.AllowedTools})
		b.Write(out)
	}
	if len(m.Extra) > 0 {
		keys := make([]string, 0, len(m.Extra))
		for k := range m.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out, _ := yaml.Marshal(map[string]any{k: m.Extra[k]})
			b.Write(out)
		}
	}

	b.WriteString(delimiter + "\n")
	b.WriteString(doc.Body)
	return b.String()
}

func writeScalar(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	out, _ := yaml.Marshal(map[string]string{key: value})
	b.Write(out)
}
