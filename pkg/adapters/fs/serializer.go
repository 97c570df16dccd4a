package fs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/studywise/pkg/core"
)

// ErrUnclosedFrontmatter is returned when a markdown file opens a frontmatter
// block that never closes.
var ErrUnclosedFrontmatter = errors.New("frontmatter started but no closing delimiter found")

// Serializer reads and writes one file format.
type Serializer interface {
	Parse(r io.Reader) (*core.Document, error)
	Serialize(doc core.Document) ([]byte, error)
}

// DefaultSerializers returns the formats a vault understands, keyed by extension.
// Notes are markdown; the structured formats let users drop course or tag
// records in by hand.
func DefaultSerializers(strict bool) map[string]Serializer {
	return map[string]Serializer{
		".md":   &MarkdownSerializer{Strict: strict},
		".json": &JSONSerializer{Strict: strict},
		".yaml": &YAMLSerializer{Strict: strict},
		".yml":  &YAMLSerializer{Strict: strict},
	}
}

// MarkdownSerializer stores metadata as YAML frontmatter above the body.
type MarkdownSerializer struct {
	// Strict keeps numbers as json.Number so large integers survive.
	Strict bool
}

func (s *MarkdownSerializer) Parse(r io.Reader) (*core.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := &core.Document{Metadata: make(core.Metadata)}
	front, body, ok, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	if !ok {
		doc.Content = string(data)
		return doc, nil
	}

	if err := yaml.Unmarshal(front, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	if doc.Metadata == nil {
		doc.Metadata = make(core.Metadata)
	}
	doc.Content = string(body)

	if s.Strict {
		doc.Metadata = normalizeNumbers(doc.Metadata).(core.Metadata)
	}
	return doc, nil
}

func (s *MarkdownSerializer) Serialize(doc core.Document) ([]byte, error) {
	var buf bytes.Buffer
	switch {
	case len(doc.Metadata) > 0:
		buf.WriteString("---\n")
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(doc.Metadata)); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		buf.WriteString("---\n")
	case bytes.HasPrefix([]byte(doc.Content), []byte("---")):
		// An empty block keeps a body starting with a rule from being read as frontmatter.
		buf.WriteString("---\n---\n")
	}
	buf.WriteString(doc.Content)
	return buf.Bytes(), nil
}

// splitFrontmatter separates a leading "---" block from the body.
// ok is false when the data has no frontmatter at all.
func splitFrontmatter(data []byte) (front, body []byte, ok bool, err error) {
	var rest []byte
	switch {
	case bytes.HasPrefix(data, []byte("---\n")):
		rest = data[4:]
	case bytes.HasPrefix(data, []byte("---\r\n")):
		rest = data[5:]
	default:
		return nil, nil, false, nil
	}

	pos := 0
	for {
		end := bytes.IndexByte(rest[pos:], '\n')
		line := rest[pos:]
		next := len(rest)
		if end >= 0 {
			line = rest[pos : pos+end]
			next = pos + end + 1
		}
		if string(bytes.TrimRight(line, "\r")) == "---" {
			return rest[:pos], rest[next:], true, nil
		}
		if end < 0 {
			return nil, nil, false, ErrUnclosedFrontmatter
		}
		pos = next
	}
}

// JSONSerializer stores the whole document as one object; the body lives under "content".
type JSONSerializer struct {
	Strict bool
}

func (s *JSONSerializer) Parse(r io.Reader) (*core.Document, error) {
	var payload map[string]any
	dec := json.NewDecoder(r)
	if s.Strict {
		dec.UseNumber()
	}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return splitContent(payload), nil
}

func (s *JSONSerializer) Serialize(doc core.Document) ([]byte, error) {
	return json.MarshalIndent(joinContent(doc), "", "  ")
}

// YAMLSerializer mirrors JSONSerializer for .yaml and .yml files.
type YAMLSerializer struct {
	Strict bool
}

func (s *YAMLSerializer) Parse(r io.Reader) (*core.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	doc := splitContent(payload)
	if s.Strict {
		doc.Metadata = normalizeNumbers(doc.Metadata).(core.Metadata)
	}
	return doc, nil
}

func (s *YAMLSerializer) Serialize(doc core.Document) ([]byte, error) {
	return yaml.Marshal(joinContent(doc))
}

func splitContent(payload map[string]any) *core.Document {
	doc := &core.Document{Metadata: make(core.Metadata, len(payload))}
	for k, v := range payload {
		if k == "content" {
			if c, ok := v.(string); ok {
				doc.Content = c
				continue
			}
		}
		doc.Metadata[k] = v
	}
	return doc
}

func joinContent(doc core.Document) map[string]any {
	payload := make(map[string]any, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		payload[k] = v
	}
	if doc.Content != "" {
		payload["content"] = doc.Content
	}
	return payload
}

// normalizeNumbers converts decoded numbers to json.Number, matching what the
// JSON decoder yields in strict mode.
func normalizeNumbers(val any) any {
	switch v := val.(type) {
	case core.Metadata:
		m := make(core.Metadata, len(v))
		for k, item := range v {
			m[k] = normalizeNumbers(item)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[k] = normalizeNumbers(item)
		}
		return m
	case []any:
		l := make([]any, len(v))
		for i, item := range v {
			l[i] = normalizeNumbers(item)
		}
		return l
	case int:
		return json.Number(strconv.Itoa(v))
	case int64:
		return json.Number(strconv.FormatInt(v, 10))
	case uint64:
		return json.Number(strconv.FormatUint(v, 10))
	case float64:
		return json.Number(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return v
	}
}
