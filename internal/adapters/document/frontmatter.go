// Package document reads and writes notes with a YAML front matter header.
package document

import (
	"bytes"
	"slices"
	"strings"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Parse splits data into front matter and body.
// Content without a leading delimiter line is all body with empty metadata.
func Parse(path string, data []byte) (*domain.Document, error) {
	doc := domain.NewDocument(path)
	text := strings.TrimPrefix(string(data), "\ufeff")

	header, body, ok := split(text)
	if !ok {
		doc.Body = text
		return doc, nil
	}
	doc.Body = body

	if strings.TrimSpace(header) == "" {
		return doc, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(header), &root); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrDocumentParseFailed, err.Error()), "path", path)
	}
	if len(root.Content) == 0 {
		return doc, nil
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, zerr.With(zerr.Wrap(domain.ErrDocumentParseFailed, "front matter is not a mapping"), "path", path)
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		var value any
		if err := mapping.Content[i+1].Decode(&value); err != nil {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrDocumentParseFailed, err.Error()), "path", path), "key", key)
		}
		doc.Set(key, value)
	}

	return doc, nil
}

// split returns the header between the opening and closing delimiter lines and the body after it.
func split(text string) (header, body string, ok bool) {
	first, rest, found := strings.Cut(text, "\n")
	if !found || strings.TrimRight(first, "\r ") != delimiter {
		return "", "", false
	}

	offset := 0
	for offset <= len(rest) {
		line, next, more := strings.Cut(rest[offset:], "\n")
		if strings.TrimRight(line, "\r ") == delimiter {
			header = rest[:offset]
			if more {
				body = next
			}
			return header, body, true
		}
		if !more {
			break
		}
		offset += len(line) + 1
	}
	return "", "", false
}

// Render serializes a document with its keys in their recorded order.
// A document without metadata renders as its body alone.
func Render(doc *domain.Document) ([]byte, error) {
	if len(doc.Meta) == 0 {
		return []byte(doc.Body), nil
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range orderedKeys(doc) {
		var value yaml.Node
		if err := value.Encode(doc.Meta[key]); err != nil {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrDocumentWriteFailed, err.Error()), "path", doc.Path), "key", key)
		}
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&value,
		)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrDocumentWriteFailed, err.Error()), "path", doc.Path)
	}
	if err := enc.Close(); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrDocumentWriteFailed, err.Error()), "path", doc.Path)
	}
	buf.WriteString(delimiter + "\n")
	buf.WriteString(doc.Body)

	return buf.Bytes(), nil
}

// orderedKeys returns the recorded key order followed by any keys set directly on Meta.
func orderedKeys(doc *domain.Document) []string {
	keys := make([]string, 0, len(doc.Meta))
	seen := make(map[string]struct{}, len(doc.Meta))
	for _, k := range doc.Keys {
		if _, ok := doc.Meta[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	var extra []string
	for k := range doc.Meta {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return append(keys, extra...)
}
