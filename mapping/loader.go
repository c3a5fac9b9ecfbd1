package mapping

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a mapping document, picking the format from the file
// extension.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}

	origin := Origin{Kind: OriginFile, Name: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return ParseXML(origin, data)
	case ".yaml", ".yml":
		return ParseYAML(origin, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadFiles reads every path in order and stops at the first failure.
func LoadFiles(paths ...string) ([]*Document, error) {
	docs := make([]*Document, 0, len(paths))
	for _, p := range paths {
		doc, err := LoadFile(p)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// ParseXML parses an XML mapping document.
func ParseXML(origin Origin, data []byte) (*Document, error) {
	var doc Document
	dec := xml.NewDecoder(bytes.NewReader(data))
	// DTD declarations are common in legacy documents and carry nothing we use.
	dec.Strict = false
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse mapping XML (%s): %w", origin, err)
	}

	if doc.XMLName.Local != "hibernate-mapping" {
		return nil, mappingErrorf(origin, "unexpected root element <%s>", doc.XMLName.Local)
	}

	doc.origin = origin
	applyDefaults(&doc)

	return &doc, nil
}

// ParseYAML parses a YAML mapping document.
func ParseYAML(origin Origin, data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse mapping YAML (%s): %w", origin, err)
	}

	doc.origin = origin
	applyDefaults(&doc)

	return &doc, nil
}

// MarshalYAML serializes a document to YAML.
func MarshalYAML(doc *Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

// MarshalXML serializes a document to indented XML.
func MarshalXML(doc *Document) ([]byte, error) {
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), out...), nil
}

func applyDefaults(doc *Document) {
	if doc.DefaultAccess == "" {
		doc.DefaultAccess = "property"
	}

	if doc.DefaultLazy == "" {
		doc.DefaultLazy = "true"
	}

	if doc.DefaultCascade == "" {
		doc.DefaultCascade = "none"
	}

	for i := range doc.Classes {
		cls := &doc.Classes[i]
		for j := range cls.CompositeID.keyManyToOnes() {
			k := &cls.CompositeID.KeyManyToOnes[j]
			if k.OnDelete == "" {
				k.OnDelete = OnDeleteNoAction
			}
		}
	}
}

func (c *CompositeID) keyManyToOnes() []KeyManyToOne {
	if c == nil {
		return nil
	}

	return c.KeyManyToOnes
}
