package mapping

import (
	"errors"
	"fmt"
	"strings"
)

// DocumentSource is the binding context of a single mapping document.
type DocumentSource struct {
	doc *Document
}

func NewDocumentSource(doc *Document) *DocumentSource {
	return &DocumentSource{doc: doc}
}

func (d *DocumentSource) Document() *Document {
	return d.doc
}

func (d *DocumentSource) Origin() Origin {
	return d.doc.origin
}

func (d *DocumentSource) Schema() string {
	return d.doc.Schema
}

// QualifyClassName prefixes an unqualified class name with the document
// package.
func (d *DocumentSource) QualifyClassName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || d.doc.Package == "" || strings.Contains(name, ".") {
		return name
	}

	return d.doc.Package + "." + name
}

func (d *DocumentSource) DefaultAccess() string {
	return d.doc.DefaultAccess
}

func (d *DocumentSource) DefaultLazy() bool {
	return parseTruth(d.doc.DefaultLazy).Or(true)
}

func (d *DocumentSource) DefaultCascade() string {
	return d.doc.DefaultCascade
}

func (d *DocumentSource) accessOr(access string) string {
	if access != "" {
		return access
	}

	return d.DefaultAccess()
}

// Entities builds an EntitySource per class element. Every problem found is
// reported, not just the first.
func (d *DocumentSource) Entities() ([]*EntitySource, error) {
	var (
		entities []*EntitySource
		errs     []error
	)

	for i := range d.doc.Classes {
		es, err := newEntitySource(d, &d.doc.Classes[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}

		entities = append(entities, es)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return entities, nil
}

func (d *DocumentSource) String() string {
	return fmt.Sprintf("mapping document (%s)", d.Origin())
}
