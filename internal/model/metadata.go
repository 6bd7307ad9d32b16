package model

import (
	"strings"

	"httpgen/internal/errs"
)

// MetadataPrefix prefixes the global element describing a resource group
const MetadataPrefix = "__metadata_"

// Cardinality of a relationship
type Cardinality int

const (
	CardinalityOne Cardinality = iota
	CardinalityOptional
	CardinalityMany
)

func (c Cardinality) String() string {
	switch c {
	case CardinalityOne:
		return "one"
	case CardinalityOptional:
		return "optional"
	default:
		return "many"
	}
}

// Relationship is a named Reference or Backref to another resource group
type Relationship struct {
	Name        string
	Target      string // group name of the related resource
	Cardinality Cardinality
	Min         int
	Element     *Element
}

// RelationalMetadata describes the identities, attributes and relationships
// of a resource group
type RelationalMetadata struct {
	Group      string
	Element    *Element
	Identities []*Element
	Attributes []*Element
	Mutable    []*Element
	References []*Relationship
	Backrefs   []*Relationship
}

// Reference finds a forward relationship by name
func (m *RelationalMetadata) Reference(name string) (*Relationship, bool) {
	return findRelationship(m.References, name)
}

// Backref finds an inverse relationship by name
func (m *RelationalMetadata) Backref(name string) (*Relationship, bool) {
	return findRelationship(m.Backrefs, name)
}

func findRelationship(rels []*Relationship, name string) (*Relationship, bool) {
	for _, rel := range rels {
		if rel.Name == name {
			return rel, true
		}
	}
	return nil, false
}

// MetadataElementName returns the global element name for a group
func MetadataElementName(group string) string {
	return MetadataPrefix + group
}

// ExtractMetadata reads the relational metadata from a compiled
// __metadata_<group> element
func ExtractMetadata(group string, el *Element) (*RelationalMetadata, error) {
	required := []string{"__identities__", "__items__", "__mutable_items__", "__references__", "__backrefs__"}
	for _, name := range required {
		if el.Child(name) == nil {
			return nil, errs.Configf("the child %q was not defined in %q", name, el.Name)
		}
	}

	md := &RelationalMetadata{
		Group:      group,
		Element:    el,
		Identities: el.Child("__identities__").Children,
		Attributes: el.Child("__items__").Children,
		Mutable:    el.Child("__mutable_items__").Children,
	}

	if len(md.Identities) == 0 {
		return nil, errs.Configf("%q does not define any identities", el.Name)
	}
	if md.Identities[0].Name != "id" {
		return nil, errs.Configf("the first identity of %q must be \"id\", not %q", el.Name, md.Identities[0].Name)
	}

	var err error
	if md.References, err = relationships(el.Child("__references__")); err != nil {
		return nil, err
	}
	if md.Backrefs, err = relationships(el.Child("__backrefs__")); err != nil {
		return nil, err
	}
	return md, nil
}

func relationships(parent *Element) ([]*Relationship, error) {
	var out []*Relationship
	for _, child := range parent.Children {
		if !strings.HasPrefix(child.Reference, MetadataPrefix) {
			return nil, errs.Configf("the relationship %q must reference a %s element, not %q", child.Name, MetadataPrefix+"<group>", child.Reference)
		}
		min, _, err := child.Bounds()
		if err != nil {
			return nil, errs.Configf("%v", err)
		}

		rel := &Relationship{
			Name:    child.Name,
			Target:  strings.TrimPrefix(child.Reference, MetadataPrefix),
			Min:     min,
			Element: child,
		}
		switch {
		case child.IsCollection():
			rel.Cardinality = CardinalityMany
		case child.IsOptional():
			rel.Cardinality = CardinalityOptional
		default:
			rel.Cardinality = CardinalityOne
		}
		out = append(out, rel)
	}
	return out, nil
}

// AttachMetadata resolves the metadata of every endpoint. Definitions
// compiled from the endpoint's own content, or an ancestor's, take precedence
// over the document's globals.
func AttachMetadata(r *Root) error {
	cache := make(map[string]*RelationalMetadata)

	return r.Walk(func(e *Endpoint) error {
		name := MetadataElementName(e.Group)

		el, local := e.Definition(name)
		if !local {
			if md, ok := cache[e.Group]; ok {
				e.Metadata = md
				e.Element = md.Element
				return nil
			}
			el = r.Globals[name]
		}
		if el == nil {
			return errs.Configf("the simple_schema_content does not define %q", name).At(r.Filename, e.FullURI)
		}

		md, err := ExtractMetadata(e.Group, el)
		if err != nil {
			if ce, ok := err.(*errs.ConfigurationError); ok {
				return ce.At(r.Filename, e.FullURI)
			}
			return err
		}
		if !local {
			cache[e.Group] = md
		}
		e.Metadata = md
		e.Element = el
		return nil
	})
}
