package model

import (
	"errors"
	"testing"

	"httpgen/internal/errs"
)

func TestElementArity(t *testing.T) {
	tests := []struct {
		arity      string
		marker     string
		collection bool
		optional   bool
		required   bool
	}{
		{"", "", false, false, true},
		{"?", " ?", false, true, false},
		{"*", " *", true, false, false},
		{"+", " +", true, false, true},
		{"{2,5}", " {2,5}", true, false, true},
		{"{0,1}", " ?", false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.arity, func(t *testing.T) {
			e := &Element{Name: "x", Arity: tt.arity}
			if got := e.ArityMarker(); got != tt.marker {
				t.Errorf("ArityMarker() = %q, want %q", got, tt.marker)
			}
			if got := e.IsCollection(); got != tt.collection {
				t.Errorf("IsCollection() = %v, want %v", got, tt.collection)
			}
			if got := e.IsOptional(); got != tt.optional {
				t.Errorf("IsOptional() = %v, want %v", got, tt.optional)
			}
			if got := e.IsRequired(); got != tt.required {
				t.Errorf("IsRequired() = %v, want %v", got, tt.required)
			}
		})
	}

	if err := (&Element{Name: "x", Arity: "{3,1}"}).Validate(); err == nil {
		t.Error("Validate() accepted an inverted range")
	}
}

func TestElementDefinition(t *testing.T) {
	e := &Element{
		Name:       "name",
		Type:       "string",
		Arity:      "?",
		Attributes: map[string]string{"min_length": "1", "max_length": "20"},
	}
	expected := "<title string max_length=20 min_length=1 ?>"
	if got := e.Definition("title"); got != expected {
		t.Errorf("Definition() = %q, want %q", got, expected)
	}

	nested := &Element{
		Name:  "point",
		Arity: "*",
		Children: []*Element{
			{Name: "x", Type: "int"},
			{Name: "y", Type: "int"},
		},
	}
	expected = "<point *>:\n    <x int>\n    <y int>"
	if got := nested.Definition("point"); got != expected {
		t.Errorf("Definition() = %q, want %q", got, expected)
	}
}

func metadataElement(group string, refs ...*Element) *Element {
	return &Element{
		Name: MetadataElementName(group),
		Children: []*Element{
			{Name: "__identities__", Children: []*Element{{Name: "id", Type: "string"}}},
			{Name: "__items__", Children: []*Element{{Name: "name", Type: "string"}}},
			{Name: "__mutable_items__", Children: []*Element{{Name: "name", Type: "string"}}},
			{Name: "__references__", Children: refs},
			{Name: "__backrefs__"},
		},
	}
}

func TestExtractMetadata(t *testing.T) {
	el := metadataElement("widgets",
		&Element{Name: "owner", Reference: "__metadata_users", Arity: "?"},
		&Element{Name: "parts", Reference: "__metadata_parts", Arity: "+"},
		&Element{Name: "maker", Reference: "__metadata_makers"},
	)

	md, err := ExtractMetadata("widgets", el)
	if err != nil {
		t.Fatalf("ExtractMetadata() error: %v", err)
	}

	tests := []struct {
		name        string
		target      string
		cardinality Cardinality
		min         int
	}{
		{"owner", "users", CardinalityOptional, 0},
		{"parts", "parts", CardinalityMany, 1},
		{"maker", "makers", CardinalityOne, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, ok := md.Reference(tt.name)
			if !ok {
				t.Fatalf("Reference(%q) not found", tt.name)
			}
			if rel.Target != tt.target || rel.Cardinality != tt.cardinality || rel.Min != tt.min {
				t.Errorf("got %+v, want target=%s cardinality=%v min=%d", rel, tt.target, tt.cardinality, tt.min)
			}
		})
	}

	if _, ok := md.Backref("owner"); ok {
		t.Error("Backref(owner) should not exist")
	}
}

func TestExtractMetadataErrors(t *testing.T) {
	missing := &Element{Name: "__metadata_x", Children: []*Element{{Name: "__identities__"}}}
	if _, err := ExtractMetadata("x", missing); err == nil {
		t.Error("expected an error for missing children")
	}

	el := metadataElement("x")
	el.Children[0].Children = []*Element{{Name: "key", Type: "string"}}
	_, err := ExtractMetadata("x", el)
	var ce *errs.ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("error = %v, want ConfigurationError for a non-id first identity", err)
	}
}

func TestAttachMetadata(t *testing.T) {
	root := sampleRoot()
	root.Globals = map[string]*Element{
		"__metadata_widgets": metadataElement("widgets"),
	}

	if err := AttachMetadata(root); err != nil {
		t.Fatalf("AttachMetadata() error: %v", err)
	}
	root.Walk(func(e *Endpoint) error {
		if e.Metadata == nil || e.Metadata.Group != "widgets" {
			t.Errorf("%s: metadata not attached", e.FullURI)
		}
		return nil
	})

	delete(root.Globals, "__metadata_widgets")
	err := AttachMetadata(root)
	var ce *errs.ConfigurationError
	if !errors.As(err, &ce) || ce.URI != "/widgets/" {
		t.Errorf("error = %v, want ConfigurationError at /widgets/", err)
	}
}

func TestAttachMetadataPrefersEndpointDefinitions(t *testing.T) {
	root := sampleRoot()
	root.Globals = map[string]*Element{
		"__metadata_widgets": metadataElement("widgets"),
	}

	local := metadataElement("widgets")
	local.Child("__items__").Children = []*Element{{Name: "color", Type: "string"}}
	item := root.Endpoints[0].Children[0]
	item.Definitions = []*Element{local}

	if err := AttachMetadata(root); err != nil {
		t.Fatalf("AttachMetadata() error: %v", err)
	}

	if got := root.Endpoints[0].Metadata.Attributes[0].Name; got != "name" {
		t.Errorf("collection attribute = %s, expected the global metadata", got)
	}
	for _, e := range []*Endpoint{item, item.Children[0]} {
		if e.Metadata == nil || e.Metadata.Attributes[0].Name != "color" {
			t.Errorf("%s: expected the metadata defined on /widgets/{widget_id}/", e.FullURI)
		}
	}

	delete(root.Globals, "__metadata_widgets")
	err := AttachMetadata(root)
	var ce *errs.ConfigurationError
	if !errors.As(err, &ce) || ce.URI != "/widgets/" {
		t.Errorf("error = %v, want ConfigurationError at /widgets/", err)
	}
}
