package model

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"httpgen/internal/errs"
)

func sampleRoot() *Root {
	return NewRoot("widgets.yaml", "",
		&Endpoint{
			URI:     "/widgets/",
			Group:   "widgets",
			Context: "rest::collection",
			Methods: []*Method{{Verb: VerbGet}, {Verb: VerbPost}},
			Children: []*Endpoint{
				{
					URI:       "{widget_id}/",
					Group:     "widgets",
					Context:   "collection_item",
					Variables: []*Variable{{Name: "widget_id", SimpleSchema: "<widget_id string>"}},
					Methods:   []*Method{{Verb: VerbGet}},
					Children: []*Endpoint{
						{URI: "/owner/", Group: "widgets", Context: "reference_item", Methods: []*Method{{Verb: VerbGet}}},
					},
				},
			},
		},
	)
}

func TestFullURIAndUniqueName(t *testing.T) {
	root := sampleRoot()

	var got [][2]string
	root.Walk(func(e *Endpoint) error {
		got = append(got, [2]string{e.FullURI, e.UniqueName})
		return nil
	})

	expected := [][2]string{
		{"/widgets/", "widgets"},
		{"/widgets/{widget_id}/", "widgets.widget_id"},
		{"/widgets/{widget_id}/owner/", "widgets.widget_id.owner"},
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Walk order/names = %v, want %v", got, expected)
	}
}

func TestGroupDefaultsToUniqueName(t *testing.T) {
	root := NewRoot("a.yaml", "", &Endpoint{URI: "/things/"})
	if root.Endpoints[0].Group != "things" {
		t.Errorf("Group = %q, want %q", root.Endpoints[0].Group, "things")
	}
}

func TestSegment(t *testing.T) {
	tests := []struct {
		uri      string
		expected string
	}{
		{"/owner/", "owner"},
		{"{widget_id}/", "widget_id"},
		{"/a/b/", "b"},
		{"items", "items"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			e := &Endpoint{URI: tt.uri}
			if got := e.Segment(); got != tt.expected {
				t.Errorf("Segment() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		endpoint *Endpoint
		errText  string
	}{
		{
			name:     "matching variables",
			endpoint: &Endpoint{URI: "/a/{x}/", Variables: []*Variable{{Name: "x"}}},
		},
		{
			name:     "placeholder without variable",
			endpoint: &Endpoint{URI: "/a/{x}/{y}/", Variables: []*Variable{{Name: "x"}}},
			errText:  `the uri variables "y" were not defined`,
		},
		{
			name:     "variable without placeholder",
			endpoint: &Endpoint{URI: "/a/{x}/", Variables: []*Variable{{Name: "x"}, {Name: "z"}}},
			errText:  `the variable "z" was not found`,
		},
		{
			name:     "duplicate placeholder",
			endpoint: &Endpoint{URI: "/a/{x}/{x}/", Variables: []*Variable{{Name: "x"}}},
			errText:  `the uri variable "x" has already been defined`,
		},
		{
			name: "variable redefined by child",
			endpoint: &Endpoint{
				URI:       "/a/{x}/",
				Variables: []*Variable{{Name: "x"}},
				Children:  []*Endpoint{{URI: "b/{x}/", Variables: []*Variable{{Name: "x"}}}},
			},
			errText: `already been defined by an ancestor`,
		},
		{
			name:     "unsupported verb",
			endpoint: &Endpoint{URI: "/a/", Methods: []*Method{{Verb: "PUT"}}},
			errText:  `unsupported verb "PUT"`,
		},
		{
			name:     "duplicate verb",
			endpoint: &Endpoint{URI: "/a/", Methods: []*Method{{Verb: "get"}, {Verb: VerbGet}}},
			errText:  `the verb GET has already been defined`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := NewRoot("input.yaml", "", tt.endpoint)
			err := root.Validate()

			if tt.errText == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}

			var ce *errs.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() error = %v, want ConfigurationError", err)
			}
			if !strings.Contains(ce.Msg, tt.errText) {
				t.Errorf("Msg = %q, want it to contain %q", ce.Msg, tt.errText)
			}
			if ce.Filename != "input.yaml" {
				t.Errorf("Filename = %q, want input.yaml", ce.Filename)
			}
			if !strings.HasPrefix(ce.URI, "/a/") {
				t.Errorf("URI = %q, want the full ancestor path", ce.URI)
			}
		})
	}
}

func TestCheckUniqueNames(t *testing.T) {
	a := NewRoot("a.yaml", "", &Endpoint{URI: "/items/"})
	b := NewRoot("b.yaml", "", &Endpoint{URI: "items"})

	err := CheckUniqueNames([]*Root{a, b})
	var ce *errs.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("CheckUniqueNames() error = %v, want ConfigurationError", err)
	}
	if ce.Filename != "b.yaml" || !strings.Contains(ce.Msg, "a.yaml") {
		t.Errorf("error = %v, want both documents named", ce)
	}

	c := NewRoot("c.yaml", "", &Endpoint{URI: "/other/"})
	if err := CheckUniqueNames([]*Root{a, c}); err != nil {
		t.Errorf("CheckUniqueNames() unexpected error: %v", err)
	}
}

func TestClassify(t *testing.T) {
	root := sampleRoot()
	if err := Classify([]*Root{root}); err != nil {
		t.Fatalf("Classify() error: %v", err)
	}

	var types []EndpointType
	root.Walk(func(e *Endpoint) error {
		types = append(types, e.Type)
		return nil
	})
	expected := []EndpointType{Collection, CollectionItem, ReferenceItem}
	if !reflect.DeepEqual(types, expected) {
		t.Errorf("types = %v, want %v", types, expected)
	}
}

func TestParseEndpointType(t *testing.T) {
	tests := []struct {
		context  string
		expected EndpointType
		wantErr  bool
	}{
		{"collection", Collection, false},
		{"rest::backref_collection_item", BackrefCollectionItem, false},
		{" other ; rest::reference_collection ", ReferenceCollection, false},
		{"", 0, true},
		{"unknown", 0, true},
		{"collection;collection_item", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.context, func(t *testing.T) {
			got, err := ParseEndpointType(tt.context)
			if tt.wantErr {
				var ce *errs.ConfigurationError
				if !errors.As(err, &ce) {
					t.Fatalf("error = %v, want ConfigurationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestClone(t *testing.T) {
	root := sampleRoot()
	root.Endpoints[0].Methods[0].Requests = []*Request{{
		ContentType: "application/json",
		QueryItems:  []*Item{{Name: "q", SimpleSchema: "<q string>"}},
		Body:        &Body{SimpleSchema: "<body string>"},
	}}

	clone := root.Clone()
	clone.Endpoints[0].Methods[0].Requests[0].QueryItems[0].Name = "changed"
	clone.Endpoints[0].Children[0].URI = "changed"

	if root.Endpoints[0].Methods[0].Requests[0].QueryItems[0].Name != "q" {
		t.Error("Clone shares query items with the original")
	}
	if root.Endpoints[0].Children[0].URI != "{widget_id}/" {
		t.Error("Clone shares children with the original")
	}
	if clone.Endpoints[0].FullURI != "" {
		t.Error("Clone copied computed fields")
	}
}

func TestFilter(t *testing.T) {
	root := NewRoot("a.yaml", "",
		&Endpoint{
			URI: "/a/",
			Methods: []*Method{
				{
					Verb: VerbGet,
					Requests: []*Request{
						{ContentType: "application/json"},
						{ContentType: "text/xml"},
					},
				},
				{Verb: VerbDelete},
			},
			Children: []*Endpoint{
				{URI: "b/", Methods: []*Method{{Verb: VerbPost, Requests: []*Request{{ContentType: "text/xml"}}}}},
			},
		},
	)

	f, err := NewFilter(nil, []string{"xml"}, nil, []string{"delete"})
	if err != nil {
		t.Fatal(err)
	}
	roots := f.Apply([]*Root{root})
	if len(roots) != 1 {
		t.Fatalf("roots = %d, want 1", len(roots))
	}

	e := roots[0].Endpoints[0]
	if len(e.Methods) != 1 || e.Methods[0].Verb != VerbGet {
		t.Fatalf("methods = %+v, want GET only", e.Methods)
	}
	if len(e.Methods[0].Requests) != 1 || e.Methods[0].Requests[0].ContentType != "application/json" {
		t.Errorf("requests = %+v, want application/json only", e.Methods[0].Requests)
	}
	if len(e.Children) != 0 {
		t.Errorf("children = %d, want the emptied child pruned", len(e.Children))
	}
}
