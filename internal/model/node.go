package model

import (
	"regexp"
	"strings"
)

// Root is one parsed input document
type Root struct {
	SimpleSchemaContent string      `yaml:"simple_schema_content,omitempty" json:"simple_schema_content,omitempty" xml:"simple_schema_content,omitempty"`
	Endpoints           []*Endpoint `yaml:"endpoints" json:"endpoints" xml:"endpoints>endpoint"`

	Filename string `yaml:"-" json:"-" xml:"-"`

	// Globals holds the compiled definitions of SimpleSchemaContent, keyed by name
	Globals map[string]*Element `yaml:"-" json:"-" xml:"-"`
}

// Endpoint is one URI-addressable resource node
type Endpoint struct {
	URI                 string      `yaml:"uri" json:"uri" xml:"uri,attr"`
	Group               string      `yaml:"group,omitempty" json:"group,omitempty" xml:"group,attr,omitempty"`
	Summary             string      `yaml:"summary,omitempty" json:"summary,omitempty" xml:"summary,omitempty"`
	Description         string      `yaml:"description,omitempty" json:"description,omitempty" xml:"description,omitempty"`
	Context             string      `yaml:"context,omitempty" json:"context,omitempty" xml:"context,attr,omitempty"`
	SimpleSchemaContent string      `yaml:"simple_schema_content,omitempty" json:"simple_schema_content,omitempty" xml:"simple_schema_content,omitempty"`
	Variables           []*Variable `yaml:"variables,omitempty" json:"variables,omitempty" xml:"variables>variable"`
	Methods             []*Method   `yaml:"methods,omitempty" json:"methods,omitempty" xml:"methods>method"`
	Children            []*Endpoint `yaml:"children,omitempty" json:"children,omitempty" xml:"children>endpoint"`

	// Computed after construction
	FullURI    string       `yaml:"-" json:"-" xml:"-"`
	UniqueName string       `yaml:"-" json:"-" xml:"-"`
	Parent     *Endpoint    `yaml:"-" json:"-" xml:"-"`
	Type       EndpointType `yaml:"-" json:"-" xml:"-"`

	// Populated during alignment
	Definitions []*Element          `yaml:"-" json:"-" xml:"-"`
	Element     *Element            `yaml:"-" json:"-" xml:"-"`
	Metadata    *RelationalMetadata `yaml:"-" json:"-" xml:"-"`
}

// Variable is a URI path parameter
type Variable struct {
	Name         string `yaml:"name" json:"name" xml:"name,attr"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty" xml:"description,omitempty"`
	SimpleSchema string `yaml:"simple_schema" json:"simple_schema" xml:"simple_schema"`

	Resolved *Resolution `yaml:"-" json:"-" xml:"-"`
}

// Method is an HTTP verb handler on an endpoint
type Method struct {
	Verb                Verb        `yaml:"verb" json:"verb" xml:"verb,attr"`
	Summary             string      `yaml:"summary,omitempty" json:"summary,omitempty" xml:"summary,omitempty"`
	Description         string      `yaml:"description,omitempty" json:"description,omitempty" xml:"description,omitempty"`
	SimpleSchemaContent string      `yaml:"simple_schema_content,omitempty" json:"simple_schema_content,omitempty" xml:"simple_schema_content,omitempty"`
	Requests            []*Request  `yaml:"requests,omitempty" json:"requests,omitempty" xml:"requests>request"`
	Responses           []*Response `yaml:"responses,omitempty" json:"responses,omitempty" xml:"responses>response"`
}

// Request is the shape of one content type accepted by a method
type Request struct {
	ContentType         string  `yaml:"content_type,omitempty" json:"content_type,omitempty" xml:"content_type,attr,omitempty"`
	Description         string  `yaml:"description,omitempty" json:"description,omitempty" xml:"description,omitempty"`
	SimpleSchemaContent string  `yaml:"simple_schema_content,omitempty" json:"simple_schema_content,omitempty" xml:"simple_schema_content,omitempty"`
	Headers             []*Item `yaml:"headers,omitempty" json:"headers,omitempty" xml:"headers>header"`
	QueryItems          []*Item `yaml:"query_items,omitempty" json:"query_items,omitempty" xml:"query_items>query_item"`
	FormItems           []*Item `yaml:"form_items,omitempty" json:"form_items,omitempty" xml:"form_items>form_item"`
	Body                *Body   `yaml:"body,omitempty" json:"body,omitempty" xml:"body,omitempty"`
}

// Response groups the contents returned for a single status code
type Response struct {
	Code                int        `yaml:"code" json:"code" xml:"code,attr"`
	Summary             string     `yaml:"summary,omitempty" json:"summary,omitempty" xml:"summary,omitempty"`
	Description         string     `yaml:"description,omitempty" json:"description,omitempty" xml:"description,omitempty"`
	SimpleSchemaContent string     `yaml:"simple_schema_content,omitempty" json:"simple_schema_content,omitempty" xml:"simple_schema_content,omitempty"`
	Contents            []*Content `yaml:"contents,omitempty" json:"contents,omitempty" xml:"contents>content"`
}

// Content is the shape of one content type returned for a status code
type Content struct {
	ContentType string  `yaml:"content_type,omitempty" json:"content_type,omitempty" xml:"content_type,attr,omitempty"`
	Headers     []*Item `yaml:"headers,omitempty" json:"headers,omitempty" xml:"headers>header"`
	Body        *Body   `yaml:"body,omitempty" json:"body,omitempty" xml:"body,omitempty"`
}

// Item is a header, query item or form item
type Item struct {
	Name         string `yaml:"name" json:"name" xml:"name,attr"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty" xml:"description,omitempty"`
	SimpleSchema string `yaml:"simple_schema" json:"simple_schema" xml:"simple_schema"`

	Resolved *Resolution `yaml:"-" json:"-" xml:"-"`
}

// Body is a request or response payload
type Body struct {
	Description  string `yaml:"description,omitempty" json:"description,omitempty" xml:"description,omitempty"`
	SimpleSchema string `yaml:"simple_schema" json:"simple_schema" xml:"simple_schema"`

	Resolved *Resolution `yaml:"-" json:"-" xml:"-"`
}

var (
	uriParameterRegex = regexp.MustCompile(`\{([^{}]+)\}`)
	repeatedSlash     = regexp.MustCompile(`/{2,}`)
)

// NewRoot links a parsed document into a tree: parent pointers, full URIs,
// unique names and default groups are computed here.
func NewRoot(filename, simpleSchemaContent string, endpoints ...*Endpoint) *Root {
	r := &Root{
		SimpleSchemaContent: simpleSchemaContent,
		Endpoints:           endpoints,
		Filename:            filename,
	}
	for _, e := range r.Endpoints {
		e.link(nil)
	}
	return r
}

func (e *Endpoint) link(parent *Endpoint) {
	e.Parent = parent

	prefix := ""
	if parent != nil {
		prefix = parent.FullURI
	}
	e.FullURI = repeatedSlash.ReplaceAllString(prefix+e.URI, "/")
	if !strings.HasPrefix(e.FullURI, "/") {
		e.FullURI = "/" + e.FullURI
	}
	e.UniqueName = UniqueName(e.FullURI)
	if e.Group == "" {
		e.Group = e.UniqueName
	}

	for _, child := range e.Children {
		child.link(e)
	}
}

// UniqueName derives a stable lookup key from a full URI.
// "/items/{item_id}/" becomes "items.item_id".
func UniqueName(fullURI string) string {
	name := strings.Trim(fullURI, "/")
	name = strings.ReplaceAll(name, "/", ".")
	name = strings.NewReplacer("{", "", "}", "").Replace(name)
	return name
}

// URIParameters returns the placeholder names in a URI template, in order
func URIParameters(uri string) []string {
	var names []string
	for _, m := range uriParameterRegex.FindAllStringSubmatch(uri, -1) {
		names = append(names, m[1])
	}
	return names
}

// Segment returns the last path component of the endpoint's URI with braces
// removed. It is the lookup key for relationships.
func (e *Endpoint) Segment() string {
	parts := strings.Split(strings.Trim(e.URI, "/"), "/")
	last := parts[len(parts)-1]
	return strings.Trim(last, "{}")
}

// Ancestors returns the endpoint's ancestors, nearest first
func (e *Endpoint) Ancestors() []*Endpoint {
	var out []*Endpoint
	for p := e.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}

// Definition finds a compiled definition in the content of the endpoint or
// its nearest ancestor declaring one
func (e *Endpoint) Definition(name string) (*Element, bool) {
	for cur := e; cur != nil; cur = cur.Parent {
		for _, d := range cur.Definitions {
			if d.Name == name {
				return d, true
			}
		}
	}
	return nil, false
}

// Walk visits every endpoint depth-first in declaration order. Returning an
// error stops the walk.
func (r *Root) Walk(fn func(*Endpoint) error) error {
	for _, e := range r.Endpoints {
		if err := e.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits e and its descendants depth-first in declaration order
func (e *Endpoint) Walk(fn func(*Endpoint) error) error {
	if err := fn(e); err != nil {
		return err
	}
	for _, child := range e.Children {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Clone copies the declared content of the document. Computed and compiled
// fields are not copied.
func (r *Root) Clone() *Root {
	out := &Root{
		SimpleSchemaContent: r.SimpleSchemaContent,
		Filename:            r.Filename,
	}
	for _, e := range r.Endpoints {
		out.Endpoints = append(out.Endpoints, e.Clone())
	}
	return out
}

// Clone copies the declared content of the endpoint and its children
func (e *Endpoint) Clone() *Endpoint {
	out := &Endpoint{
		URI:                 e.URI,
		Group:               e.Group,
		Summary:             e.Summary,
		Description:         e.Description,
		Context:             e.Context,
		SimpleSchemaContent: e.SimpleSchemaContent,
	}
	for _, v := range e.Variables {
		out.Variables = append(out.Variables, &Variable{Name: v.Name, Description: v.Description, SimpleSchema: v.SimpleSchema})
	}
	for _, m := range e.Methods {
		out.Methods = append(out.Methods, m.Clone())
	}
	for _, c := range e.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}

// Clone copies the declared content of the method
func (m *Method) Clone() *Method {
	out := &Method{
		Verb:                m.Verb,
		Summary:             m.Summary,
		Description:         m.Description,
		SimpleSchemaContent: m.SimpleSchemaContent,
	}
	for _, req := range m.Requests {
		out.Requests = append(out.Requests, &Request{
			ContentType:         req.ContentType,
			Description:         req.Description,
			SimpleSchemaContent: req.SimpleSchemaContent,
			Headers:             cloneItems(req.Headers),
			QueryItems:          cloneItems(req.QueryItems),
			FormItems:           cloneItems(req.FormItems),
			Body:                req.Body.clone(),
		})
	}
	for _, resp := range m.Responses {
		r := &Response{
			Code:                resp.Code,
			Summary:             resp.Summary,
			Description:         resp.Description,
			SimpleSchemaContent: resp.SimpleSchemaContent,
		}
		for _, c := range resp.Contents {
			r.Contents = append(r.Contents, &Content{
				ContentType: c.ContentType,
				Headers:     cloneItems(c.Headers),
				Body:        c.Body.clone(),
			})
		}
		out.Responses = append(out.Responses, r)
	}
	return out
}

func cloneItems(items []*Item) []*Item {
	if items == nil {
		return nil
	}
	out := make([]*Item, 0, len(items))
	for _, item := range items {
		out = append(out, &Item{Name: item.Name, Description: item.Description, SimpleSchema: item.SimpleSchema})
	}
	return out
}

func (b *Body) clone() *Body {
	if b == nil {
		return nil
	}
	return &Body{Description: b.Description, SimpleSchema: b.SimpleSchema}
}
