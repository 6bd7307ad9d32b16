// Package schema externalizes the schema fragments of an endpoint tree into
// a single document for the schema compiler and re-attaches the compiled
// result to the tree.
package schema

import (
	"fmt"
	"strings"

	"httpgen/internal/model"
)

// Kind identifies what a marker stands for
type Kind int

const (
	KindFragment Kind = iota
	KindEndpoint
	KindVariable
	KindMethod
	KindRequest
	KindResponse
	KindContent
	KindHeader
	KindQuery
	KindForm
	KindBody
)

func (k Kind) String() string {
	switch k {
	case KindFragment:
		return "fragment"
	case KindEndpoint:
		return "endpoint"
	case KindVariable:
		return "variable"
	case KindMethod:
		return "method"
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindContent:
		return "content"
	case KindHeader:
		return "header"
	case KindQuery:
		return "query"
	case KindForm:
		return "form"
	default:
		return "body"
	}
}

// IsLeaf reports whether markers of this kind wrap a single declared item
func (k Kind) IsLeaf() bool {
	switch k {
	case KindVariable, KindHeader, KindQuery, KindForm, KindBody:
		return true
	}
	return false
}

const indent = "    "

// Marker is one entry of the externalized document. Containers hold ordered
// child markers, leaves hold the raw schema text of one declared item and
// fragments hold free-form schema text closed by a delimiter.
type Marker struct {
	Kind      Kind
	Name      string
	Text      string
	Delimiter int
	Children  []*Marker

	root     *model.Root
	endpoint *model.Endpoint
	target   **model.Resolution
}

// DelimiterName is the element name closing a fragment
func (m *Marker) DelimiterName() string {
	return fmt.Sprintf("simple_schema_delimiter_%d", m.Delimiter)
}

// Plan is the typed marker stream for a set of documents
type Plan struct {
	Roots   []*model.Root
	Entries []*Marker

	delimiters int
}

// NewPlan walks the documents in declaration order and records a marker for
// every node that carries schema text. Nodes without any text produce no
// marker.
func NewPlan(roots []*model.Root) *Plan {
	p := &Plan{Roots: roots}

	endpointIndex := 0
	for _, r := range roots {
		if f := p.fragment(r.SimpleSchemaContent); f != nil {
			f.root = r
			p.Entries = append(p.Entries, f)
		}
		for _, e := range r.Endpoints {
			if m := p.endpoint(e, endpointIndex); m != nil {
				p.Entries = append(p.Entries, m)
			}
			endpointIndex++
		}
	}
	return p
}

func (p *Plan) fragment(text string) *Marker {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	m := &Marker{Kind: KindFragment, Text: text, Delimiter: p.delimiters}
	p.delimiters++
	return m
}

func leaf(kind Kind, name, text string, target **model.Resolution) *Marker {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &Marker{Kind: kind, Name: name, Text: text, target: target}
}

// container returns nil when no child produced a marker
func container(kind Kind, name string, children []*Marker) *Marker {
	var kept []*Marker
	for _, c := range children {
		if c != nil {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &Marker{Kind: kind, Name: name, Children: kept}
}

func (p *Plan) endpoint(e *model.Endpoint, index int) *Marker {
	var children []*Marker

	f := p.fragment(e.SimpleSchemaContent)
	if f != nil {
		f.endpoint = e
	}
	children = append(children, f)

	for i, v := range e.Variables {
		children = append(children, leaf(KindVariable, fmt.Sprintf("variable_%d", i), v.SimpleSchema, &v.Resolved))
	}
	for i, method := range e.Methods {
		children = append(children, p.method(method, i))
	}
	for i, child := range e.Children {
		children = append(children, p.endpoint(child, i))
	}

	m := container(KindEndpoint, fmt.Sprintf("endpoint_%d", index), children)
	if m != nil {
		m.endpoint = e
	}
	return m
}

func (p *Plan) method(method *model.Method, index int) *Marker {
	children := []*Marker{p.fragment(method.SimpleSchemaContent)}
	for i, req := range method.Requests {
		children = append(children, p.request(req, i))
	}
	for i, resp := range method.Responses {
		children = append(children, p.response(resp, i))
	}
	return container(KindMethod, fmt.Sprintf("method_%d", index), children)
}

func (p *Plan) request(req *model.Request, index int) *Marker {
	children := []*Marker{p.fragment(req.SimpleSchemaContent)}
	children = append(children, items(KindHeader, "header", req.Headers)...)
	children = append(children, items(KindQuery, "query", req.QueryItems)...)
	children = append(children, items(KindForm, "form", req.FormItems)...)
	children = append(children, body(req.Body))
	return container(KindRequest, fmt.Sprintf("request_%d", index), children)
}

func (p *Plan) response(resp *model.Response, index int) *Marker {
	children := []*Marker{p.fragment(resp.SimpleSchemaContent)}
	for i, c := range resp.Contents {
		var contentChildren []*Marker
		contentChildren = append(contentChildren, items(KindHeader, "header", c.Headers)...)
		contentChildren = append(contentChildren, body(c.Body))
		children = append(children, container(KindContent, fmt.Sprintf("content_%d", i), contentChildren))
	}
	return container(KindResponse, fmt.Sprintf("response_%d", index), children)
}

func items(kind Kind, prefix string, in []*model.Item) []*Marker {
	var out []*Marker
	for i, item := range in {
		out = append(out, leaf(kind, fmt.Sprintf("%s_%d", prefix, i), item.SimpleSchema, &item.Resolved))
	}
	return out
}

func body(b *model.Body) *Marker {
	if b == nil {
		return nil
	}
	return leaf(KindBody, "body", b.SimpleSchema, &b.Resolved)
}

// Render produces the document passed to the schema compiler
func (p *Plan) Render() string {
	var sb strings.Builder
	for _, m := range p.Entries {
		m.render(&sb, 0)
	}
	return sb.String()
}

func (m *Marker) render(sb *strings.Builder, depth int) {
	prefix := strings.Repeat(indent, depth)

	switch {
	case m.Kind == KindFragment:
		writeIndented(sb, m.Text, prefix)
		fmt.Fprintf(sb, "%s<%s string>\n\n", prefix, m.DelimiterName())

	case m.Kind.IsLeaf():
		fmt.Fprintf(sb, "%s<%s>:\n", prefix, m.Name)
		writeIndented(sb, m.Text, prefix+indent)
		sb.WriteString("\n")

	default:
		fmt.Fprintf(sb, "%s<%s>:\n", prefix, m.Name)
		for _, child := range m.Children {
			child.render(sb, depth+1)
		}
	}
}

func writeIndented(sb *strings.Builder, text, prefix string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(prefix)
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}

// Leaves returns the leaf markers in document order
func (p *Plan) Leaves() []*Marker {
	var out []*Marker
	var visit func([]*Marker)
	visit = func(ms []*Marker) {
		for _, m := range ms {
			if m.Kind.IsLeaf() {
				out = append(out, m)
			}
			visit(m.Children)
		}
	}
	visit(p.Entries)
	return out
}

// Resolution returns the resolution currently bound to a leaf marker
func (m *Marker) Resolution() *model.Resolution {
	if m.target == nil {
		return nil
	}
	return *m.target
}
