package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter removes content types and verbs from the declared documents before
// compilation. An empty include list accepts everything.
type Filter struct {
	contentIncludes []*regexp.Regexp
	contentExcludes []*regexp.Regexp
	verbIncludes    map[Verb]bool
	verbExcludes    map[Verb]bool
}

// NewFilter compiles the content type expressions and normalizes the verbs
func NewFilter(contentIncludes, contentExcludes, verbIncludes, verbExcludes []string) (*Filter, error) {
	f := &Filter{
		verbIncludes: make(map[Verb]bool),
		verbExcludes: make(map[Verb]bool),
	}

	var err error
	if f.contentIncludes, err = compileAll(contentIncludes); err != nil {
		return nil, err
	}
	if f.contentExcludes, err = compileAll(contentExcludes); err != nil {
		return nil, err
	}
	for _, v := range verbIncludes {
		f.verbIncludes[Verb(strings.ToUpper(v))] = true
	}
	for _, v := range verbExcludes {
		f.verbExcludes[Verb(strings.ToUpper(v))] = true
	}
	return f, nil
}

func compileAll(exprs []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid content type expression %q: %w", expr, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Active reports whether the filter would change anything
func (f *Filter) Active() bool {
	return len(f.contentIncludes)+len(f.contentExcludes)+len(f.verbIncludes)+len(f.verbExcludes) > 0
}

func (f *Filter) acceptsContentType(ct string) bool {
	for _, re := range f.contentExcludes {
		if re.MatchString(ct) {
			return false
		}
	}
	if len(f.contentIncludes) == 0 {
		return true
	}
	for _, re := range f.contentIncludes {
		if re.MatchString(ct) {
			return true
		}
	}
	return false
}

func (f *Filter) acceptsVerb(v Verb) bool {
	if f.verbExcludes[v] {
		return false
	}
	return len(f.verbIncludes) == 0 || f.verbIncludes[v]
}

// Apply filters the documents in place and returns the documents that still
// contain endpoints. Endpoints left without methods or children are pruned.
func (f *Filter) Apply(roots []*Root) []*Root {
	if !f.Active() {
		return roots
	}

	var out []*Root
	for _, r := range roots {
		r.Endpoints = f.endpoints(r.Endpoints)
		if len(r.Endpoints) > 0 {
			out = append(out, r)
		}
	}
	return out
}

func (f *Filter) endpoints(in []*Endpoint) []*Endpoint {
	var out []*Endpoint
	for _, e := range in {
		e.Methods = f.methods(e.Methods)
		e.Children = f.endpoints(e.Children)
		if len(e.Methods) > 0 || len(e.Children) > 0 {
			out = append(out, e)
		}
	}
	return out
}

func (f *Filter) methods(in []*Method) []*Method {
	var out []*Method
	for _, m := range in {
		if !f.acceptsVerb(m.Verb) {
			continue
		}

		declared := len(m.Requests) + len(m.Responses)

		var requests []*Request
		for _, req := range m.Requests {
			if f.acceptsContentType(req.ContentType) {
				requests = append(requests, req)
			}
		}
		m.Requests = requests

		var responses []*Response
		for _, resp := range m.Responses {
			var contents []*Content
			for _, c := range resp.Contents {
				if f.acceptsContentType(c.ContentType) {
					contents = append(contents, c)
				}
			}
			if len(resp.Contents) > 0 && len(contents) == 0 {
				continue
			}
			resp.Contents = contents
			responses = append(responses, resp)
		}
		m.Responses = responses

		// methods declared without shapes are kept; they are filled in later
		if declared > 0 && len(m.Requests)+len(m.Responses) == 0 {
			continue
		}
		out = append(out, m)
	}
	return out
}
