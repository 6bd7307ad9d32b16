package openapi

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"httpgen/internal/config"
	"httpgen/internal/errs"
	"httpgen/internal/logger"
	"httpgen/internal/model"
)

// OpenAPI Root Object
type OpenAPI struct {
	OpenAPI string              `json:"openapi" yaml:"openapi"`
	Info    Info                `json:"info" yaml:"info"`
	Servers []Server            `json:"servers,omitempty" yaml:"servers,omitempty"`
	Tags    []Tag               `json:"tags,omitempty" yaml:"tags,omitempty"`
	Paths   map[string]PathItem `json:"paths" yaml:"paths"`
}

type Info struct {
	Title          string   `json:"title" yaml:"title"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	TermsOfService string   `json:"termsOfService,omitempty" yaml:"termsOfService,omitempty"`
	Contact        *Contact `json:"contact,omitempty" yaml:"contact,omitempty"`
	License        License  `json:"license" yaml:"license"`
	Version        string   `json:"version" yaml:"version"`
}

type Contact struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

type License struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

type Server struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type Tag struct {
	Name string `json:"name" yaml:"name"`
}

type PathItem map[string]*Operation // Key is method: "get", "post", etc.

type Operation struct {
	Tags        []string            `json:"tags,omitempty" yaml:"tags,omitempty"`
	Summary     string              `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	OperationID string              `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses" yaml:"responses"`
}

type Parameter struct {
	Name        string      `json:"name" yaml:"name"`
	In          string      `json:"in" yaml:"in"` // "query", "path", "header"
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool        `json:"required,omitempty" yaml:"required,omitempty"`
	Style       string      `json:"style,omitempty" yaml:"style,omitempty"`
	Schema      interface{} `json:"schema" yaml:"schema"`
}

type RequestBody struct {
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Content     map[string]MediaType `json:"content" yaml:"content"`
	Required    bool                 `json:"required,omitempty" yaml:"required,omitempty"`
}

type MediaType struct {
	Schema interface{} `json:"schema,omitempty" yaml:"schema,omitempty"`
}

type Header struct {
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool        `json:"required,omitempty" yaml:"required,omitempty"`
	Schema      interface{} `json:"schema" yaml:"schema"`
}

type Response struct {
	Description string               `json:"description" yaml:"description"`
	Headers     map[string]Header    `json:"headers,omitempty" yaml:"headers,omitempty"`
	Content     map[string]MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

const defaultContentType = "application/json"

// Builder constructs an OpenAPI document from bound endpoint trees
type Builder struct {
	settings config.SwaggerConfig

	spec       *OpenAPI
	pathParams []Parameter
	tags       map[string]bool
}

// NewBuilder validates the document metadata and returns a Builder
func NewBuilder(settings config.SwaggerConfig) (*Builder, error) {
	if settings.OpenAPIVersion == "" {
		settings.OpenAPIVersion = "3.0.3"
	}
	if err := config.NewValidator().Struct(settings); err != nil {
		return nil, errs.FromValidation("swagger", err)
	}
	return &Builder{settings: settings}, nil
}

// Build emits one document covering every endpoint of the given roots. The
// leaves must carry JSON schema resolutions.
func (b *Builder) Build(roots []*model.Root) (*OpenAPI, error) {
	s := b.settings
	b.spec = &OpenAPI{
		OpenAPI: s.OpenAPIVersion,
		Info: Info{
			Title:          s.Title,
			Description:    s.Description,
			TermsOfService: s.TermsOfService,
			License:        License{Name: s.LicenseName, URL: s.LicenseURI},
			Version:        s.APIVersion,
		},
		Servers: []Server{{URL: s.ServerURI, Description: s.ServerDescription}},
		Paths:   make(map[string]PathItem),
	}
	if s.ContactName != "" || s.ContactURI != "" || s.ContactEmail != "" {
		b.spec.Info.Contact = &Contact{Name: s.ContactName, URL: s.ContactURI, Email: s.ContactEmail}
	}
	b.pathParams = nil
	b.tags = make(map[string]bool)

	for _, r := range roots {
		for _, e := range r.Endpoints {
			b.processEndpoint(e)
		}
	}

	if len(b.spec.Paths) == 0 {
		return nil, errs.Configf("no endpoints were found to describe")
	}
	return b.spec, nil
}

func (b *Builder) processEndpoint(e *model.Endpoint) {
	depth := len(b.pathParams)
	for _, v := range e.Variables {
		b.pathParams = append(b.pathParams, Parameter{
			Name:        v.Name,
			In:          "path",
			Description: v.Description,
			Required:    true,
			Style:       "simple",
			Schema:      b.schema(v.Resolved, e.FullURI),
		})
	}

	if len(e.Methods) > 0 {
		tag := strings.ReplaceAll(e.Group, ".", " > ")
		if !b.tags[tag] {
			b.tags[tag] = true
			b.spec.Tags = append(b.spec.Tags, Tag{Name: tag})
		}

		item := make(PathItem)
		for _, m := range e.Methods {
			item[strings.ToLower(string(m.Verb))] = b.processMethod(e, m, tag)
		}
		b.spec.Paths[e.FullURI] = item
	}

	for _, child := range e.Children {
		b.processEndpoint(child)
	}
	b.pathParams = b.pathParams[:depth]
}

func (b *Builder) processMethod(e *model.Endpoint, m *model.Method, tag string) *Operation {
	op := &Operation{
		Tags:        []string{tag},
		Summary:     m.Summary,
		Description: m.Description,
		OperationID: e.UniqueName + "." + strings.ToLower(string(m.Verb)),
		Responses:   make(map[string]Response),
	}
	if op.Summary == "" {
		op.Summary = e.Summary
	}
	op.Parameters = append(op.Parameters, b.pathParams...)

	// 1. Parameters come from the first request
	var paramKey string
	for i, req := range m.Requests {
		key := parameterKey(req)
		if i == 0 {
			paramKey = key
			op.Parameters = append(op.Parameters, b.parameters(req, e.FullURI)...)
			continue
		}
		if key != paramKey {
			warnLossy(errs.LossyConversionWarning{
				URI:      e.FullURI,
				Verb:     string(m.Verb),
				Original: contentType(m.Requests[0].ContentType),
				Ignored:  contentType(req.ContentType),
				Msg:      "OpenAPI operations share one set of header and query parameters",
			})
		}
	}

	// 2. Request bodies, one media type per request. The first body decides
	// the description and requiredness.
	var first *model.Request
	for _, req := range m.Requests {
		schema, required := b.requestSchema(e, m, req)
		if schema == nil {
			continue
		}
		description := requestDescription(req)
		if op.RequestBody == nil {
			first = req
			op.RequestBody = &RequestBody{
				Description: description,
				Content:     make(map[string]MediaType),
				Required:    required,
			}
		} else {
			lossy := errs.LossyConversionWarning{
				URI:      e.FullURI,
				Verb:     string(m.Verb),
				Original: contentType(first.ContentType),
				Ignored:  contentType(req.ContentType),
			}
			if required != op.RequestBody.Required {
				lossy.Msg = "OpenAPI request bodies share one required flag"
				warnLossy(lossy)
			}
			if description != op.RequestBody.Description {
				lossy.Msg = "OpenAPI request bodies share one description"
				warnLossy(lossy)
			}
		}
		op.RequestBody.Content[contentType(req.ContentType)] = MediaType{Schema: schema}
	}

	// 3. Responses
	for _, resp := range m.Responses {
		op.Responses[strconv.Itoa(resp.Code)] = b.response(e, m, resp)
	}
	return op
}

func (b *Builder) parameters(req *model.Request, uri string) []Parameter {
	var params []Parameter
	for _, h := range req.Headers {
		params = append(params, b.parameter(h, "header", uri))
	}
	for _, q := range req.QueryItems {
		params = append(params, b.parameter(q, "query", uri))
	}
	return params
}

func (b *Builder) parameter(item *model.Item, in, uri string) Parameter {
	return Parameter{
		Name:        item.Name,
		In:          in,
		Description: item.Description,
		Required:    item.Resolved != nil && item.Resolved.Required,
		Schema:      b.schema(item.Resolved, uri),
	}
}

// parameterKey identifies the header and query set of a request
func parameterKey(req *model.Request) string {
	var names []string
	for _, h := range req.Headers {
		names = append(names, "header:"+strings.ToLower(h.Name))
	}
	for _, q := range req.QueryItems {
		names = append(names, "query:"+q.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// requestSchema returns the body schema of a request. Form items take
// precedence over a body.
func (b *Builder) requestSchema(e *model.Endpoint, m *model.Method, req *model.Request) (interface{}, bool) {
	if len(req.FormItems) > 0 {
		if req.Body != nil {
			warnLossy(errs.LossyConversionWarning{
				URI:      e.FullURI,
				Verb:     string(m.Verb),
				Original: "form items",
				Ignored:  "body",
				Msg:      "a request cannot describe both form items and a body",
			})
		}

		props := make(map[string]interface{})
		var required []interface{}
		var names []string
		for _, item := range req.FormItems {
			props[item.Name] = b.schema(item.Resolved, e.FullURI)
			if item.Resolved != nil && item.Resolved.Required {
				names = append(names, item.Name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			required = append(required, name)
		}

		schema := map[string]interface{}{"type": "object", "properties": props}
		if len(required) > 0 {
			schema["required"] = required
		}
		return schema, len(required) > 0
	}

	if req.Body == nil {
		return nil, false
	}
	return b.schema(req.Body.Resolved, e.FullURI), req.Body.Resolved == nil || req.Body.Resolved.Required
}

func requestDescription(req *model.Request) string {
	if len(req.FormItems) == 0 && req.Body != nil && req.Body.Description != "" {
		return req.Body.Description
	}
	return req.Description
}

func (b *Builder) response(e *model.Endpoint, m *model.Method, resp *model.Response) Response {
	out := Response{Description: resp.Description}
	if out.Description == "" {
		out.Description = resp.Summary
	}
	if out.Description == "" {
		out.Description = fmt.Sprintf("Http status code '%d'", resp.Code)
	}

	var headerKey string
	for i, c := range resp.Contents {
		key := headerNames(c.Headers)
		if i == 0 {
			headerKey = key
			for _, h := range c.Headers {
				if out.Headers == nil {
					out.Headers = make(map[string]Header)
				}
				out.Headers[h.Name] = Header{
					Description: h.Description,
					Required:    h.Resolved != nil && h.Resolved.Required,
					Schema:      b.schema(h.Resolved, e.FullURI),
				}
			}
		} else if key != headerKey {
			warnLossy(errs.LossyConversionWarning{
				URI:      e.FullURI,
				Verb:     fmt.Sprintf("%s %d", m.Verb, resp.Code),
				Original: contentType(resp.Contents[0].ContentType),
				Ignored:  contentType(c.ContentType),
				Msg:      "OpenAPI responses share one set of headers",
			})
		}

		if out.Content == nil {
			out.Content = make(map[string]MediaType)
		}
		media := MediaType{}
		if c.Body != nil {
			media.Schema = b.schema(c.Body.Resolved, e.FullURI)
		}
		out.Content[contentType(c.ContentType)] = media
	}
	return out
}

func headerNames(headers []*model.Item) string {
	names := make([]string, 0, len(headers))
	for _, h := range headers {
		names = append(names, strings.ToLower(h.Name))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func contentType(ct string) string {
	if ct == "" {
		return defaultContentType
	}
	return ct
}

// schema returns an acyclic copy of the resolved JSON schema. Unresolved
// items are described as strings.
func (b *Builder) schema(res *model.Resolution, uri string) interface{} {
	if res == nil || res.Schema == nil {
		return map[string]interface{}{"type": "string"}
	}

	cyclic := false
	out := detach(res.Schema, make(map[uintptr]bool), &cyclic)
	if cyclic {
		logger.WarnAttrs("recursive schema truncated to a generic object", "uri", uri)
	}
	return out
}

// detach copies a schema graph. A node that is its own ancestor is replaced
// by a generic object.
func detach(v interface{}, ancestors map[uintptr]bool, cyclic *bool) interface{} {
	switch node := v.(type) {
	case map[string]interface{}:
		id := reflect.ValueOf(node).Pointer()
		if ancestors[id] {
			*cyclic = true
			return map[string]interface{}{"type": "object"}
		}
		ancestors[id] = true
		defer delete(ancestors, id)

		out := make(map[string]interface{}, len(node))
		for k, child := range node {
			out[k] = detach(child, ancestors, cyclic)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(node))
		for i, child := range node {
			out[i] = detach(child, ancestors, cyclic)
		}
		return out
	default:
		return v
	}
}

func warnLossy(w errs.LossyConversionWarning) {
	logger.WarnAttrs(w.String(),
		"uri", w.URI,
		"verb", w.Verb,
		"original", w.Original,
		"ignored", w.Ignored,
	)
}
