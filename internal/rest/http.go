package rest

import (
	"fmt"
	"regexp"

	"httpgen/internal/model"
)

// ContentType of every generated request and response
const ContentType = "application/vnd.api+json"

var statusText = map[int][2]string{
	200: {"OK", "The request was successful."},
	201: {"Created", "The object was created."},
	204: {"No Content", "The request has been processed and there is nothing to return."},
	400: {"Bad Request", "The request parameters are not valid."},
	401: {"Unauthorized", "The request is not authorized."},
	404: {"Not Found", "An object at this endpoint does not exist."},
	412: {"Precondition Failed", "The object has been modified since the time provided in the If-Unmodified-Since header."},
}

// responseContents returns the content list of the response for code,
// creating the response on first use
func responseContents(m *model.Method, code int) *[]*model.Content {
	for _, resp := range m.Responses {
		if resp.Code == code {
			return &resp.Contents
		}
	}

	resp := &model.Response{Code: code}
	if text, ok := statusText[code]; ok {
		resp.Summary = text[0]
		resp.Description = text[1]
	}
	m.Responses = append(m.Responses, resp)
	return &resp.Contents
}

// createResponses adds a body-less content to each code
func createResponses(m *model.Method, codes ...int) {
	for _, code := range codes {
		contents := responseContents(m, code)
		*contents = append(*contents, &model.Content{ContentType: ContentType})
	}
}

func addBody(m *model.Method, code int, schema string, headers ...*model.Item) {
	contents := responseContents(m, code)
	*contents = append(*contents, &model.Content{
		ContentType: ContentType,
		Headers:     headers,
		Body:        &model.Body{SimpleSchema: schema},
	})
}

func fidelityItems(backref bool) []*model.Item {
	items := []*model.Item{{
		Name:         "fidelity",
		Description:  "Specifies the granularity of data associated with the returned object",
		SimpleSchema: "<fidelity Fidelity>",
	}}
	if backref {
		return items
	}
	return append(items,
		&model.Item{
			Name:         "ref_fidelity",
			Description:  "Specifies the granularity of data associated with returned reference relationships",
			SimpleSchema: "<ref_fidelity RefFidelity>",
		},
		&model.Item{
			Name:         "backref_fidelity",
			Description:  "Specifies the granularity of data associated with returned backref relationships",
			SimpleSchema: "<backref_fidelity BackrefFidelity>",
		},
	)
}

// collectionQuery adds sorting and pagination to the fidelity items.
// Sorting is offered only when there is something to sort by.
func (c *Compiler) collectionQuery(e *model.Endpoint, attributes []*model.Element) []*model.Item {
	items := fidelityItems(e.Type.IsBackref())

	if len(attributes) > 0 && !c.cfg.NoSort {
		items = append(items, &model.Item{
			Name:         "sort",
			Description:  `Attribute values used to sort results (example: "attr1,-attr3")`,
			SimpleSchema: "<sort Sort>",
		})
	}
	if !c.cfg.NoPagination {
		items = append(items,
			&model.Item{
				Name:         "page",
				Description:  "Page index (when results are paginated)",
				SimpleSchema: "<page int min=0 ?>",
			},
			&model.Item{
				Name:         "page_size",
				Description:  "Page size (when results are paginated)",
				SimpleSchema: "<page_size int min=1 ?>",
			},
		)
	}
	return items
}

// addRequest attaches the configured headers to req and appends it to m.
// A request left without any content is dropped.
func (c *Compiler) addRequest(m *model.Method, req *model.Request) {
	if c.cfg.AuthenticationScheme != "" {
		req.Headers = append(req.Headers, &model.Item{
			Name:         "Authorization",
			Description:  "Credentials that authenticate the caller",
			SimpleSchema: fmt.Sprintf(`<authorization string validation_expression="%s .+">`, regexp.QuoteMeta(c.cfg.AuthenticationScheme)),
		})
	}
	if c.conditional[m.Verb] {
		arity := ""
		if c.cfg.IfUnmodifiedSinceHeaderIsOptional {
			arity = " ?"
		}
		req.Headers = append(req.Headers, &model.Item{
			Name:         "If-Unmodified-Since",
			Description:  "The request fails when the object has been modified since this time",
			SimpleSchema: "<if_unmodified_since datetime" + arity + ">",
		})
	}

	if len(req.Headers) == 0 && len(req.QueryItems) == 0 && len(req.FormItems) == 0 && req.Body == nil {
		return
	}
	m.Requests = append(m.Requests, req)
}
