package common

import "httpgen/internal/model"

// FlattenedEndpoint is an endpoint with its nesting level for display
type FlattenedEndpoint struct {
	Root     *model.Root
	Endpoint *model.Endpoint
	Indent   int
}

// FlattenTree lists the endpoints of every document in depth-first order
func FlattenTree(roots []*model.Root) []*FlattenedEndpoint {
	var rows []*FlattenedEndpoint
	for _, r := range roots {
		for _, e := range r.Endpoints {
			recursiveTraverse(r, e, 0, &rows)
		}
	}
	return rows
}

func recursiveTraverse(r *model.Root, e *model.Endpoint, indent int, rows *[]*FlattenedEndpoint) {
	*rows = append(*rows, &FlattenedEndpoint{Root: r, Endpoint: e, Indent: indent})
	for _, child := range e.Children {
		recursiveTraverse(r, child, indent+1, rows)
	}
}
