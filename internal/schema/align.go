package schema

import (
	"fmt"

	"httpgen/internal/errs"
	"httpgen/internal/model"
)

// Align walks the plan and the compiled type tree together and attaches the
// compiled types to the declared leaves.
//
// Containers are matched by name and may be absent. Leaves must be present
// and wrap exactly one element. Every compiled child must be consumed.
func Align(p *Plan, elements []*model.Element) error {
	for _, r := range p.Roots {
		r.Globals = map[string]*model.Element{}
	}
	return alignEntries("", p.Entries, elements)
}

func alignEntries(path string, entries []*Marker, children []*model.Element) error {
	pos := 0

	for _, m := range entries {
		switch {
		case m.Kind == KindFragment:
			delimiter := m.DelimiterName()
			start := pos
			for pos < len(children) && children[pos].Name != delimiter {
				pos++
			}
			if pos == len(children) {
				return &errs.AlignmentError{Path: join(path, delimiter), Msg: "fragment delimiter not found"}
			}
			m.bindFragment(children[start:pos])
			pos++

		case m.Kind.IsLeaf():
			if pos >= len(children) || children[pos].Name != m.Name {
				return &errs.AlignmentError{Path: join(path, m.Name), Msg: fmt.Sprintf("compiled %s element is missing", m.Kind)}
			}
			el := children[pos]
			pos++
			if len(el.Children) != 1 {
				return &errs.AlignmentError{
					Path:     join(path, m.Name),
					Expected: 1,
					Actual:   len(el.Children),
					Msg:      "a leaf must compile to exactly one element",
				}
			}
			*m.target = &model.Resolution{Element: el.Children[0], Required: el.Children[0].IsRequired()}

		default:
			if pos < len(children) && children[pos].Name == m.Name {
				el := children[pos]
				pos++
				if err := alignEntries(join(path, m.Name), m.Children, el.Children); err != nil {
					return err
				}
				continue
			}
			for _, later := range children[pos:] {
				if later.Name == m.Name {
					return &errs.AlignmentError{Path: join(path, m.Name), Msg: "compiled element is out of order"}
				}
			}
			// absent containers produced no content
		}
	}

	if pos != len(children) {
		return &errs.AlignmentError{
			Path:     path,
			Expected: pos,
			Actual:   len(children),
			Msg:      "compiled element has more children than were externalized",
		}
	}
	return nil
}

func (m *Marker) bindFragment(definitions []*model.Element) {
	switch {
	case m.root != nil:
		for _, d := range definitions {
			m.root.Globals[d.Name] = d
		}
	case m.endpoint != nil:
		m.endpoint.Definitions = append([]*model.Element(nil), definitions...)
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "/" + name
}

// BindJSONSchema attaches JSON schema fragments to the declared leaves. The
// document must already be denormalized. Elements are looked up by name in
// each object's properties.
func BindJSONSchema(p *Plan, document map[string]interface{}) error {
	return bindProperties("", p.Entries, document)
}

func bindProperties(path string, entries []*Marker, node map[string]interface{}) error {
	props, _ := node["properties"].(map[string]interface{})

	for _, m := range entries {
		if m.Kind == KindFragment {
			continue
		}
		child, ok := props[m.Name].(map[string]interface{})

		if !m.Kind.IsLeaf() {
			if !ok {
				continue
			}
			if err := bindProperties(join(path, m.Name), m.Children, child); err != nil {
				return err
			}
			continue
		}

		if !ok {
			return &errs.AlignmentError{Path: join(path, m.Name), Msg: fmt.Sprintf("compiled %s schema is missing", m.Kind)}
		}
		leafProps, _ := child["properties"].(map[string]interface{})
		if len(leafProps) != 1 {
			return &errs.AlignmentError{
				Path:     join(path, m.Name),
				Expected: 1,
				Actual:   len(leafProps),
				Msg:      "a leaf must compile to exactly one property",
			}
		}

		required := requiredSet(child)
		for name, value := range leafProps {
			schema, ok := value.(map[string]interface{})
			if !ok {
				return &errs.AlignmentError{Path: join(path, m.Name+"/"+name), Msg: "schema is not an object"}
			}
			res := *m.target
			if res == nil {
				res = &model.Resolution{}
				*m.target = res
			}
			res.Schema = schema
			res.Required = required[name]
		}
	}
	return nil
}

func requiredSet(node map[string]interface{}) map[string]bool {
	out := make(map[string]bool)
	switch list := node["required"].(type) {
	case []interface{}:
		for _, v := range list {
			if s, ok := v.(string); ok {
				out[s] = true
			}
		}
	case []string:
		for _, s := range list {
			out[s] = true
		}
	}
	return out
}
