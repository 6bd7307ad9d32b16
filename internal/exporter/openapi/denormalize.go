package openapi

import (
	"fmt"
	"reflect"
	"strings"
)

// Denormalize replaces every {"$ref": "#/..."} node of a JSON schema document
// with the referenced schema merged with the node's own keys, which win.
// The "definitions" section is removed afterwards.
//
// Each node is resolved once. A reference back to a node that is still being
// resolved links to that node, so recursive schemas become cyclic graphs.
func Denormalize(doc map[string]interface{}) (map[string]interface{}, error) {
	d := &denormalizer{
		root:   doc,
		done:   make(map[uintptr]bool),
		active: make(map[uintptr]bool),
	}
	if err := d.object(doc); err != nil {
		return nil, err
	}
	delete(doc, "definitions")
	return doc, nil
}

type denormalizer struct {
	root   map[string]interface{}
	done   map[uintptr]bool
	active map[uintptr]bool
}

func (d *denormalizer) object(node map[string]interface{}) error {
	id := reflect.ValueOf(node).Pointer()
	if d.done[id] || d.active[id] {
		return nil
	}
	d.active[id] = true
	defer func() {
		delete(d.active, id)
		d.done[id] = true
	}()

	if ref, ok := node["$ref"].(string); ok {
		target, err := d.lookup(ref)
		if err != nil {
			return err
		}
		if err := d.object(target); err != nil {
			return err
		}
		for k, v := range target {
			if _, exists := node[k]; !exists {
				node[k] = v
			}
		}
		delete(node, "$ref")
	}

	for k, v := range node {
		if err := d.value(v); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
	}
	return nil
}

func (d *denormalizer) value(v interface{}) error {
	switch node := v.(type) {
	case map[string]interface{}:
		return d.object(node)
	case []interface{}:
		for _, child := range node {
			if err := d.value(child); err != nil {
				return err
			}
		}
	}
	return nil
}

// lookup resolves a local JSON pointer such as "#/definitions/Widget"
func (d *denormalizer) lookup(ref string) (map[string]interface{}, error) {
	if !strings.HasPrefix(ref, "#") {
		return nil, fmt.Errorf("unsupported reference %q", ref)
	}

	var current interface{} = d.root
	for _, token := range strings.Split(strings.TrimPrefix(strings.TrimPrefix(ref, "#"), "/"), "/") {
		if token == "" {
			continue
		}
		token = strings.NewReplacer("~1", "/", "~0", "~").Replace(token)

		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unresolved reference %q", ref)
		}
		if current, ok = node[token]; !ok {
			return nil, fmt.Errorf("unresolved reference %q", ref)
		}
	}

	target, ok := current.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("reference %q does not name a schema", ref)
	}
	return target, nil
}
