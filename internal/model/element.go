package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Unbounded is the maximum of an arity without an upper limit
const Unbounded = -1

// Element is a node of the compiled type tree
type Element struct {
	Name       string            `yaml:"name" json:"name"`
	Type       string            `yaml:"type,omitempty" json:"type,omitempty"`
	Arity      string            `yaml:"arity,omitempty" json:"arity,omitempty"`
	Reference  string            `yaml:"reference,omitempty" json:"reference,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Children   []*Element        `yaml:"children,omitempty" json:"children,omitempty"`
}

// Resolution is the compiled type information attached to a leaf node.
// Element is set by the type tree backend, Schema by the JSON schema backend.
type Resolution struct {
	Element  *Element
	Schema   map[string]interface{}
	Required bool
}

// Bounds parses the arity into minimum and maximum counts.
// An empty arity is exactly one.
func (e *Element) Bounds() (min, max int, err error) {
	switch a := strings.TrimSpace(e.Arity); a {
	case "":
		return 1, 1, nil
	case "?":
		return 0, 1, nil
	case "*":
		return 0, Unbounded, nil
	case "+":
		return 1, Unbounded, nil
	default:
		if !strings.HasPrefix(a, "{") || !strings.HasSuffix(a, "}") {
			return 0, 0, fmt.Errorf("element %q: invalid arity %q", e.Name, e.Arity)
		}
		parts := strings.Split(a[1:len(a)-1], ",")
		if len(parts) != 2 {
			return 0, 0, fmt.Errorf("element %q: invalid arity %q", e.Name, e.Arity)
		}
		if min, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
			return 0, 0, fmt.Errorf("element %q: invalid arity %q", e.Name, e.Arity)
		}
		if strings.TrimSpace(parts[1]) == "" {
			max = Unbounded
		} else if max, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
			return 0, 0, fmt.Errorf("element %q: invalid arity %q", e.Name, e.Arity)
		}
		if min < 0 || (max != Unbounded && max < min) {
			return 0, 0, fmt.Errorf("element %q: invalid arity %q", e.Name, e.Arity)
		}
		return min, max, nil
	}
}

// Validate checks the arity of the element and its descendants
func (e *Element) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("compiled element without a name")
	}
	if _, _, err := e.Bounds(); err != nil {
		return err
	}
	for _, child := range e.Children {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Min returns the minimum count. Invalid arities count as exactly one.
func (e *Element) Min() int {
	min, _, err := e.Bounds()
	if err != nil {
		return 1
	}
	return min
}

// IsCollection reports whether more than one value may be present
func (e *Element) IsCollection() bool {
	_, max, err := e.Bounds()
	return err == nil && (max == Unbounded || max > 1)
}

// IsOptional reports an arity of exactly zero or one
func (e *Element) IsOptional() bool {
	min, max, err := e.Bounds()
	return err == nil && min == 0 && max == 1
}

// IsRequired reports whether at least one value must be present
func (e *Element) IsRequired() bool {
	return e.Min() >= 1
}

// Child returns the direct child with the given name
func (e *Element) Child(name string) *Element {
	for _, child := range e.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// ArityMarker returns the schema text suffix for the arity, including the
// leading space. Exactly-one arities have no marker.
func (e *Element) ArityMarker() string {
	min, max, err := e.Bounds()
	if err != nil {
		return ""
	}
	switch {
	case min == 1 && max == 1:
		return ""
	case min == 0 && max == 1:
		return " ?"
	case min == 0 && max == Unbounded:
		return " *"
	case min == 1 && max == Unbounded:
		return " +"
	case max == Unbounded:
		return fmt.Sprintf(" {%d,}", min)
	default:
		return fmt.Sprintf(" {%d,%d}", min, max)
	}
}

// Definition renders the element as schema text under the given name
func (e *Element) Definition(name string) string {
	var sb strings.Builder
	e.writeDefinition(&sb, name, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func (e *Element) writeDefinition(sb *strings.Builder, name string, depth int) {
	indent := strings.Repeat("    ", depth)

	sb.WriteString(indent)
	sb.WriteString("<")
	sb.WriteString(name)
	if e.Type != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Type)
	}

	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, " %s=%s", k, e.Attributes[k])
	}

	sb.WriteString(e.ArityMarker())
	sb.WriteString(">")

	if len(e.Children) == 0 {
		sb.WriteString("\n")
		return
	}
	sb.WriteString(":\n")
	for _, child := range e.Children {
		child.writeDefinition(sb, child.Name, depth+1)
	}
}
