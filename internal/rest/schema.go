package rest

import (
	"fmt"
	"strings"

	"httpgen/internal/model"
)

// GlobalSchema is prepended once to every decorated document
const GlobalSchema = `# GET fields
#
#   id:          id, type
#   identities:  <id>, identities
#   items:       <id>, items
#   full:        <id>, <identities>, <items>
#   complete:    <full> for the entire reference hierarchy
#
(Fidelity enum values=[id, identities, items, full] default=full ?)
(RefFidelity enum values=[none, id, identities, items, full, complete] default=identities ?)
(BackrefFidelity enum values=[none, id, identities, items, full] default=id ?)
(ReferenceRelationshipType enum values=[reference] ?)
(BackrefRelationshipType enum values=[backref] ?)

(Sort string validation_expression="(-?[a-zA-Z0-9_]+)(,(-?[a-zA-Z0-9_]+))*" ?)

(collection_base):
    <links>:
        <self uri>
        <meta>:
            <item_template uri>
            <next uri ?>
            <prev uri ?>

(item_base):
    <links>:
        <self uri>

`

// typeName turns a group into a schema identifier
func typeName(group string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(group)
}

func relationshipItemName(group string, rel *model.Relationship) string {
	return typeName(group) + "_" + rel.Name + "_item"
}

// dataArity is the arity of the data member describing rel
func dataArity(rel *model.Relationship) string {
	switch rel.Cardinality {
	case model.CardinalityMany:
		if rel.Min > 0 {
			return " +"
		}
		return " *"
	case model.CardinalityOptional:
		return " ?"
	default:
		return ""
	}
}

func indentLines(text string, depth int) string {
	prefix := strings.Repeat("    ", depth)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// optional relaxes the lower bound of el to zero
func optional(el *model.Element) *model.Element {
	cp := *el
	switch strings.TrimSpace(el.Arity) {
	case "":
		cp.Arity = "?"
	case "+":
		cp.Arity = "*"
	}
	return &cp
}

func definitions(elements []*model.Element) string {
	defs := make([]string, 0, len(elements))
	for _, el := range elements {
		defs = append(defs, el.Definition(el.Name))
	}
	return strings.Join(defs, "\n")
}

func idSchema(md *model.RelationalMetadata) string {
	g := typeName(md.Group)
	return fmt.Sprintf("(%s_id):\n%s\n    <type enum values=[%s]>\n\n",
		g, indentLines(md.Identities[0].Definition("id"), 1), g)
}

func attributesSchema(md *model.RelationalMetadata) string {
	g := typeName(md.Group)
	attrs := append(append([]*model.Element(nil), md.Identities[1:]...), md.Attributes...)
	if len(attrs) == 0 {
		return fmt.Sprintf("(%s_attributes %s_id): pass\n\n", g, g)
	}
	return fmt.Sprintf("(%s_attributes %s_id):\n    <attributes ?>:\n%s\n\n", g, g, indentLines(definitions(attrs), 2))
}

func relationshipAlias(md *model.RelationalMetadata, rel *model.Relationship) string {
	return fmt.Sprintf("(%s %s_id): pass\n\n", relationshipItemName(md.Group, rel), typeName(rel.Target))
}

type linkedRelationship struct {
	rel  *model.Relationship
	kind string // Reference or Backref
}

func relationshipBlock(md *model.RelationalMetadata, lr linkedRelationship) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<%s ?>:\n", lr.rel.Name)
	fmt.Fprintf(&sb, "    <data %s%s>\n", relationshipItemName(md.Group, lr.rel), dataArity(lr.rel))
	sb.WriteString("    <links>:\n        <self uri>\n        <meta>:\n")
	if lr.rel.Cardinality == model.CardinalityMany {
		sb.WriteString("            <item_template uri>\n            <related_template uri>\n")
	} else {
		sb.WriteString("            <related uri>\n")
	}
	fmt.Fprintf(&sb, "    <meta>:\n        <relationship_type %sRelationshipType>\n", lr.kind)
	return sb.String()
}

func itemSchema(md *model.RelationalMetadata, rels []linkedRelationship) string {
	g := typeName(md.Group)

	var sb strings.Builder
	fmt.Fprintf(&sb, "(%s_item %s_attributes):\n", g, g)
	if len(rels) > 0 {
		sb.WriteString("    <relationships ?>:\n")
		for _, lr := range rels {
			sb.WriteString(indentLines(relationshipBlock(md, lr), 2))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("    <links>:\n        <self uri>\n\n")
	return sb.String()
}

// constructSchema is the POST body of a collection: required identities,
// id included, become optional and are followed by the items and the
// references. Optional identities are left out.
func constructSchema(md *model.RelationalMetadata, refs []linkedRelationship) string {
	g := typeName(md.Group)

	var attrs []*model.Element
	for _, el := range md.Identities {
		if el.IsOptional() {
			continue
		}
		attrs = append(attrs, optional(el))
	}
	attrs = append(attrs, md.Attributes...)

	var sb strings.Builder
	sb.WriteString("<body>:\n    <data>:\n")
	fmt.Fprintf(&sb, "        <type enum values=[%s]>\n", g)
	if len(attrs) > 0 {
		sb.WriteString("        <attributes>:\n")
		sb.WriteString(indentLines(definitions(attrs), 3))
		sb.WriteString("\n")
	}
	if len(refs) > 0 {
		sb.WriteString("        <relationships ?>:\n")
		for _, lr := range refs {
			fmt.Fprintf(&sb, "            <%s>:\n", lr.rel.Name)
			fmt.Fprintf(&sb, "                <data %s%s>\n", relationshipItemName(md.Group, lr.rel), dataArity(lr.rel))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// updateSchema is the PATCH body of a collection item. Every mutable item is
// optional; optional and string items can be reset explicitly.
func updateSchema(md *model.RelationalMetadata) string {
	g := typeName(md.Group)

	var defs []string
	for _, el := range md.Mutable {
		defs = append(defs, optional(el).Definition(el.Name))
		if el.IsOptional() || el.Type == "string" {
			defs = append(defs, fmt.Sprintf("<_%s_reset_value bool ?>", el.Name))
		}
	}
	return fmt.Sprintf("<body>:\n    <data %s_id>:\n        <attributes>:\n%s", g, indentLines(strings.Join(defs, "\n"), 3))
}

func collectionBody(dataType, arity string) string {
	return fmt.Sprintf("<body collection_base>:\n    <data %s%s>", dataType, arity)
}

func itemBody(dataType, arity string) string {
	return fmt.Sprintf("<body item_base>:\n    <data %s%s>", dataType, arity)
}
