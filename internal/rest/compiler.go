// Package rest adds JSON:API request and response contracts to classified
// endpoint trees.
package rest

import (
	"strings"

	"httpgen/internal/config"
	"httpgen/internal/errs"
	"httpgen/internal/logger"
	"httpgen/internal/model"
)

// Compiler decorates endpoint trees for one run
type Compiler struct {
	cfg         config.RestConfig
	conditional map[model.Verb]bool

	roots    []*model.Root
	groups   map[string]*model.RelationalMetadata
	filename string

	// schema definitions emitted into the current document
	defined map[string]bool
	aux     strings.Builder
}

// New creates a Compiler for a single run
func New(cfg config.RestConfig) *Compiler {
	c := &Compiler{
		cfg:         cfg,
		conditional: make(map[model.Verb]bool),
	}
	for _, raw := range cfg.IfUnmodifiedSinceHeaderVerbs {
		if verb, err := model.ParseVerb(raw); err == nil {
			c.conditional[verb] = true
		}
	}
	return c
}

// Decorate returns a decorated copy of each document. The sources must be
// classified and carry relational metadata; they are not modified.
func (c *Compiler) Decorate(roots []*model.Root) ([]*model.Root, error) {
	c.index(roots)

	out := make([]*model.Root, 0, len(roots))
	for _, src := range roots {
		c.filename = src.Filename
		c.defined = make(map[string]bool)
		c.aux.Reset()

		dst := src.Clone()
		if !c.cfg.NoScrub {
			dst.SimpleSchemaContent = ""
			for _, e := range dst.Endpoints {
				e.Walk(func(e *model.Endpoint) error {
					e.Context = ""
					return nil
				})
			}
		}

		for i := range src.Endpoints {
			if err := c.decorateEndpoint(src.Endpoints[i], dst.Endpoints[i]); err != nil {
				return nil, err
			}
		}

		content := dst.SimpleSchemaContent
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += GlobalSchema + c.aux.String()

		out = append(out, model.NewRoot(dst.Filename, strings.TrimRight(content, "\n")+"\n", dst.Endpoints...))
		logger.Debug("Decorated %s with %d schema definitions", src.Filename, len(c.defined))
	}
	return out, nil
}

func (c *Compiler) index(roots []*model.Root) {
	c.roots = roots
	c.groups = make(map[string]*model.RelationalMetadata)
	for _, r := range roots {
		r.Walk(func(e *model.Endpoint) error {
			if e.Metadata != nil {
				c.groups[e.Metadata.Group] = e.Metadata
			}
			return nil
		})
	}
}

// lookup returns the metadata of a group, reading it from the compiled
// globals when no endpoint of the group has been seen
func (c *Compiler) lookup(group string) (*model.RelationalMetadata, error) {
	if md, ok := c.groups[group]; ok {
		return md, nil
	}
	name := model.MetadataElementName(group)
	for _, r := range c.roots {
		el, ok := r.Globals[name]
		if !ok {
			continue
		}
		md, err := model.ExtractMetadata(group, el)
		if err != nil {
			return nil, err
		}
		c.groups[group] = md
		return md, nil
	}
	return nil, errs.Configf("the simple_schema_content does not define %q", name)
}

func (c *Compiler) decorateEndpoint(src, dst *model.Endpoint) error {
	if len(src.Methods) > 0 {
		if src.Metadata == nil {
			return errs.Configf("no relational metadata is attached to the group %q", src.Group).At(c.filename, src.FullURI)
		}
		p, err := c.processorFor(src.Type)
		if err != nil {
			return located(err, c.filename, src.FullURI)
		}

		for i, sm := range src.Methods {
			dm := dst.Methods[i]

			switch sm.Verb {
			case model.VerbPost:
				err = p.OnPost(src, dst, dm)
			case model.VerbGet:
				err = p.OnGet(src, dst, dm)
			case model.VerbPatch:
				err = p.OnPatch(src, dst, dm)
			case model.VerbDelete:
				err = p.OnDelete(src, dst, dm)
			default:
				err = errs.Configf("unsupported verb %q", sm.Verb)
			}
			if err != nil {
				return located(err, c.filename, src.FullURI)
			}

			if c.conditional[dm.Verb] {
				createResponses(dm, 412)
			}
		}
	}

	for i := range src.Children {
		if err := c.decorateEndpoint(src.Children[i], dst.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

func located(err error, filename, uri string) error {
	if ce, ok := err.(*errs.ConfigurationError); ok {
		return ce.At(filename, uri)
	}
	return err
}

// define appends text to the current document unless name is already
// defined there
func (c *Compiler) define(name, text string) {
	if c.defined[name] {
		return
	}
	c.defined[name] = true
	c.aux.WriteString(text)
}

func (c *Compiler) defineID(md *model.RelationalMetadata) {
	c.define(typeName(md.Group)+"_id", idSchema(md))
}

// defineItem emits the id, attributes and item types of the endpoint's group
// together with the relationship aliases they use
func (c *Compiler) defineItem(e *model.Endpoint) error {
	md := e.Metadata
	c.defineID(md)
	c.define(typeName(md.Group)+"_attributes", attributesSchema(md))

	rels := linkedRelationships(e)
	for _, lr := range rels {
		if err := c.defineRelationship(md, lr.rel); err != nil {
			return err
		}
	}
	c.define(typeName(md.Group)+"_item", itemSchema(md, rels))
	return nil
}

func (c *Compiler) defineRelationship(md *model.RelationalMetadata, rel *model.Relationship) error {
	target, err := c.lookup(rel.Target)
	if err != nil {
		return err
	}
	c.defineID(target)
	c.define(relationshipItemName(md.Group, rel), relationshipAlias(md, rel))
	return nil
}

// linkedRelationships lists the references and backrefs of the endpoint's
// group that are not implied by the URI nesting
func linkedRelationships(e *model.Endpoint) []linkedRelationship {
	implied := make(map[string]bool)
	for _, a := range e.Ancestors() {
		implied[a.Group] = true
	}

	var out []linkedRelationship
	for _, rel := range e.Metadata.References {
		if !implied[rel.Target] {
			out = append(out, linkedRelationship{rel: rel, kind: "Reference"})
		}
	}
	for _, rel := range e.Metadata.Backrefs {
		if !implied[rel.Target] {
			out = append(out, linkedRelationship{rel: rel, kind: "Backref"})
		}
	}
	return out
}

// relationship resolves the relationship a Reference* or Backref* endpoint
// exposes. Item endpoints are keyed by their parent collection.
func (c *Compiler) relationship(e *model.Endpoint) (*model.Relationship, error) {
	keyed := e
	if e.Type == model.ReferenceCollectionItem || e.Type == model.BackrefCollectionItem {
		if e.Parent == nil {
			return nil, errs.Configf("%s endpoints must be nested in a collection", e.Type)
		}
		keyed = e.Parent
	}
	key := keyed.Segment()

	var (
		rel  *model.Relationship
		ok   bool
		kind = "reference"
	)
	if e.Type.IsBackref() {
		kind = "backref"
		rel, ok = e.Metadata.Backref(key)
	} else {
		rel, ok = e.Metadata.Reference(key)
	}
	if !ok {
		return nil, errs.Configf("the %s %q is not defined for the group %q", kind, key, e.Metadata.Group)
	}

	if err := c.defineRelationship(e.Metadata, rel); err != nil {
		return nil, err
	}
	return rel, nil
}
