package rest

import (
	"httpgen/internal/errs"
	"httpgen/internal/model"
)

// Processor adds the contract of one verb to a destination method. src is
// the classified endpoint, dst its declaration copy and m the copy's method.
type Processor interface {
	OnPost(src, dst *model.Endpoint, m *model.Method) error
	OnGet(src, dst *model.Endpoint, m *model.Method) error
	OnPatch(src, dst *model.Endpoint, m *model.Method) error
	OnDelete(src, dst *model.Endpoint, m *model.Method) error
}

func (c *Compiler) processorFor(t model.EndpointType) (Processor, error) {
	switch t {
	case model.Collection:
		return collectionProcessor{c: c}, nil
	case model.CollectionItem:
		return collectionItemProcessor{c: c}, nil
	case model.ReferenceCollection:
		return referenceCollectionProcessor{c: c}, nil
	case model.ReferenceCollectionItem:
		return referenceCollectionItemProcessor{c: c}, nil
	case model.ReferenceItem:
		return referenceItemProcessor{c: c}, nil
	case model.BackrefCollection:
		return backrefCollectionProcessor{c: c}, nil
	case model.BackrefCollectionItem:
		return backrefCollectionItemProcessor{c: c}, nil
	case model.BackrefItem:
		return backrefItemProcessor{c: c}, nil
	default:
		return nil, errs.Configf("the endpoint has not been classified")
	}
}

func violation(e *model.Endpoint, verb model.Verb) error {
	return &errs.ProtocolViolation{EndpointType: e.Type.String(), Verb: string(verb), URI: e.FullURI}
}

// unsupported rejects every verb; processors override what they handle
type unsupported struct{}

func (unsupported) OnPost(src, _ *model.Endpoint, _ *model.Method) error {
	return violation(src, model.VerbPost)
}

func (unsupported) OnGet(src, _ *model.Endpoint, _ *model.Method) error {
	return violation(src, model.VerbGet)
}

func (unsupported) OnPatch(src, _ *model.Endpoint, _ *model.Method) error {
	return violation(src, model.VerbPatch)
}

func (unsupported) OnDelete(src, _ *model.Endpoint, _ *model.Method) error {
	return violation(src, model.VerbDelete)
}

type collectionProcessor struct {
	unsupported
	c *Compiler
}

func (p collectionProcessor) OnPost(src, _ *model.Endpoint, m *model.Method) error {
	if err := p.c.defineItem(src); err != nil {
		return err
	}

	var refs []linkedRelationship
	for _, lr := range linkedRelationships(src) {
		if lr.kind == "Reference" {
			refs = append(refs, lr)
		}
	}

	p.c.addRequest(m, &model.Request{
		ContentType: ContentType,
		Body:        &model.Body{SimpleSchema: constructSchema(src.Metadata, refs)},
	})

	location := &model.Item{
		Name:         "Location",
		Description:  "URI of the created object",
		SimpleSchema: "<location uri>",
	}
	addBody(m, 201, itemBody(typeName(src.Metadata.Group)+"_item", ""), location)
	createResponses(m, 400, 401)
	return nil
}

func (p collectionProcessor) OnGet(src, _ *model.Endpoint, m *model.Method) error {
	if err := p.c.defineItem(src); err != nil {
		return err
	}

	p.c.addRequest(m, &model.Request{
		ContentType: ContentType,
		QueryItems:  p.c.collectionQuery(src, src.Metadata.Attributes),
	})
	addBody(m, 200, collectionBody(typeName(src.Metadata.Group)+"_item", " *"))
	createResponses(m, 400, 401)
	return nil
}

type collectionItemProcessor struct {
	unsupported
	c *Compiler
}

func (p collectionItemProcessor) OnGet(src, _ *model.Endpoint, m *model.Method) error {
	if err := p.c.defineItem(src); err != nil {
		return err
	}

	p.c.addRequest(m, &model.Request{
		ContentType: ContentType,
		QueryItems:  fidelityItems(false),
	})
	addBody(m, 200, itemBody(typeName(src.Metadata.Group)+"_item", ""))
	createResponses(m, 400, 401, 404)
	return nil
}

func (p collectionItemProcessor) OnPatch(src, _ *model.Endpoint, m *model.Method) error {
	if len(src.Metadata.Mutable) == 0 {
		return errs.Configf("PATCH requires mutable items, but the group %q does not define any", src.Metadata.Group)
	}
	if err := p.c.defineItem(src); err != nil {
		return err
	}

	p.c.addRequest(m, &model.Request{
		ContentType: ContentType,
		Body:        &model.Body{SimpleSchema: updateSchema(src.Metadata)},
	})
	createResponses(m, 204, 400, 401, 404)
	return nil
}

func (p collectionItemProcessor) OnDelete(_, _ *model.Endpoint, m *model.Method) error {
	p.c.addRequest(m, &model.Request{ContentType: ContentType})
	createResponses(m, 204, 401, 404)
	return nil
}

// relationshipGet handles the GET of every Reference* and Backref* type.
// collection selects the collection document, otherwise an item document
// whose arity follows the relationship.
func (c *Compiler) relationshipGet(src *model.Endpoint, m *model.Method, collection bool) error {
	rel, err := c.relationship(src)
	if err != nil {
		return err
	}
	dataType := relationshipItemName(src.Metadata.Group, rel)

	req := &model.Request{ContentType: ContentType}
	if collection {
		target, err := c.lookup(rel.Target)
		if err != nil {
			return err
		}
		req.QueryItems = c.collectionQuery(src, target.Attributes)
		c.addRequest(m, req)

		arity := " *"
		if rel.Min > 0 {
			arity = " +"
		}
		addBody(m, 200, collectionBody(dataType, arity))
		createResponses(m, 400, 401)
		return nil
	}

	req.QueryItems = fidelityItems(src.Type.IsBackref())
	c.addRequest(m, req)

	arity := ""
	if src.Type == model.ReferenceItem || src.Type == model.BackrefItem {
		arity = dataArity(rel)
	}
	addBody(m, 200, itemBody(dataType, arity))
	createResponses(m, 400, 401, 404)
	return nil
}

func (c *Compiler) relationshipDelete(src *model.Endpoint, m *model.Method) error {
	if _, err := c.relationship(src); err != nil {
		return err
	}
	c.addRequest(m, &model.Request{ContentType: ContentType})
	createResponses(m, 204, 401, 404)
	return nil
}

type referenceCollectionProcessor struct {
	unsupported
	c *Compiler
}

func (p referenceCollectionProcessor) OnPost(src, _ *model.Endpoint, m *model.Method) error {
	rel, err := p.c.relationship(src)
	if err != nil {
		return err
	}

	p.c.addRequest(m, &model.Request{
		ContentType: ContentType,
		Body:        &model.Body{SimpleSchema: "<body>:\n    <data " + relationshipItemName(src.Metadata.Group, rel) + " +>"},
	})
	createResponses(m, 204, 400, 401)
	return nil
}

func (p referenceCollectionProcessor) OnGet(src, _ *model.Endpoint, m *model.Method) error {
	return p.c.relationshipGet(src, m, true)
}

type referenceCollectionItemProcessor struct {
	unsupported
	c *Compiler
}

func (p referenceCollectionItemProcessor) OnGet(src, _ *model.Endpoint, m *model.Method) error {
	return p.c.relationshipGet(src, m, false)
}

func (p referenceCollectionItemProcessor) OnDelete(src, _ *model.Endpoint, m *model.Method) error {
	return p.c.relationshipDelete(src, m)
}

type referenceItemProcessor struct {
	unsupported
	c *Compiler
}

func (p referenceItemProcessor) OnGet(src, _ *model.Endpoint, m *model.Method) error {
	return p.c.relationshipGet(src, m, false)
}

func (p referenceItemProcessor) OnPatch(src, _ *model.Endpoint, m *model.Method) error {
	rel, err := p.c.relationship(src)
	if err != nil {
		return err
	}

	p.c.addRequest(m, &model.Request{
		ContentType: ContentType,
		Body:        &model.Body{SimpleSchema: "<body>:\n    <data " + relationshipItemName(src.Metadata.Group, rel) + dataArity(rel) + ">"},
	})
	createResponses(m, 204, 400, 401, 404)
	return nil
}

func (p referenceItemProcessor) OnDelete(src, _ *model.Endpoint, m *model.Method) error {
	return p.c.relationshipDelete(src, m)
}

type backrefCollectionProcessor struct {
	unsupported
	c *Compiler
}

func (p backrefCollectionProcessor) OnGet(src, _ *model.Endpoint, m *model.Method) error {
	return p.c.relationshipGet(src, m, true)
}

type backrefCollectionItemProcessor struct {
	unsupported
	c *Compiler
}

func (p backrefCollectionItemProcessor) OnGet(src, _ *model.Endpoint, m *model.Method) error {
	return p.c.relationshipGet(src, m, false)
}

type backrefItemProcessor struct {
	unsupported
	c *Compiler
}

func (p backrefItemProcessor) OnGet(src, _ *model.Endpoint, m *model.Method) error {
	return p.c.relationshipGet(src, m, false)
}
