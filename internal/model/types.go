package model

import (
	"fmt"
	"strings"

	"httpgen/internal/errs"
)

// Verb is an HTTP method supported by the generator
type Verb string

const (
	VerbPost   Verb = "POST"
	VerbGet    Verb = "GET"
	VerbPatch  Verb = "PATCH"
	VerbDelete Verb = "DELETE"
)

// Verbs lists the supported verbs in canonical order
var Verbs = []Verb{VerbPost, VerbGet, VerbPatch, VerbDelete}

// ParseVerb accepts a verb in any case
func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Verbs {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unsupported verb %q", s)
}

// EndpointType is the structural role of an endpoint in the REST hierarchy
type EndpointType int

// Zero value means the endpoint has not been classified.
const (
	Collection EndpointType = iota + 1
	CollectionItem
	ReferenceCollection
	ReferenceCollectionItem
	ReferenceItem
	BackrefCollection
	BackrefCollectionItem
	BackrefItem
)

const contextPrefix = "rest::"

var endpointTypeTokens = []struct {
	token string
	value EndpointType
}{
	{"collection", Collection},
	{"collection_item", CollectionItem},
	{"reference_collection", ReferenceCollection},
	{"reference_collection_item", ReferenceCollectionItem},
	{"reference_item", ReferenceItem},
	{"backref_collection", BackrefCollection},
	{"backref_collection_item", BackrefCollectionItem},
	{"backref_item", BackrefItem},
}

func (t EndpointType) String() string {
	switch t {
	case Collection:
		return "Collection"
	case CollectionItem:
		return "CollectionItem"
	case ReferenceCollection:
		return "ReferenceCollection"
	case ReferenceCollectionItem:
		return "ReferenceCollectionItem"
	case ReferenceItem:
		return "ReferenceItem"
	case BackrefCollection:
		return "BackrefCollection"
	case BackrefCollectionItem:
		return "BackrefCollectionItem"
	case BackrefItem:
		return "BackrefItem"
	default:
		return "Unclassified"
	}
}

// IsBackref reports whether the type describes an inverse relationship
func (t EndpointType) IsBackref() bool {
	return t == BackrefCollection || t == BackrefCollectionItem || t == BackrefItem
}

// IsReference reports whether the type describes a forward relationship
func (t EndpointType) IsReference() bool {
	return t == ReferenceCollection || t == ReferenceCollectionItem || t == ReferenceItem
}

// ParseEndpointType extracts the endpoint type from a context marker such as
// "rest::collection; other". Exactly one recognized token must be present.
func ParseEndpointType(context string) (EndpointType, error) {
	var found EndpointType

	for _, raw := range strings.Split(context, ";") {
		token := strings.TrimPrefix(strings.TrimSpace(raw), contextPrefix)
		if token == "" {
			continue
		}
		for _, candidate := range endpointTypeTokens {
			if candidate.token != token {
				continue
			}
			if found != 0 {
				return 0, errs.Configf("the context %q has multiple endpoint types", context)
			}
			found = candidate.value
		}
	}

	if found == 0 {
		tokens := make([]string, 0, len(endpointTypeTokens))
		for _, candidate := range endpointTypeTokens {
			tokens = append(tokens, candidate.token)
		}
		return 0, errs.Configf("the context %q does not name an endpoint type; expected one of: %s", context, strings.Join(tokens, ", "))
	}
	return found, nil
}

// Classify assigns an EndpointType to every endpoint in the documents
func Classify(roots []*Root) error {
	for _, r := range roots {
		err := r.Walk(func(e *Endpoint) error {
			t, err := ParseEndpointType(e.Context)
			if err != nil {
				if ce, ok := err.(*errs.ConfigurationError); ok {
					return ce.At(r.Filename, e.FullURI)
				}
				return err
			}
			e.Type = t
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
