package model

import (
	"fmt"
	"sort"
	"strings"

	"httpgen/internal/errs"
)

// Validate checks the URI/variable consistency of every endpoint in the
// document along with the declared verbs
func (r *Root) Validate() error {
	for _, e := range r.Endpoints {
		if err := e.validate(r.Filename, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Endpoint) validate(filename string, inherited map[string]bool) error {
	fail := func(format string, args ...interface{}) error {
		return &errs.ConfigurationError{Filename: filename, URI: e.FullURI, Msg: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(e.URI) == "" {
		return fail("the endpoint does not define a uri")
	}

	placeholders := make(map[string]bool)
	for _, name := range URIParameters(e.URI) {
		if placeholders[name] {
			return fail("the uri variable %q has already been defined", name)
		}
		placeholders[name] = true
	}

	declared := make(map[string]bool)
	for _, v := range e.Variables {
		if !placeholders[v.Name] {
			return fail("the variable %q was not found in the uri %q", v.Name, e.URI)
		}
		if declared[v.Name] {
			return fail("the variable %q has already been defined", v.Name)
		}
		declared[v.Name] = true
	}

	var missing []string
	for name := range placeholders {
		if !declared[name] {
			missing = append(missing, fmt.Sprintf("%q", name))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fail("the uri variables %s were not defined", strings.Join(missing, ", "))
	}

	scope := make(map[string]bool, len(inherited)+len(e.Variables))
	for name := range inherited {
		scope[name] = true
	}
	for _, v := range e.Variables {
		if scope[v.Name] {
			return fail("the variable %q has already been defined by an ancestor", v.Name)
		}
		scope[v.Name] = true
	}

	verbs := make(map[Verb]bool)
	for _, m := range e.Methods {
		verb, err := ParseVerb(string(m.Verb))
		if err != nil {
			return fail("%v", err)
		}
		if verbs[verb] {
			return fail("the verb %s has already been defined", verb)
		}
		verbs[verb] = true
		m.Verb = verb
	}

	for _, child := range e.Children {
		if err := child.validate(filename, scope); err != nil {
			return err
		}
	}
	return nil
}

// CheckUniqueNames fails when two endpoints, in the same or different
// documents, share a unique name
func CheckUniqueNames(roots []*Root) error {
	seen := make(map[string]string)

	for _, r := range roots {
		err := r.Walk(func(e *Endpoint) error {
			if prev, ok := seen[e.UniqueName]; ok {
				return &errs.ConfigurationError{
					Filename: r.Filename,
					URI:      e.FullURI,
					Msg:      fmt.Sprintf("the unique name %q collides with an endpoint defined in %s", e.UniqueName, prev),
				}
			}
			seen[e.UniqueName] = r.Filename
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
