package common

import (
	"sort"

	"httpgen/internal/model"
)

// SortMethods returns a copy of the methods in canonical verb order
// (POST, GET, PATCH, DELETE). The input slice is left untouched.
func SortMethods(methods []*model.Method) []*model.Method {
	rank := make(map[model.Verb]int, len(model.Verbs))
	for i, v := range model.Verbs {
		rank[v] = i
	}

	out := make([]*model.Method, len(methods))
	copy(out, methods)
	sort.SliceStable(out, func(i, j int) bool {
		return rank[out[i].Verb] < rank[out[j].Verb]
	})
	return out
}

// ResponseCodes returns the distinct status codes of a method, ascending
func ResponseCodes(m *model.Method) []int {
	seen := make(map[int]bool)
	var codes []int
	for _, r := range m.Responses {
		if !seen[r.Code] {
			seen[r.Code] = true
			codes = append(codes, r.Code)
		}
	}
	sort.Ints(codes)
	return codes
}
