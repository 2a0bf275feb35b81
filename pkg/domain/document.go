package domain

import (
	"regexp"
	"strings"
	"time"
)

var canonicalIDDisallowed = regexp.MustCompile(`[ /\-]`)

// CanonicalID is the deduplication key for a document, derived from
// (documentType, identifier) by lowercasing and replacing [ /-] with _.
func CanonicalID(documentType, identifier string) string {
	raw := strings.ToLower(documentType) + "_" + strings.ToLower(identifier)
	return canonicalIDDisallowed.ReplaceAllString(raw, "_")
}

// DocumentMetadata carries the mutable, mergeable bookkeeping around an
// immutable document body.
type DocumentMetadata struct {
	DocumentType          string          `json:"document_type"`
	Identifier            string          `json:"identifier"`
	ReferencedInWorkflows StringSet       `json:"referenced_in_workflows"`
	UserGoalsContext      StringSet       `json:"user_goals_context"`
	DrugNamesContext      StringSet       `json:"drug_names_context"`
	DiseaseNamesContext   StringSet       `json:"disease_names_context"`
	FirstSeen             time.Time       `json:"first_seen"`
	LastSeen              time.Time       `json:"last_seen"`
}

// ReferenceCount returns |referenced_in_workflows|, kept consistent with
// ReferencedInWorkflows by construction.
func (m *DocumentMetadata) ReferenceCount() int {
	return len(m.ReferencedInWorkflows)
}

// Document is an immutable body plus mergeable metadata, keyed by CanonicalID.
type Document struct {
	ID       string           `json:"id"`
	Body     string           `json:"body"`
	Metadata DocumentMetadata `json:"metadata"`
}

// StringSet is a set of strings with deterministic (sorted) iteration via
// Slice, used so that merge operations have set semantics regardless of
// insertion order.
type StringSet map[string]struct{}

// NewStringSet builds a StringSet from a slice of values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		if v != "" {
			s[v] = struct{}{}
		}
	}
	return s
}

// Add inserts a value into the set.
func (s StringSet) Add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

// Union returns a new set containing the members of both sets.
func (s StringSet) Union(other StringSet) StringSet {
	out := make(StringSet, len(s)+len(other))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range other {
		out[k] = struct{}{}
	}
	return out
}

// Contains reports set membership.
func (s StringSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Slice returns a sorted slice of the set's members.
func (s StringSet) Slice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sortStrings(out)
	return out
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
