package common

import "strings"

// Entity represents a named node in the knowledge graph. An entity can be a
// concept, person, organization, or any other thing the ingestion pipeline
// extracted. Entities are immutable from the query engine's perspective and
// are looked up by canonical name or alias.
type Entity struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Type    string   `json:"type,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

// Triple represents a directed labeled edge (subject, predicate, object)
// between two entities. SourceRef optionally points at the provenance record
// the ingestion pipeline stored for the edge.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	SourceRef string `json:"source_ref,omitempty"`
}

// Key returns the case-insensitive identity of the triple, used for
// deduplication by (subject, predicate, object).
func (t Triple) Key() string {
	return strings.ToLower(strings.TrimSpace(t.Subject)) + "\x00" +
		strings.ToLower(strings.TrimSpace(t.Predicate)) + "\x00" +
		strings.ToLower(strings.TrimSpace(t.Object))
}

// Render returns the human-readable form of the triple, e.g.
// "(transformer) --[uses]--> (attention)".
func (t Triple) Render() string {
	return "(" + t.Subject + ") --[" + t.Predicate + "]--> (" + t.Object + ")"
}

// NormalizeName canonicalizes an entity name for matching: trimmed,
// lower-cased, inner whitespace collapsed. Graph lookups and candidate
// deduplication all go through this so matching stays case and whitespace
// insensitive.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
