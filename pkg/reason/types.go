package reason

import (
	"strings"

	"github.com/triplehop/triplehop/pkg/common"
)

// Path is an acyclic walk through the graph, rooted at one of the question's
// candidate entities. Paths are transient: they live for one query execution
// and are never persisted.
type Path struct {
	// Root is the candidate entity the expansion started from.
	Root string
	// Nodes is the entity sequence from the root, length hops+1.
	Nodes []string
	// Triples are the stored edges along the walk, in traversal order.
	Triples []common.Triple

	// Similarity is the cosine similarity of the path rendering to the
	// question, set during ranking.
	Similarity float64
	// Score is Similarity minus the length penalty, set during ranking.
	Score float64
}

// Length returns the hop count of the path.
func (p Path) Length() int {
	return len(p.Triples)
}

// Render returns the human-readable chain for the path, e.g.
// "(transformer) --[uses]--> (attention) | (attention) --[citedBy]--> (paperX)".
func (p Path) Render() string {
	parts := make([]string, 0, len(p.Triples))
	for _, t := range p.Triples {
		parts = append(parts, t.Render())
	}
	return strings.Join(parts, " | ")
}

// ResolvedEntity is a recognizer candidate that resolved to a graph entity,
// with the confidence the recognizer assigned to it.
type ResolvedEntity struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// EvidenceTriple is one assembled context triple together with the rank and
// rendering of the path it was drawn from, preserved for answer grounding.
type EvidenceTriple struct {
	common.Triple
	PathRank      int    `json:"path_rank"`
	PathRendering string `json:"path_rendering"`
}

// QueryContext is the per-request aggregate threaded through the pipeline
// stages. It is created when a question arrives, mutated by each stage in
// sequence, and discarded after the response is returned. Requests never
// share a QueryContext.
type QueryContext struct {
	ID       string
	Question string

	Entities []ResolvedEntity
	Paths    []Path
	Ranked   []Path
	Evidence []EvidenceTriple

	// RankingDegraded is set when the embedding service was unavailable and
	// ranking fell back to shortest-first ordering.
	RankingDegraded bool

	Answer     string
	Confidence float64
}

// Result is the response payload returned to the caller.
type Result struct {
	Answer          string   `json:"answer"`
	Confidence      float64  `json:"confidence"`
	Entities        []string `json:"entities_used"`
	Paths           []string `json:"paths_used"`
	TripleCount     int      `json:"triple_count"`
	RankingDegraded bool     `json:"ranking_degraded,omitempty"`
}
