package reason

import (
	"context"
	"strings"
	"testing"

	"github.com/triplehop/triplehop/pkg/common"
	"github.com/triplehop/triplehop/pkg/graphstore/memory"
)

func TestSynthesizeAnswer_EmptyEvidenceShortCircuits(t *testing.T) {
	client := &fakeAIClient{answer: "should never be used"}
	engine := newTestEngine(t, memory.New(), client, testConfig())

	qc := &QueryContext{ID: "test", Question: "q"}
	result, err := engine.synthesizeAnswer(context.Background(), qc)
	if err != nil {
		t.Fatalf("synthesizeAnswer() error = %v", err)
	}
	if result.Answer != NoKnowledgeAnswer {
		t.Fatalf("Answer = %q, want no-knowledge response", result.Answer)
	}
	if result.Confidence != 0 {
		t.Fatalf("Confidence = %v, want 0", result.Confidence)
	}
	if client.completions() != 0 {
		t.Fatalf("generation service invoked %d times, want 0", client.completions())
	}
}

func TestConfidence_ClampedToUnitInterval(t *testing.T) {
	engine := newTestEngine(t, memory.New(), &fakeAIClient{}, testConfig())

	p := onehopPath("a", "r", "b")

	p.Score = 1.3
	if got := engine.confidence(&QueryContext{Ranked: []Path{p}}); got != 1.0 {
		t.Fatalf("confidence for score 1.3 = %v, want 1.0", got)
	}

	p.Score = -0.2
	if got := engine.confidence(&QueryContext{Ranked: []Path{p}}); got != 0 {
		t.Fatalf("confidence for score -0.2 = %v, want 0", got)
	}

	p.Score = 0.42
	if got := engine.confidence(&QueryContext{Ranked: []Path{p}}); !almostEqual(got, 0.42) {
		t.Fatalf("confidence for score 0.42 = %v, want 0.42", got)
	}

	if got := engine.confidence(&QueryContext{}); got != 0 {
		t.Fatalf("confidence without ranked paths = %v, want 0", got)
	}
}

func TestConfidence_DegradedCeiling(t *testing.T) {
	engine := newTestEngine(t, memory.New(), &fakeAIClient{}, testConfig())

	direct := onehopPath("a", "r", "b")
	got := engine.confidence(&QueryContext{Ranked: []Path{direct}, RankingDegraded: true})
	if got != engine.cfg.DegradedConfidenceCeiling {
		t.Fatalf("degraded confidence for direct hop = %v, want %v", got, engine.cfg.DegradedConfidenceCeiling)
	}

	long := Path{
		Root:  "a",
		Nodes: []string{"a", "b", "c", "d"},
		Triples: []common.Triple{
			{Subject: "a", Predicate: "r", Object: "b"},
			{Subject: "b", Predicate: "r", Object: "c"},
			{Subject: "c", Predicate: "r", Object: "d"},
		},
	}
	got = engine.confidence(&QueryContext{Ranked: []Path{long}, RankingDegraded: true})
	if got >= engine.cfg.DegradedConfidenceCeiling {
		t.Fatalf("degraded confidence for 3-hop path = %v, want below ceiling", got)
	}
}

func TestRenderPathSection_LimitsAndFormats(t *testing.T) {
	paths := make([]Path, 0, 12)
	for i := 0; i < 12; i++ {
		p := onehopPath("a", "r", "b")
		p.Score = 0.9
		paths = append(paths, p)
	}

	section := renderPathSection(&QueryContext{Ranked: paths})
	lines := strings.Split(section, "\n")
	if len(lines) != maxPromptPaths {
		t.Fatalf("got %d prompt paths, want %d", len(lines), maxPromptPaths)
	}
	if !strings.HasPrefix(lines[0], "Path 1 (relevance: 0.900): ") {
		t.Fatalf("unexpected path line format: %q", lines[0])
	}
}

func TestRenderTripleSection_GroupsByPath(t *testing.T) {
	qc := &QueryContext{
		Evidence: []EvidenceTriple{
			{Triple: common.Triple{Subject: "a", Predicate: "r", Object: "b"}, PathRank: 1, PathRendering: "first"},
			{Triple: common.Triple{Subject: "b", Predicate: "r", Object: "c"}, PathRank: 2, PathRendering: "second"},
			{Triple: common.Triple{Subject: "c", Predicate: "r", Object: "d"}, PathRank: 2, PathRendering: "second"},
		},
	}

	section := renderTripleSection(qc)
	want := "From path 1:\n" +
		"- (a) --[r]--> (b)\n" +
		"From path 2:\n" +
		"- (b) --[r]--> (c)\n" +
		"- (c) --[r]--> (d)"
	if section != want {
		t.Fatalf("renderTripleSection() =\n%s\nwant\n%s", section, want)
	}
}

func TestUsedPathRenderings_DedupedInRankOrder(t *testing.T) {
	qc := &QueryContext{
		Evidence: []EvidenceTriple{
			{Triple: common.Triple{Subject: "a", Predicate: "r", Object: "b"}, PathRank: 1, PathRendering: "first"},
			{Triple: common.Triple{Subject: "b", Predicate: "r", Object: "c"}, PathRank: 2, PathRendering: "second"},
			{Triple: common.Triple{Subject: "c", Predicate: "r", Object: "d"}, PathRank: 2, PathRendering: "second"},
		},
	}

	got := usedPathRenderings(qc)
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("usedPathRenderings() = %v, want [first second]", got)
	}
}
