package reason

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/triplehop/triplehop/pkg/ai"
	"github.com/triplehop/triplehop/pkg/common"
	"github.com/triplehop/triplehop/pkg/graphstore"
	"github.com/triplehop/triplehop/pkg/graphstore/memory"
)

// fakeAIClient is a deterministic ai.QueryAIClient for pipeline tests.
// Embeddings are looked up by input text; unknown inputs get a unit vector
// so every path scores a similarity of 1 against the default question.
type fakeAIClient struct {
	mu sync.Mutex

	entities   []string
	extractErr error

	answer    string
	answerErr error

	embeddings   map[string][]float32
	embedErr     error
	embedFailFor map[string]bool

	completionCalls int
	embedCalls      int
}

func (f *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	f.mu.Lock()
	f.completionCalls++
	f.mu.Unlock()
	if f.answerErr != nil {
		return "", f.answerErr
	}
	return f.answer, nil
}

func (f *fakeAIClient) GenerateCompletionWithFormat(ctx context.Context, name string, description string, prompt string, out any, opts ...ai.GenerateOption) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	data, err := json.Marshal(map[string][]string{"entities": f.entities})
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakeAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	f.mu.Lock()
	f.embedCalls++
	f.mu.Unlock()
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if f.embedFailFor[string(input)] {
		return nil, errors.New("embedding failed for input")
	}
	if vec, ok := f.embeddings[string(input)]; ok {
		return vec, nil
	}
	return []float32{1, 0}, nil
}

func (f *fakeAIClient) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	out := make([][]float32, 0, len(inputs))
	for _, input := range inputs {
		vec, err := f.GenerateEmbedding(ctx, input)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (f *fakeAIClient) Metrics() ai.ModelMetrics { return ai.ModelMetrics{} }
func (f *fakeAIClient) ResetMetrics()            {}

func (f *fakeAIClient) completions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completionCalls
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	cfg.RetryBackoff = time.Millisecond
	cfg.ContextTokenBudget = 0
	return cfg
}

// citationGraph is a small fixture: transformer --uses--> attention
// --citedBy--> paperX, plus an isolated "quantum" entity.
func citationGraph() *memory.Store {
	s := memory.New()
	s.AddTriple(common.Triple{Subject: "transformer", Predicate: "uses", Object: "attention", SourceRef: "doc1"})
	s.AddTriple(common.Triple{Subject: "attention", Predicate: "citedBy", Object: "paperX", SourceRef: "doc2"})
	s.AddEntity(common.Entity{Name: "quantum"})
	return s
}

func newTestEngine(t *testing.T, store graphstore.GraphStore, client *fakeAIClient, cfg Config) *Engine {
	t.Helper()
	engine, err := NewEngine(NewEngineParams{
		Store:    store,
		AIClient: client,
		Config:   cfg,
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	if _, err := NewEngine(NewEngineParams{AIClient: &fakeAIClient{}}); err == nil {
		t.Fatal("expected error for missing store")
	}
	if _, err := NewEngine(NewEngineParams{Store: memory.New()}); err == nil {
		t.Fatal("expected error for missing ai client")
	}
}

func TestAnswer_MultiHop(t *testing.T) {
	client := &fakeAIClient{
		entities: []string{"transformer"},
		answer:   "Transformers connect to paperX through the attention mechanism.",
	}
	engine := newTestEngine(t, citationGraph(), client, testConfig())

	result, err := engine.Answer(context.Background(), "What connects transformer and paperX?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if result.Answer != client.answer {
		t.Fatalf("Answer = %q, want %q", result.Answer, client.answer)
	}
	if result.Confidence != 1.0 {
		t.Fatalf("Confidence = %v, want 1.0", result.Confidence)
	}
	if !reflect.DeepEqual(result.Entities, []string{"transformer"}) {
		t.Fatalf("Entities = %v, want [transformer]", result.Entities)
	}
	// Direct hop plus the two-hop extension, deduplicated to two triples.
	if result.TripleCount != 2 {
		t.Fatalf("TripleCount = %d, want 2", result.TripleCount)
	}
	if result.RankingDegraded {
		t.Fatal("expected ranking not degraded")
	}
	if len(result.Paths) != 2 {
		t.Fatalf("Paths = %v, want 2 contributing paths", result.Paths)
	}
}

func TestAnswer_NoEntitiesExtracted(t *testing.T) {
	client := &fakeAIClient{entities: []string{}}
	engine := newTestEngine(t, citationGraph(), client, testConfig())

	result, err := engine.Answer(context.Background(), "What is the meaning of life?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
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

func TestAnswer_ExtractionFailure(t *testing.T) {
	client := &fakeAIClient{extractErr: errors.New("model overloaded")}
	engine := newTestEngine(t, citationGraph(), client, testConfig())

	result, err := engine.Answer(context.Background(), "What uses attention?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if result.Answer != NoKnowledgeAnswer {
		t.Fatalf("Answer = %q, want no-knowledge response", result.Answer)
	}
}

func TestAnswer_UnknownEntities(t *testing.T) {
	client := &fakeAIClient{entities: []string{"blockchain"}}
	engine := newTestEngine(t, citationGraph(), client, testConfig())

	result, err := engine.Answer(context.Background(), "What is blockchain?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if result.Answer != NoKnowledgeAnswer {
		t.Fatalf("Answer = %q, want no-knowledge response", result.Answer)
	}
	if client.completions() != 0 {
		t.Fatalf("generation service invoked %d times, want 0", client.completions())
	}
}

func TestAnswer_IsolatedEntityHasNoPaths(t *testing.T) {
	client := &fakeAIClient{entities: []string{"quantum"}}
	engine := newTestEngine(t, citationGraph(), client, testConfig())

	result, err := engine.Answer(context.Background(), "What is quantum related to?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if result.Answer != NoKnowledgeAnswer {
		t.Fatalf("Answer = %q, want no-knowledge response", result.Answer)
	}
	if !reflect.DeepEqual(result.Entities, []string{"quantum"}) {
		t.Fatalf("Entities = %v, want [quantum]", result.Entities)
	}
}

func TestAnswer_DegradedRanking(t *testing.T) {
	client := &fakeAIClient{
		entities: []string{"transformer"},
		answer:   "Transformers use attention.",
		embedErr: errors.New("embedding service down"),
	}
	engine := newTestEngine(t, citationGraph(), client, testConfig())

	result, err := engine.Answer(context.Background(), "What does transformer use?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !result.RankingDegraded {
		t.Fatal("expected degraded ranking")
	}
	if result.Answer != client.answer {
		t.Fatalf("Answer = %q, want generated answer", result.Answer)
	}
	// Top path is the direct hop, so confidence sits at the degraded ceiling.
	if result.Confidence != 0.5 {
		t.Fatalf("Confidence = %v, want 0.5", result.Confidence)
	}
}

func TestAnswer_SynthesisFailure(t *testing.T) {
	client := &fakeAIClient{
		entities:  []string{"transformer"},
		answerErr: errors.New("generation timeout"),
	}
	engine := newTestEngine(t, citationGraph(), client, testConfig())

	_, err := engine.Answer(context.Background(), "What does transformer use?")
	if err == nil {
		t.Fatal("expected synthesis error")
	}
	if !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}

	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected *SynthesisError, got %T", err)
	}
	if synthErr.Partial == nil {
		t.Fatal("expected partial result on synthesis failure")
	}
	if synthErr.Partial.Confidence != 0 {
		t.Fatalf("partial Confidence = %v, want 0", synthErr.Partial.Confidence)
	}
	if synthErr.Partial.TripleCount != 2 {
		t.Fatalf("partial TripleCount = %d, want 2", synthErr.Partial.TripleCount)
	}
	if synthErr.Cause() == nil {
		t.Fatal("expected underlying cause")
	}
}

func TestAnswer_Idempotent(t *testing.T) {
	client := &fakeAIClient{
		entities: []string{"transformer"},
		answer:   "Transformers use attention.",
	}
	engine := newTestEngine(t, citationGraph(), client, testConfig())

	first, err := engine.Answer(context.Background(), "What does transformer use?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	second, err := engine.Answer(context.Background(), "What does transformer use?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %+v vs %+v", first, second)
	}
}
