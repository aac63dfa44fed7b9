package memory

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/triplehop/triplehop/pkg/common"
	"github.com/triplehop/triplehop/pkg/graphstore"
)

func newTestStore() *Store {
	s := New()
	s.AddEntity(common.Entity{Name: "transformer", Type: "model", Aliases: []string{"transformer architecture"}})
	s.AddEntity(common.Entity{Name: "attention", Type: "mechanism"})
	s.AddEntity(common.Entity{Name: "BERT", Type: "model"})
	s.AddTriple(common.Triple{Subject: "transformer", Predicate: "uses", Object: "attention", SourceRef: "paper1"})
	s.AddTriple(common.Triple{Subject: "BERT", Predicate: "basedOn", Object: "transformer"})
	return s
}

func TestResolveEntity_ExactAndAlias(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	got, err := s.ResolveEntity(ctx, "Transformer")
	if err != nil {
		t.Fatalf("ResolveEntity() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "transformer" {
		t.Fatalf("expected transformer, got %+v", got)
	}

	got, err = s.ResolveEntity(ctx, "  transformer   ARCHITECTURE ")
	if err != nil {
		t.Fatalf("ResolveEntity() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "transformer" {
		t.Fatalf("expected alias to resolve to transformer, got %+v", got)
	}

	got, err = s.ResolveEntity(ctx, "unknown")
	if err != nil {
		t.Fatalf("ResolveEntity() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no match, got %+v", got)
	}
}

func TestEntityExists(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tests := []struct {
		name string
		want bool
	}{
		{name: "bert", want: true},
		{name: "Transformer Architecture", want: true},
		{name: "convolution", want: false},
	}
	for _, tc := range tests {
		got, err := s.EntityExists(ctx, tc.name)
		if err != nil {
			t.Fatalf("EntityExists(%q) error = %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("EntityExists(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFuzzyMatch_ShortestFirstAndLimit(t *testing.T) {
	s := New()
	s.AddEntity(common.Entity{Name: "attention"})
	s.AddEntity(common.Entity{Name: "self-attention"})
	s.AddEntity(common.Entity{Name: "cross attention layer"})
	ctx := context.Background()

	got, err := s.FuzzyMatch(ctx, "attention", 10)
	if err != nil {
		t.Fatalf("FuzzyMatch() error = %v", err)
	}
	names := make([]string, 0, len(got))
	for _, e := range got {
		names = append(names, e.Name)
	}
	want := []string{"attention", "self-attention", "cross attention layer"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("FuzzyMatch() order = %v, want %v", names, want)
	}

	got, err = s.FuzzyMatch(ctx, "attention", 2)
	if err != nil {
		t.Fatalf("FuzzyMatch() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(got))
	}
}

func TestNeighbors_BothDirectionsAndStable(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	first, err := s.Neighbors(ctx, "transformer")
	if err != nil {
		t.Fatalf("Neighbors() error = %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 edges, got %+v", first)
	}

	var out, in *graphstore.Edge
	for i := range first {
		switch first[i].Direction {
		case graphstore.DirectionOut:
			out = &first[i]
		case graphstore.DirectionIn:
			in = &first[i]
		}
	}
	if out == nil || out.Neighbor != "attention" || out.Predicate != "uses" {
		t.Fatalf("expected outgoing uses->attention edge, got %+v", first)
	}
	if in == nil || in.Neighbor != "BERT" || in.Predicate != "basedOn" {
		t.Fatalf("expected incoming basedOn<-BERT edge, got %+v", first)
	}

	second, err := s.Neighbors(ctx, "transformer")
	if err != nil {
		t.Fatalf("Neighbors() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected stable neighbor order across calls")
	}
}

func TestEdgeTriple_ReconstructsStoredDirection(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	edges, err := s.Neighbors(ctx, "attention")
	if err != nil {
		t.Fatalf("Neighbors() error = %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %+v", edges)
	}

	tr := edges[0].Triple("attention")
	want := common.Triple{Subject: "transformer", Predicate: "uses", Object: "attention", SourceRef: "paper1"}
	if tr != want {
		t.Fatalf("Triple() = %+v, want %+v", tr, want)
	}
}

func TestSimilarEntities_FloorAndOrder(t *testing.T) {
	s := New()
	s.AddEntity(common.Entity{Name: "transformer"})
	s.AddEntity(common.Entity{Name: "attention"})
	s.AddEntity(common.Entity{Name: "convolution"})
	s.SetEmbedding("transformer", []float32{1, 0})
	s.SetEmbedding("attention", []float32{0.8, 0.6})
	s.SetEmbedding("convolution", []float32{0, 1})
	ctx := context.Background()

	got, err := s.SimilarEntities(ctx, []float32{1, 0}, 10, 0.5)
	if err != nil {
		t.Fatalf("SimilarEntities() error = %v", err)
	}
	names := make([]string, 0, len(got))
	for _, e := range got {
		names = append(names, e.Name)
	}
	want := []string{"transformer", "attention"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("SimilarEntities() = %v, want %v", names, want)
	}
}

func TestLoadFile(t *testing.T) {
	fixture := `{
		"entities": [
			{"name": "transformer", "type": "model", "aliases": ["transformer architecture"]},
			{"name": "attention", "type": "mechanism"}
		],
		"triples": [
			{"subject": "transformer", "predicate": "uses", "object": "attention"}
		]
	}`
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s := New()
	if err := s.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	ctx := context.Background()
	exists, err := s.EntityExists(ctx, "transformer architecture")
	if err != nil || !exists {
		t.Fatalf("expected alias from fixture to exist, got %v, %v", exists, err)
	}
	edges, err := s.Neighbors(ctx, "transformer")
	if err != nil {
		t.Fatalf("Neighbors() error = %v", err)
	}
	if len(edges) != 1 || edges[0].Neighbor != "attention" {
		t.Fatalf("expected fixture triple, got %+v", edges)
	}
}
