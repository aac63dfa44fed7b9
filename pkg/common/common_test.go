package common

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercase passthrough", input: "transformer", want: "transformer"},
		{name: "mixed case", input: "BERT", want: "bert"},
		{name: "surrounding whitespace", input: "  attention  ", want: "attention"},
		{name: "inner whitespace collapsed", input: "neural   machine \t translation", want: "neural machine translation"},
		{name: "empty", input: "", want: ""},
		{name: "whitespace only", input: "   ", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeName(tc.input); got != tc.want {
				t.Fatalf("NormalizeName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestTripleKey_CaseInsensitive(t *testing.T) {
	a := Triple{Subject: "Transformer", Predicate: "Uses", Object: "Attention"}
	b := Triple{Subject: "transformer", Predicate: "uses", Object: "attention"}
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys, got %q vs %q", a.Key(), b.Key())
	}

	c := Triple{Subject: "transformer", Predicate: "uses", Object: "convolution"}
	if a.Key() == c.Key() {
		t.Fatal("expected different keys for different objects")
	}
}

func TestTripleKey_IgnoresSourceRef(t *testing.T) {
	a := Triple{Subject: "s", Predicate: "p", Object: "o", SourceRef: "doc1"}
	b := Triple{Subject: "s", Predicate: "p", Object: "o", SourceRef: "doc2"}
	if a.Key() != b.Key() {
		t.Fatal("expected source ref to be excluded from the key")
	}
}

func TestTripleRender(t *testing.T) {
	tr := Triple{Subject: "transformer", Predicate: "uses", Object: "attention"}
	want := "(transformer) --[uses]--> (attention)"
	if got := tr.Render(); got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}
