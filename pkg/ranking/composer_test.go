package ranking

import (
	"math"
	"testing"

	"github.com/arqlane/suggestd/pkg/phrase"
)

func TestComposeColdUser(t *testing.T) {
	c := New(DefaultWeights())
	popular := []Candidate{{Phrase: "apple", Count: 10}, {Phrase: "apricot", Count: 7}}
	got := c.Compose(popular, nil, nil, 5)

	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d: %v", len(got), got)
	}
	if got[0].Phrase != "apple" || got[1].Phrase != "apricot" {
		t.Fatalf("unexpected order: %v", got)
	}
	if got[0].HasSource(phrase.SourcePersonal) {
		t.Error("cold user result should carry no personal source")
	}
}

func TestComposeBlendsAllThreeSignals(t *testing.T) {
	c := New(DefaultWeights())
	popular := []Candidate{{Phrase: "application", Count: 5}}
	trending := []Candidate{{Phrase: "application", Score: 2.0}}
	personal := []Candidate{{Phrase: "application", Score: 1.0}}

	got := c.Compose(popular, trending, personal, 5)
	if len(got) != 1 {
		t.Fatalf("expected 1 merged result, got %v", got)
	}
	want := 1.0*math.Log1p(5) + 0.6*2.0 + 1.5*1.0
	if math.Abs(got[0].Score-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", got[0].Score, want)
	}
	for _, src := range []phrase.Source{phrase.SourcePopular, phrase.SourceTrending, phrase.SourcePersonal} {
		if !got[0].HasSource(src) {
			t.Errorf("missing source %v in merged candidate", src)
		}
	}
}

func TestComposeTieBreaksLexicographically(t *testing.T) {
	c := New(DefaultWeights())
	popular := []Candidate{{Phrase: "zebra", Count: 10}, {Phrase: "apple", Count: 10}}
	got := c.Compose(popular, nil, nil, 5)
	if got[0].Phrase != "apple" || got[1].Phrase != "zebra" {
		t.Fatalf("expected lexicographic tie-break, got %v", got)
	}
}

func TestComposeCapsAtK(t *testing.T) {
	c := New(DefaultWeights())
	popular := []Candidate{
		{Phrase: "a", Count: 3}, {Phrase: "b", Count: 2}, {Phrase: "c", Count: 1},
	}
	got := c.Compose(popular, nil, nil, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 results capped, got %d", len(got))
	}
}

func TestComposeNoDuplicates(t *testing.T) {
	c := New(DefaultWeights())
	popular := []Candidate{{Phrase: "apple", Count: 10}}
	trending := []Candidate{{Phrase: "apple", Score: 1.0}}
	got := c.Compose(popular, trending, nil, 5)
	if len(got) != 1 {
		t.Fatalf("expected deduplicated single entry, got %v", got)
	}
}

func BenchmarkCompose(b *testing.B) {
	c := New(DefaultWeights())
	popular := []Candidate{{Phrase: "apple", Count: 10}, {Phrase: "apricot", Count: 7}, {Phrase: "application", Count: 5}}
	trending := []Candidate{{Phrase: "apple", Score: 1.2}}
	personal := []Candidate{{Phrase: "application", Score: 0.9}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Compose(popular, trending, personal, 10)
	}
}
