package index

import (
	"testing"

	"github.com/kestrelcode/webdex/internal/document"
)

func nodeText(words ...string) document.NodeText {
	return document.NodeText(words)
}

func urlSet(t *testing.T, set map[string]struct{}, ok bool, want ...string) {
	t.Helper()
	if len(want) == 0 {
		if ok {
			t.Errorf("expected ok=false, got ok=true set=%v", set)
		}
		return
	}
	if !ok {
		t.Fatalf("expected ok=true, got ok=false")
	}
	if len(set) != len(want) {
		t.Fatalf("got %d urls, want %d: %v", len(set), len(want), set)
	}
	for _, w := range want {
		if _, present := set[w]; !present {
			t.Errorf("expected %q in result set, got %v", w, set)
		}
	}
}

func TestIndex_S1_SingleDocument(t *testing.T) {
	idx := New()
	idx.IndexTexts("http://a/", []document.NodeText{
		nodeText("hello", "world"),
		nodeText("world", "peace"),
	})

	set, ok := idx.UnigramMatch("hello")
	urlSet(t, set, ok, "http://a/")

	set, ok = idx.UnigramMatch("peace")
	urlSet(t, set, ok, "http://a/")

	set, ok = idx.UnigramMatch("xyz")
	urlSet(t, set, ok)
}

func TestIndex_S2_ANDOfUnigrams(t *testing.T) {
	idx := New()
	idx.IndexTexts("http://a/1", []document.NodeText{nodeText("apple", "pie")})
	idx.IndexTexts("http://a/2", []document.NodeText{nodeText("apple", "tart")})

	set, ok := idx.UnigramMatch("apple")
	urlSet(t, set, ok, "http://a/1", "http://a/2")

	set, ok = idx.ExactNgramMatch([]string{"apple", "pie"})
	urlSet(t, set, ok, "http://a/1")
}

func TestIndex_S3_ExactPhraseAcrossNodeBoundary(t *testing.T) {
	idx := New()
	idx.IndexTexts("http://page/", []document.NodeText{
		nodeText("great", "fire"),
		nodeText("fire", "london"),
	})

	set, ok := idx.ExactNgramMatch([]string{"great", "fire"})
	urlSet(t, set, ok, "http://page/")

	set, ok = idx.ExactNgramMatch([]string{"fire", "london"})
	urlSet(t, set, ok, "http://page/")

	// Over-approximation: intersection of constituent bigrams.
	set, ok = idx.ExactNgramMatch([]string{"great", "fire", "london"})
	urlSet(t, set, ok, "http://page/")
}

// The index does no origin filtering of its own (the crawler does);
// this checks only that one indexed URL yields exactly one DocCode.
func TestIndex_S4_SingleDocumentCode(t *testing.T) {
	idx := New()
	idx.IndexTexts("http://a/", []document.NodeText{nodeText("hello")})

	_, docs, _, _ := idx.Stats()
	if docs != 1 {
		t.Fatalf("expected 1 document code, got %d", docs)
	}
}

func TestIndex_UnknownNgram(t *testing.T) {
	idx := New()
	idx.IndexTexts("http://a/", []document.NodeText{nodeText("hello", "world")})

	_, ok := idx.ExactNgramMatch([]string{"hello", "galaxy"})
	if ok {
		t.Error("expected ok=false for unknown bigram")
	}

	_, ok = idx.ExactNgramMatch([]string{"nope", "nope"})
	if ok {
		t.Error("expected ok=false when both tokens unknown")
	}
}

func TestIndex_CodesAreDenseAndBijective(t *testing.T) {
	idx := New()
	idx.IndexTexts("http://a/", []document.NodeText{nodeText("alpha", "beta")})
	idx.IndexTexts("http://b/", []document.NodeText{nodeText("beta", "gamma")})

	words, docs, _, _ := idx.Stats()
	if words != 3 {
		t.Errorf("expected 3 distinct words (alpha, beta, gamma), got %d", words)
	}
	if docs != 2 {
		t.Errorf("expected 2 documents, got %d", docs)
	}

	for word, code := range idx.wordCodes {
		if idx.wordByID[code] != word {
			t.Errorf("word bimap not bijective for %q/%d", word, code)
		}
	}
	for doc, code := range idx.docCodes {
		if idx.docByID[code] != doc {
			t.Errorf("doc bimap not bijective for %q/%d", doc, code)
		}
	}
}

func TestIndex_IdempotentReplay(t *testing.T) {
	idx := New()
	texts := []document.NodeText{nodeText("same", "content")}
	idx.IndexTexts("http://a/", texts)
	idx.IndexTexts("http://a/", texts)

	words, docs, _, _ := idx.Stats()
	if words != 2 || docs != 1 {
		t.Errorf("re-indexing the same doc/text should not grow codes: words=%d docs=%d", words, docs)
	}

	set, ok := idx.UnigramMatch("same")
	urlSet(t, set, ok, "http://a/")
}
