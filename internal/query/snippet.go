package query

import (
	"context"
	"strings"

	"github.com/kestrelcode/webdex/internal/document"
	"github.com/kestrelcode/webdex/internal/index"
	"github.com/kestrelcode/webdex/internal/store"
)

// Snippet re-reads the cached extracted texts for docURL and returns
// the NodeText sequences (joined back into sentence-shaped strings)
// that contain any of terms. It is presentation sugar for the REPL's
// "explain" verb: it never feeds back into match evaluation and has
// no effect on the result set idx already produced.
//
// Terms are matched case-insensitively against each token, mirroring
// the case-folding idx itself applies during indexing.
func Snippet(ctx context.Context, idx *index.Index, st store.DocumentStore, docURL string, terms []string) []string {
	if len(terms) == 0 {
		return nil
	}

	texts, ok, err := st.ReadTexts(ctx, docURL)
	if err != nil || !ok {
		return nil
	}

	lowerTerms := make([]string, len(terms))
	for i, t := range terms {
		lowerTerms[i] = strings.ToLower(t)
	}

	var matched []string
	for _, seq := range texts {
		if containsAny(seq, lowerTerms) {
			matched = append(matched, strings.Join(seq, " "))
		}
	}
	return matched
}

func containsAny(seq document.NodeText, lowerTerms []string) bool {
	for _, tok := range seq {
		for _, term := range lowerTerms {
			if tok == term {
				return true
			}
		}
	}
	return false
}
