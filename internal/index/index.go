// Package index implements the in-memory inverted index: interning
// bimaps for words and documents, and unigram/bigram posting sets.
//
// Codes are minted monotonically on first sight and never reused. All
// mutating operations serialize through a single mutex, matching the
// single-lock convention used elsewhere in webdex for shared maps at
// this scale.
package index

import (
	"strconv"
	"strings"
	"sync"

	"github.com/kestrelcode/webdex/internal/document"
	"github.com/kestrelcode/webdex/internal/metrics"
)

// Index holds all state necessary to answer search queries.
type Index struct {
	mu sync.Mutex

	wordCodes map[string]int
	wordByID  map[int]string

	docCodes map[string]int
	docByID  map[int]string

	unigrams map[int]map[int]struct{}
	ngrams   map[string]map[int]struct{} // key: codes joined by ngramKeySep
}

const ngramKeySep = ","

// New returns an empty Index.
func New() *Index {
	return &Index{
		wordCodes: make(map[string]int),
		wordByID:  make(map[int]string),
		docCodes:  make(map[string]int),
		docByID:   make(map[int]string),
		unigrams:  make(map[int]map[int]struct{}),
		ngrams:    make(map[string]map[int]struct{}),
	}
}

// wordCode returns the existing code for word, or mints a new one.
// Caller must hold mu.
func (idx *Index) wordCode(word string) int {
	if code, ok := idx.wordCodes[word]; ok {
		return code
	}
	code := len(idx.wordCodes)
	idx.wordCodes[word] = code
	idx.wordByID[code] = word
	return code
}

// docCode returns the existing code for docURL, or mints a new one.
// Caller must hold mu.
func (idx *Index) docCode(docURL string) int {
	if code, ok := idx.docCodes[docURL]; ok {
		return code
	}
	code := len(idx.docCodes)
	idx.docCodes[docURL] = code
	idx.docByID[code] = docURL
	metrics.SetIndexDocuments(len(idx.docCodes))
	return code
}

// IndexTexts assigns or looks up a DocCode for docURL, then inserts
// every unigram and adjacent bigram from each NodeText under that code.
func (idx *Index) IndexTexts(docURL string, texts []document.NodeText) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	docCode := idx.docCode(docURL)

	for _, ngram := range texts {
		for _, word := range ngram {
			idx.insertUnigramLocked(word, docCode)
		}
		for i := 0; i+1 < len(ngram); i++ {
			idx.insertNgramLocked([]string{ngram[i], ngram[i+1]}, docCode)
		}
	}

	metrics.SetIndexWords(len(idx.wordCodes))
}

func (idx *Index) insertUnigramLocked(word string, docCode int) {
	code := idx.wordCode(word)
	set, ok := idx.unigrams[code]
	if !ok {
		set = make(map[int]struct{}, 1)
		idx.unigrams[code] = set
	}
	set[docCode] = struct{}{}
	metrics.IncPostings("unigram")
}

func (idx *Index) insertNgramLocked(words []string, docCode int) {
	codes := make([]int, len(words))
	for i, w := range words {
		codes[i] = idx.wordCode(w)
	}
	key := codeKey(codes)
	set, ok := idx.ngrams[key]
	if !ok {
		set = make(map[int]struct{}, 1)
		idx.ngrams[key] = set
	}
	set[docCode] = struct{}{}
	metrics.IncPostings("ngram")
}

func codeKey(codes []int) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ngramKeySep)
}

// UnigramMatch returns the set of document URLs containing word, or
// nil with ok=false if the word has never been indexed.
func (idx *Index) UnigramMatch(word string) (map[string]struct{}, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	code, ok := idx.wordCodes[word]
	if !ok {
		return nil, false
	}
	return idx.docsToURLsLocked(idx.unigrams[code]), true
}

// NgramMatch performs an exact posting lookup for a length-2 sequence.
// Returns nil with ok=false if any token or the sequence itself is
// unknown.
func (idx *Index) NgramMatch(words []string) (map[string]struct{}, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	codes := make([]int, len(words))
	for i, w := range words {
		code, ok := idx.wordCodes[w]
		if !ok {
			return nil, false
		}
		codes[i] = code
	}

	set, ok := idx.ngrams[codeKey(codes)]
	if !ok {
		return nil, false
	}
	return idx.docsToURLsLocked(set), true
}

// ExactNgramMatch dispatches by sequence length: length 1 delegates to
// UnigramMatch; length 2 delegates to NgramMatch; length >= 3 is
// evaluated as the intersection of every adjacent bigram's postings.
func (idx *Index) ExactNgramMatch(words []string) (map[string]struct{}, bool) {
	switch len(words) {
	case 0:
		return nil, false
	case 1:
		return idx.UnigramMatch(words[0])
	case 2:
		return idx.NgramMatch(words)
	default:
		result, ok := idx.NgramMatch(words[0:2])
		if !ok {
			return nil, false
		}
		for i := 1; i+1 < len(words); i++ {
			next, ok := idx.NgramMatch(words[i : i+2])
			if !ok {
				return nil, false
			}
			result = intersect(result, next)
		}
		return result, true
	}
}

// docsToURLsLocked translates a posting set of DocCodes into a set of
// URLs. Caller must hold mu.
func (idx *Index) docsToURLsLocked(docs map[int]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(docs))
	for code := range docs {
		if url, ok := idx.docByID[code]; ok {
			out[url] = struct{}{}
		}
	}
	return out
}

// intersect returns the set intersection of a and b.
func intersect(a, b map[string]struct{}) map[string]struct{} {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	out := make(map[string]struct{}, len(small))
	for k := range small {
		if _, ok := large[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

// Stats reports the number of interned words and documents and the
// number of distinct unigram and bigram posting keys. Tests use it to
// check code assignment.
func (idx *Index) Stats() (words, documents, unigramPostings, ngramPostings int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.wordCodes), len(idx.docCodes), len(idx.unigrams), len(idx.ngrams)
}
