// Package query parses the REPL's query syntax and evaluates it
// against an index.Index using set algebra: AND of unigrams,
// exact-phrase (n-gram) intersection, or both combined.
package query

import (
	"regexp"
	"strings"

	"github.com/kestrelcode/webdex/internal/index"
)

// Query is a parsed query string: an optional quoted exact phrase and
// optional remaining bare tokens, both already case-folded.
type Query struct {
	Exact    []string // length >= 2, or nil
	Unigrams []string // length >= 1, or nil
}

var quotedPhrase = regexp.MustCompile(`"([^"]*)"`)

// Parse splits queryStr into an optional quoted exact phrase and
// optional remaining bare tokens. A single-token quoted phrase
// collapses into a bare unigram, since an exact phrase of length 1 is
// just a unigram match.
func Parse(queryStr string) Query {
	var q Query

	rest := queryStr
	if loc := quotedPhrase.FindStringSubmatchIndex(queryStr); loc != nil {
		inner := queryStr[loc[2]:loc[3]]
		tokens := foldedFields(inner)
		if len(tokens) == 1 {
			q.Unigrams = append(q.Unigrams, tokens[0])
		} else if len(tokens) >= 2 {
			q.Exact = tokens
		}
		rest = queryStr[:loc[0]] + queryStr[loc[1]:]
	}

	q.Unigrams = append(q.Unigrams, foldedFields(rest)...)
	if len(q.Unigrams) == 0 {
		q.Unigrams = nil
	}

	return q
}

func foldedFields(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.ToLower(f)
	}
	return out
}

// Evaluate runs q against idx. The second return value is false only
// for an empty query (neither exact nor unigrams present) — distinct
// from a true empty result set, which is returned as (set, true) with
// len(set) == 0.
func Evaluate(q Query, idx *index.Index) (map[string]struct{}, bool) {
	hasUnigrams := len(q.Unigrams) > 0
	hasExact := len(q.Exact) >= 2

	if !hasUnigrams && !hasExact {
		return nil, false
	}

	var unigramResult map[string]struct{}
	if hasUnigrams {
		unigramResult = evaluateUnigrams(q.Unigrams, idx)
	}

	if !hasExact {
		return unigramResult, true
	}

	exactResult, ok := idx.ExactNgramMatch(q.Exact)
	if !ok {
		exactResult = map[string]struct{}{}
	}

	if !hasUnigrams {
		return exactResult, true
	}

	return intersect(unigramResult, exactResult), true
}

func evaluateUnigrams(tokens []string, idx *index.Index) map[string]struct{} {
	first, ok := idx.UnigramMatch(tokens[0])
	if !ok {
		return map[string]struct{}{}
	}

	result := first
	for _, tok := range tokens[1:] {
		set, ok := idx.UnigramMatch(tok)
		if !ok {
			return map[string]struct{}{}
		}
		result = intersect(result, set)
	}
	return result
}

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
