// Package document turns a fetched HTML body into the two things the
// rest of webdex cares about: searchable per-node text (TextExtractor)
// and same-origin outbound links (LinkExtractor).
package document

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// NodeText is one DOM node's whitespace-tokenized, lowercased text.
// N-grams are only ever built from within a single NodeText — they
// never span two nodes.
type NodeText []string

// Key returns a string uniquely identifying this token sequence, used
// to de-duplicate NodeTexts with set semantics and as a map key where
// a slice can't be used directly.
func (n NodeText) Key() string {
	return strings.Join(n, "\x00")
}

// ExtractTexts walks every text node in the document and returns the
// set of distinct NodeTexts, one per node whose content has at least
// one non-whitespace character. Script/style text is not specially
// excluded; the index and query layers tolerate script-derived "words."
func ExtractTexts(doc *goquery.Document) []NodeText {
	seen := make(map[string]NodeText)

	for _, root := range doc.Nodes {
		walkText(root, seen)
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]NodeText, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out
}

func walkText(n *html.Node, seen map[string]NodeText) {
	if n.Type == html.TextNode {
		if nt, ok := tokenize(n.Data); ok {
			seen[nt.Key()] = nt
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, seen)
	}
}

func tokenize(s string) (NodeText, bool) {
	if !hasNonWhitespace(s) {
		return nil, false
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, false
	}
	nt := make(NodeText, len(fields))
	for i, f := range fields {
		nt[i] = strings.ToLower(f)
	}
	return nt, true
}

func hasNonWhitespace(s string) bool {
	for _, r := range s {
		if !isASCIISpace(r) {
			return true
		}
	}
	return false
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	default:
		return false
	}
}
