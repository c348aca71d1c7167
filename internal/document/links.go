package document

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// disallowedExtensions blocks binary/media formats from the crawl
// frontier. Case is ignored when matching.
var disallowedExtensions = map[string]struct{}{
	"pdf": {}, "png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "xml": {},
	"rss": {}, "css": {}, "js": {}, "mov": {}, "svg": {}, "ps": {},
	"z": {}, "zip": {}, "gz": {}, "rar": {}, "json": {}, "webp": {},
	"mp4": {}, "mp3": {}, "bz2": {}, "tar": {}, "webm": {}, "iso": {},
	"dsk": {},
}

// ExtractLinks returns the same-origin outbound URLs from doc, relative
// to base, with query/fragment stripped and blacklisted extensions
// filtered out. Individual malformed hrefs are skipped rather than
// failing the whole extraction.
func ExtractLinks(base *url.URL, doc *goquery.Document) []string {
	var links []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}

		resolved, err := resolveHref(base, href)
		if err != nil {
			return
		}

		if resolved.Scheme != base.Scheme || resolved.Host != base.Host {
			return
		}
		if resolved.Path == base.Path {
			return
		}

		resolved.RawQuery = ""
		resolved.Fragment = ""
		resolved.RawFragment = ""

		if hasDisallowedExtension(resolved.Path) {
			return
		}

		links = append(links, resolved.String())
	})

	return links
}

func resolveHref(base *url.URL, href string) (*url.URL, error) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(u), nil
}

func hasDisallowedExtension(path string) bool {
	idx := strings.LastIndexByte(path, '.')
	if idx == -1 {
		return false
	}
	ext := strings.ToLower(path[idx+1:])
	_, disallowed := disallowedExtensions[ext]
	return disallowed
}
