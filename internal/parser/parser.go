// Package parser extracts attachment references from note HTML.
package parser

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractFiles returns the href of every anchor tag in content, in order of
// appearance. Duplicates are kept and anchors with an empty href are skipped.
// Content is tokenized as HTML: hrefs come back entity-decoded (&amp; is &),
// and anchors inside comments or raw-text elements such as <script> are not
// anchors and are not returned.
func ExtractFiles(content string) []string {
	files := []string{}
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; either way we have what we can get.
			return files
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if !hasAttr || string(name) != "a" {
				continue
			}
			if href, ok := anchorHref(z); ok {
				files = append(files, href)
			}
		}
	}
}

func anchorHref(z *html.Tokenizer) (string, bool) {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "href" {
			return string(val), len(val) > 0
		}
		if !more {
			return "", false
		}
	}
}

// AttachmentName returns the blob name an attachment URL points at: the last
// path segment with any query string or fragment removed.
func AttachmentName(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	if i := strings.LastIndex(href, "/"); i >= 0 {
		href = href[i+1:]
	}
	return href
}
