package document

import (
	"sort"
	"strings"
)

// Document is one source item's extracted text, tagged with its URL.
type Document struct {
	Source  string
	Content string
}

// Segment is a bounded chunk of one document, prepared for embedding.
// Segments are immutable once created and discarded with their index.
type Segment struct {
	ID      string
	Source  string
	Index   int
	Content string
}

// FromContents builds one document per successfully extracted URL. Source
// order is deterministic so segment IDs are stable across runs.
func FromContents(contents map[string]string) []Document {
	urls := make([]string, 0, len(contents))
	for url := range contents {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	docs := make([]Document, 0, len(urls))
	for _, url := range urls {
		content := contents[url]
		if strings.TrimSpace(content) == "" {
			continue
		}
		docs = append(docs, Document{Source: url, Content: content})
	}

	return docs
}
