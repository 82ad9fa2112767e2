package document

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/websage/backend/pkg/logger"
	"github.com/websage/backend/pkg/utils"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Splitter cuts document text into segments of at most Size bytes, with
// consecutive segments from the same document overlapping by at least
// Overlap bytes (exactly Overlap unless a rune straddles the boundary).
// Cut points prefer larger structural boundaries: paragraph break, then
// sentence end, then word boundary, then a hard cut on the nearest rune
// start. Segments are always valid UTF-8 when the input is.
type Splitter struct {
	Size    int
	Overlap int
}

func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}
	return &Splitter{Size: size, Overlap: overlap}
}

// Split chunks one text. Text already within the size limit comes back as
// a single segment, verbatim.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.Size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + s.Size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		end = runeStart(text, start, end)

		cut := start + s.cutPoint(text[start:end])
		chunks = append(chunks, text[start:cut])

		next := runeStart(text, start, cut-s.Overlap)
		if next <= start {
			next = cut
		}
		start = next
	}

	return chunks
}

// runeStart backs pos up to the nearest rune start at or before it, never
// crossing floor.
func runeStart(text string, floor, pos int) int {
	for pos > floor && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

// cutPoint picks where to end the chunk within the window, searching only
// the final Overlap bytes so no chunk shrinks by more than the overlap.
func (s *Splitter) cutPoint(window string) int {
	minCut := len(window) - s.Overlap
	if minCut < 0 {
		minCut = 0
	}

	if p := strings.LastIndex(window, "\n\n"); p >= 0 && p+2 > minCut {
		return p + 2
	}
	if p := lastSentenceStart(window); p > minCut {
		return p
	}
	if p := strings.LastIndexByte(window, ' '); p >= 0 && p+1 > minCut {
		return p + 1
	}
	return len(window)
}

// lastSentenceStart returns the offset of the window's final (likely
// incomplete) sentence, so the cut lands on a sentence boundary. Returns -1
// when segmentation finds fewer than two sentences.
func lastSentenceStart(window string) int {
	doc, err := prose.NewDocument(window,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return -1
	}

	sents := doc.Sentences()
	if len(sents) < 2 {
		return -1
	}

	last := sents[len(sents)-1].Text
	p := strings.LastIndex(window, last)
	if p <= 0 {
		return -1
	}
	return p
}

// SegmentAll splits every document and tags each segment with its source.
// An empty document list returns an empty segment list.
func (s *Splitter) SegmentAll(docs []Document) []Segment {
	if len(docs) == 0 {
		return nil
	}

	var segments []Segment
	for _, doc := range docs {
		docID := utils.HashString(doc.Source)
		for i, part := range s.Split(doc.Content) {
			segments = append(segments, Segment{
				ID:      fmt.Sprintf("%s_seg_%d", docID, i),
				Source:  doc.Source,
				Index:   i,
				Content: part,
			})
		}
	}

	logger.Info("Documents segmented",
		zap.Int("documents", len(docs)),
		zap.Int("segments", len(segments)),
	)

	return segments
}
