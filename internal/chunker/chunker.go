// Package chunker splits document text into overlapping segments suitable
// for embedding.
package chunker

import (
	"regexp"
	"strings"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultOverlap is the default number of overlapping characters carried
// into the next chunk.
const DefaultOverlap = 200

// paragraphSep is the separator used when joining paragraphs in a chunk.
const paragraphSep = "\n\n"

var blankLine = regexp.MustCompile(`\n[ \t\r]*\n+`)

// Chunker accumulates blank-line-delimited paragraphs into chunks.
// A paragraph longer than the chunk size is emitted whole; there is no
// mid-paragraph splitting.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for new content in every chunk.
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Split breaks text into ordered, non-empty chunks. Each new chunk after
// the first is seeded with the last overlap characters of the previous one
// to preserve context across the boundary.
func (c *Chunker) Split(text string) []string {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	buf := ""

	for _, para := range paragraphs {
		switch {
		case buf == "":
			buf = para
		case len(buf)+len(paragraphSep)+len(para) > c.chunkSize:
			chunks = append(chunks, buf)
			if seed := c.tail(buf); seed != "" {
				buf = seed + paragraphSep + para
			} else {
				buf = para
			}
		default:
			buf += paragraphSep + para
		}
	}

	if buf != "" {
		chunks = append(chunks, buf)
	}

	return chunks
}

// tail returns the trailing overlap characters of an emitted chunk.
func (c *Chunker) tail(chunk string) string {
	if c.overlap <= 0 {
		return ""
	}
	if len(chunk) <= c.overlap {
		return chunk
	}
	return chunk[len(chunk)-c.overlap:]
}

// splitParagraphs breaks text on blank lines, dropping empty paragraphs.
func splitParagraphs(text string) []string {
	parts := blankLine.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}
