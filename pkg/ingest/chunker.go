package ingest

import (
	"strings"

	"github.com/scholarag/scholarag/pkg/config"
)

// Chunker splits paper text into overlapping word windows.
type Chunker struct {
	chunkSize int
	overlap   int
	minWords  int
}

func NewChunker(cfg *config.IngestConfig) *Chunker {
	return &Chunker{
		chunkSize: cfg.ChunkSizeWords,
		overlap:   cfg.ChunkOverlapWords,
		minWords:  cfg.MinChunkWords,
	}
}

// TextChunk is one window of text before embedding.
type TextChunk struct {
	Text      string
	Index     int
	WordCount int
}

// Split produces overlapping chunks of chunkSize words, stepping by
// chunkSize-overlap. A trailing fragment shorter than minWords is folded
// into the previous chunk rather than emitted on its own.
func (c *Chunker) Split(text string) []TextChunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	if len(words) <= c.chunkSize {
		return []TextChunk{{
			Text:      strings.Join(words, " "),
			Index:     0,
			WordCount: len(words),
		}}
	}

	step := c.chunkSize - c.overlap
	var chunks []TextChunk
	for start := 0; start < len(words); start += step {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}

		windowSize := end - start
		if windowSize < c.minWords && len(chunks) > 0 {
			// Extend the last chunk to cover the tail.
			last := &chunks[len(chunks)-1]
			tailStart := start - step
			last.Text = strings.Join(words[tailStart:end], " ")
			last.WordCount = end - tailStart
			break
		}

		chunks = append(chunks, TextChunk{
			Text:      strings.Join(words[start:end], " "),
			Index:     len(chunks),
			WordCount: windowSize,
		})

		if end == len(words) {
			break
		}
	}
	return chunks
}
