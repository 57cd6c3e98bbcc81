// Package chunker splits documents into retrievable chunks using a
// category-selected strategy.
package chunker

import (
	"strings"

	"github.com/kweiss/healthrag/internal/model"
)

const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
	DefaultMaxChunks    = 10
)

// Options configures chunking behavior.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	MaxChunks    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		MaxChunks:    DefaultMaxChunks,
	}
}

// Split chunks content using a strategy selected by category. Medical
// categories split sentence-aware, general ones paragraph-aware, and
// everything else falls back to a fixed sliding window. Output is truncated
// to MaxChunks by head-truncation; the tail of very long documents is lost
// rather than ranked (known limitation).
func Split(content, title, category string, opts Options) []model.Chunk {
	if opts.ChunkSize == 0 {
		opts = DefaultOptions()
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var chunks []model.Chunk
	switch category {
	case "medical_condition", "treatment", "symptom":
		chunks = splitSentenceAware(content, title, opts)
	case "general", "wellness", "prevention":
		chunks = splitParagraphAware(content, title, opts)
	default:
		chunks = splitFixedWindow(content, title, opts)
	}

	if opts.MaxChunks > 0 && len(chunks) > opts.MaxChunks {
		chunks = chunks[:opts.MaxChunks]
	}
	for i := range chunks {
		chunks[i].Category = category
		chunks[i].ChunkIndex = i
	}
	return chunks
}

// splitSentenceAware splits on blank-line paragraphs, then accumulates
// sentences until adding one would exceed the chunk size.
func splitSentenceAware(content, title string, opts Options) []model.Chunk {
	var chunks []model.Chunk

	for _, paragraph := range splitParagraphs(content) {
		var current string
		sentenceCount := 0

		for _, sentence := range splitSentences(paragraph) {
			if len(current)+len(sentence) > opts.ChunkSize {
				if current != "" {
					chunks = append(chunks, model.Chunk{
						Content:       strings.TrimSpace(current),
						Title:         title,
						ChunkType:     model.ChunkMedicalParagraph,
						SentenceCount: sentenceCount,
					})
					current = sentence
					sentenceCount = 1
				} else {
					// Single sentence longer than the chunk size
					chunks = append(chunks, model.Chunk{
						Content:       sentence,
						Title:         title,
						ChunkType:     model.ChunkMedicalSentence,
						SentenceCount: 1,
					})
				}
			} else {
				current += " " + sentence
				sentenceCount++
			}
		}
		if current != "" {
			chunks = append(chunks, model.Chunk{
				Content:       strings.TrimSpace(current),
				Title:         title,
				ChunkType:     model.ChunkMedicalParagraph,
				SentenceCount: sentenceCount,
			})
		}
	}
	return chunks
}

// splitParagraphAware emits one chunk per paragraph; oversized paragraphs
// recurse into sentence-level splitting.
func splitParagraphAware(content, title string, opts Options) []model.Chunk {
	var chunks []model.Chunk

	for idx, paragraph := range splitParagraphs(content) {
		if len(paragraph) > opts.ChunkSize {
			chunks = append(chunks, splitLongParagraph(paragraph, title, opts)...)
			continue
		}
		chunks = append(chunks, model.Chunk{
			Content:        strings.TrimSpace(paragraph),
			Title:          title,
			ChunkType:      model.ChunkGeneralParagraph,
			ParagraphIndex: idx,
		})
	}
	return chunks
}

// splitLongParagraph breaks an oversized paragraph into sentence-accumulated
// chunks.
func splitLongParagraph(paragraph, title string, opts Options) []model.Chunk {
	var chunks []model.Chunk
	var current string
	sentenceCount := 0

	for _, sentence := range splitSentences(paragraph) {
		if len(current)+len(sentence) > opts.ChunkSize {
			if current != "" {
				chunks = append(chunks, model.Chunk{
					Content:       strings.TrimSpace(current),
					Title:         title,
					ChunkType:     model.ChunkSplitParagraph,
					SentenceCount: sentenceCount,
				})
				current = sentence
				sentenceCount = 1
			} else {
				chunks = append(chunks, model.Chunk{
					Content:       sentence,
					Title:         title,
					ChunkType:     model.ChunkLongSentence,
					SentenceCount: 1,
				})
			}
		} else {
			current += " " + sentence
			sentenceCount++
		}
	}
	if current != "" {
		chunks = append(chunks, model.Chunk{
			Content:       strings.TrimSpace(current),
			Title:         title,
			ChunkType:     model.ChunkSplitParagraph,
			SentenceCount: sentenceCount,
		})
	}
	return chunks
}

// splitFixedWindow slides a ChunkSize window over content, scanning up to
// 100 chars backward for terminal punctuation so windows end on sentence
// boundaries where possible. Start advances by end minus overlap.
func splitFixedWindow(content, title string, opts Options) []model.Chunk {
	var chunks []model.Chunk

	start := 0
	for start < len(content) {
		end := start + opts.ChunkSize
		if end < len(content) {
			limit := end - 100
			if limit < start {
				limit = start
			}
			for i := end; i > limit; i-- {
				if isTerminal(content[i]) {
					end = i + 1
					break
				}
			}
		} else {
			end = len(content)
		}

		text := strings.TrimSpace(content[start:end])
		if text != "" {
			chunks = append(chunks, model.Chunk{
				Content:   text,
				Title:     title,
				ChunkType: model.ChunkFixedSize,
				StartPos:  start,
				EndPos:    end,
			})
		}

		if end == len(content) {
			break
		}
		// The backward scan can shrink the window below the overlap; never
		// let the start regress or stall.
		next := end - opts.ChunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// splitParagraphs splits on blank lines, dropping empty paragraphs.
func splitParagraphs(content string) []string {
	var paragraphs []string
	for _, p := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// splitSentences splits on runs of terminal punctuation, dropping empties.
func splitSentences(paragraph string) []string {
	var sentences []string
	var current strings.Builder
	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	for i := 0; i < len(paragraph); i++ {
		if isTerminal(paragraph[i]) {
			flush()
			continue
		}
		current.WriteByte(paragraph[i])
	}
	flush()
	return sentences
}

func isTerminal(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}
