package embedding

import (
	"strings"
	"unicode/utf8"
)

const (
	// minChunkSize and maxChunkSize bound the adaptive chunk size in bytes.
	minChunkSize = 400
	maxChunkSize = 2000

	// targetChunks is the chunk count the adaptive size aims for on
	// mid-sized documents.
	targetChunks = 12

	// maxChunks is the hard cap on chunks per document. Very long documents
	// get proportionally larger chunks instead of more of them.
	maxChunks = 64

	// overlapDivisor: overlap is chunkSize/overlapDivisor bytes.
	overlapDivisor = 8
)

// chunkSizeFor picks the chunk size for a document of the given length.
// Short documents become a single chunk; long documents get chunks scaled up
// so the count stays under maxChunks.
func chunkSizeFor(textLen int) int {
	size := textLen / targetChunks
	if size < minChunkSize {
		size = minChunkSize
	}
	if size > maxChunkSize {
		size = maxChunkSize
	}
	// Enforce the hard chunk cap for very long documents
	if textLen/size > maxChunks {
		size = textLen/maxChunks + 1
	}
	return size
}

// chunkText splits text into overlapping chunks of adaptive size.
// Splits prefer paragraph breaks, then sentence ends, then word boundaries,
// and fall back to a hard cut on a rune boundary. Deterministic for a given
// text.
func chunkText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	size := chunkSizeFor(len(text))
	if len(text) <= size {
		return []string{text}
	}
	overlap := size / overlapDivisor

	chunks := make([]string, 0, len(text)/size+1)
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) || len(chunks) == maxChunks-1 {
			// Final chunk always runs to the end of the text
			chunk := strings.TrimSpace(text[start:])
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		end = splitPoint(text, start, end)
		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// splitPoint finds the best cut position at or before limit: paragraph break,
// sentence end, word boundary, then rune boundary.
func splitPoint(text string, start, limit int) int {
	window := text[start:limit]

	if idx := strings.LastIndex(window, "\n\n"); idx > len(window)/2 {
		return start + idx + 2
	}
	if idx := strings.LastIndexAny(window, ".!?"); idx > len(window)/2 {
		return start + idx + 1
	}
	if idx := strings.LastIndexAny(window, " \n\t"); idx > len(window)/2 {
		return start + idx + 1
	}

	// Hard cut, but never inside a multi-byte rune
	for limit > start && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}
