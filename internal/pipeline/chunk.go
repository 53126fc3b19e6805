package pipeline

import "unicode/utf8"

const (
	// DefaultChunkSize is the chunk window used when a caller supplies 0.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the overlap used when a caller supplies a
	// negative overlap or one not smaller than the chunk size.
	DefaultChunkOverlap = 200
)

// Chunk splits text into a bounded-length list of chunks, preferring to
// end each chunk at a sentence (period) or line boundary when one falls
// within the back half of the window — best-effort, never an invariant.
// Rune-safe: chunk boundaries never fall inside a multi-byte rune, the
// same guarantee the pack's fixed-length splitter makes via byte-offset
// bookkeeping over rune boundaries.
func Chunk(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
	}
	if text == "" {
		return nil
	}

	idxs := runeByteBoundaries(text)
	n := len(idxs) - 1 // number of runes
	if n == 0 {
		return nil
	}

	var chunks []string
	p := 0
	for p < n {
		end := p + chunkSize
		if end > n {
			end = n
		}
		if end < n {
			end = findBoundary(text, idxs, p, chunkSize, end)
		}
		chunks = append(chunks, text[idxs[p]:idxs[end]])
		if end >= n {
			break
		}
		next := end - overlap
		if next <= p {
			next = end
		}
		p = next
	}
	return chunks
}

// findBoundary searches runes[p+chunkSize/2, end) for the latest period,
// then the latest newline, returning the rune index one past whichever
// is found — or the hard-cut end if neither appears.
func findBoundary(text string, idxs []int, p, chunkSize, end int) int {
	searchStart := p + chunkSize/2
	if searchStart < p {
		searchStart = p
	}
	if searchStart >= end {
		return end
	}

	if i := lastRuneIndex(text, idxs, searchStart, end, '.'); i >= 0 {
		return i + 1
	}
	if i := lastRuneIndex(text, idxs, searchStart, end, '\n'); i >= 0 {
		return i + 1
	}
	return end
}

// lastRuneIndex returns the rune index (not byte index) of the last
// occurrence of r within rune range [from, to), or -1.
func lastRuneIndex(text string, idxs []int, from, to int, r rune) int {
	for i := to - 1; i >= from; i-- {
		ch, _ := utf8.DecodeRuneInString(text[idxs[i]:idxs[i+1]])
		if ch == r {
			return i
		}
	}
	return -1
}

// runeByteBoundaries returns the byte offset of every rune boundary in
// text, with a trailing entry for len(text) — idxs[i] is where rune i
// starts, idxs[len(idxs)-1] == len(text).
func runeByteBoundaries(text string) []int {
	idxs := make([]int, 0, utf8.RuneCountInString(text)+1)
	idxs = append(idxs, 0)
	for i := 0; i < len(text); {
		_, w := utf8.DecodeRuneInString(text[i:])
		i += w
		idxs = append(idxs, i)
	}
	return idxs
}
