// Package chunker splits document text into fixed-size sequential chunks.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

// DefaultSize is the nominal chunk size in characters. Larger chunks risk
// truncated JSON from the model once the response token limit is hit.
const DefaultSize = 9000

// Chunk represents a single chunk of text with metadata
type Chunk struct {
	ID     string
	Text   string
	Index  int
	Length int // Length in characters (runes)
}

// Chunker splits text into non-overlapping chunks of at most Size characters.
// Chunks cover the whole input with no gaps; only the final chunk may be shorter.
type Chunker struct {
	Size int // Characters per chunk (default: DefaultSize)
}

// Chunk splits the input text into chunks
func (c *Chunker) Chunk(text string) []Chunk {
	if text == "" {
		return []Chunk{}
	}

	size := c.Size
	if size <= 0 {
		size = DefaultSize
	}

	chunks := make([]Chunk, 0, utf8.RuneCountInString(text)/size+1)

	// An invalid UTF-8 byte counts as one character and is kept as is.
	for start := 0; start < len(text); {
		end, n := start, 0
		for end < len(text) && n < size {
			_, w := utf8.DecodeRuneInString(text[end:])
			end += w
			n++
		}
		chunkText := text[start:end]
		chunks = append(chunks, Chunk{
			ID:     generateChunkID(chunkText, len(chunks)),
			Text:   chunkText,
			Index:  len(chunks),
			Length: n,
		})
		start = end
	}

	return chunks
}

// generateChunkID creates a deterministic ID using content hash and index
func generateChunkID(text string, index int) string {
	hash := sha256.Sum256([]byte(text))
	hashStr := hex.EncodeToString(hash[:8]) // Use first 8 bytes for brevity
	return fmt.Sprintf("%s-%d", hashStr, index)
}
