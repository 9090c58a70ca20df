package chunker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"nutrirag/internal/domain"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// CharacterChunker splits page text into fixed-size character windows with overlap.
// Boundaries are purely length-based; sentences and words may be cut.
type CharacterChunker struct {
	size     int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

func NewCharacterChunker(size, overlap int) (*CharacterChunker, error) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		return nil, errors.New("chunk overlap cannot be negative")
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}
	return &CharacterChunker{
		size:    size,
		overlap: overlap,
		// The empty separator makes the recursive splitter fall straight through
		// to single characters, so chunks are windows over the raw text.
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators([]string{""}),
		),
	}, nil
}

// Chunk splits every page of the document in order. Chunk indexes run across
// the whole document, so ids are "<name>_<index>".
func (c *CharacterChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	idx := 0
	for _, page := range document.Pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		parts, err := c.splitter.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("split %s page %d: %w", document.Name, page.Index, err)
		}
		for _, text := range parts {
			if text == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				ID:     ChunkID(document.Name, idx),
				Text:   text,
				Source: document.Name,
				Page:   page.Index,
			})
			idx++
		}
	}
	return chunks, nil
}

// ChunkID returns the stable identity of the index-th chunk of a source.
func ChunkID(source string, index int) string {
	return source + "_" + strconv.Itoa(index)
}
