package domain

import "context"

// CollectionName is the default vector collection holding the knowledge base.
const CollectionName = "Nutrition_Knowledge"

// DateLayout is the on-disk layout of meal timestamps. Lexicographic order
// matches chronological order, which the "today" prefix query relies on.
const DateLayout = "2006-01-02 15:04:05"

// Page is a single page of extracted source text.
type Page struct {
	Index int
	Text  string
}

// Document represents a single source file loaded into the system.
type Document struct {
	Name  string
	Path  string
	Pages []Page
}

// Chunk is a bounded span of document text stored with its embedding.
type Chunk struct {
	ID        string
	Text      string
	Embedding []float32
	Source    string
	Page      int
	Model     string
}

// SearchResult represents a matching chunk and its distance to the query.
type SearchResult struct {
	Chunk    Chunk
	Distance float64
}

// Embedder converts free text into fixed-size vectors.
type Embedder interface {
	Name() string
	Model() string
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits a document into overlapping chunks. Embeddings are left empty.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// VectorStore persists chunks and supports nearest-neighbor queries.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	CountSource(ctx context.Context, source string) (int, error)
}

// PartKind distinguishes prompt parts.
type PartKind int

const (
	PartText PartKind = iota
	PartImage
)

// Part is one element of a multimodal prompt.
type Part struct {
	Kind     PartKind
	Text     string
	Data     []byte
	MIMEType string
}

// TextPart builds a text prompt part.
func TextPart(s string) Part { return Part{Kind: PartText, Text: s} }

// ImagePart builds an image prompt part.
func ImagePart(mimeType string, data []byte) Part {
	return Part{Kind: PartImage, Data: data, MIMEType: mimeType}
}

// Generator is a generative language model accepting text and image parts.
type Generator interface {
	Name() string
	Generate(ctx context.Context, parts ...Part) (string, error)
}
