package service

import (
	"context"
	"fmt"
	"strings"

	charmlog "github.com/charmbracelet/log"

	"nutrirag/internal/domain"
)

// DefaultTopK is the number of chunks retrieved when the caller passes k <= 0.
const DefaultTopK = 2

// NotTrainedMessage is returned by Ask when the knowledge base yields no context.
const NotTrainedMessage = "I haven't been trained on any scientific documents yet. Please run the ingestion script."

// Retriever finds the chunks nearest to a query. It must use the same
// embedder the knowledge base was ingested with.
type Retriever struct {
	embedder domain.Embedder
	store    domain.VectorStore
}

func NewRetriever(embedder domain.Embedder, store domain.VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Search returns up to k results ordered by ascending distance. An empty
// store returns an empty result without calling the embedder.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	n, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if n == 0 {
		return []domain.SearchResult{}, nil
	}
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	res, err := r.store.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(res) > k {
		res = res[:k]
	}
	return res, nil
}

// Retrieve is Search reduced to the chunk texts.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	res, err := r.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(res))
	for i, sr := range res {
		texts[i] = sr.Chunk.Text
	}
	return texts, nil
}

// Assistant answers questions grounded in the retrieved knowledge base.
type Assistant struct {
	retriever *Retriever
	generator domain.Generator
	log       *charmlog.Logger
}

func NewAssistant(retriever *Retriever, generator domain.Generator, log *charmlog.Logger) *Assistant {
	return &Assistant{retriever: retriever, generator: generator, log: log}
}

// Ask answers question from the top DefaultTopK chunks. Without context it
// returns NotTrainedMessage and never reaches the generator. The model's
// reply is returned verbatim.
func (a *Assistant) Ask(ctx context.Context, question string) (string, error) {
	texts, err := a.retriever.Retrieve(ctx, question, DefaultTopK)
	if err != nil {
		return "", err
	}
	knowledge := strings.TrimSpace(strings.Join(texts, " "))
	if knowledge == "" {
		a.log.Debug("no context retrieved", "question", question)
		return NotTrainedMessage, nil
	}
	a.log.Debug("asking generator", "model", a.generator.Name(), "chunks", len(texts))
	answer, err := a.generator.Generate(ctx, domain.TextPart(BuildPrompt(knowledge, question)))
	if err != nil {
		return "", fmt.Errorf("ask: %w", err)
	}
	return answer, nil
}

// BuildPrompt renders the grounded question prompt.
func BuildPrompt(knowledge, question string) string {
	var b strings.Builder
	b.WriteString("You are a professional Nutrition Scientist.\n")
	b.WriteString("Use the provided Scientific Context to answer the User Question.\n\n")
	b.WriteString("Scientific Context:\n")
	b.WriteString(knowledge)
	b.WriteString("\n\nUser Question:\n")
	b.WriteString(question)
	b.WriteString("\n\nInstruction: If the answer is not in the context, say you don't know based on the current database.\n")
	b.WriteString("Keep the answer concise and factual.\n")
	return b.String()
}
