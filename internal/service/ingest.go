package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"

	"nutrirag/internal/domain"
	"nutrirag/internal/loader"
)

// FileError records a source file that could not be ingested.
type FileError struct {
	Name string
	Err  error
}

// Report summarizes one ingestion run.
type Report struct {
	Dir           string
	Created       bool
	FilesSeen     int
	FilesIngested int
	Chunks        int
	Failed        []FileError
}

// Pipeline loads, chunks, embeds and stores source documents.
type Pipeline struct {
	chunker  domain.Chunker
	embedder domain.Embedder
	store    domain.VectorStore
	log      *charmlog.Logger
	load     func(path string) (domain.Document, error)
}

func NewPipeline(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, log *charmlog.Logger) *Pipeline {
	return &Pipeline{chunker: chunker, embedder: embedder, store: store, log: log, load: loader.Load}
}

// Ingest processes every supported file in dir. A missing dir is created and
// the run ends empty. Failures on one file are logged and recorded in the
// report; the remaining files are still processed.
func (p *Pipeline) Ingest(ctx context.Context, dir string) (Report, error) {
	rep := Report{Dir: dir}
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return rep, fmt.Errorf("ingest: create %s: %w", dir, err)
		}
		rep.Created = true
		p.log.Info("created source directory, add documents and run ingest again", "dir", dir)
		return rep, nil
	case err != nil:
		return rep, fmt.Errorf("ingest: %w", err)
	case !info.IsDir():
		return rep, fmt.Errorf("ingest: %s is not a directory", dir)
	}

	names, err := loader.List(dir)
	if err != nil {
		return rep, fmt.Errorf("ingest: %w", err)
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.FilesSeen++
		p.log.Info("processing", "file", name)
		n, err := p.ingestFile(ctx, filepath.Join(dir, name))
		if errors.Is(err, domain.ErrMissingCredential) {
			return rep, fmt.Errorf("ingest: %w", err)
		}
		if err != nil {
			p.log.Warn("skipping file", "file", name, "err", err)
			rep.Failed = append(rep.Failed, FileError{Name: name, Err: err})
			continue
		}
		rep.FilesIngested++
		rep.Chunks += n
	}
	return rep, nil
}

func (p *Pipeline) ingestFile(ctx context.Context, path string) (int, error) {
	doc, err := p.load(path)
	if err != nil {
		return 0, err
	}
	return p.IngestDocument(ctx, doc)
}

// IngestDocument chunks and embeds one document and commits all of its
// chunks with a single upsert. Re-ingesting the same content overwrites the
// same ids.
func (p *Pipeline) IngestDocument(ctx context.Context, doc domain.Document) (int, error) {
	chunks, err := p.chunker.Chunk(doc)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		p.log.Warn("no text extracted", "file", doc.Name)
		return 0, nil
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", doc.Name, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed %s: got %d vectors for %d chunks", doc.Name, len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		chunks[i].Model = p.embedder.Model()
	}
	if err := p.store.Upsert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store %s: %w", doc.Name, err)
	}
	p.log.Info("added chunks", "file", doc.Name, "chunks", len(chunks))
	return len(chunks), nil
}
