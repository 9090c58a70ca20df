// Package sqlite is a persistent, directory-backed vector store. Chunks and
// their embeddings live in <dir>/index.db; search is brute force over the
// collection.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"nutrirag/internal/domain"
	"nutrirag/internal/sqlitedb"
	"nutrirag/internal/vectorstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// IndexFile is the database file created inside the store directory.
const IndexFile = "index.db"

const versionTable = "vectorstore_goose_version"

// Storage persists one named collection. Every call opens and closes its own
// database handle.
type Storage struct {
	path       string
	collection string
}

// Config locates the store on disk.
type Config struct {
	Dir        string
	Collection string
}

// Open prepares the store directory and schema.
func Open(ctx context.Context, cfg Config) (*Storage, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("sqlite store: directory is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = domain.CollectionName
	}
	s := &Storage{path: filepath.Join(cfg.Dir, IndexFile), collection: cfg.Collection}
	err := sqlitedb.With(ctx, s.path, func(db *sql.DB) error {
		return sqlitedb.Migrate(ctx, db, migrationsFS, "migrations", versionTable)
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}
	return s, nil
}

// Path returns the index file location.
func (s *Storage) Path() string { return s.path }

// Upsert writes chunks in a single transaction, replacing rows with the same
// id. The first successful upsert fixes the collection dimension.
func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	err := sqlitedb.With(ctx, s.path, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck

		dim, err := s.dimension(ctx, tx)
		if err != nil {
			return err
		}
		batchDim, err := vectorstore.ValidateBatch(chunks, dim)
		if err != nil {
			return err
		}
		if dim == 0 {
			if err := s.createCollection(ctx, tx, batchDim, chunks[0].Model); err != nil {
				return err
			}
		}
		for _, ch := range chunks {
			query, args, err := sq.Insert("chunks").
				Columns("collection", "id", "text", "source", "page", "model", "embedding").
				Values(s.collection, ch.ID, ch.Text, ch.Source, ch.Page, ch.Model, encodeVector(ch.Embedding)).
				Suffix(`ON CONFLICT (collection, id) DO UPDATE SET
					text = excluded.text, source = excluded.source, page = excluded.page,
					model = excluded.model, embedding = excluded.embedding`).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("write chunk %s: %w", ch.ID, err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("sqlite store: upsert: %w", err)
	}
	return nil
}

// Query returns up to k chunks nearest to vector by squared L2 distance.
// An empty or missing collection yields an empty result.
func (s *Storage) Query(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return []domain.SearchResult{}, nil
	}
	var results []domain.SearchResult
	err := sqlitedb.With(ctx, s.path, func(db *sql.DB) error {
		dim, err := s.dimension(ctx, db)
		if err != nil || dim == 0 {
			return err
		}
		if len(vector) != dim {
			return fmt.Errorf("query has %d dimensions, want %d: %w", len(vector), dim, domain.ErrDimensionMismatch)
		}
		query, args, err := sq.Select("id", "text", "source", "page", "model", "embedding").
			From("chunks").
			Where(sq.Eq{"collection": s.collection}).
			ToSql()
		if err != nil {
			return err
		}
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				ch   domain.Chunk
				blob []byte
			)
			if err := rows.Scan(&ch.ID, &ch.Text, &ch.Source, &ch.Page, &ch.Model, &blob); err != nil {
				return err
			}
			ch.Embedding, err = decodeVector(blob)
			if err != nil {
				return fmt.Errorf("chunk %s: %w", ch.ID, err)
			}
			results = append(results, domain.SearchResult{Chunk: ch, Distance: vectorstore.SquaredL2(ch.Embedding, vector)})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: query: %w", err)
	}
	if results == nil {
		return []domain.SearchResult{}, nil
	}
	return vectorstore.Rank(results, k), nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	return s.count(ctx, sq.Eq{"collection": s.collection})
}

func (s *Storage) CountSource(ctx context.Context, source string) (int, error) {
	return s.count(ctx, sq.Eq{"collection": s.collection, "source": source})
}

func (s *Storage) count(ctx context.Context, where sq.Eq) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From("chunks").Where(where).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	err = sqlitedb.With(ctx, s.path, func(db *sql.DB) error {
		return db.QueryRowContext(ctx, query, args...).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("sqlite store: count: %w", err)
	}
	return n, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dimension returns the collection's fixed dimension, or 0 if it has none yet.
func (s *Storage) dimension(ctx context.Context, q queryer) (int, error) {
	query, args, err := sq.Select("dimension").From("collections").Where(sq.Eq{"name": s.collection}).ToSql()
	if err != nil {
		return 0, err
	}
	var dim int
	err = q.QueryRowContext(ctx, query, args...).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return dim, err
}

func (s *Storage) createCollection(ctx context.Context, tx *sql.Tx, dim int, model string) error {
	query, args, err := sq.Insert("collections").
		Columns("name", "dimension", "embedding_model").
		Values(s.collection, dim, model).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// encodeVector stores float32 components little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding blob of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
