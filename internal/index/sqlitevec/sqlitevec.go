// Package sqlitevec provides a SQLite-backed vector index using sqlite-vec.
// It is the persistent index used by the offline builder, so the embedding
// pass does not have to be repeated on every start.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"medisearch/internal/domain"
)

// Storage implements domain.Storage on top of a sqlite-vec vec0 table.
type Storage struct {
	db        *sql.DB
	logger    *zap.Logger
	dimension int
}

// Config holds configuration for the sqlite-vec index.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// NewStorage opens (or creates) the index database.
func NewStorage(cfg Config, logger *zap.Logger) (*Storage, error) {
	sqlite_vec.Auto()

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_records (
			rowid INTEGER PRIMARY KEY,
			ordinal INTEGER NOT NULL UNIQUE,
			name TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating records table: %w", err)
	}

	logger.Info("sqlite-vec index opened",
		zap.String("db_path", cfg.DBPath),
		zap.String("vec_version", vecVersion),
	)

	return &Storage{db: db, logger: logger}, nil
}

// Init creates the record mapping table and the vec0 virtual table for the
// given dimension, dropping any previous contents. vec0 rowids are integers,
// so record ordinals map to rowid = ordinal + 1.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	s.dimension = dimension

	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS vec_embeddings`); err != nil {
		return fmt.Errorf("dropping vec0 table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vec_records`); err != nil {
		return fmt.Errorf("clearing records table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		dimension,
	)
	if _, err := s.db.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("creating vec0 table: %w", err)
	}
	return nil
}

// Upsert stores entries with their embeddings inside one transaction.
func (s *Storage) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch for %q: got %d, want %d", e.Name, len(e.Vector), s.dimension)
		}
		blob := serializeFloat32(e.Vector)
		rowID := int64(e.Ordinal) + 1

		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO vec_records(rowid, ordinal, name) VALUES (?, ?, ?)`,
			rowID, e.Ordinal, e.Name,
		); err != nil {
			return fmt.Errorf("inserting record %q: %w", e.Name, err)
		}

		// vec0 does not support UPDATE; replace via DELETE + INSERT.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("deleting old embedding for %q: %w", e.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, blob,
		); err != nil {
			return fmt.Errorf("inserting embedding for %q: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("upserted entries into sqlite-vec", zap.Int("count", len(entries)))
	return nil
}

// Search runs a KNN query and joins back to the record mapping. The cosine
// distance reported by vec0 is converted to a similarity score as 1 - d.
func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	if topK <= 0 {
		topK = 5
	}
	blob := serializeFloat32(vector)

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.ordinal, r.name, ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_records r ON r.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, blob, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var hits []domain.Hit
	for rows.Next() {
		var ordinal int
		var name string
		var distance float64
		if err := rows.Scan(&ordinal, &name, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		hits = append(hits, domain.Hit{
			Ordinal: ordinal,
			Name:    name,
			Score:   float32(1.0 - distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}
	return hits, nil
}

// Clear drops all stored entries.
func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vec_records`); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS vec_embeddings`); err != nil {
		return fmt.Errorf("dropping vec0 table: %w", err)
	}
	return nil
}

// Count reports how many records are stored, letting callers skip a rebuild
// when a prebuilt index is already on disk.
func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

// serializeFloat32 converts a float32 slice to the little-endian BLOB format
// sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

var _ domain.Storage = (*Storage)(nil)
