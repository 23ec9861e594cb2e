// README: Passage index stored in a local SQLite file with embedding vectors.
package answer

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	_ "modernc.org/sqlite"

	"docent/internal/ai"
)

// SQLiteIndex holds passage chunks and their embedding vectors in a single
// local database file, built offline by the index-builder CLI. Queries embed
// the question and brute-force cosine distance over the corpus, which is
// plenty for a guide corpus of a few hundred chunks.
type SQLiteIndex struct {
	db       *sql.DB
	embedder ai.Embedder
}

// OpenSQLiteIndex opens an existing index file. A missing file is reported
// as ErrIndexUnavailable so the answerer can fail closed with a specific
// outcome instead of crashing.
func OpenSQLiteIndex(path string, embedder ai.Embedder) (*SQLiteIndex, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, ErrIndexUnavailable
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &SQLiteIndex{db: db, embedder: embedder}, nil
}

// CreateSQLiteIndex creates (or opens) an index file for building.
func CreateSQLiteIndex(path string, embedder ai.Embedder) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS passages (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			content   TEXT NOT NULL,
			embedding BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteIndex{db: db, embedder: embedder}, nil
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// Add embeds one passage and stores it.
func (s *SQLiteIndex) Add(ctx context.Context, passage string) error {
	vec, err := s.embedder.Embed(ctx, passage)
	if err != nil {
		return fmt.Errorf("embed passage: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO passages (content, embedding) VALUES (?, ?)`,
		passage, encodeVector(vec))
	return err
}

// Count returns the number of stored passages.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n)
	return n, err
}

// Search embeds the query and returns the k closest passages, best first
// (ascending cosine distance).
func (s *SQLiteIndex) Search(ctx context.Context, query string, k int) ([]ScoredPassage, error) {
	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT content, embedding FROM passages`)
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}
	defer rows.Close()

	var hits []ScoredPassage
	for rows.Next() {
		var content string
		var blob []byte
		if err := rows.Scan(&content, &blob); err != nil {
			return nil, err
		}
		hits = append(hits, ScoredPassage{
			Passage: content,
			Score:   cosineDistance(qvec, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// sortHits orders ascending by distance; insertion sort is fine for a small
// corpus and keeps equal-distance passages in storage order.
func sortHits(hits []ScoredPassage) {
	for i := 1; i < len(hits); i++ {
		key := hits[i]
		j := i - 1
		for j >= 0 && hits[j].Score > key.Score {
			hits[j+1] = hits[j]
			j--
		}
		hits[j+1] = key
	}
}

// cosineDistance returns 1 - cosine similarity; 0 means identical direction.
// Mismatched or degenerate vectors score as maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}

// ChunkText splits a corpus into overlapping rune chunks for indexing.
// Matches the chunking the guide corpus was originally prepared with.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = size / 2
	}
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += size - overlap {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
