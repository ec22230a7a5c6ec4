package rag

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Sentinel errors for the rag package.
var (
	// ErrNoEmbedder is returned when a search needs embeddings but the
	// store was opened without an embedder.
	ErrNoEmbedder = errors.New("store has no embedder")
)

// Embedder produces embeddings. *gemini.Client satisfies this.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is one persistent pattern index. Read-only during a translation
// run; rebuild happens only at construction or via the rag CLI.
type Store struct {
	kind     Kind
	cfg      KindConfig
	db       *sql.DB
	embedder Embedder
	logger   *slog.Logger

	sourcePath string

	mu        sync.Mutex
	direct    map[string]*Match // exact-JP lookup cache, built lazily
	negatives map[string][][]float32
	vecTable  bool // sqlite-vec virtual table available
}

// Open opens (creating if necessary) the index at dbPath. If the index is
// empty and the JSON source exists, the store rebuilds itself, so first runs
// and embedding-dimension changes need no operator intervention.
func Open(ctx context.Context, kind Kind, dbPath, sourcePath string, embedder Embedder, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pattern index: %w", err)
	}

	s := &Store{
		kind:       kind,
		cfg:        kind.Config(),
		db:         db,
		embedder:   embedder,
		logger:     logger,
		sourcePath: sourcePath,
	}

	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	count, err := s.Count()
	if err != nil {
		db.Close()
		return nil, err
	}
	if count == 0 {
		if _, statErr := os.Stat(sourcePath); statErr == nil {
			if rebuildErr := s.Rebuild(ctx); rebuildErr != nil {
				// A store that failed to build still serves direct misses;
				// guidance is simply unavailable.
				logger.Warn("pattern index rebuild failed, continuing with empty store",
					"kind", kind, "error", rebuildErr)
			}
		}
	}

	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Kind returns the store's variant tag.
func (s *Store) Kind() Kind {
	return s.kind
}

func (s *Store) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS patterns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pattern_id TEXT NOT NULL,
	category TEXT NOT NULL,
	priority INTEGER NOT NULL,
	register TEXT NOT NULL DEFAULT 'neutral',
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	genre TEXT NOT NULL DEFAULT '',
	document TEXT NOT NULL,
	zh_indicators TEXT NOT NULL DEFAULT '[]',
	embedding BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_patterns_category ON patterns(category);
CREATE INDEX IF NOT EXISTS idx_patterns_source ON patterns(source);
CREATE TABLE IF NOT EXISTS negatives (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL,
	text TEXT NOT NULL,
	embedding BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_negatives_category ON negatives(category);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create pattern schema: %w", err)
	}

	// sqlite-vec KNN table, when the extension is compiled in. Falling
	// back to a full cosine scan keeps the store usable either way.
	_, err := s.db.Exec(fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS patterns_vec USING vec0(pattern_row INTEGER, embedding float[%d])", EmbeddingDim))
	s.vecTable = err == nil
	if !s.vecTable {
		s.logger.Debug("sqlite-vec unavailable, using full-scan similarity", "kind", s.kind)
	}
	return nil
}

// EmbeddingDim is the embedding dimensionality the stores are built for.
const EmbeddingDim = 768

// Count returns the number of indexed (pattern, example) units.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM patterns").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count patterns: %w", err)
	}
	return n, nil
}

// NegativeCount returns the number of indexed negative anchors.
func (s *Store) NegativeCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM negatives").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count negatives: %w", err)
	}
	return n, nil
}

// Rebuild re-indexes the store from its JSON source. Every (pattern,
// example) unit is embedded in one batch call; negatives likewise.
func (s *Store) Rebuild(ctx context.Context) error {
	if s.embedder == nil {
		return ErrNoEmbedder
	}
	src, err := LoadSource(s.sourcePath)
	if err != nil {
		return err
	}

	type unit struct {
		pattern SourcePattern
		example SourceExample
		text    string
	}
	var units []unit
	for _, p := range src.Patterns {
		for _, ex := range p.Examples {
			units = append(units, unit{p, ex, IndexText(p, ex)})
		}
	}
	if len(units) == 0 {
		return fmt.Errorf("RAG source %s declares no patterns", s.sourcePath)
	}

	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.text
	}
	embeddings, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed %d pattern units: %w", len(units), err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin rebuild transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM patterns"); err != nil {
		return fmt.Errorf("failed to clear patterns: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM negatives"); err != nil {
		return fmt.Errorf("failed to clear negatives: %w", err)
	}

	if s.vecTable {
		if _, err := tx.Exec("DELETE FROM patterns_vec"); err != nil {
			return fmt.Errorf("failed to clear vector table: %w", err)
		}
	}

	for i, u := range units {
		zh, _ := json.Marshal(u.pattern.ZhIndicators)
		res, err := tx.Exec(
			`INSERT INTO patterns (pattern_id, category, priority, register, source, target, genre, document, zh_indicators, embedding)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			u.pattern.PatternID,
			u.pattern.Category,
			s.kind.Priority(u.pattern.Category),
			registerOrNeutral(u.pattern.Register),
			u.example.Source,
			u.example.Target,
			u.pattern.GenreContext,
			u.text,
			string(zh),
			encodeEmbedding(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert pattern %s: %w", u.pattern.PatternID, err)
		}
		if s.vecTable {
			rowID, idErr := res.LastInsertId()
			if idErr == nil {
				_, vecErr := tx.Exec(
					"INSERT INTO patterns_vec (pattern_row, embedding) VALUES (?, ?)",
					rowID, encodeEmbedding(embeddings[i]))
				if vecErr != nil {
					s.logger.Debug("vec0 insert failed, index will use full scans", "error", vecErr)
					s.vecTable = false
				}
			}
		}
	}

	// Negative anchors: embed per category in one flattened batch.
	var negTexts []string
	var negCats []string
	for cat, examples := range src.NegativeVectors {
		for _, ex := range examples {
			negCats = append(negCats, cat)
			negTexts = append(negTexts, DomainHint(ex))
		}
	}
	if len(negTexts) > 0 {
		negEmbeddings, err := s.embedder.EmbedTexts(ctx, negTexts)
		if err != nil {
			return fmt.Errorf("failed to embed %d negative anchors: %w", len(negTexts), err)
		}
		for i := range negTexts {
			_, err := tx.Exec(
				"INSERT INTO negatives (category, text, embedding) VALUES (?, ?, ?)",
				negCats[i], negTexts[i], encodeEmbedding(negEmbeddings[i]),
			)
			if err != nil {
				return fmt.Errorf("failed to insert negative anchor: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}

	s.mu.Lock()
	s.direct = nil
	s.negatives = nil
	s.mu.Unlock()

	s.logger.Info("pattern index rebuilt",
		"kind", s.kind, "units", len(units), "negatives", len(negTexts))
	return nil
}

func registerOrNeutral(r string) string {
	switch r {
	case "formal", "casual", "literary", "neutral":
		return r
	}
	return "neutral"
}

// encodeEmbedding serializes a vector as little-endian float32 bytes.
func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeEmbedding deserializes a little-endian float32 vector.
func decodeEmbedding(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// cosine returns the cosine similarity of two vectors.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
