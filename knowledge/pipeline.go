package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	// Registers the "sqlite3" database/sql driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/logging"
	"github.com/hupe1980/agentforge/model"
)

// State tracks a source through the ingestion lifecycle.
type State int

const (
	// StateUnloaded means the source has never been ingested.
	StateUnloaded State = iota
	// StateIngesting means ingestion is in flight.
	StateIngesting
	// StateReady means the source is fully indexed and queryable.
	StateReady
	// StateFailed means ingestion failed; no chunks of the source are queryable.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateIngesting:
		return "ingesting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Source identifies one document to ingest. When Content is set it is used
// directly; otherwise the URL is fetched.
type Source struct {
	ID      string // unique source identifier (idempotence key)
	Name    string // human readable name
	URL     string // fetch location when Content is empty
	Content string // inline content, bypasses fetching
}

// ScoredChunk is one ranked retrieval unit returned by Query.
type ScoredChunk struct {
	SourceID string
	Pos      int
	Content  string
	Score    float64
}

// Fetcher retrieves raw source content. The default implementation performs
// a plain HTTP GET; tests inject fakes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches sources over HTTP with a bounded timeout.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Options configure the pipeline.
type Options struct {
	ChunkConfig   ChunkConfig
	Fetcher       Fetcher
	Logger        logging.Logger
	VectorWeight  float64 // weight of the vector-similarity signal
	KeywordWeight float64 // weight of the keyword-match signal
}

// Pipeline owns one SQLite knowledge index plus the embedding capability.
// Safe for concurrent use: ingestion writes are transactional and per-source
// state is guarded by a mutex.
type Pipeline struct {
	db       *sql.DB
	path     string
	embedder model.Embedder
	opts     Options

	mu     sync.RWMutex
	states map[string]State
}

// NewPipeline opens (or creates) the knowledge index file. Index
// unavailability is a StorageUnavailableError.
func NewPipeline(indexPath string, embedder model.Embedder, optFns ...func(o *Options)) (*Pipeline, error) {
	opts := Options{
		ChunkConfig:   DefaultChunkConfig(),
		Fetcher:       &HTTPFetcher{},
		Logger:        logging.NoOpLogger{},
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if dir := filepath.Dir(indexPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &core.StorageUnavailableError{Path: indexPath, Err: err}
		}
	}

	db, err := sql.Open("sqlite3", indexPath)
	if err != nil {
		return nil, &core.StorageUnavailableError{Path: indexPath, Err: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			opts.Logger.Debug("pragma failed", "pragma", pragma, "error", err)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS sources (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			url TEXT,
			chunk_count INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id TEXT NOT NULL REFERENCES sources(id),
			pos INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL,
			tokens TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id)`,
		`CREATE TABLE IF NOT EXISTS index_meta (key TEXT PRIMARY KEY, value TEXT)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, &core.StorageUnavailableError{Path: indexPath, Err: err}
		}
	}

	return &Pipeline{
		db:       db,
		path:     indexPath,
		embedder: embedder,
		opts:     opts,
		states:   make(map[string]State),
	}, nil
}

// Close releases the index database connection.
func (p *Pipeline) Close() error { return p.db.Close() }

// SourceState reports the lifecycle state of a source. Sources present in the
// index from earlier runs report StateReady.
func (p *Pipeline) SourceState(sourceID string) State {
	p.mu.RLock()
	if s, ok := p.states[sourceID]; ok {
		p.mu.RUnlock()
		return s
	}
	p.mu.RUnlock()

	var n int
	if err := p.db.QueryRow(`SELECT COUNT(1) FROM sources WHERE id = ?`, sourceID).Scan(&n); err == nil && n > 0 {
		return StateReady
	}
	return StateUnloaded
}

// Ingest runs the fetch-chunk-embed-store pipeline for one source. A source
// id already present in the index is skipped unless force is set (idempotent
// ingestion; changed upstream content under the same id requires force). All
// index writes happen in one transaction so a mid-ingestion failure leaves
// zero chunks of the source queryable.
func (p *Pipeline) Ingest(ctx context.Context, src Source, force bool) error {
	if src.ID == "" {
		return &core.ConfigurationError{Setting: "source_id", Reason: "must be non-empty"}
	}

	exists, err := p.sourceExists(src.ID)
	if err != nil {
		return p.fail(src.ID, core.StageIndex, err)
	}
	if exists && !force {
		p.setState(src.ID, StateReady)
		p.opts.Logger.Debug("source already ingested, skipping", "source", src.ID)
		return nil
	}

	p.setState(src.ID, StateIngesting)
	p.opts.Logger.Info("ingesting knowledge source", "source", src.ID, "url", src.URL)

	content := src.Content
	if content == "" {
		content, err = p.opts.Fetcher.Fetch(ctx, src.URL)
		if err != nil {
			return p.fail(src.ID, core.StageFetch, err)
		}
	}

	pieces := Chunk(content, p.opts.ChunkConfig)
	if len(pieces) == 0 {
		return p.fail(src.ID, core.StageChunk, fmt.Errorf("source produced no chunks"))
	}

	embeddings := make([][]float32, len(pieces))
	for i, piece := range pieces {
		select {
		case <-ctx.Done():
			return p.fail(src.ID, core.StageEmbed, ctx.Err())
		default:
		}
		vec, err := p.embedder.Embed(ctx, piece)
		if err != nil {
			return p.fail(src.ID, core.StageEmbed, err)
		}
		if err := p.checkDimension(len(vec)); err != nil {
			return p.fail(src.ID, core.StageEmbed, err)
		}
		embeddings[i] = vec
	}

	if err := p.writeSource(ctx, src, pieces, embeddings, force); err != nil {
		return p.fail(src.ID, core.StageIndex, err)
	}

	p.setState(src.ID, StateReady)
	p.opts.Logger.Info("knowledge source ready", "source", src.ID, "chunks", len(pieces))
	return nil
}

// writeSource persists source row and all chunks atomically.
func (p *Pipeline) writeSource(ctx context.Context, src Source, pieces []string, embeddings [][]float32, force bool) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if force {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source_id = ?`, src.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, src.ID); err != nil {
			return err
		}
	}

	name := src.Name
	if name == "" {
		name = src.ID
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sources (id, name, url, chunk_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		src.ID, name, src.URL, len(pieces), time.Now().UTC(),
	); err != nil {
		return err
	}

	for i, piece := range pieces {
		tokens := strings.Join(Tokenize(piece), " ")
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (source_id, pos, content, embedding, tokens) VALUES (?, ?, ?, ?, ?)`,
			src.ID, i, piece, encodeVector(embeddings[i]), tokens,
		); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO index_meta (key, value) VALUES ('embedding_dim', ?)`,
		fmt.Sprintf("%d", len(embeddings[0])),
	); err != nil {
		return err
	}

	return tx.Commit()
}

// Query ranks indexed chunks against the query text and returns the top k.
// Hybrid score = VectorWeight*cosine + KeywordWeight*keyword-overlap; ties
// are broken by source-then-chunk insertion order. An empty index, a failed
// embedding call, or a closed pipeline degrade to an empty result set.
func (p *Pipeline) Query(ctx context.Context, text string, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM chunks`).Scan(&total); err != nil || total == 0 {
		return nil, nil
	}

	queryVec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		// Retrieval degrades to "no extra context" rather than failing the caller.
		p.opts.Logger.Warn("query embedding failed, returning no context", "error", err)
		return nil, nil
	}
	queryTokens := Tokenize(text)

	rows, err := p.db.QueryContext(ctx, `
		SELECT c.source_id, c.pos, c.content, c.embedding, c.tokens
		FROM chunks c
		JOIN sources s ON s.id = c.source_id
		ORDER BY s.created_at, s.rowid, c.pos`)
	if err != nil {
		p.opts.Logger.Warn("chunk scan failed, returning no context", "error", err)
		return nil, nil
	}
	defer rows.Close()

	var scored []ScoredChunk
	for rows.Next() {
		var (
			c      ScoredChunk
			blob   []byte
			tokens string
		)
		if err := rows.Scan(&c.SourceID, &c.Pos, &c.Content, &blob, &tokens); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		vec := decodeVector(blob)
		vectorScore := cosineSimilarity(queryVec, vec)
		keywordScore := keywordOverlap(queryTokens, strings.Fields(tokens))
		c.Score = p.opts.VectorWeight*vectorScore + p.opts.KeywordWeight*keywordScore
		scored = append(scored, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stable sort preserves source-then-chunk insertion order for ties.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (p *Pipeline) sourceExists(sourceID string) (bool, error) {
	var n int
	if err := p.db.QueryRow(`SELECT COUNT(1) FROM sources WHERE id = ?`, sourceID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// checkDimension enforces a fixed embedding dimensionality per index.
func (p *Pipeline) checkDimension(dim int) error {
	var stored string
	err := p.db.QueryRow(`SELECT value FROM index_meta WHERE key = 'embedding_dim'`).Scan(&stored)
	if err == sql.ErrNoRows {
		return nil // first ingest fixes the dimension
	}
	if err != nil {
		return err
	}
	if stored != fmt.Sprintf("%d", dim) {
		return fmt.Errorf("embedding dimension %d does not match index dimension %s", dim, stored)
	}
	return nil
}

func (p *Pipeline) setState(sourceID string, s State) {
	p.mu.Lock()
	p.states[sourceID] = s
	p.mu.Unlock()
}

func (p *Pipeline) fail(sourceID, stage string, err error) error {
	p.setState(sourceID, StateFailed)
	ierr := &core.IngestionError{Source: sourceID, Stage: stage, Err: err}
	p.opts.Logger.Error("ingestion failed", "source", sourceID, "stage", stage, "error", err)
	return ierr
}

// encodeVector serializes a float32 vector as little-endian bytes, the same
// layout sqlite-vec consumes when the vec0 extension is loaded.
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

// cosineSimilarity returns the cosine of the angle between a and b mapped to
// [0, 1]; mismatched lengths score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return (dot/(math.Sqrt(normA)*math.Sqrt(normB)) + 1) / 2
}

// keywordOverlap scores the fraction of query tokens present in the chunk.
func keywordOverlap(queryTokens, chunkTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(chunkTokens))
	for _, t := range chunkTokens {
		set[t] = struct{}{}
	}
	matched := 0
	for _, t := range queryTokens {
		if _, ok := set[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}
