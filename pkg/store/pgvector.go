package store

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/safdari/biharrag/internal/models"
)

type StoreConfig struct {
	ConnString       string
	TableName        string
	VectorDim        int
	BatchSize        int
	SimilarityFloor  float64
	MinEnglishLength int
}

// Store persists passages in Postgres with a pgvector column and serves the
// approximate cosine search the ranker consumes.
type Store struct {
	config StoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config StoreConfig) (*Store, error) {
	if config.TableName == "" {
		config.TableName = "bihar_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 50
	}
	if config.SimilarityFloor == 0 {
		config.SimilarityFloor = 0.3
	}
	if config.MinEnglishLength == 0 {
		config.MinEnglishLength = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		config: config,
		pool:   pool,
	}

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			volume_number INTEGER NOT NULL,
			chapter_name VARCHAR(500),
			hadith_number VARCHAR(100),
			arabic_text TEXT,
			english_text TEXT,
			full_text TEXT NOT NULL,
			chunk_index INTEGER,
			embedding vector(%d),
			metadata JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, s.config.TableName, s.config.VectorDim)

	if _, err = s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	lookupIndexes := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %[1]s_volume_idx ON %[1]s (volume_number);
		CREATE INDEX IF NOT EXISTS %[1]s_hadith_idx ON %[1]s (hadith_number)`,
		s.config.TableName)

	if _, err = s.pool.Exec(ctx, lookupIndexes); err != nil {
		return fmt.Errorf("failed to create lookup indexes: %w", err)
	}

	createVectorIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %[1]s_embedding_idx
		ON %[1]s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`, s.config.TableName)

	if _, err = s.pool.Exec(ctx, createVectorIndex); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	createVolumes := `
		CREATE TABLE IF NOT EXISTS processed_volumes (
			id SERIAL PRIMARY KEY,
			volume_number INTEGER UNIQUE,
			file_name VARCHAR(255),
			total_chunks INTEGER,
			processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`

	if _, err = s.pool.Exec(ctx, createVolumes); err != nil {
		return fmt.Errorf("failed to create processed_volumes table: %w", err)
	}

	return nil
}

// InsertPassages appends the passages of one ingestion run, committing in
// batches. Passages are append-only; re-ingestion creates new rows.
func (s *Store) InsertPassages(ctx context.Context, passages []models.Passage) (int, error) {
	stmt := fmt.Sprintf(`
		INSERT INTO %s
		(volume_number, chapter_name, hadith_number, arabic_text,
		 english_text, full_text, chunk_index, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, s.config.TableName)

	inserted := 0
	for start := 0; start < len(passages); start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > len(passages) {
			end = len(passages)
		}

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return inserted, fmt.Errorf("failed to begin transaction: %w", err)
		}

		for _, p := range passages[start:end] {
			_, err = tx.Exec(ctx, stmt,
				p.VolumeNumber,
				nullable(p.ChapterRef),
				nullable(p.HadithRef),
				sanitizeUTF8(p.ArabicText),
				sanitizeUTF8(p.EnglishText),
				sanitizeUTF8(p.FullText),
				p.ChunkIndex,
				pgvector.NewVector(p.Embedding),
				p.Metadata,
			)
			if err != nil {
				tx.Rollback(ctx)
				return inserted, fmt.Errorf("failed to insert passage: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return inserted, fmt.Errorf("failed to commit batch: %w", err)
		}
		inserted += end - start
	}

	return inserted, nil
}

// SearchSimilar runs the cosine search with the configured similarity floor
// and the minimum-content length pre-filter, optionally restricted to one
// volume. An all-zero query vector yields an empty result without touching
// the index. Callers request more than they finally need and hand the result
// to the ranker.
func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, limit int, volumeFilter int) ([]models.QueryCandidate, error) {
	if isZero(embedding) {
		return nil, nil
	}

	vec := pgvector.NewVector(embedding)

	query := fmt.Sprintf(`
		SELECT id, volume_number, chapter_name, hadith_number, arabic_text,
		       english_text, full_text, chunk_index, metadata,
		       1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE embedding IS NOT NULL
		AND LENGTH(COALESCE(english_text, full_text, '')) > $2`, s.config.TableName)

	args := []interface{}{vec, s.config.MinEnglishLength}

	if volumeFilter > 0 {
		query += fmt.Sprintf(" AND volume_number = $%d", len(args)+1)
		args = append(args, volumeFilter)
	}

	query += fmt.Sprintf(`
		AND 1 - (embedding <=> $1) > $%d
		ORDER BY embedding <=> $1
		LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, s.config.SimilarityFloor, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search passages: %w", err)
	}
	defer rows.Close()

	var candidates []models.QueryCandidate
	for rows.Next() {
		var (
			c               models.QueryCandidate
			chapter, hadith *string
			similarity      float64
		)
		err := rows.Scan(
			&c.ID,
			&c.VolumeNumber,
			&chapter,
			&hadith,
			&c.ArabicText,
			&c.EnglishText,
			&c.FullText,
			&c.ChunkIndex,
			&c.Metadata,
			&similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		c.ChapterRef = deref(chapter)
		c.HadithRef = deref(hadith)
		c.Similarity = float32(similarity)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return candidates, nil
}

// SearchByReference looks passages up by locator. Chapter and hadith filters
// match exactly or as substrings; hadith-bearing rows come first, then
// ingestion order.
func (s *Store) SearchByReference(ctx context.Context, volume int, chapter, hadith string) ([]models.Passage, error) {
	query := fmt.Sprintf(`
		SELECT id, volume_number, chapter_name, hadith_number, arabic_text,
		       english_text, LEFT(full_text, 300) AS full_text, chunk_index, metadata
		FROM %s
		WHERE volume_number = $1`, s.config.TableName)

	args := []interface{}{volume}

	if strings.TrimSpace(chapter) != "" {
		query += fmt.Sprintf(" AND (chapter_name = $%d OR chapter_name ILIKE $%d)", len(args)+1, len(args)+2)
		args = append(args, chapter, "%"+chapter+"%")
	}
	if strings.TrimSpace(hadith) != "" {
		query += fmt.Sprintf(" AND (hadith_number = $%d OR hadith_number ILIKE $%d)", len(args)+1, len(args)+2)
		args = append(args, hadith, "%"+hadith+"%")
	}

	query += `
		AND LENGTH(COALESCE(english_text, full_text, '')) > 50
		ORDER BY
			CASE WHEN hadith_number IS NOT NULL THEN 1 ELSE 2 END,
			chunk_index
		LIMIT 20`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search by reference: %w", err)
	}
	defer rows.Close()

	var passages []models.Passage
	for rows.Next() {
		var (
			p               models.Passage
			chapterCol      *string
			hadithCol       *string
		)
		err := rows.Scan(
			&p.ID,
			&p.VolumeNumber,
			&chapterCol,
			&hadithCol,
			&p.ArabicText,
			&p.EnglishText,
			&p.FullText,
			&p.ChunkIndex,
			&p.Metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		p.ChapterRef = deref(chapterCol)
		p.HadithRef = deref(hadithCol)

		if excludedReferenceRow(p.FullText) {
			continue
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return passages, nil
}

// excludedReferenceRow drops the obvious non-content rows from reference
// lookups: tiny fragments, pure TOC lines, bare page numbers.
func excludedReferenceRow(fullText string) bool {
	full := strings.ToLower(strings.TrimSpace(fullText))
	switch {
	case len(full) < 30:
		return true
	case strings.HasPrefix(full, "table of contents"):
		return true
	case strings.HasPrefix(full, "page ") && len(full) < 50:
		return true
	}
	return false
}

// RecordVolume upserts the single ingestion-record row for a volume. Retried
// ingestion runs overwrite the row rather than duplicating it.
func (s *Store) RecordVolume(ctx context.Context, volume int, fileName string, totalChunks int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processed_volumes (volume_number, file_name, total_chunks)
		VALUES ($1, $2, $3)
		ON CONFLICT (volume_number)
		DO UPDATE SET
			total_chunks = EXCLUDED.total_chunks,
			processed_at = CURRENT_TIMESTAMP,
			file_name = EXCLUDED.file_name`,
		volume, fileName, totalChunks)
	if err != nil {
		return fmt.Errorf("failed to record processed volume: %w", err)
	}
	return nil
}

// ProcessedVolumes lists the ingestion records in volume order.
func (s *Store) ProcessedVolumes(ctx context.Context) ([]models.VolumeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT volume_number, file_name, total_chunks, processed_at
		FROM processed_volumes
		ORDER BY volume_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list processed volumes: %w", err)
	}
	defer rows.Close()

	var records []models.VolumeRecord
	for rows.Next() {
		var r models.VolumeRecord
		if err := rows.Scan(&r.VolumeNumber, &r.FileName, &r.TotalChunks, &r.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// Stats returns corpus-wide counts.
func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats

	query := fmt.Sprintf(`
		SELECT
			COUNT(DISTINCT volume_number),
			COUNT(*),
			COUNT(DISTINCT chapter_name) FILTER (WHERE chapter_name IS NOT NULL),
			COUNT(DISTINCT hadith_number) FILTER (WHERE hadith_number IS NOT NULL),
			COUNT(*) FILTER (WHERE arabic_text != ''),
			COUNT(*) FILTER (WHERE english_text != '')
		FROM %s`, s.config.TableName)

	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.TotalVolumes,
		&stats.TotalChunks,
		&stats.TotalChapters,
		&stats.TotalHadiths,
		&stats.ChunksWithArabic,
		&stats.ChunksWithEnglish,
	)
	if err != nil {
		return stats, fmt.Errorf("failed to collect stats: %w", err)
	}

	return stats, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
