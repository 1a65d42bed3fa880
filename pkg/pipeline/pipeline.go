// Package pipeline ties extraction, segmentation, embedding, storage and
// answer generation together behind two entry points: volume ingestion and
// question answering.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/safdari/biharrag/internal/types"
	"github.com/safdari/biharrag/pkg/llm"
	"github.com/safdari/biharrag/pkg/pdfx"
	"github.com/safdari/biharrag/pkg/ranker"
)

// MaxVolume is the number of volumes in the Bihar ul Anwar collection.
const MaxVolume = 110

const fallbackAnswer = "I could not find relevant passages in Bihar ul Anwar for this question. " +
	"Try rephrasing it, or narrow it to a specific volume or topic."

type Config struct {
	MaxPages          int
	LargeFileMaxPages int
	LargeFileMB       float64
	MaxAttempts       int
	BackoffBase       time.Duration
	Oversample        int

	// OnProgress, when set, is called after each passage is embedded.
	OnProgress func(done, total int)
}

type Pipeline struct {
	config    Config
	embedder  types.Embedder
	store     types.ChunkStore
	segmenter types.Segmenter
	generator types.Generator
	ranker    ranker.Ranker

	// Overridable in tests.
	extract  func(path string, maxPages int) ([]string, int, error)
	fileSize func(path string) (float64, error)
	sleep    func(d time.Duration)
}

func New(config Config, embedder types.Embedder, store types.ChunkStore, segmenter types.Segmenter, generator types.Generator, rk ranker.Ranker) *Pipeline {
	if config.MaxPages == 0 {
		config.MaxPages = 100
	}
	if config.LargeFileMaxPages == 0 {
		config.LargeFileMaxPages = 50
	}
	if config.LargeFileMB == 0 {
		config.LargeFileMB = 8
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 3
	}
	if config.BackoffBase == 0 {
		config.BackoffBase = 2 * time.Second
	}
	if config.Oversample == 0 {
		config.Oversample = 3
	}

	return &Pipeline{
		config:    config,
		embedder:  embedder,
		store:     store,
		segmenter: segmenter,
		generator: generator,
		ranker:    rk,
		extract:   pdfx.ExtractPages,
		fileSize:  pdfx.FileSizeMB,
		sleep:     time.Sleep,
	}
}

// IngestResult summarizes one volume ingestion run.
type IngestResult struct {
	VolumeNumber int    `json:"volume_number"`
	FileName     string `json:"file_name"`
	TotalPages   int    `json:"total_pages"`
	PagesRead    int    `json:"pages_read"`
	Chunks       int    `json:"chunks"`
	Inserted     int    `json:"inserted"`
	Attempts     int    `json:"attempts"`
}

// IngestVolume extracts, segments, embeds and stores one volume. Extraction
// and storage are retried with exponential backoff; a PDF that yields no
// text at all fails without retry.
func (p *Pipeline) IngestVolume(ctx context.Context, path string, volume int) (*IngestResult, error) {
	if volume < 1 || volume > MaxVolume {
		return nil, fmt.Errorf("volume %d out of range 1..%d", volume, MaxVolume)
	}

	maxPages := p.config.MaxPages
	if sizeMB, err := p.fileSize(path); err == nil && sizeMB > p.config.LargeFileMB {
		maxPages = p.config.LargeFileMaxPages
	}

	var lastErr error
	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		result, err := p.ingestOnce(ctx, path, volume, maxPages)
		if err == nil {
			result.Attempts = attempt
			return result, nil
		}
		lastErr = err

		if strings.Contains(err.Error(), "no text extracted") {
			break
		}
		if attempt < p.config.MaxAttempts {
			p.sleep(p.config.BackoffBase * time.Duration(1<<(attempt-1)))
		}
	}

	return nil, fmt.Errorf("volume %d ingestion failed: %w", volume, lastErr)
}

func (p *Pipeline) ingestOnce(ctx context.Context, path string, volume, maxPages int) (*IngestResult, error) {
	pages, total, err := p.extract(path, maxPages)
	if err != nil {
		return nil, err
	}

	hasText := false
	for _, page := range pages {
		if strings.TrimSpace(page) != "" {
			hasText = true
			break
		}
	}
	if !hasText {
		return nil, fmt.Errorf("no text extracted from %s", path)
	}

	passages, err := p.segmenter.Process(volume, pages)
	if err != nil {
		return nil, err
	}
	if len(passages) == 0 {
		return nil, fmt.Errorf("no passages produced for volume %d", volume)
	}

	for i := range passages {
		passages[i].Embedding = p.embedder.EmbedDocument(ctx, passages[i].FullText)
		if p.config.OnProgress != nil {
			p.config.OnProgress(i+1, len(passages))
		}
	}

	inserted, err := p.store.InsertPassages(ctx, passages)
	if err != nil {
		return nil, err
	}

	fileName := filepath.Base(path)
	if err := p.store.RecordVolume(ctx, volume, fileName, inserted); err != nil {
		return nil, err
	}

	return &IngestResult{
		VolumeNumber: volume,
		FileName:     fileName,
		TotalPages:   total,
		PagesRead:    len(pages),
		Chunks:       len(passages),
		Inserted:     inserted,
	}, nil
}

type QueryRequest struct {
	Query         string `json:"query"`
	TopK          int    `json:"top_k"`
	IncludeArabic bool   `json:"include_arabic"`
	VolumeFilter  int    `json:"volume_filter"`
}

type SourceRef struct {
	Citation   string  `json:"citation"`
	Volume     int     `json:"volume"`
	Chapter    string  `json:"chapter,omitempty"`
	Hadith     string  `json:"hadith,omitempty"`
	Similarity float32 `json:"similarity"`
	Excerpt    string  `json:"excerpt"`
}

type QueryResult struct {
	Answer  string      `json:"answer"`
	Sources []SourceRef `json:"sources"`
}

// Query embeds the question, retrieves and ranks candidate passages, and
// generates a grounded answer. A failed query embedding short-circuits to
// the fallback answer without calling the model.
func (p *Pipeline) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 7
	}

	embedding := p.embedder.EmbedQuery(ctx, req.Query)
	if llm.IsZeroVector(embedding) {
		return &QueryResult{Answer: fallbackAnswer}, nil
	}

	candidates, err := p.store.SearchSimilar(ctx, embedding, topK*p.config.Oversample, req.VolumeFilter)
	if err != nil {
		return nil, err
	}

	ranked := p.ranker.Rank(candidates, topK)
	if len(ranked) == 0 {
		return &QueryResult{Answer: fallbackAnswer}, nil
	}

	contextBlock, references := llm.BuildContext(ranked, req.IncludeArabic)

	answer, err := p.generator.Answer(ctx, req.Query, contextBlock)
	if err != nil {
		return nil, err
	}
	answer = llm.FinalizeAnswer(answer, references)

	sources := make([]SourceRef, 0, len(ranked))
	for _, c := range ranked {
		sources = append(sources, SourceRef{
			Citation:   llm.Citation(c.Passage),
			Volume:     c.VolumeNumber,
			Chapter:    c.ChapterRef,
			Hadith:     c.HadithRef,
			Similarity: c.Similarity,
			Excerpt:    excerpt(c.EnglishText, c.FullText),
		})
	}

	return &QueryResult{Answer: answer, Sources: sources}, nil
}

func excerpt(english, full string) string {
	text := english
	if strings.TrimSpace(text) == "" {
		text = full
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > 200 {
		return string(runes[:200]) + "..."
	}
	return string(runes)
}
