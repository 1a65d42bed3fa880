package types

import (
	"context"

	"github.com/safdari/biharrag/internal/models"
)

// Core interfaces

// Embedder turns text into a fixed-length vector. Document embedding never
// fails hard: a failed call yields an all-zero placeholder vector.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) []float32
	EmbedQuery(ctx context.Context, text string) []float32
	Dimension() int
}

// ChunkStore persists passages and serves approximate similarity search.
type ChunkStore interface {
	InsertPassages(ctx context.Context, passages []models.Passage) (int, error)
	SearchSimilar(ctx context.Context, embedding []float32, limit int, volumeFilter int) ([]models.QueryCandidate, error)
	SearchByReference(ctx context.Context, volume int, chapter, hadith string) ([]models.Passage, error)
	RecordVolume(ctx context.Context, volume int, fileName string, totalChunks int) error
	ProcessedVolumes(ctx context.Context) ([]models.VolumeRecord, error)
	Stats(ctx context.Context) (models.Stats, error)
	Close()
}

// Segmenter turns per-page texts into ordered passages for one volume.
type Segmenter interface {
	Process(volume int, pages []string) ([]models.Passage, error)
}

// Generator produces the final free-text answer from an assembled prompt.
type Generator interface {
	Answer(ctx context.Context, query, contextBlock string) (string, error)
}
