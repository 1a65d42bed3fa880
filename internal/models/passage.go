package models

import "time"

// Reference is the structural locator extracted from a passage's opening text.
// Empty Chapter/Hadith means the extractor found nothing; that is not an error.
type Reference struct {
	Chapter    string
	Hadith     string
	Confidence float64
	Method     string
}

// Passage is the unit of storage and retrieval: one chunk of a volume,
// partitioned into Arabic and English portions and annotated with the
// extracted reference. FullText is what gets embedded.
type Passage struct {
	ID           int64
	VolumeNumber int
	ChapterRef   string
	HadithRef    string
	ArabicText   string
	EnglishText  string
	FullText     string
	ChunkIndex   int
	Metadata     map[string]interface{}
	Embedding    []float32
}

// QueryCandidate is a passage returned by similarity search. Similarity is
// cosine similarity in [-1, 1]; Priority is assigned by the ranker and lives
// only for the duration of one query.
type QueryCandidate struct {
	Passage
	Similarity float32
	Priority   float64
}

// VolumeRecord summarizes one completed ingestion run for a volume.
type VolumeRecord struct {
	VolumeNumber int
	FileName     string
	TotalChunks  int
	ProcessedAt  time.Time
}

// Stats reports corpus-wide counts.
type Stats struct {
	TotalVolumes      int
	TotalChunks       int
	TotalChapters     int
	TotalHadiths      int
	ChunksWithArabic  int
	ChunksWithEnglish int
}
