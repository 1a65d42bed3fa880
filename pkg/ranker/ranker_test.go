package ranker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safdari/biharrag/internal/models"
	"github.com/safdari/biharrag/pkg/ranker"
)

func candidate(fullText string, similarity float32, chunkIndex int) models.QueryCandidate {
	return models.QueryCandidate{
		Passage: models.Passage{
			FullText:    fullText,
			EnglishText: fullText,
			ChunkIndex:  chunkIndex,
		},
		Similarity: similarity,
	}
}

func TestRank_IndicatorOutranksSimilarity(t *testing.T) {
	r := ranker.New(ranker.DefaultPolicy())

	narration := candidate("The Imam narrated a lengthy report about the creation of the heavens and what lies between them", 0.5, 0)
	plain := candidate(strings.Repeat("General prose about the structure of this printed edition. ", 3), 0.9, 1)

	ranked := r.Rank([]models.QueryCandidate{plain, narration}, 10)

	require.Len(t, ranked, 2)
	assert.Equal(t, narration.FullText, ranked[0].FullText)
	assert.InDelta(t, 1.0, ranked[0].Priority, 0.001)
	assert.InDelta(t, 0.5, ranked[1].Priority, 0.001)
}

func TestRank_HadithRefIsAnIndicator(t *testing.T) {
	r := ranker.New(ranker.DefaultPolicy())

	c := candidate(strings.Repeat("Text without any narration cue words at all in it. ", 3), 0.4, 0)
	c.HadithRef = "12"

	ranked := r.Rank([]models.QueryCandidate{c}, 10)

	require.Len(t, ranked, 1)
	assert.InDelta(t, 1.0, ranked[0].Priority, 0.001)
}

func TestRank_Exclusions(t *testing.T) {
	r := ranker.New(ranker.DefaultPolicy())

	tests := []struct {
		name string
		text string
	}{
		{"table of contents", "Table of Contents: Chapter 1 .... 5, Chapter 2 .... 19"},
		{"overall index", "Overall index of the traditions in this volume"},
		{"volume header", "Bihar Al-Anwaar Volume 52 www.hubeali.com"},
		{"bare page line", "page 17"},
		{"chapter title only", "Chapter 4 - The return of the twelfth Imam"},
		{"tiny fragment", "and then he left"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := r.Rank([]models.QueryCandidate{candidate(tt.text, 0.9, 0)}, 10)
			assert.Empty(t, ranked)
		})
	}
}

func TestRank_ShortWithIndicatorSurvives(t *testing.T) {
	r := ranker.New(ranker.DefaultPolicy())

	ranked := r.Rank([]models.QueryCandidate{candidate("He said: seek knowledge", 0.7, 0)}, 10)

	require.Len(t, ranked, 1)
}

func TestRank_TieBreakByOrdinal(t *testing.T) {
	r := ranker.New(ranker.DefaultPolicy())

	text := strings.Repeat("A narration the Imam reported concerning the rights of the believer. ", 2)
	a := candidate(text, 0.8, 7)
	b := candidate(text, 0.8, 2)

	ranked := r.Rank([]models.QueryCandidate{a, b}, 10)

	require.Len(t, ranked, 2)
	assert.Equal(t, 2, ranked[0].ChunkIndex)
	assert.Equal(t, 7, ranked[1].ChunkIndex)
}

func TestRank_TruncatesToTopK(t *testing.T) {
	r := ranker.New(ranker.DefaultPolicy())

	text := strings.Repeat("The narrator reported the tradition with its complete chain. ", 2)
	candidates := make([]models.QueryCandidate, 0, 10)
	for i := 0; i < 10; i++ {
		candidates = append(candidates, candidate(text, float32(i)/10, i))
	}

	ranked := r.Rank(candidates, 3)

	assert.Len(t, ranked, 3)
}

func TestRank_Idempotent(t *testing.T) {
	r := ranker.New(ranker.DefaultPolicy())

	candidates := []models.QueryCandidate{
		candidate(strings.Repeat("The Imam said regarding charity and its reward. ", 2), 0.6, 0),
		candidate(strings.Repeat("Unremarkable prose about the printing of the volume. ", 2), 0.9, 1),
	}

	once := r.Rank(candidates, 10)
	twice := r.Rank(once, 10)

	assert.Equal(t, once, twice)
}

func TestRank_Empty(t *testing.T) {
	r := ranker.New(ranker.DefaultPolicy())

	assert.Empty(t, r.Rank(nil, 5))
}

func TestPolicyByName(t *testing.T) {
	assert.Equal(t, ranker.StrictPolicy(), ranker.PolicyByName("strict"))
	assert.Equal(t, ranker.DefaultPolicy(), ranker.PolicyByName("relaxed"))
	assert.Equal(t, ranker.DefaultPolicy(), ranker.PolicyByName(""))
}
