package processor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safdari/biharrag/pkg/processor"
)

func TestExtractReference_ChapterHeader(t *testing.T) {
	ref := processor.ExtractReference("Chapter 5 - The virtues of seeking knowledge and its people", 1)

	assert.Equal(t, "5", ref.Chapter)
	assert.Empty(t, ref.Hadith)
	assert.Equal(t, "chapter_header", ref.Method)
	assert.InDelta(t, 0.4, ref.Confidence, 0.001)
}

func TestExtractReference_HadithNumber(t *testing.T) {
	ref := processor.ExtractReference("Hadith #12: The Prophet spoke regarding the rights of neighbours", 1)

	assert.Empty(t, ref.Chapter)
	assert.Equal(t, "12", ref.Hadith)
	assert.Equal(t, "hadith_number", ref.Method)
	assert.InDelta(t, 0.4, ref.Confidence, 0.001)
}

func TestExtractReference_Both(t *testing.T) {
	ref := processor.ExtractReference("Chapter 2\nHadith #7\nThe Imam spoke at length about patience in adversity", 1)

	assert.Equal(t, "2", ref.Chapter)
	assert.Equal(t, "7", ref.Hadith)
	assert.Equal(t, "both", ref.Method)
	assert.InDelta(t, 0.8, ref.Confidence, 0.001)
}

func TestExtractReference_ArabicMarkers(t *testing.T) {
	ref := processor.ExtractReference("باب 14 في فضل العلم وأهله ومكانتهم عند الله تعالى", 1)

	assert.Equal(t, "14", ref.Chapter)
}

func TestExtractReference_OutOfBounds(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"hadith too large", "Hadith #99999 concerning matters that never were recorded"},
		{"chapter too large", "Chapter 999 on something that cannot exist in this collection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := processor.ExtractReference(tt.text, 1)
			assert.Empty(t, ref.Chapter)
			assert.Empty(t, ref.Hadith)
			assert.Zero(t, ref.Confidence)
		})
	}
}

func TestExtractReference_NumberedNarration(t *testing.T) {
	ref := processor.ExtractReference("3 - Narrated from Abu Baseer who reported the words of the Imam\nregarding the prayer of the night", 1)

	assert.Equal(t, "3", ref.Hadith)
	assert.Equal(t, "context", ref.Method)
	assert.InDelta(t, 0.2, ref.Confidence, 0.001)
}

func TestExtractReference_NumberedLineWithoutNarration(t *testing.T) {
	// A numbered line with no narration cue nearby is a list, not a hadith.
	ref := processor.ExtractReference("4 - apples\n5 - oranges\n6 - pears and other fruit of the season", 1)

	assert.Empty(t, ref.Hadith)
}

func TestExtractReference_StripsRunningHeaders(t *testing.T) {
	text := "www.hubeali.com Bihar Al-Anwaar Volume 23 Page 4 of 120\nChapter 11 - The merits of the month of Ramadhan"

	ref := processor.ExtractReference(text, 23)

	assert.Equal(t, "11", ref.Chapter)
}

func TestExtractReference_TooShort(t *testing.T) {
	ref := processor.ExtractReference("Chapter 5", 1)

	assert.Empty(t, ref.Chapter)
	assert.Zero(t, ref.Confidence)
}
