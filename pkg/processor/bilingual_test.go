package processor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safdari/biharrag/pkg/processor"
)

func TestSplitArabicEnglish(t *testing.T) {
	text := "The Imam said: knowledge is light.\nالعلم نور يقذفه الله في قلب من يشاء"

	arabic, english := processor.SplitArabicEnglish(text)

	assert.Equal(t, "العلم نور يقذفه الله في قلب من يشاء", arabic)
	assert.Equal(t, "The Imam said: knowledge is light.", english)
}

func TestSplitArabicEnglish_ShortInput(t *testing.T) {
	arabic, english := processor.SplitArabicEnglish("hi")

	assert.Empty(t, arabic)
	assert.Equal(t, "hi", english)
}

func TestSplitArabicEnglish_NoAlphabeticLines(t *testing.T) {
	// Bare digits and punctuation carry no script signal and stay English.
	arabic, english := processor.SplitArabicEnglish("123 456\n...---...\nsome actual words here")

	assert.Empty(t, arabic)
	assert.Contains(t, english, "123 456")
	assert.Contains(t, english, "some actual words here")
}

func TestSplitArabicEnglish_SkipsTinyLines(t *testing.T) {
	_, english := processor.SplitArabicEnglish("ab\ncd\nThe quick brown fox jumps over the lazy dog")

	assert.Equal(t, "The quick brown fox jumps over the lazy dog", english)
}

func TestSplitArabicEnglish_MixedLineGoesArabic(t *testing.T) {
	// A line dominated by Arabic keeps its few Latin runes with it.
	arabic, english := processor.SplitArabicEnglish("قال الامام علي (a.s): العقل نور\npurely english line here")

	assert.Contains(t, arabic, "العقل")
	assert.Equal(t, "purely english line here", english)
}

func TestSplitArabicEnglish_PartitionCoversAllLines(t *testing.T) {
	lines := []string{
		"The Imam said: knowledge is light.",
		"قال الامام: العلم نور",
		"And he who seeks it shall find it.",
		"ومن طلبه وجده",
	}

	arabic, english := processor.SplitArabicEnglish(strings.Join(lines, "\n"))

	for _, line := range lines {
		inArabic := strings.Contains(arabic, line)
		inEnglish := strings.Contains(english, line)
		assert.True(t, inArabic != inEnglish, "line %q must land in exactly one bucket", line)
	}
}

func TestSplitArabicEnglish_PortionCap(t *testing.T) {
	long := strings.Repeat("word ", 400)

	_, english := processor.SplitArabicEnglish(long)

	assert.LessOrEqual(t, len([]rune(english)), 1000)
}
