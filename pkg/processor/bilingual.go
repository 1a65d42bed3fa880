package processor

import (
	"strings"
	"unicode"
)

const (
	// Line scan and output bounds for the bilingual split.
	maxScanLines    = 50
	portionMaxRunes = 1000
	arabicThreshold = 0.3
)

// SplitArabicEnglish partitions a text block into an Arabic portion and an
// English portion, line by line. A line goes to the Arabic bucket when more
// than 30% of its alphabetic runes fall in the Arabic block (U+0600-U+06FF).
// Lines with no alphabetic runes at all (bare digits, punctuation) default to
// the English bucket. Scanning is bounded to the first 50 lines and each
// portion is capped at 1000 runes.
func SplitArabicEnglish(text string) (arabic, english string) {
	if len(text) < 10 {
		return "", text
	}

	var arabicLines, englishLines strings.Builder

	lines := strings.Split(text, "\n")
	if len(lines) > maxScanLines {
		lines = lines[:maxScanLines]
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) < 3 {
			continue
		}

		arabicCount := 0
		alphaCount := 0
		for _, r := range line {
			if r >= 0x0600 && r <= 0x06FF {
				arabicCount++
			}
			if unicode.IsLetter(r) {
				alphaCount++
			}
		}

		if alphaCount > 0 && float64(arabicCount)/float64(alphaCount) > arabicThreshold {
			arabicLines.WriteString(line)
			arabicLines.WriteString("\n")
		} else {
			englishLines.WriteString(line)
			englishLines.WriteString("\n")
		}
	}

	arabic = truncateRunes(strings.TrimSpace(arabicLines.String()), portionMaxRunes)
	english = truncateRunes(strings.TrimSpace(englishLines.String()), portionMaxRunes)
	return arabic, english
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
