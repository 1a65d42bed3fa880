package processor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/safdari/biharrag/internal/models"
)

// Numeric sanity bounds for extracted markers. Matches outside these ranges
// are treated as no match.
const (
	maxChapterNumber       = 200
	maxHadithNumber        = 10000
	maxContextHadithNumber = 1000

	chapterScanRunes = 500
	hadithScanRunes  = 300
)

// Chapter and hadith marker patterns, in priority order. The first in-bounds
// match wins; conflicting later matches are ignored.
var chapterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`chapter\s+(\d+)`),
	regexp.MustCompile(`ch\.?\s*(\d+)`),
	regexp.MustCompile(`section\s+(\d+)`),
	regexp.MustCompile(`bab\s+(\d+)`),
	regexp.MustCompile(`باب\s+(\d+)`),
	regexp.MustCompile(`الباب\s+(\d+)`),
	regexp.MustCompile(`فصل\s+(\d+)`),
}

var hadithPatterns = []*regexp.Regexp{
	regexp.MustCompile(`hadith\s+#?(\d+)`),
	regexp.MustCompile(`tradition\s+#?(\d+)`),
	regexp.MustCompile(`narration\s+#?(\d+)`),
	regexp.MustCompile(`tradition\s+no\.?\s*(\d+)`),
	regexp.MustCompile(`حديث\s+(\d+)`),
	regexp.MustCompile(`رواية\s+(\d+)`),
	regexp.MustCompile(`خبر\s+(\d+)`),
}

// Running headers and index boilerplate stripped before scanning.
var headerNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)www\.hubeali\.com`),
	regexp.MustCompile(`(?i)bihar\s+al-anwaar\s+volume\s+\d+`),
	regexp.MustCompile(`(?i)page\s+\d+\s+of\s+\d+`),
}

var (
	numberedLineRe   = regexp.MustCompile(`^\s*(\d+)\s*[-–—.]\s*`)
	tocChapterRe     = regexp.MustCompile(`(?i)chapter\s+(\d+)\s*[-–—]`)
	spaceRunsRe      = regexp.MustCompile(`[ \t]+`)
	narrationMarkers = []string{"said", "narrated", "reported", "قال", "عن", "حدثنا"}
)

// ExtractReference scans the opening of a text block for chapter and hadith
// markers and returns a best-effort structured reference. It is total: no
// input produces an error, missing markers just leave fields empty with
// confidence 0.
func ExtractReference(text string, volume int) models.Reference {
	ref := models.Reference{}

	if len(strings.TrimSpace(text)) < 20 {
		return ref
	}

	clean := cleanForExtraction(text)

	if chapter := matchFirst(clean, chapterPatterns, chapterScanRunes, maxChapterNumber); chapter != "" {
		ref.Chapter = chapter
		ref.Method = "chapter_header"
		ref.Confidence += 0.4
	}

	if hadith := matchFirst(clean, hadithPatterns, hadithScanRunes, maxHadithNumber); hadith != "" {
		ref.Hadith = hadith
		if ref.Method == "" {
			ref.Method = "hadith_number"
		} else {
			ref.Method = "both"
		}
		ref.Confidence += 0.4
	}

	// Secondary context pass, only to fill otherwise-missing fields.
	ctxChapter, ctxHadith := extractFromContext(clean)
	if ref.Chapter == "" && ctxChapter != "" {
		ref.Chapter = ctxChapter
		ref.Method = appendMethod(ref.Method, "context")
		ref.Confidence += 0.2
	}
	if ref.Hadith == "" && ctxHadith != "" {
		ref.Hadith = ctxHadith
		ref.Method = appendMethod(ref.Method, "context")
		ref.Confidence += 0.2
	}

	return ref
}

// cleanForExtraction strips running headers and collapses horizontal
// whitespace. Newlines are kept so the context pass still sees line structure.
func cleanForExtraction(text string) string {
	for _, re := range headerNoisePatterns {
		text = re.ReplaceAllString(text, "")
	}
	text = spaceRunsRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func matchFirst(text string, patterns []*regexp.Regexp, scanRunes, bound int) string {
	sample := strings.ToLower(truncateRunes(text, scanRunes))

	for _, re := range patterns {
		for _, match := range re.FindAllStringSubmatch(sample, -1) {
			n, err := strconv.Atoi(match[1])
			if err != nil || n < 1 || n > bound {
				continue
			}
			return match[1]
		}
	}
	return ""
}

// extractFromContext looks for a leading numbered-list marker whose next lines
// read like a narration, and for table-of-contents chapter lines.
func extractFromContext(text string) (chapter, hadith string) {
	lines := strings.Split(text, "\n")

	lower := strings.ToLower(text)
	if strings.Contains(lower, "table of contents") || strings.Contains(text, "فهرست") {
		for _, line := range lines {
			if m := tocChapterRe.FindStringSubmatch(line); m != nil {
				chapter = m[1]
				break
			}
		}
	}

	limit := len(lines)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		m := numberedLineRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > maxContextHadithNumber {
			continue
		}

		end := i + 3
		if end > len(lines) {
			end = len(lines)
		}
		following := strings.ToLower(strings.Join(lines[i:end], " "))
		for _, marker := range narrationMarkers {
			if strings.Contains(following, marker) {
				return chapter, m[1]
			}
		}
	}

	return chapter, ""
}

func appendMethod(current, added string) string {
	if current == "" {
		return added
	}
	return current + "_" + added
}
