package llm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/safdari/biharrag/internal/models"
)

// Maximum excerpt length per language per candidate in the context block.
const excerptMaxRunes = 300

// Maximum number of references appended to an answer.
const maxAppendedRefs = 3

// Citation formats a passage locator as
// "Bihar ul Anwar, Volume V[, Chapter C][, Hadith H]", omitting absent parts
// instead of printing placeholders.
func Citation(p models.Passage) string {
	ref := fmt.Sprintf("Bihar ul Anwar, Volume %d", p.VolumeNumber)
	if p.ChapterRef != "" {
		ref += ", Chapter " + p.ChapterRef
	}
	if p.HadithRef != "" {
		ref += ", Hadith " + p.HadithRef
	}
	return ref
}

// BuildContext formats the ranked candidates into the numbered excerpt block
// handed to the answer model, and returns the parallel citation list. Arabic
// excerpts are included only when includeArabic is set.
func BuildContext(candidates []models.QueryCandidate, includeArabic bool) (string, []string) {
	var parts []string
	var references []string

	for i, c := range candidates {
		ref := Citation(c.Passage)
		references = append(references, ref)

		var b strings.Builder
		fmt.Fprintf(&b, "\n[Excerpt %d] %s\n", i+1, ref)

		if includeArabic && c.ArabicText != "" {
			b.WriteString("Arabic: ")
			b.WriteString(truncateRunes(c.ArabicText, excerptMaxRunes))
			b.WriteString("\n")
		}
		if c.EnglishText != "" {
			b.WriteString("English: ")
			b.WriteString(truncateRunes(c.EnglishText, excerptMaxRunes))
			b.WriteString("\n")
		}

		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n"), references
}

var disclaimerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)as an ai.*?,`),
	regexp.MustCompile(`(?i)based on my knowledge.*?,`),
	regexp.MustCompile(`(?i)in islamic tradition.*?,`),
	regexp.MustCompile(`(?i)generally speaking.*?,`),
}

// FinalizeAnswer strips boilerplate model disclaimers and appends a reference
// section when the model left one out.
func FinalizeAnswer(answer string, references []string) string {
	for _, re := range disclaimerPatterns {
		answer = re.ReplaceAllString(answer, "")
	}
	answer = strings.TrimSpace(answer)

	var clean []string
	for _, ref := range references {
		if strings.Contains(ref, "Bihar ul Anwar") {
			clean = append(clean, ref)
		}
		if len(clean) == maxAppendedRefs {
			break
		}
	}

	if len(clean) > 0 && !strings.Contains(answer, "References:") {
		answer += "\n\nReferences:\n"
		for _, ref := range clean {
			answer += "- " + ref + "\n"
		}
	}

	return answer
}
