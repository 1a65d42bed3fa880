package ranker

import (
	"regexp"
	"sort"
	"strings"

	"github.com/safdari/biharrag/internal/models"
)

// Policy holds the boilerplate-exclusion thresholds. Two presets exist
// because the ingestion history produced both a strict and a relaxed tuning;
// thresholds are values, not code paths, so either can be exercised.
type Policy struct {
	Name string

	// A candidate whose full text is shorter than this and carries no
	// narration indicator is dropped as noise.
	MinContentLength int

	// Length ceilings under which the matching signature is considered
	// pure boilerplate rather than content that happens to mention it.
	MaxTOCLength          int
	MaxIndexLength        int
	MaxHeaderLength       int
	MaxChapterTitleLength int
	MaxPageLineLength     int
}

// DefaultPolicy is the relaxed tuning the pipeline settled on: only obvious
// navigation is excluded.
func DefaultPolicy() Policy {
	return Policy{
		Name:                  "default",
		MinContentLength:      50,
		MaxTOCLength:          200,
		MaxIndexLength:        150,
		MaxHeaderLength:       80,
		MaxChapterTitleLength: 120,
		MaxPageLineLength:     50,
	}
}

// StrictPolicy excludes more aggressively, at the cost of dropping some short
// genuine passages. Kept for corpora with heavy running headers.
func StrictPolicy() Policy {
	return Policy{
		Name:                  "strict",
		MinContentLength:      80,
		MaxTOCLength:          300,
		MaxIndexLength:        200,
		MaxHeaderLength:       120,
		MaxChapterTitleLength: 150,
		MaxPageLineLength:     80,
	}
}

// PolicyByName maps a config value to a preset, defaulting to DefaultPolicy.
func PolicyByName(name string) Policy {
	if name == "strict" {
		return StrictPolicy()
	}
	return DefaultPolicy()
}

// English narration cues; a candidate containing any of them, or carrying a
// hadith number, is substantive content rather than navigation.
var englishIndicators = []string{"said", "narrated", "reported", "tradition", "hadith"}

var arabicIndicators = []string{"قال", "عن"}

var pageLineRe = regexp.MustCompile(`^page\s+\d+`)

type Ranker struct {
	policy Policy
}

func New(policy Policy) Ranker {
	return Ranker{policy: policy}
}

func (r Ranker) Policy() Policy {
	return r.policy
}

// Rank filters boilerplate out of the candidate list, assigns content
// priority, and orders the survivors best-first: indicator-bearing candidates
// above the rest, similarity descending within a tier, ordinal ascending on
// ties. The result is truncated to topK. Ranking its own output again yields
// the same list.
func (r Ranker) Rank(candidates []models.QueryCandidate, topK int) []models.QueryCandidate {
	kept := make([]models.QueryCandidate, 0, len(candidates))

	for _, c := range candidates {
		hasIndicator := hasContentIndicator(c)
		if r.excluded(c, hasIndicator) {
			continue
		}
		if hasIndicator {
			c.Priority = 1.0
		} else {
			c.Priority = 0.5
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Priority != kept[j].Priority {
			return kept[i].Priority > kept[j].Priority
		}
		if kept[i].Similarity != kept[j].Similarity {
			return kept[i].Similarity > kept[j].Similarity
		}
		return kept[i].ChunkIndex < kept[j].ChunkIndex
	})

	if topK > 0 && len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}

// excluded applies the boilerplate signatures: table-of-contents lines, index
// listings, bare volume headers, page-number lines, and chapter-title-only
// fragments, each gated on the policy's length ceiling.
func (r Ranker) excluded(c models.QueryCandidate, hasIndicator bool) bool {
	full := strings.ToLower(strings.TrimSpace(c.FullText))

	switch {
	case strings.Contains(full, "table of contents") && len(full) < r.policy.MaxTOCLength:
		return true
	case strings.HasPrefix(full, "overall") && strings.Contains(full, "index") && len(full) < r.policy.MaxIndexLength:
		return true
	case strings.Contains(full, "bihar al-anwaar") && len(full) < r.policy.MaxHeaderLength:
		return true
	case pageLineRe.MatchString(full) && len(full) < r.policy.MaxPageLineLength:
		return true
	case strings.HasPrefix(full, "chapter") && len(full) < r.policy.MaxChapterTitleLength:
		return true
	case len(full) < r.policy.MinContentLength && !hasIndicator:
		return true
	}
	return false
}

func hasContentIndicator(c models.QueryCandidate) bool {
	if c.HadithRef != "" {
		return true
	}
	english := strings.ToLower(c.EnglishText)
	for _, cue := range englishIndicators {
		if strings.Contains(english, cue) {
			return true
		}
	}
	for _, cue := range arabicIndicators {
		if strings.Contains(c.ArabicText, cue) {
			return true
		}
	}
	return false
}
