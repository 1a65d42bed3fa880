package processor

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/safdari/biharrag/internal/models"
)

// Separators tried in order when splitting a page batch. Paragraph breaks
// first, then lines, then sentence terminators including the Arabic/Urdu and
// Devanagari full stops.
var chunkSeparators = []string{"\n\n", "\n", ".", "۔", "।"}

type ProcessorConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	MinChunkLength int
	PageBatchSize  int
	MaxPages       int
}

// Processor turns per-page volume text into ordered, annotated passages.
type Processor struct {
	config   ProcessorConfig
	splitter textsplitter.RecursiveCharacter
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 800
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 100
	}
	if config.MinChunkLength == 0 {
		config.MinChunkLength = 50
	}
	if config.PageBatchSize == 0 {
		config.PageBatchSize = 3
	}
	if config.MaxPages == 0 {
		config.MaxPages = 100
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(config.ChunkSize),
		textsplitter.WithChunkOverlap(config.ChunkOverlap),
		textsplitter.WithSeparators(chunkSeparators),
	)

	return Processor{
		config:   config,
		splitter: splitter,
	}
}

// Process segments the pages of one volume into passages. Pages are grouped
// into small batches to bound peak memory; a batch that yields no text or
// fails to split is skipped, not fatal. Ordinals are assigned in order of
// production and are contiguous within the volume.
func (p *Processor) Process(volume int, pages []string) ([]models.Passage, error) {
	if len(pages) > p.config.MaxPages {
		pages = pages[:p.config.MaxPages]
	}

	var passages []models.Passage

	for batchStart := 0; batchStart < len(pages); batchStart += p.config.PageBatchSize {
		batchEnd := batchStart + p.config.PageBatchSize
		if batchEnd > len(pages) {
			batchEnd = len(pages)
		}

		batchText := p.collectBatch(pages, batchStart, batchEnd)
		if strings.TrimSpace(batchText) == "" {
			continue
		}

		chunks, err := p.splitter.SplitText(batchText)
		if err != nil {
			// Skip the offending batch, keep the rest of the volume.
			continue
		}

		pageSpan := fmt.Sprintf("%d-%d", batchStart+1, batchEnd)
		for _, chunk := range chunks {
			if len(strings.TrimSpace(chunk)) < p.config.MinChunkLength {
				continue
			}

			arabic, english := SplitArabicEnglish(chunk)
			ref := ExtractReference(chunk, volume)

			metadata := map[string]interface{}{
				"volume":     volume,
				"pages":      pageSpan,
				"confidence": ref.Confidence,
			}
			if ref.Chapter != "" {
				metadata["chapter"] = ref.Chapter
			}
			if ref.Hadith != "" {
				metadata["hadith_number"] = ref.Hadith
			}
			if ref.Method != "" {
				metadata["extraction_method"] = ref.Method
			}

			passages = append(passages, models.Passage{
				VolumeNumber: volume,
				ChapterRef:   ref.Chapter,
				HadithRef:    ref.Hadith,
				ArabicText:   arabic,
				EnglishText:  english,
				FullText:     chunk,
				ChunkIndex:   len(passages),
				Metadata:     metadata,
			})
		}
	}

	return passages, nil
}

// collectBatch concatenates the cleaned page texts of one batch, each prefixed
// with a page-boundary marker. Pages too short to carry content are dropped.
func (p *Processor) collectBatch(pages []string, start, end int) string {
	var b strings.Builder
	for i := start; i < end; i++ {
		text := strings.TrimSpace(strings.ReplaceAll(pages[i], "\x00", ""))
		if len(text) <= p.config.MinChunkLength {
			continue
		}
		fmt.Fprintf(&b, "\n--- Page %d ---\n%s", i+1, text)
	}
	return b.String()
}
