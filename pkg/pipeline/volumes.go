package pipeline

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Filename shapes seen in the scanned-volume corpus, most specific first.
var volumePatterns = []*regexp.Regexp{
	regexp.MustCompile(`vol(?:ume)?[_\s-]?(\d+)`),
	regexp.MustCompile(`bihar[_\s-]?(\d+)`),
	regexp.MustCompile(`\bv(\d+)\b`),
	regexp.MustCompile(`(\d+)`),
}

// VolumeNumberFromFilename guesses the volume number from a PDF filename.
// Returns 0 when no plausible number is found.
func VolumeNumberFromFilename(path string) int {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, filepath.Ext(name))

	for _, re := range volumePatterns {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n >= 1 && n <= MaxVolume {
			return n
		}
	}
	return 0
}
