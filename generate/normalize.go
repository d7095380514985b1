package generate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// LineCount is the number of lines every result carries.
const LineCount = 5

// minLineLength is exclusive: a line must be longer than this to be kept.
const minLineLength = 20

// FallbackLines pad a result when the model returns too few usable lines.
// Order is fixed.
var FallbackLines = [LineCount]string{
	"I came across your recent work and was impressed by the clarity of your positioning.",
	"Your website highlights a strong focus on outcomes, which immediately stood out.",
	"I liked how your team communicates value in a straightforward and credible way.",
	"It was clear from your online presence that you care about practical customer impact.",
	"The way your company presents its mission suggests a thoughtful, execution-focused culture.",
}

var listMarker = regexp.MustCompile(`^\s*[-*\d.)]+\s*`)

// Normalize turns raw model output into exactly LineCount lines. Bullets and
// numbering are stripped, short lines dropped, and any shortfall is filled
// from FallbackLines in order.
func Normalize(raw string) []string {
	lines := make([]string, 0, LineCount)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" || utf8.RuneCountInString(line) <= minLineLength {
			continue
		}
		lines = append(lines, line)
		if len(lines) == LineCount {
			return lines
		}
	}
	for _, fb := range FallbackLines {
		if len(lines) == LineCount {
			break
		}
		lines = append(lines, fb)
	}
	return lines
}
