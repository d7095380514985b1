package generate

import (
	"fmt"
	"strings"

	"github.com/eringen/icebreakr/metadata"
)

// SystemPrompt frames every generation.
const SystemPrompt = "You write highly specific, human-sounding first lines for cold emails. " +
	"Keep each line to one sentence, under 25 words, and avoid hype."

// UserPrompt describes the prospect. Name and company are included only
// when present.
func UserPrompt(rawURL string, page metadata.Page, name, company string) string {
	parts := []string{
		fmt.Sprintf("Generate exactly %d personalized cold email opening lines based on this prospect context.", LineCount),
		"Prospect URL: " + rawURL,
		"Website title: " + page.Title,
		"Website meta description: " + page.Description,
	}
	if name != "" {
		parts = append(parts, "Prospect name: "+name)
	}
	if company != "" {
		parts = append(parts, "Company: "+company)
	}
	parts = append(parts, fmt.Sprintf("Return only %d lines, one per line, no numbering.", LineCount))
	return strings.Join(parts, "\n")
}
