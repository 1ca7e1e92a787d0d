package moves

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/jwebster45206/replay-engine/pkg/markup"
)

var (
	corporationPattern         = regexp.MustCompile(`([A-Za-z][A-Za-z0-9\s_]+?) chooses corporation ([A-Za-z][A-Za-z0-9\s]+)(?:\s*\||$)`)
	corporationFallbackPattern = regexp.MustCompile(`(\w+(?:\s+\w+)*) chooses corporation ([A-Za-z][A-Za-z0-9\s]+)`)
)

// ExtractCorporations maps player display names to the corporation they chose.
func ExtractCorporations(root *html.Node) map[string]string {
	out := make(map[string]string)
	for _, entry := range markup.FindAll(root, "div", entryClass) {
		text := norm.NFC.String(markup.Text(entry))
		if !strings.Contains(text, "chooses corporation") {
			continue
		}
		match := corporationPattern.FindStringSubmatch(text)
		if match == nil {
			match = corporationFallbackPattern.FindStringSubmatch(text)
		}
		if match == nil {
			continue
		}
		out[strings.TrimSpace(match[1])] = strings.TrimSpace(match[2])
	}
	return out
}
