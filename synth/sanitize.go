package synth

import (
	"regexp"
	"strings"
)

var brTagPattern = regexp.MustCompile(`(?i)<br\s*/?>`)

// embeddingMarks are the Unicode bidirectional embedding and isolate
// control characters some platforms read aloud as garbage.
var embeddingMarks = map[rune]struct{}{
	'\u202a': {}, // left-to-right embedding
	'\u202b': {}, // right-to-left embedding
	'\u202c': {}, // pop directional formatting
	'\u2066': {}, // left-to-right isolate
	'\u2067': {}, // right-to-left isolate
	'\u2068': {}, // first strong isolate
	'\u2069': {}, // pop directional isolate
}

// Sanitize prepares resolved alert text for submission to the speech
// platform: line-break tags become spaces and embedding marks are stripped.
// These are pre-send character filters, not markup transforms.
func Sanitize(text string) string {
	text = brTagPattern.ReplaceAllString(text, " ")
	text = strings.Map(func(r rune) rune {
		if _, ok := embeddingMarks[r]; ok {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}
