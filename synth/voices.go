package synth

import (
	"sort"
	"strings"
)

// DedupeVoices removes voices with duplicate display names, keeping the
// first occurrence and preserving platform order otherwise.
func DedupeVoices(voices []Voice) []Voice {
	seen := make(map[string]struct{}, len(voices))
	out := make([]Voice, 0, len(voices))
	for _, v := range voices {
		if _, ok := seen[v.Name]; ok {
			continue
		}
		seen[v.Name] = struct{}{}
		out = append(out, v)
	}
	return out
}

// PrioritizedVoices sorts a copy of the voice list with "Google" voices at
// the front and "Fred" at the back; all other voices keep platform order.
func PrioritizedVoices(voices []Voice) []Voice {
	out := make([]Voice, len(voices))
	copy(out, voices)
	sort.SliceStable(out, func(i, j int) bool {
		return voiceRank(out[i]) < voiceRank(out[j])
	})
	return out
}

func voiceRank(v Voice) int {
	switch {
	case strings.Contains(v.Name, "Google"):
		return 0
	case strings.Contains(v.Name, "Fred"):
		return 2
	default:
		return 1
	}
}
