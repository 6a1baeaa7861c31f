package similarity

import (
	"context"
	"strings"
)

// LexicalProvider scores texts by the Jaccard overlap of their lowercase
// word sets. It needs no model and is used when no embedding server is
// configured.
type LexicalProvider struct{}

var _ BatchProvider = LexicalProvider{}

func NewLexicalProvider() LexicalProvider {
	return LexicalProvider{}
}

func (LexicalProvider) Similarity(_ context.Context, textA, textB string) (float64, error) {
	return jaccard(tokenSet(textA), tokenSet(textB)), nil
}

func (LexicalProvider) Similarities(_ context.Context, text string, others []string) ([]float64, error) {
	base := tokenSet(text)
	out := make([]float64, len(others))
	for i, other := range others {
		out[i] = jaccard(base, tokenSet(other))
	}
	return out, nil
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]{}")
		if f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}

func jaccard(set1, set2 map[string]struct{}) float64 {
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	intersection := 0
	for token := range set1 {
		if _, ok := set2[token]; ok {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
