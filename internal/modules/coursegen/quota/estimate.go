package quota

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EstimateWords counts whitespace-separated words.
func EstimateWords(text string) int {
	return len(strings.Fields(text))
}

// TokensForWords is ceil(words * 1.3), computed in integers.
func TokensForWords(words int) int {
	if words <= 0 {
		return 0
	}
	return (words*13 + 9) / 10
}

// EstimateTokens serializes payload to JSON and applies the word heuristic.
// Strings are counted as-is rather than re-encoded.
func EstimateTokens(payload any) (int, error) {
	var text string
	switch v := payload.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("estimate tokens: %w", err)
		}
		text = string(b)
	}
	return TokensForWords(EstimateWords(text)), nil
}
