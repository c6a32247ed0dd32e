package services

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/prepdesk/exam-service/internal/models"
)

// normalizeString trims surrounding whitespace and lowercases for
// case-insensitive comparison.
func normalizeString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// decodeSelection accepts either a single option or an array of options.
// Clients submit a bare string for single-answer questions and an array
// for multi-answer ones.
func decodeSelection(raw json.RawMessage) ([]string, bool) {
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, true
	}

	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, true
	}

	return nil, false
}

// evaluateChoice requires exact set equality with the key options.
// Order and duplicates are ignored; partial selections earn nothing.
func evaluateChoice(key *models.ChoiceKey, raw json.RawMessage) bool {
	if key == nil || len(key.Options) == 0 {
		return false
	}

	selected, ok := decodeSelection(raw)
	if !ok {
		return false
	}

	return sameStringSet(selected, key.Options)
}

func evaluateBool(key *models.BoolKey, raw json.RawMessage) bool {
	if key == nil {
		return false
	}

	var answer bool
	if err := json.Unmarshal(raw, &answer); err != nil {
		return false
	}

	return answer == key.Value
}

// evaluateText matches the blank against the expected text or any
// accepted alternative, case-insensitively with whitespace trimmed.
func evaluateText(key *models.TextKey, raw json.RawMessage) bool {
	if key == nil {
		return false
	}

	var answer string
	if err := json.Unmarshal(raw, &answer); err != nil {
		return false
	}

	normalized := normalizeString(answer)
	if normalized == normalizeString(key.Text) {
		return true
	}
	for _, alt := range key.Alternatives {
		if normalized == normalizeString(alt) {
			return true
		}
	}

	return false
}

// evaluateKeywords passes when any one keyword appears somewhere in the
// response. A key without keywords can never be satisfied automatically;
// such questions stay incorrect until graded by hand.
func evaluateKeywords(key *models.KeywordKey, raw json.RawMessage) bool {
	if key == nil || len(key.Keywords) == 0 {
		return false
	}

	var answer string
	if err := json.Unmarshal(raw, &answer); err != nil {
		return false
	}

	haystack := strings.ToLower(answer)
	for _, keyword := range key.Keywords {
		if strings.Contains(haystack, normalizeString(keyword)) {
			return true
		}
	}

	return false
}

// sameStringSet compares two slices as sets, normalized.
func sameStringSet(a, b []string) bool {
	as := normalizeSet(a)
	bs := normalizeSet(b)

	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// normalizeSet lowercases, trims, dedupes and sorts.
func normalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := normalizeString(v)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
