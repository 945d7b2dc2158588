package triage

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const cacheKeyPrefix = "triage:v1:"

// CacheKey derives the canonical cache key for a case. It is a pure function
// of the normalized inputs: identical case text, age band, history, and
// context always map to the same key regardless of casing or spacing.
func CacheKey(in CaseInput) string {
	canonical := strings.Join([]string{
		normalizeKeyPart(in.SymptomText),
		normalizeKeyPart(in.AgeBand),
		normalizeKeyPart(in.History),
		normalizeKeyPart(in.Context),
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func normalizeKeyPart(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
