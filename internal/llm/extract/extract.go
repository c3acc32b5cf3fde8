// Package extract recovers structured data from model output. Model text
// is probabilistically well formed: usually the requested JSON, sometimes
// wrapped in a markdown code fence, occasionally prose or truncated JSON.
// Every function here degrades instead of failing so that a malformed
// generation never turns into a request error.
package extract

import (
	"encoding/json"
	"strings"
)

// StripFences removes a single markdown code fence wrapping the text, with
// or without a "json" language tag. Text that is not fenced on both ends is
// returned unchanged apart from whitespace trimming, so the function is
// safe to apply unconditionally and is idempotent.
func StripFences(text string) string {
	s := strings.TrimSpace(text)

	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}

	s = strings.TrimSuffix(s, "```")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")

	return strings.TrimSpace(s)
}

// Decode parses model output into a value of type T, starting from
// defaults. Fences are stripped first. Fields present in the JSON replace
// the defaults; fields the model omitted keep their default values. If the
// text does not parse at all, the defaults are returned untouched. Decode
// never returns an error; a bad generation yields a usable value.
func Decode[T any](raw string, defaults T) T {
	out := defaults
	cleaned := StripFences(raw)
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return defaults
	}
	return out
}

// DecodeOr is Decode with a fallback hook: when the text does not parse as
// JSON, fallback is called with the raw (unfenced) text and its result is
// returned. Conversation replies use this to turn prose output into a
// plain-message reply instead of discarding it.
func DecodeOr[T any](raw string, defaults T, fallback func(text string) T) T {
	cleaned := StripFences(raw)
	out := defaults
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return fallback(cleaned)
	}
	return out
}
