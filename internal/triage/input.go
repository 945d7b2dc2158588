package triage

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// maxCaseTextChars is the hard cap on the primary case text after cleaning.
const maxCaseTextChars = 1000

var (
	// ErrEmptyInput is returned when the case text is empty after cleaning.
	ErrEmptyInput = errors.New("triage: case text is empty")
	// ErrInputTooLong is returned when the cleaned case text exceeds the cap.
	ErrInputTooLong = errors.New("triage: case text exceeds maximum length")
)

var (
	markupTagRE  = regexp.MustCompile(`<[^>]*>`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// SanitizeCaseText cleans the primary case text: markup tags removed, control
// characters stripped, whitespace collapsed. Returns ErrEmptyInput or
// ErrInputTooLong on constraint violations; both are terminal — no cache
// lookup or inference call happens for rejected input.
func SanitizeCaseText(raw string) (string, error) {
	cleaned := cleanText(raw)
	if cleaned == "" {
		return "", ErrEmptyInput
	}
	if len(cleaned) > maxCaseTextChars {
		return "", ErrInputTooLong
	}
	return cleaned, nil
}

// cleanText strips markup and control characters and collapses whitespace.
// Used for the optional secondary strings too, which never error.
func cleanText(raw string) string {
	withoutTags := markupTagRE.ReplaceAllString(raw, " ")
	withoutControl := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, withoutTags)
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(withoutControl, " "))
}

// sanitizeCase validates the primary text and cleans the optional fields,
// returning a copy safe for the rest of the pipeline.
func sanitizeCase(in CaseInput) (CaseInput, error) {
	text, err := SanitizeCaseText(in.SymptomText)
	if err != nil {
		return CaseInput{}, err
	}
	in.SymptomText = text
	in.AgeBand = strings.ToLower(cleanText(in.AgeBand))
	in.History = cleanText(in.History)
	in.Context = cleanText(in.Context)
	in.Insurance = strings.ToLower(cleanText(in.Insurance))
	in.RequestedDepartment = cleanText(in.RequestedDepartment)
	return in, nil
}
