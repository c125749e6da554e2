package usecase

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize turns a free-text product name into its canonical comparison form:
// NFC, lowercase, punctuation replaced by spaces, whitespace collapsed, tokens
// translated to English and adjacent duplicates dropped. It is idempotent.
func Normalize(text string) string {
	return strings.Join(Tokens(text), " ")
}

// Tokens returns the normalized tokens of text
func Tokens(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// cases.Caser keeps state between calls and must not be shared across goroutines
	lowered := cases.Lower(language.Und).String(norm.NFC.String(text))

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, lowered)

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := translateToken(field)
		if n := len(tokens); n > 0 && tokens[n-1] == token {
			continue
		}
		tokens = append(tokens, token)
	}

	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// translateToken maps a token through the Indonesian/Spanish dictionary
func translateToken(token string) string {
	if english, ok := translations[token]; ok {
		return english
	}
	return token
}

// tokenSet returns the distinct tokens of an already normalized name
func tokenSet(normalized string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(normalized) {
		set[token] = true
	}
	return set
}
