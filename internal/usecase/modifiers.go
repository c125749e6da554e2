package usecase

import (
	"sort"
	"strings"
	"unicode"
)

// exclusiveModifiers change what a product fundamentally is: colors, processing
// state, named varieties, animal/plant sub-types and packaging-origin terms.
var exclusiveModifiers = map[string]bool{
	// Colors
	"red": true, "white": true, "green": true, "yellow": true, "black": true,
	"brown": true, "purple": true, "golden": true,
	// Processing state
	"frozen": true, "dried": true, "smoked": true, "canned": true, "pickled": true,
	"salted": true, "roasted": true, "fried": true, "boiled": true, "cooked": true,
	"ground": true, "powder": true, "powdered": true, "instant": true,
	"fermented": true, "sweetened": true, "unsalted": true,
	// Varieties
	"sweet": true, "cherry": true, "roma": true, "bell": true, "spring": true,
	"basmati": true, "jasmine": true, "glutinous": true, "wild": true,
	"japanese": true, "thai": true,
	// Animal and plant sub-types
	"breast": true, "thigh": true, "wing": true, "drumstick": true, "fillet": true,
	"liver": true, "tenderloin": true, "sirloin": true, "ribs": true,
	"leaf": true, "leaves": true, "root": true, "seed": true, "seeds": true,
	"sprout": true, "sprouts": true,
	// Packaging and origin
	"imported": true, "local": true, "organic": true, "bottled": true,
}

// descriptiveModifiers qualify a product without changing its identity:
// size, grade and preparation method.
var descriptiveModifiers = map[string]bool{
	// Size
	"large": true, "small": true, "medium": true, "big": true, "mini": true,
	"jumbo": true, "baby": true, "extra": true, "half": true,
	// Grade
	"premium": true, "grade": true, "super": true, "standard": true,
	"quality": true, "selected": true, "fresh": true,
	// Preparation
	"whole": true, "sliced": true, "diced": true, "chopped": true, "peeled": true,
	"washed": true, "cut": true, "trimmed": true, "cleaned": true,
	"boneless": true, "skinless": true,
}

// CoreNoun returns the head word of a name once every modifier is removed,
// or "" when nothing identifying remains. Purely numeric tokens are skipped.
func CoreNoun(name string) string {
	for _, token := range Tokens(name) {
		if exclusiveModifiers[token] || descriptiveModifiers[token] || isNumeric(token) {
			continue
		}
		return token
	}
	return ""
}

// HasDifferentCoreNoun reports whether query and candidate name different
// things. A side without a core noun never blocks.
func HasDifferentCoreNoun(query, candidate string) bool {
	q := CoreNoun(query)
	c := CoreNoun(candidate)
	if q == "" || c == "" {
		return false
	}
	return q != c
}

// HasExclusiveModifierMismatch reports whether the query asks for exclusive
// modifiers the candidate does not carry exactly. A query without exclusive
// modifiers expresses no constraint.
func HasExclusiveModifierMismatch(query, candidate string) bool {
	q := ExclusiveModifiers(query)
	if len(q) == 0 {
		return false
	}
	c := ExclusiveModifiers(candidate)
	if len(q) != len(c) {
		return true
	}
	for i := range q {
		if q[i] != c[i] {
			return true
		}
	}
	return false
}

// ExclusiveModifiers returns the distinct exclusive modifiers of name, sorted
func ExclusiveModifiers(name string) []string {
	seen := make(map[string]bool)
	var mods []string
	for _, token := range Tokens(name) {
		if exclusiveModifiers[token] && !seen[token] {
			seen[token] = true
			mods = append(mods, token)
		}
	}
	sort.Strings(mods)
	return mods
}

func isNumeric(token string) bool {
	return strings.IndexFunc(token, func(r rune) bool { return !unicode.IsDigit(r) }) == -1
}
