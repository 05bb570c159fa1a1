package services

import (
	"strings"
	"unicode"

	"github.com/desertthunder/porter/internal/shared"
)

// MatchesArtist reports whether the source artist name appears in the candidate's artist name, ignoring case.
//
// "Beyoncé" matches "BEYONCÉ" and "Beyoncé feat. Jay-Z"; it does not match "Jay-Z".
func MatchesArtist(candidate, source string) bool {
	source = strings.TrimSpace(source)
	if source == "" {
		return false
	}
	return strings.Contains(shared.Fold(candidate), shared.Fold(source))
}

// TruncateDescription shortens s to at most limit runes, replacing the tail with "..." when cut.
func TruncateDescription(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// SpotifyQuery builds the field-filtered search query "track:<name> artist:<artist>".
func SpotifyQuery(name, artist string) string {
	return "track:" + collapse(name) + " artist:" + collapse(artist)
}

// SearchTerm builds a free-text catalog query from name and artist with punctuation stripped.
func SearchTerm(name, artist string) string {
	clean := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
				return r
			}
			return ' '
		}, s)
	}
	return collapse(clean(name) + " " + clean(artist))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
