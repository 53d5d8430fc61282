// Package match implements fixture identity matching across data providers.
//
// Providers disagree on naming ("Real Madrid" vs "Real Madrid CF"), so a
// candidate fixture is matched by loose name comparison rather than by id.
package match

import "strings"

// SplitTitle extracts the two party names from a free-form fixture title.
// Delimiters are tried in order; the first match wins. Returns false when no
// delimiter is present.
func SplitTitle(title string) (partyA, partyB string, ok bool) {
	for _, sep := range []string{" vs ", " - "} {
		if idx := strings.Index(strings.ToLower(title), sep); idx >= 0 {
			a := strings.TrimSpace(title[:idx])
			b := strings.TrimSpace(title[idx+len(sep):])
			if a != "" && b != "" {
				return a, b, true
			}
		}
	}
	return "", "", false
}

// Names reports whether two party names refer to the same side. Either the
// lower-cased names contain each other, or their word sets share at least
// one token.
func Names(a, b string) bool {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	if la == "" || lb == "" {
		return false
	}
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return true
	}
	tokens := make(map[string]struct{})
	for _, w := range strings.Fields(la) {
		tokens[w] = struct{}{}
	}
	for _, w := range strings.Fields(lb) {
		if _, hit := tokens[w]; hit {
			return true
		}
	}
	return false
}

// Fixture reports whether a candidate fixture (candidateA, candidateB)
// matches the requested parties. Both home/away orientations are tried.
func Fixture(partyA, partyB, candidateA, candidateB string) bool {
	if Names(partyA, candidateA) && Names(partyB, candidateB) {
		return true
	}
	return Names(partyA, candidateB) && Names(partyB, candidateA)
}
