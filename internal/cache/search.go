package cache

import (
	"sort"
	"strings"
)

// matchTier classifies how pattern relates to name, for the ordering
// required by spec.md §4.2: exact first, then prefix, then substring, then
// lexicographic.
type matchTier int

const (
	tierNone matchTier = iota
	tierExact
	tierPrefix
	tierSubstring
)

// globToTier interprets pattern (a glob using % wildcards, or a bare
// case-insensitive substring when no % is present) against name, both
// already upper-cased, returning the match tier.
func globToTier(pattern, name string) matchTier {
	switch {
	case pattern == name:
		return tierExact
	case strings.HasPrefix(pattern, "%") && strings.HasSuffix(pattern, "%") && len(pattern) > 1:
		frag := pattern[1 : len(pattern)-1]
		if frag != "" && strings.Contains(name, frag) {
			return tierSubstring
		}
	case strings.HasSuffix(pattern, "%"):
		prefix := strings.TrimSuffix(pattern, "%")
		if strings.HasPrefix(name, prefix) {
			return tierPrefix
		}
	case strings.HasPrefix(pattern, "%"):
		suffix := strings.TrimPrefix(pattern, "%")
		if strings.HasSuffix(name, suffix) {
			return tierSubstring
		}
	case !strings.Contains(pattern, "%"):
		if strings.Contains(name, pattern) {
			if strings.HasPrefix(name, pattern) {
				return tierPrefix
			}
			return tierSubstring
		}
	}
	return tierNone
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// clampLimit applies spec.md §4.2's default-50/cap-500 rule. A limit <= 0
// takes the default; values above the cap are silently clamped to it.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// searchNames runs pattern over candidateNames (already sorted, upper-case)
// and returns the matching upper-case names ordered exact, prefix,
// substring, then lexicographically within each tier, capped at limit. A
// pure prefix glob ("ABC%") is narrowed by binary search to the contiguous
// run of candidates sharing that prefix before any name is examined.
func searchNames(candidateNames []string, pattern string, limit int) []string {
	limit = clampLimit(limit)
	pattern = strings.ToUpper(pattern)

	if strings.HasSuffix(pattern, "%") && !strings.HasPrefix(pattern, "%") {
		prefix := strings.TrimSuffix(pattern, "%")
		start := sort.SearchStrings(candidateNames, prefix)
		end := start
		for end < len(candidateNames) && strings.HasPrefix(candidateNames[end], prefix) {
			end++
		}
		candidateNames = candidateNames[start:end]
	}

	byTier := map[matchTier][]string{}
	for _, name := range candidateNames {
		tier := globToTier(pattern, name)
		if tier == tierNone {
			continue
		}
		byTier[tier] = append(byTier[tier], name)
	}

	var out []string
	for _, tier := range []matchTier{tierExact, tierPrefix, tierSubstring} {
		names := byTier[tier]
		sort.Strings(names)
		for _, n := range names {
			if len(out) >= limit {
				return out
			}
			out = append(out, n)
		}
	}
	return out
}
