// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
)

// SuggestCommand returns the command name closest to input, or "" when
// nothing is close enough to be a likely typo.
func SuggestCommand(input string) string {
	input = strings.ToLower(input)
	if len([]rune(input)) < 2 {
		return ""
	}

	maxDistance := 1
	switch n := len([]rune(input)); {
	case n > 8:
		maxDistance = 3
	case n >= 4:
		maxDistance = 2
	}

	best, bestDistance := "", -1
	for name := range commandNames {
		d := levenshteinDistance(input, name)
		if d == 0 {
			return ""
		}
		if d <= maxDistance && (bestDistance == -1 || d < bestDistance || (d == bestDistance && name < best)) {
			best, bestDistance = name, d
		}
	}
	return best
}

// levenshteinDistance is the single-rune edit distance between a and b.
func levenshteinDistance(a, b string) int {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
