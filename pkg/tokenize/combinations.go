// Package tokenize splits text into lookup candidates, either as substrings
// for scripts without word boundaries or as words for delimited scripts.
package tokenize

import (
	"cmp"
	"slices"
)

// Combinations returns every order-preserving subsequence of tokens that
// starts with tokens[0], longest first. The last element is always
// [tokens[0]]. For N tokens the result has 2^(N-1) elements.
func Combinations(tokens []string) [][]string {
	if len(tokens) == 0 {
		return nil
	}
	rest := len(tokens) - 1
	picks := make([][]int, 0, 1<<rest)
	for mask := 0; mask < 1<<rest; mask++ {
		idx := []int{0}
		for i := 0; i < rest; i++ {
			if mask&(1<<i) != 0 {
				idx = append(idx, i+1)
			}
		}
		picks = append(picks, idx)
	}
	slices.SortFunc(picks, func(a, b []int) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return slices.Compare(a, b)
	})

	out := make([][]string, len(picks))
	for i, idx := range picks {
		combo := make([]string, len(idx))
		for j, k := range idx {
			combo[j] = tokens[k]
		}
		out[i] = combo
	}
	return out
}
