// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package watchui

import (
	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Slab sizes for the fzf matcher's scratch allocations, matching the
// sizes fzf itself uses per worker.
const (
	slab16Size = 100 * 1024
	slab32Size = 2048
)

// The algo package requires Init to populate its scoring tables before
// any match call; without it every match reports a miss.
func init() {
	algo.Init("default")
}

// NewSlab allocates scratch space for the fuzzy matcher. One slab is
// reused across all match calls of a render pass; it must not be
// shared between goroutines.
func NewSlab() *util.Slab {
	return util.MakeSlab(slab16Size, slab32Size)
}

// fuzzyMatch scores text against a case-insensitive pattern using
// fzf's V2 algorithm. pattern must already be lowercased (the
// algorithm's contract for case-insensitive matching). Returns the
// match score and whether the pattern matched at all.
func fuzzyMatch(text string, pattern []rune, slab *util.Slab) (score int, matched bool) {
	if len(pattern) == 0 {
		return 0, true
	}
	chars := util.ToChars([]byte(text))
	result, _ := algo.FuzzyMatchV2(false, true, true, &chars, pattern, false, slab)
	if result.Start < 0 {
		return 0, false
	}
	return result.Score, true
}
