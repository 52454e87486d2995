package typoutil

// CalculateDamerauLevenshteinDistance computes the Damerau-Levenshtein (optimal string alignment)
// distance between two strings: the minimum number of insertions, deletions, substitutions
// or adjacent transpositions needed to turn one into the other.
// This implementation properly handles Unicode characters by working with runes.
func CalculateDamerauLevenshteinDistance(a, b string) int {
	runesA := []rune(a)
	runesB := []rune(b)
	limit := len(runesA)
	if len(runesB) > limit {
		limit = len(runesB)
	}
	return damerauRunes(runesA, runesB, limit)
}

// CalculateDamerauLevenshteinDistanceWithLimit calculates Damerau-Levenshtein distance with early termination
// Returns maxDistance + 1 if the actual distance exceeds maxDistance (for performance)
func CalculateDamerauLevenshteinDistanceWithLimit(a, b string, maxDistance int) int {
	return damerauRunes([]rune(a), []rune(b), maxDistance)
}

func damerauRunes(runesA, runesB []rune, maxDistance int) int {
	lenA := len(runesA)
	lenB := len(runesB)

	// Early termination: if length difference > maxDistance, return early
	lengthDiff := lenA - lenB
	if lengthDiff < 0 {
		lengthDiff = -lengthDiff
	}
	if lengthDiff > maxDistance {
		return maxDistance + 1
	}

	if lenA == 0 {
		return lenB
	}
	if lenB == 0 {
		return lenA
	}

	// Three rows: i-2 (for transpositions), i-1 and i
	prevPrevRow := make([]int, lenB+1)
	prevRow := make([]int, lenB+1)
	currRow := make([]int, lenB+1)

	for j := 0; j <= lenB; j++ {
		prevRow[j] = j
	}

	for i := 1; i <= lenA; i++ {
		currRow[0] = i
		minInRow := i

		for j := 1; j <= lenB; j++ {
			currRow[j] = cellCost(runesA, runesB, i, j, prevPrevRow, prevRow, currRow)
			if currRow[j] < minInRow {
				minInRow = currRow[j]
			}
		}

		// Row minima never decrease, so the final result will exceed maxDistance too
		if minInRow > maxDistance {
			return maxDistance + 1
		}

		prevPrevRow, prevRow, currRow = prevRow, currRow, prevPrevRow
	}

	return prevRow[lenB]
}

// BestWindowDistance returns the smallest Damerau-Levenshtein distance between pattern
// and any contiguous window (substring) of text, so "calculus" against
// "intro to calclus notes" scores the "calclus" window rather than the whole field.
// Returns maxDistance + 1 as soon as no window can be within maxDistance.
func BestWindowDistance(pattern, text []rune, maxDistance int) int {
	lenP := len(pattern)
	lenT := len(text)

	if lenP == 0 {
		return 0
	}
	if lenT == 0 {
		if lenP > maxDistance {
			return maxDistance + 1
		}
		return lenP
	}

	// Rows walk the pattern, columns the text. Row 0 is all zeros: a window may
	// start at any text position for free.
	prevPrevRow := make([]int, lenT+1)
	prevRow := make([]int, lenT+1)
	currRow := make([]int, lenT+1)

	for i := 1; i <= lenP; i++ {
		currRow[0] = i
		minInRow := i

		for j := 1; j <= lenT; j++ {
			currRow[j] = cellCost(pattern, text, i, j, prevPrevRow, prevRow, currRow)
			if currRow[j] < minInRow {
				minInRow = currRow[j]
			}
		}

		if minInRow > maxDistance {
			return maxDistance + 1
		}

		prevPrevRow, prevRow, currRow = prevRow, currRow, prevPrevRow
	}

	// A window may end anywhere: take the best cell of the last row
	best := prevRow[0]
	for j := 1; j <= lenT; j++ {
		if prevRow[j] < best {
			best = prevRow[j]
		}
	}
	if best > maxDistance {
		return maxDistance + 1
	}
	return best
}

// NormalizedWindowDistance scales BestWindowDistance by the pattern length to the
// 0 (identical) .. 1 (unrelated) range. Windows further than maxNormalized are
// reported as 1 without finishing the computation.
func NormalizedWindowDistance(pattern, text []rune, maxNormalized float64) float64 {
	lenP := len(pattern)
	if lenP == 0 {
		return 0
	}
	if maxNormalized >= 1 {
		maxNormalized = 1
	}
	maxDistance := int(maxNormalized * float64(lenP))
	if maxDistance >= lenP {
		maxDistance = lenP
	}

	dist := BestWindowDistance(pattern, text, maxDistance)
	if dist > maxDistance {
		return 1
	}
	return float64(dist) / float64(lenP)
}

// cellCost fills one cell of the edit-distance table.
func cellCost(runesA, runesB []rune, i, j int, prevPrevRow, prevRow, currRow []int) int {
	cost := 0
	if runesA[i-1] != runesB[j-1] {
		cost = 1
	}

	// Standard operations: deletion, insertion, substitution
	deletion := prevRow[j] + 1
	insertion := currRow[j-1] + 1
	substitution := prevRow[j-1] + cost

	best := min3(deletion, insertion, substitution)

	// Transposition operation (Damerau extension)
	if i > 1 && j > 1 &&
		runesA[i-1] == runesB[j-2] &&
		runesA[i-2] == runesB[j-1] {
		transposition := prevPrevRow[j-2] + cost
		if transposition < best {
			best = transposition
		}
	}
	return best
}

// min3 is a helper function to find the minimum of three integers
func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
