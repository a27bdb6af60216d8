package matcher

import "strings"

// Similarity returns a normalized block-matching ratio in [0, 1] between two
// strings, compared case-insensitively. It is 2*M/T where M is the total size
// of the recursively found longest common blocks and T the combined rune
// count. Identical strings score 1.0, strings sharing no character score 0.0.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matchingRunes(ra, rb)) / float64(total)
}

type span struct {
	alo, ahi, blo, bhi int
}

// matchingRunes sums the sizes of the matching blocks: the longest common
// block is taken first, then the regions to its left and right are searched
// the same way.
func matchingRunes(a, b []rune) int {
	matched := 0
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := longestBlock(a, b, s)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longestBlock finds the longest common run inside the span. Among equally
// long runs the one starting earliest in a, then earliest in b, wins.
func longestBlock(a, b []rune, s span) (besti, bestj, bestk int) {
	besti, bestj = s.alo, s.blo
	prev := make([]int, s.bhi-s.blo+1)
	curr := make([]int, s.bhi-s.blo+1)
	for i := s.alo; i < s.ahi; i++ {
		for j := s.blo; j < s.bhi; j++ {
			col := j - s.blo + 1
			if a[i] != b[j] {
				curr[col] = 0
				continue
			}
			k := prev[col-1] + 1
			curr[col] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		prev, curr = curr, prev
	}
	return besti, bestj, bestk
}
