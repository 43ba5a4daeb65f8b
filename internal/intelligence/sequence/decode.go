package sequence

import (
	"math"
	"strings"

	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
)

// ---------------------------------------------------------------------------
// Viterbi decoding
// ---------------------------------------------------------------------------

// viterbiDecode finds the best label sequence given per-token emission
// scores and label-to-label transition scores, both in log space.
// Illegal transitions carry -Inf.  Ties resolve to the lower label index,
// and O is always index 0.
// Time complexity: O(seq_len * num_labels^2)
func viterbiDecode(emission [][]float64, transition [][]float64, labelSet []string) []string {
	seqLen := len(emission)
	numLabels := len(labelSet)

	if seqLen == 0 {
		return []string{}
	}

	dp := make([][]float64, seqLen)
	backptr := make([][]int, seqLen)
	for t := 0; t < seqLen; t++ {
		dp[t] = make([]float64, numLabels)
		backptr[t] = make([]int, numLabels)
	}

	// Only O or B-* labels are valid at position 0.
	for j := 0; j < numLabels; j++ {
		score := emission[0][j]
		if strings.HasPrefix(labelSet[j], insidePrefix) {
			score = math.Inf(-1)
		}
		dp[0][j] = score
		backptr[0][j] = -1
	}

	for t := 1; t < seqLen; t++ {
		for j := 0; j < numLabels; j++ {
			bestScore := math.Inf(-1)
			bestPrev := 0
			for k := 0; k < numLabels; k++ {
				s := dp[t-1][k] + transition[k][j]
				if s > bestScore {
					bestScore = s
					bestPrev = k
				}
			}
			dp[t][j] = bestScore + emission[t][j]
			backptr[t][j] = bestPrev
		}
	}

	bestFinal := 0
	bestScore := dp[seqLen-1][0]
	for j := 1; j < numLabels; j++ {
		if dp[seqLen-1][j] > bestScore {
			bestScore = dp[seqLen-1][j]
			bestFinal = j
		}
	}

	path := make([]int, seqLen)
	path[seqLen-1] = bestFinal
	for t := seqLen - 2; t >= 0; t-- {
		path[t] = backptr[t+1][path[t+1]]
	}

	labels := make([]string, seqLen)
	for t, idx := range path {
		if idx >= 0 && idx < numLabels {
			labels[t] = labelSet[idx]
		} else {
			labels[t] = LabelO
		}
	}
	return labels
}

// greedyDecode picks the best label per token independently.  The result
// may violate BIO ordering; callers pass it through fixBIOLegality.
func greedyDecode(emission [][]float64, labelSet []string) []string {
	labels := make([]string, len(emission))
	for i, row := range emission {
		bestIdx := 0
		bestVal := row[0]
		for j := 1; j < len(row); j++ {
			if row[j] > bestVal {
				bestVal = row[j]
				bestIdx = j
			}
		}
		labels[i] = labelSet[bestIdx]
	}
	return labels
}

// ---------------------------------------------------------------------------
// BIO constraints
// ---------------------------------------------------------------------------

// fixBIOLegality ensures no I-X tag appears without a preceding B-X or I-X.
func fixBIOLegality(labels []string) []string {
	fixed := make([]string, len(labels))
	copy(fixed, labels)

	for i, l := range fixed {
		if !strings.HasPrefix(l, insidePrefix) {
			continue
		}
		entityType := l[2:]
		if i == 0 {
			fixed[i] = beginPrefix + entityType
			continue
		}
		prev := fixed[i-1]
		prevType := ""
		if strings.HasPrefix(prev, beginPrefix) || strings.HasPrefix(prev, insidePrefix) {
			prevType = prev[2:]
		}
		if prevType != entityType {
			fixed[i] = beginPrefix + entityType
		}
	}
	return fixed
}

// buildTransitionScores turns learned transition weights into a dense
// matrix, with -Inf for moves the BIO scheme forbids:
//
//	O   -> I-*            illegal
//	B-X -> I-Y (Y != X)   illegal
//	I-X -> I-Y (Y != X)   illegal
func buildTransitionScores(labelSet []string, weights map[string]map[string]float64) [][]float64 {
	n := len(labelSet)
	trans := make([][]float64, n)
	for i, from := range labelSet {
		trans[i] = make([]float64, n)
		for j, to := range labelSet {
			if !isLegalBIOTransition(from, to) {
				trans[i][j] = math.Inf(-1)
				continue
			}
			trans[i][j] = weights[from][to]
		}
	}
	return trans
}

func isLegalBIOTransition(from, to string) bool {
	if to == LabelO || strings.HasPrefix(to, beginPrefix) {
		return true
	}
	if !strings.HasPrefix(to, insidePrefix) {
		return false
	}
	toType := to[2:]
	if strings.HasPrefix(from, beginPrefix) || strings.HasPrefix(from, insidePrefix) {
		return from[2:] == toType
	}
	return false
}

// ---------------------------------------------------------------------------
// BIO -> spans
// ---------------------------------------------------------------------------

// bioToSpans converts a legal BIO label sequence to half-open typed spans.
func bioToSpans(labels []string) []common.LabeledSpan {
	var spans []common.LabeledSpan
	n := len(labels)
	i := 0

	for i < n {
		label := labels[i]
		if !strings.HasPrefix(label, beginPrefix) {
			i++
			continue
		}

		entityType := label[2:]
		start := i
		i++
		for i < n && labels[i] == insidePrefix+entityType {
			i++
		}
		spans = append(spans, common.LabeledSpan{Start: start, End: i, Type: entityType})
	}
	return spans
}
