package slam

import (
	"sort"

	"github.com/arthurkushman/go-hungarian"
)

// candidateEdge is an admissible pairing found in a search window
type candidateEdge struct {
	idx1     int
	idx2     int
	distance int
}

// matchHungarian uses the same windows, thresholds and ratio test as greedy matching,
// but keypoints of the second set claimed by several keypoints of the first set are resolved
// by the maximum-similarity assignment instead of dropping displaced claimants
func (matcher *GuidedMatcher) matchHungarian(keypoints1 []Keypoint, descriptors1 []Descriptor, keypoints2 []Keypoint, descriptors2 []Descriptor, grid2 GridIndex, predicted []Point, margin float64) MatchList {
	edges := make([]candidateEdge, 0)
	for idx1, kpt1 := range keypoints1 {
		level := kpt1.Octave
		if level < 0 {
			continue
		}
		indices := matcher.KeypointsInCell(keypoints2, grid2, predicted[idx1].X, predicted[idx1].Y, margin, level, level)
		if len(indices) == 0 {
			continue
		}
		bestDist := MaxHammingDistance
		secondBestDist := MaxHammingDistance
		bestIdx2 := NoMatch
		dists := make([]int, len(indices))
		for i, idx2 := range indices {
			dist := HammingDistance(descriptors1[idx1], descriptors2[idx2])
			dists[i] = dist
			if dist < bestDist {
				secondBestDist = bestDist
				bestDist = dist
				bestIdx2 = idx2
			} else if dist < secondBestDist {
				secondBestDist = dist
			}
		}
		if !matcher.acceptable(bestIdx2, bestDist, secondBestDist) {
			continue
		}
		for i, idx2 := range indices {
			if dists[i] <= matcher.cfg.HammingThresholdLow {
				edges = append(edges, candidateEdge{idx1: idx1, idx2: idx2, distance: dists[i]})
			}
		}
	}
	if len(edges) == 0 {
		return MatchList{}
	}

	// Compact indices so the cost matrix covers matched candidates only
	rows := make(map[int]int)
	cols := make(map[int]int)
	rowIdx := make([]int, 0)
	colIdx := make([]int, 0)
	for _, edge := range edges {
		if _, ok := rows[edge.idx1]; !ok {
			rows[edge.idx1] = len(rowIdx)
			rowIdx = append(rowIdx, edge.idx1)
		}
		if _, ok := cols[edge.idx2]; !ok {
			cols[edge.idx2] = len(colIdx)
			colIdx = append(colIdx, edge.idx2)
		}
	}
	paddedSize := maxInt(len(rowIdx), len(colIdx))
	similarity := make([][]float64, paddedSize)
	for i := range similarity {
		similarity[i] = make([]float64, paddedSize)
	}
	// Padding and missing edges stay at 0.0 (lowest similarity)
	for _, edge := range edges {
		similarity[rows[edge.idx1]][cols[edge.idx2]] = float64(MaxHammingDistance - edge.distance + 1)
	}

	assignments := hungarian.SolveMax(similarity)
	matchedIndices2In1 := make(map[int]int)
	for row, rowMap := range assignments {
		for col := range rowMap {
			if row >= len(rowIdx) || col >= len(colIdx) {
				continue
			}
			if similarity[row][col] <= 0 {
				continue
			}
			matchedIndices2In1[rowIdx[row]] = colIdx[col]
		}
	}

	if matcher.cfg.CheckOrientation {
		checker := NewAngleChecker[int](matcher.cfg.OrientationBins, matcher.cfg.OrientationKeptBins, matcher.cfg.OrientationMinBinRatio)
		for idx1, idx2 := range matchedIndices2In1 {
			checker.AppendDelta(keypoints1[idx1].Angle-keypoints2[idx2].Angle, idx1)
		}
		for _, invalidIdx1 := range checker.InvalidMatches() {
			delete(matchedIndices2In1, invalidIdx1)
		}
	}

	matches := make(MatchList, 0, len(matchedIndices2In1))
	for idx1, idx2 := range matchedIndices2In1 {
		matches = append(matches, Match{Index1: idx1, Index2: idx2})
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Index1 < matches[j].Index1
	})
	matcher.logger.Debug().
		Int("num_edges", len(edges)).
		Int("num_matches", len(matches)).
		Msg("matched keypoints with global assignment")
	return matches
}
