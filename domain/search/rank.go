package search

import "sort"

// HybridDistance blends text and image distances with the given text weight.
// The weight is clamped to [0, 1]: 1 ranks by text distance alone, 0 by
// image distance alone.
func HybridDistance(textDist, imageDist, textWeight float64) float64 {
	if textWeight < 0 {
		textWeight = 0
	} else if textWeight > 1 {
		textWeight = 1
	}
	return textWeight*textDist + (1-textWeight)*imageDist
}

// RankHits orders hits the way every backend ranks results: entities with an
// image or logo first, then ascending distance, truncated to k. The input is
// not modified.
func RankHits(hits []Hit, k int) []Hit {
	ranked := make([]Hit, len(hits))
	copy(ranked, hits)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].HasURL() != ranked[j].HasURL() {
			return ranked[i].HasURL()
		}
		return ranked[i].Distance() < ranked[j].Distance()
	})

	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}
