// Package vecindex provides in-memory nearest-neighbor search over
// embedding vectors: an exact brute-force index and an approximate
// locality-sensitive-hashing index for larger corpora.
package vecindex

import "sort"

// Candidate is one row of the indexed corpus with its embedding
// similarity to the query.
type Candidate struct {
	Row        int
	Similarity float64
}

// Index searches vectors by cosine similarity. Implementations are
// immutable after construction and safe for concurrent readers.
type Index interface {
	// Search returns up to limit candidates ordered by similarity
	// descending, ties by row ascending.
	Search(query []float32, limit int) []Candidate

	// Len returns the number of indexed vectors.
	Len() int
}

func sortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Row < candidates[j].Row
	})
}
