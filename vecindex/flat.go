package vecindex

import "github.com/hrygo/exemplar/embedding"

// Flat scores the query against every indexed vector. Exact, O(n) per
// query, the right choice for small corpora and for evaluation runs.
type Flat struct {
	vectors [][]float32
}

// NewFlat indexes vectors. The slice is retained, not copied.
func NewFlat(vectors [][]float32) *Flat {
	return &Flat{vectors: vectors}
}

func (f *Flat) Search(query []float32, limit int) []Candidate {
	if limit <= 0 || len(f.vectors) == 0 {
		return nil
	}

	candidates := make([]Candidate, len(f.vectors))
	for i, vec := range f.vectors {
		candidates[i] = Candidate{Row: i, Similarity: embedding.CosineSimilarity(query, vec)}
	}
	sortCandidates(candidates)

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func (f *Flat) Len() int {
	return len(f.vectors)
}
