package recognize

import (
	"fmt"
	"math"
)

// Match is the outcome of matching one embedding against the roster.
type Match struct {
	Name  string
	Score float64
}

// Matcher assigns names to face embeddings by cosine similarity.
type Matcher struct {
	roster    Roster
	threshold float64
}

func NewMatcher(roster Roster, threshold float64) (*Matcher, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("match threshold must be in [0,1], got %v", threshold)
	}
	if err := roster.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{roster: roster, threshold: threshold}, nil
}

// Match returns the best roster member for the embedding, or Unknown when
// no member reaches the threshold. Embeddings whose dimension does not
// match the roster never match.
func (m *Matcher) Match(embedding []float64) Match {
	best := Match{Name: Unknown}
	if len(embedding) == 0 || len(embedding) != m.roster.Dimension() {
		return best
	}

	for _, member := range m.roster.Members {
		for _, reference := range member.Embeddings {
			score := cosine(embedding, reference)
			if score > best.Score {
				best = Match{Name: member.Name, Score: score}
			}
		}
	}

	if best.Score < m.threshold {
		return Match{Name: Unknown, Score: best.Score}
	}
	return best
}

// cosine computes cosine similarity over equal-length vectors. Zero vectors
// yield 0 so they never clear the threshold.
func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
