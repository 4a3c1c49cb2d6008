package recognize

import (
	"os"
	"path/filepath"
	"testing"
)

func testRoster() Roster {
	return Roster{Members: []Member{
		{Name: "alice", Embeddings: [][]float64{{1, 0, 0}}},
		{Name: "bob", Embeddings: [][]float64{{0, 1, 0}, {0, 0.9, 0.1}}},
	}}
}

func TestMatcherExactMatch(t *testing.T) {
	matcher, err := NewMatcher(testRoster(), 0.8)
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	match := matcher.Match([]float64{1, 0, 0})
	if match.Name != "alice" {
		t.Fatalf("expected alice, got %+v", match)
	}
	if match.Score < 0.999 {
		t.Fatalf("expected score ~1, got %v", match.Score)
	}
}

func TestMatcherPicksBestReference(t *testing.T) {
	matcher, err := NewMatcher(testRoster(), 0.8)
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	match := matcher.Match([]float64{0, 0.95, 0.05})
	if match.Name != "bob" {
		t.Fatalf("expected bob, got %+v", match)
	}
}

func TestMatcherBelowThreshold(t *testing.T) {
	matcher, err := NewMatcher(testRoster(), 0.9)
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	match := matcher.Match([]float64{0.6, 0.6, 0.5})
	if match.Name != Unknown {
		t.Fatalf("expected unknown, got %+v", match)
	}
	if match.Score <= 0 {
		t.Fatalf("score should still report the best candidate, got %v", match.Score)
	}
}

func TestMatcherDimensionMismatch(t *testing.T) {
	matcher, err := NewMatcher(testRoster(), 0.5)
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	if match := matcher.Match([]float64{1, 0}); match.Name != Unknown {
		t.Fatalf("dimension mismatch must not match, got %+v", match)
	}
	if match := matcher.Match(nil); match.Name != Unknown {
		t.Fatalf("empty embedding must not match, got %+v", match)
	}
}

func TestMatcherZeroVector(t *testing.T) {
	matcher, err := NewMatcher(testRoster(), 0.1)
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	if match := matcher.Match([]float64{0, 0, 0}); match.Name != Unknown {
		t.Fatalf("zero vector must not match, got %+v", match)
	}
}

func TestNewMatcherValidation(t *testing.T) {
	if _, err := NewMatcher(testRoster(), 1.5); err == nil {
		t.Fatalf("expected error for threshold > 1")
	}

	bad := Roster{Members: []Member{
		{Name: "alice", Embeddings: [][]float64{{1, 0}}},
		{Name: "bob", Embeddings: [][]float64{{1, 0, 0}}},
	}}
	if _, err := NewMatcher(bad, 0.5); err == nil {
		t.Fatalf("expected error for mixed dimensions")
	}
}

func TestRosterValidate(t *testing.T) {
	cases := map[string]Roster{
		"missing name":   {Members: []Member{{Embeddings: [][]float64{{1}}}}},
		"reserved name":  {Members: []Member{{Name: Unknown, Embeddings: [][]float64{{1}}}}},
		"duplicate name": {Members: []Member{{Name: "a", Embeddings: [][]float64{{1}}}, {Name: "a", Embeddings: [][]float64{{1}}}}},
		"no embeddings":  {Members: []Member{{Name: "a"}}},
		"empty embedding": {Members: []Member{{Name: "a", Embeddings: [][]float64{{}}}}},
	}
	for name, roster := range cases {
		if err := roster.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	content := []byte("members:\n  - name: alice\n    labels: [parent]\n    embeddings:\n      - [1, 0, 0]\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}

	roster, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	if len(roster.Members) != 1 || roster.Members[0].Name != "alice" {
		t.Fatalf("unexpected roster: %+v", roster)
	}
	if roster.Dimension() != 3 {
		t.Fatalf("unexpected dimension: %d", roster.Dimension())
	}
}
