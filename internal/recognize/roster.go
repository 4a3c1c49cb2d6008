package recognize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Unknown is the name assigned to persons below the match threshold.
const Unknown = "unknown"

// Member is one family member with reference face embeddings.
type Member struct {
	Name       string      `yaml:"name"`
	Labels     []string    `yaml:"labels,omitempty"`
	Embeddings [][]float64 `yaml:"embeddings"`
}

// Roster is the set of known family members.
type Roster struct {
	Members []Member `yaml:"members"`
}

func LoadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster: %w", err)
	}
	return DecodeRoster(data)
}

func DecodeRoster(data []byte) (Roster, error) {
	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return Roster{}, fmt.Errorf("decode roster: %w", err)
	}
	if err := roster.Validate(); err != nil {
		return Roster{}, err
	}
	return roster, nil
}

// Validate checks names and embedding dimensions. All embeddings across the
// roster must share one dimension so similarities are comparable.
func (r Roster) Validate() error {
	dim := 0
	seen := make(map[string]bool)
	for _, member := range r.Members {
		if member.Name == "" {
			return fmt.Errorf("roster member missing name")
		}
		if member.Name == Unknown {
			return fmt.Errorf("roster member must not be named %q", Unknown)
		}
		if seen[member.Name] {
			return fmt.Errorf("duplicate roster member: %s", member.Name)
		}
		seen[member.Name] = true
		if len(member.Embeddings) == 0 {
			return fmt.Errorf("roster member %s has no embeddings", member.Name)
		}
		for i, embedding := range member.Embeddings {
			if len(embedding) == 0 {
				return fmt.Errorf("roster member %s embedding %d is empty", member.Name, i)
			}
			if dim == 0 {
				dim = len(embedding)
			}
			if len(embedding) != dim {
				return fmt.Errorf("roster member %s embedding %d has dimension %d, want %d",
					member.Name, i, len(embedding), dim)
			}
		}
	}
	return nil
}

// Dimension returns the shared embedding dimension, 0 for an empty roster.
func (r Roster) Dimension() int {
	for _, member := range r.Members {
		for _, embedding := range member.Embeddings {
			return len(embedding)
		}
	}
	return 0
}
