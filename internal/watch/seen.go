package watch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const defaultSeenCap = 1000

// SeenSet remembers processed event ids across restarts so an event is
// alerted at most once. The set is bounded; oldest ids fall off first.
type SeenSet struct {
	path string
	cap  int

	mu    sync.Mutex
	ids   map[string]bool
	order []string
}

func NewSeenSet(path string, capacity int) (*SeenSet, error) {
	if capacity <= 0 {
		capacity = defaultSeenCap
	}
	s := &SeenSet{
		path: path,
		cap:  capacity,
		ids:  make(map[string]bool),
	}

	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read seen set: %w", err)
	}

	var order []string
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("decode seen set: %w", err)
	}
	for _, id := range order {
		if !s.ids[id] {
			s.ids[id] = true
			s.order = append(s.order, id)
		}
	}
	s.trimLocked()
	return s, nil
}

func (s *SeenSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[id]
}

func (s *SeenSet) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids[id] {
		return
	}
	s.ids[id] = true
	s.order = append(s.order, id)
	s.trimLocked()
}

func (s *SeenSet) trimLocked() {
	for len(s.order) > s.cap {
		delete(s.ids, s.order[0])
		s.order = s.order[1:]
	}
}

// Flush persists the set. A SeenSet without a path is memory-only.
func (s *SeenSet) Flush() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	data, err := json.Marshal(s.order)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal seen set: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir seen dir: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}
