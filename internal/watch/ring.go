package watch

import "sync"

const defaultRingSize = 100

// Ring holds the most recent sightings for the HTTP API.
type Ring struct {
	mu   sync.RWMutex
	buf  []Sighting
	next int
	full bool
}

func NewRing(size int) *Ring {
	if size <= 0 {
		size = defaultRingSize
	}
	return &Ring{buf: make([]Sighting, size)}
}

func (r *Ring) Add(sighting Sighting) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = sighting
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// Recent returns sightings newest first.
func (r *Ring) Recent() []Sighting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := r.next
	if r.full {
		count = len(r.buf)
	}
	out := make([]Sighting, 0, count)
	for i := 0; i < count; i++ {
		idx := r.next - 1 - i
		if idx < 0 {
			idx += len(r.buf)
		}
		out = append(out, r.buf[idx])
	}
	return out
}
