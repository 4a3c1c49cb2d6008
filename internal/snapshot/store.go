package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Store keeps downloaded snapshots on disk, one directory per camera.
type Store struct {
	dir      string
	maxAge   time.Duration
	maxBytes int64
}

// Config defines retention for the snapshot store. Zero values disable the
// corresponding pruning rule.
type Config struct {
	Dir      string
	MaxAge   time.Duration
	MaxBytes int64
}

func NewStore(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("snapshot dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: cfg.Dir, maxAge: cfg.MaxAge, maxBytes: cfg.MaxBytes}, nil
}

// Save writes snapshot bytes for one subevent. The temp file rename is the
// commit point, so readers never observe partial writes.
func (s *Store) Save(cameraID, eventID string, subevent int, data []byte) (string, error) {
	cameraDir := filepath.Join(s.dir, sanitize(cameraID))
	if err := os.MkdirAll(cameraDir, 0o755); err != nil {
		return "", fmt.Errorf("create camera dir: %w", err)
	}

	name := fmt.Sprintf("%s_%d.jpg", sanitize(eventID), subevent)
	path := filepath.Join(cameraDir, name)

	tmp, err := os.CreateTemp(cameraDir, name+".tmp*")
	if err != nil {
		return "", fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("commit snapshot: %w", err)
	}
	return path, nil
}

type storedFile struct {
	path    string
	size    int64
	modTime time.Time
}

// Prune removes snapshots past the age limit, then the oldest snapshots
// until the total size fits the byte budget.
func (s *Store) Prune(now time.Time) error {
	files, err := s.list()
	if err != nil {
		return err
	}

	if s.maxAge > 0 {
		cutoff := now.Add(-s.maxAge)
		kept := files[:0]
		for _, file := range files {
			if file.modTime.Before(cutoff) {
				if err := os.Remove(file.path); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("prune %s: %w", file.path, err)
				}
				continue
			}
			kept = append(kept, file)
		}
		files = kept
	}

	if s.maxBytes > 0 {
		var total int64
		for _, file := range files {
			total += file.size
		}
		// oldest first
		sort.Slice(files, func(i, j int) bool {
			return files[i].modTime.Before(files[j].modTime)
		})
		for _, file := range files {
			if total <= s.maxBytes {
				break
			}
			if err := os.Remove(file.path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("prune %s: %w", file.path, err)
			}
			total -= file.size
		}
	}

	return nil
}

func (s *Store) list() ([]storedFile, error) {
	var files []storedFile
	err := filepath.WalkDir(s.dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		files = append(files, storedFile{path: path, size: info.Size(), modTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk snapshot dir: %w", err)
	}
	return files, nil
}

// sanitize makes camera MACs and event ids safe as path segments.
func sanitize(value string) string {
	replacer := strings.NewReplacer(":", "-", "/", "-", "\\", "-", " ", "_")
	return replacer.Replace(value)
}
