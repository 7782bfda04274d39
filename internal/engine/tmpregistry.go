package engine

import (
	"os"
	"sync"
)

// tmpRegistry tracks in-progress temporary files so a cancelled or
// crashed run can sweep them up instead of leaving partials around.
type tmpRegistry struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newTmpRegistry() *tmpRegistry {
	return &tmpRegistry{paths: make(map[string]struct{})}
}

func (t *tmpRegistry) add(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths[path] = struct{}{}
}

func (t *tmpRegistry) remove(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.paths, path)
}

// sweep removes every registered temporary file.
func (t *tmpRegistry) sweep() {
	t.mu.Lock()
	paths := make([]string, 0, len(t.paths))
	for p := range t.paths {
		paths = append(paths, p)
	}
	t.paths = make(map[string]struct{})
	t.mu.Unlock()

	for _, p := range paths {
		_ = os.Remove(p)
	}
}
