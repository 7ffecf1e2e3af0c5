// Package prompts holds the bootstrap system prompt every new agent is
// seeded with. The default ships embedded; an external file can override it.
// The loaded value is process-wide immutable configuration: read lazily on
// first use and cached for the process lifetime. A load failure is fatal only
// when no cached value exists yet.
package prompts

import (
	_ "embed"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

//go:embed default_system.md
var embedded string

var (
	mu     sync.Mutex
	cached string
	path   string
)

// SetPath points the bootstrap prompt at an external file and invalidates the
// cache. Pass "" to fall back to the embedded default.
func SetPath(p string) {
	mu.Lock()
	defer mu.Unlock()
	path = p
	cached = ""
}

// Default returns the bootstrap system prompt, loading and caching it on
// first use.
func Default() (string, error) {
	mu.Lock()
	defer mu.Unlock()
	if cached != "" {
		return cached, nil
	}
	if path == "" {
		cached = strings.TrimSpace(embedded)
		return cached, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "load bootstrap prompt")
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.Errorf("bootstrap prompt %s is empty", path)
	}
	cached = text
	return cached, nil
}
