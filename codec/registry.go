package codec

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry manages the available codecs
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec // key can be either name or extension
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

var defaultRegistry = NewRegistry()

// Default returns the registry that formats register into from init
func Default() *Registry {
	return defaultRegistry
}

// Register registers a codec using both its name and extensions
func Register(codec Codec) {
	defaultRegistry.Register(codec)
}

// Get retrieves a codec by name or extension
func Get(nameOrExt string) (Codec, error) {
	return defaultRegistry.Get(nameOrExt)
}

// ForPath retrieves the codec for a file path from its extension
func ForPath(path string) (Codec, error) {
	return defaultRegistry.ForPath(path)
}

// List returns all registered codecs
func List() []Codec {
	return defaultRegistry.List()
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimPrefix(key, "."))
}

// Register registers a codec using both its name and extensions
func (r *Registry) Register(codec Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codecs[normalize(codec.Name())] = codec
	for _, ext := range codec.Extensions() {
		r.codecs[normalize(ext)] = codec
	}
}

// Get retrieves a codec by name or extension; a leading dot is ignored
func (r *Registry) Get(nameOrExt string) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codec, ok := r.codecs[normalize(nameOrExt)]
	if !ok {
		return nil, ErrCodecNotFound
	}
	return codec, nil
}

// ForPath retrieves the codec for a file path from its extension
func (r *Registry) ForPath(path string) (Codec, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, fmt.Errorf("%s: no file extension: %w", path, ErrCodecNotFound)
	}
	c, err := r.Get(ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// List returns all registered codecs (deduplicated) ordered by name
func (r *Registry) List() []Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[Codec]bool)
	codecs := make([]Codec, 0)

	for _, codec := range r.codecs {
		if !seen[codec] {
			seen[codec] = true
			codecs = append(codecs, codec)
		}
	}

	sort.Slice(codecs, func(i, j int) bool { return codecs[i].Name() < codecs[j].Name() })
	return codecs
}
