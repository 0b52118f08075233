// Package scraper turns news sites into pending articles for the extraction pipeline
package scraper

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ScrapedArticle is one fetched article before it is stored
type ScrapedArticle struct {
	SourceName    string
	URL           string
	Title         string
	PublishedDate *time.Time
	Text          string
	Language      string
}

// Source produces articles from one site
type Source interface {
	Name() string
	Scrape(ctx context.Context) ([]ScrapedArticle, error)
}

// Registry holds the configured sources by name
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a source; names must be unique
func (r *Registry) Register(source Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[source.Name()]; exists {
		return fmt.Errorf("source %q already registered", source.Name())
	}
	r.sources[source.Name()] = source
	return nil
}

// Get returns the named source
func (r *Registry) Get(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	source, ok := r.sources[name]
	return source, ok
}

// Sources returns every registered source sorted by name
func (r *Registry) Sources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// RegistryFromConfig builds an HTMLSource per config entry
func RegistryFromConfig(configs []SourceConfig, fetcher *PageFetcher) (*Registry, error) {
	registry := NewRegistry()
	for _, cfg := range configs {
		source, err := NewHTMLSource(cfg, fetcher)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(source); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
