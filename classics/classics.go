// Package classics retrieves supporting passages from classical Saju
// reference texts to ground LLM answers. It fans out to three
// independent sources in parallel (A, B, C) via injected
// Embedder/VectorSearch collaborators, grounded on the teacher's
// provider.Registry/HealthPoller fan-out-and-collect pattern
// (sync.WaitGroup over independent, possibly-failing backends) with
// graceful degradation: a failing source contributes nothing rather
// than failing the whole retrieval.
package classics

import (
	"context"
	"sort"
	"sync"
)

// Passage is a single retrieved reference snippet.
type Passage struct {
	Source string
	Text   string
	Score  float64
}

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorSearch finds the nearest passages to a query vector within one source.
type VectorSearch interface {
	Search(ctx context.Context, source string, vector []float64, k int) ([]Passage, error)
}

// Retriever fans a query out across configured sources and merges the results.
type Retriever struct {
	embedder Embedder
	search   VectorSearch
	sources  []string
	k        int
	threshold float64
}

// Config configures the retriever's fan-out behavior.
type Config struct {
	Sources   []string
	K         int
	Threshold float64
}

// New builds a classics retriever. Default sources are {A,B,C}, k=2,
// threshold=0.3 when Config is left zero-valued.
func New(embedder Embedder, search VectorSearch, cfg Config) *Retriever {
	if len(cfg.Sources) == 0 {
		cfg.Sources = []string{"A", "B", "C"}
	}
	if cfg.K <= 0 {
		cfg.K = 2
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.3
	}
	return &Retriever{embedder: embedder, search: search, sources: cfg.Sources, k: cfg.K, threshold: cfg.Threshold}
}

// Retrieve embeds the query once and searches all sources in
// parallel. Any source that errors or times out contributes nothing;
// the call only fails outright if embedding itself fails.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	results := make([][]Passage, len(r.sources))

	for i, source := range r.sources {
		wg.Add(1)
		go func(i int, source string) {
			defer wg.Done()
			passages, err := r.search.Search(ctx, source, vector, r.k)
			if err != nil {
				return
			}
			results[i] = passages
		}(i, source)
	}
	wg.Wait()

	var merged []Passage
	for _, group := range results {
		for _, p := range group {
			if p.Score >= r.threshold {
				merged = append(merged, p)
			}
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	return merged, nil
}
