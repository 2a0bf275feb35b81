// Package memory implements the content-addressed Document Collection: a
// store keyed by domain.CanonicalID with set-semantics metadata merging and
// similarity search, plus an EnhancedCollection layering analytics
// (temporal patterns, contradictions, research gaps, cross-workflow
// insights, research-strategy recommendations) over a Collection's read
// surface.
//
// Grounded on the original MemoryManager/EnhancedMemoryManager's ChromaDB-
// backed design, re-modeled per the composition redesign note: the enhanced
// store holds a *Collection rather than inheriting from it, and the
// analytical modules are independent functions over Collection.All() /
// Collection.FindSimilar, not virtual methods.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// Embedder produces a dense vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Collection is a content-addressed document store with similarity search.
// A nil Embedder is a supported configuration: FindSimilar degrades to a
// deterministic canonical-id-ordered similarity so the rest of the system
// stays testable offline, per the Document Collection's failure semantics.
type Collection struct {
	mu       sync.RWMutex
	docs     map[string]*storedDocument
	order    []string // insertion order, for deterministic fallback similarity
	embedder Embedder
	clock    func() time.Time
}

// storedDocument is a document plus its (optional) embedding, decoupled
// from domain.Document so the embedding never leaks into JSON payloads.
type storedDocument struct {
	doc    domain.Document
	vector []float64
}

// NewCollection builds an empty Collection. A nil embedder is valid.
func NewCollection(embedder Embedder) *Collection {
	return &Collection{
		docs:     make(map[string]*storedDocument),
		embedder: embedder,
		clock:    time.Now,
	}
}

// All returns a snapshot of every stored document, in insertion order.
// Mutating the returned slice does not affect the collection.
func (c *Collection) All() []domain.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Document, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.docs[id].doc)
	}
	return out
}

// Get returns the document stored under canonical id, if any.
func (c *Collection) Get(canonicalID string) (domain.Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sd, ok := c.docs[canonicalID]
	if !ok {
		return domain.Document{}, false
	}
	return sd.doc, true
}

// Count returns the number of stored documents.
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
