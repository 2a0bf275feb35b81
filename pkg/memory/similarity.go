package memory

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// SimilarityHit is a single ranked result from FindSimilar.
type SimilarityHit struct {
	Document        domain.Document
	CosineDistance  float64
	AdjustedDistance float64
}

// recencyHalfLife is the age at which recency_factor decays to ~0.5,
// chosen so that documents seen within the past couple of weeks still
// meaningfully outrank month-old ones once recency_weight is applied.
const recencyHalfLife = 14 * 24 * time.Hour

// recencyFactor is a monotonic function of document age clipped to [0,1]:
// 1.0 for a document just seen, decaying toward 0 as it ages.
func recencyFactor(lastSeen, now time.Time) float64 {
	age := now.Sub(lastSeen)
	if age <= 0 {
		return 1
	}
	factor := math.Exp(-float64(age) / float64(recencyHalfLife) * math.Ln2)
	if factor < 0 {
		return 0
	}
	if factor > 1 {
		return 1
	}
	return factor
}

func cosineDistance(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return 1 - similarity
}

// matchesFilters reports whether a document's metadata satisfies every
// key/value pair in filters (document_type, drug, disease context).
func matchesFilters(doc domain.Document, filters map[string]string) bool {
	for k, v := range filters {
		switch k {
		case "document_type":
			if doc.Metadata.DocumentType != v {
				return false
			}
		case "drug_name":
			if !doc.Metadata.DrugNamesContext.Contains(v) {
				return false
			}
		case "disease_name":
			if !doc.Metadata.DiseaseNamesContext.Contains(v) {
				return false
			}
		}
	}
	return true
}

// FindSimilar returns up to n documents ordered by ascending adjusted
// distance = cosine_distance * (1 - recency_weight * recency_factor).
// With no embedder configured, cosine distance degrades to a deterministic
// rank by canonical id so offline tests stay stable.
func (c *Collection) FindSimilar(ctx context.Context, query string, n int, filters map[string]string, qualityThreshold int, recencyWeight float64, now time.Time) ([]SimilarityHit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var queryVector []float64
	if c.embedder != nil {
		v, err := c.embedder.Embed(ctx, query)
		if err != nil {
			return nil, err
		}
		queryVector = v
	}

	candidateIDs := make([]string, 0, len(c.order))
	for _, id := range c.order {
		sd := c.docs[id]
		if qualityThreshold > 0 && sd.doc.Metadata.ReferenceCount() < qualityThreshold {
			continue
		}
		if !matchesFilters(sd.doc, filters) {
			continue
		}
		candidateIDs = append(candidateIDs, id)
	}

	hits := make([]SimilarityHit, 0, len(candidateIDs))
	if c.embedder == nil {
		sort.Strings(candidateIDs)
		total := len(candidateIDs)
		for i, id := range candidateIDs {
			sd := c.docs[id]
			distance := 0.0
			if total > 1 {
				distance = float64(i) / float64(total)
			}
			hits = append(hits, c.buildHit(sd, distance, recencyWeight, now))
		}
	} else {
		for _, id := range candidateIDs {
			sd := c.docs[id]
			if sd.vector == nil {
				v, err := c.embedder.Embed(ctx, sd.doc.Body)
				if err != nil {
					return nil, err
				}
				sd.vector = v
			}
			distance := cosineDistance(queryVector, sd.vector)
			hits = append(hits, c.buildHit(sd, distance, recencyWeight, now))
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].AdjustedDistance < hits[j].AdjustedDistance })
	if n > 0 && len(hits) > n {
		hits = hits[:n]
	}
	return hits, nil
}

func (c *Collection) buildHit(sd *storedDocument, distance, recencyWeight float64, now time.Time) SimilarityHit {
	factor := recencyFactor(sd.doc.Metadata.LastSeen, now)
	adjusted := distance * (1 - recencyWeight*factor)
	return SimilarityHit{Document: sd.doc, CosineDistance: distance, AdjustedDistance: adjusted}
}
