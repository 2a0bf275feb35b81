package policysvc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// ErrNotFound is returned when a drug has no policy on file for the
// requested (or default) insurer.
var ErrNotFound = errors.New("policysvc: no policy found for drug")

// decisionCacheTTL bounds how long a GetPolicy lookup is served from cache
// before it is re-resolved against the catalog.
const decisionCacheTTL = 24 * time.Hour

type cacheEntry struct {
	policy domain.InsurerPolicy
	at     time.Time
}

// Service is the Policy Analysis specialist service: policy lookup,
// coverage-criteria evaluation, formulary search, alternatives, and
// cross-insurer comparison, backed by a Catalog with a TTL decision cache.
type Service struct {
	catalog   *Catalog
	clock     func() time.Time
	snapshots SnapshotRecorder

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewService wires a Catalog into a Service. A nil clock defaults to time.Now.
func NewService(catalog *Catalog, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{catalog: catalog, clock: clock, cache: make(map[string]cacheEntry)}
}

// WithSnapshotRecorder attaches a durable SnapshotRecorder; every future
// CheckCoverage call records its outcome through it. Returns s for chaining.
func (s *Service) WithSnapshotRecorder(r SnapshotRecorder) *Service {
	s.snapshots = r
	return s
}

func cacheKey(insurer, drugName string) string {
	return strings.ToLower(insurer) + ":" + strings.ToLower(drugName)
}

// GetPolicy returns the policy for drugName under insurer (the catalog's
// default insurer if insurer is ""), serving from the 24h TTL cache when
// available.
func (s *Service) GetPolicy(insurer, drugName string) (domain.InsurerPolicy, string, error) {
	if insurer == "" {
		insurer = s.catalog.DefaultInsurer()
	}
	key := cacheKey(insurer, drugName)

	s.mu.Lock()
	if entry, ok := s.cache[key]; ok && s.clock().Sub(entry.at) < decisionCacheTTL {
		s.mu.Unlock()
		return entry.policy, "cache", nil
	}
	s.mu.Unlock()

	policy, ok := s.catalog.lookup(insurer, drugName)
	if !ok {
		return domain.InsurerPolicy{}, "", fmt.Errorf("%w: %q (%s)", ErrNotFound, drugName, insurer)
	}

	s.mu.Lock()
	s.cache[key] = cacheEntry{policy: policy, at: s.clock()}
	s.mu.Unlock()

	return policy, "catalog", nil
}

// CheckCoverage fetches drugName's policy under insurer and evaluates it
// against ev. When a SnapshotRecorder is attached, the outcome is also
// recorded durably; a recording failure is ignored rather than failing the
// coverage check itself.
func (s *Service) CheckCoverage(insurer, drugName string, ev PatientEvidence) (domain.CoverageDecision, error) {
	policy, _, err := s.GetPolicy(insurer, drugName)
	if err != nil {
		return domain.CoverageDecision{}, err
	}
	decision := CheckCoverage(policy, ev)
	if s.snapshots != nil {
		_ = s.snapshots.Record(context.Background(), DecisionSnapshot{
			Insurer:    insurer,
			DrugName:   drugName,
			Decision:   decision,
			RecordedAt: s.clock(),
		})
	}
	return decision, nil
}

// SearchField selects which formulary field SearchFormulary matches against.
type SearchField string

const (
	SearchAll    SearchField = "all"
	SearchName   SearchField = "name"
	SearchClass  SearchField = "class"
	SearchTier   SearchField = "tier"
	SearchStatus SearchField = "status"
)

// maxFormularySearchResults caps SearchFormulary's result count.
const maxFormularySearchResults = 20

// FormularyHit is one SearchFormulary result.
type FormularyHit struct {
	DrugName    string
	DrugClass   string
	Status      domain.CoverageStatus
	Tier        int
	MonthlyCost float64
	RequiresPA  bool
}

// SearchFormulary scans insurer's (or the default insurer's) formulary for
// drugs matching query under field, sorted by tier (unknown tier last)
// then drug name, truncated to maxFormularySearchResults.
func (s *Service) SearchFormulary(insurer, query string, field SearchField) []FormularyHit {
	if insurer == "" {
		insurer = s.catalog.DefaultInsurer()
	}
	bundle, ok := s.catalog.bundles[insurer]
	if !ok {
		return nil
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var hits []FormularyHit
	for name, policy := range bundle.Drugs {
		if !formularyMatches(name, policy, q, field) {
			continue
		}
		hits = append(hits, FormularyHit{
			DrugName:    name,
			DrugClass:   policy.DrugClass,
			Status:      policy.Status,
			Tier:        policy.Tier,
			MonthlyCost: policy.MonthlyCost,
			RequiresPA:  policy.Status.RequiresPA(),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		ti, tj := hits[i].Tier, hits[j].Tier
		if ti == 0 {
			ti = 999
		}
		if tj == 0 {
			tj = 999
		}
		if ti != tj {
			return ti < tj
		}
		return strings.ToLower(hits[i].DrugName) < strings.ToLower(hits[j].DrugName)
	})
	if len(hits) > maxFormularySearchResults {
		hits = hits[:maxFormularySearchResults]
	}
	return hits
}

func formularyMatches(name string, policy domain.InsurerPolicy, q string, field SearchField) bool {
	switch field {
	case SearchAll, "":
		return true
	case SearchName:
		return strings.Contains(strings.ToLower(name), q)
	case SearchClass:
		return strings.Contains(strings.ToLower(policy.DrugClass), q)
	case SearchTier:
		cleaned := strings.TrimSpace(strings.ReplaceAll(q, "tier", ""))
		tier, err := strconv.Atoi(cleaned)
		return err == nil && policy.Tier == tier
	case SearchStatus:
		return strings.Contains(strings.ToLower(string(policy.Status)), q)
	default:
		return false
	}
}

// EnrichedAlternative pairs a listed alternative with its own policy, when
// one exists under the same insurer.
type EnrichedAlternative struct {
	DrugName    string
	Status      domain.CoverageStatus
	Tier        int
	MonthlyCost float64
	DrugClass   string
	RequiresPA  bool
	HasPolicy   bool
}

// Alternatives returns drugName's listed alternatives enriched with their
// own policy details where available, plus a one-line recommendation.
func (s *Service) Alternatives(insurer, drugName string) ([]EnrichedAlternative, string, error) {
	policy, _, err := s.GetPolicy(insurer, drugName)
	if err != nil {
		return nil, "", err
	}

	out := make([]EnrichedAlternative, 0, len(policy.Alternatives))
	for _, alt := range policy.Alternatives {
		if altPolicy, ok := s.catalog.lookup(insurer, alt.DrugName); ok {
			out = append(out, EnrichedAlternative{
				DrugName:    alt.DrugName,
				Status:      altPolicy.Status,
				Tier:        altPolicy.Tier,
				MonthlyCost: altPolicy.MonthlyCost,
				DrugClass:   altPolicy.DrugClass,
				RequiresPA:  altPolicy.Status.RequiresPA(),
				HasPolicy:   true,
			})
			continue
		}
		out = append(out, EnrichedAlternative{
			DrugName:   alt.DrugName,
			Status:     alt.Status,
			Tier:       alt.Tier,
			RequiresPA: alt.Status.RequiresPA(),
		})
	}

	return out, alternativeRecommendation(drugName, out), nil
}

func alternativeRecommendation(drugName string, alts []EnrichedAlternative) string {
	if len(alts) == 0 {
		return fmt.Sprintf("No alternatives found for %s", drugName)
	}
	var preferred []string
	for _, alt := range alts {
		if !alt.RequiresPA {
			preferred = append(preferred, alt.DrugName)
		}
	}
	if len(preferred) > 0 {
		if len(preferred) > 3 {
			preferred = preferred[:3]
		}
		return "Consider preferred alternatives that don't require PA: " + strings.Join(preferred, ", ")
	}
	return fmt.Sprintf("All %d alternatives also require prior authorization", len(alts))
}

// ComparePolicies compares drugName's coverage across insurers (every
// loaded insurer if insurers is empty) and identifies the best-scoring one.
func (s *Service) ComparePolicies(drugName string, insurers []string) (map[string]InsurerComparison, BestCoverage, bool) {
	if len(insurers) == 0 {
		insurers = s.catalog.Insurers()
	}

	comparison := make(map[string]InsurerComparison, len(insurers))
	for _, insurer := range insurers {
		policy, ok := s.catalog.lookup(insurer, drugName)
		if !ok {
			comparison[insurer] = InsurerComparison{Status: domain.CoverageNotCovered}
			continue
		}
		comparison[insurer] = InsurerComparison{
			Status:         policy.Status,
			Tier:           policy.Tier,
			MonthlyCost:    policy.MonthlyCost,
			HasMonthlyCost: policy.MonthlyCost > 0,
			RequiresPA:     policy.Status.RequiresPA(),
			CriteriaCount:  len(policy.Criteria),
		}
	}

	best, found := IdentifyBestCoverage(comparison)
	return comparison, best, found
}
