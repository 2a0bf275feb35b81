package drugsvc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/normalize"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/ratelimit"
)

// ErrNotFound is returned when a drug name has no catalog or fallback entry.
var ErrNotFound = errors.New("drugsvc: drug not found")

// ErrTooFewDrugs is returned when Interactions is asked to check fewer
// than two drugs.
var ErrTooFewDrugs = errors.New("drugsvc: at least two drug names required for interaction check")

// Service is the Drug Information specialist service: catalog lookup
// with an LRU cache and fallback tier, rate-limited to bound the call
// rate against any eventual live DrugBank-backed source.
type Service struct {
	catalog *Catalog
	cache   *drugCache
	limiter ratelimit.Limiter
}

// NewService wires a catalog and limiter into a Service. A nil limiter
// disables rate limiting (appropriate for the bundled, local-only catalog).
func NewService(catalog *Catalog, limiter ratelimit.Limiter) *Service {
	if limiter == nil {
		limiter = ratelimit.NewDequeLimiter(0, 0)
	}
	return &Service{catalog: catalog, cache: newDrugCache(), limiter: limiter}
}

// Info retrieves a drug's clinical profile, normalizing the name first
// and serving from the LRU cache when present.
func (s *Service) Info(ctx context.Context, drugName string) (domain.DrugInformation, string, error) {
	name := normalize.DrugName(drugName)
	if name == "" {
		return domain.DrugInformation{}, "", fmt.Errorf("drugsvc: drug name must not be empty")
	}

	if info, ok := s.cache.get(name); ok {
		return info, "memory_cache", nil
	}

	if err := s.limiter.Admit(ctx); err != nil {
		return domain.DrugInformation{}, "", fmt.Errorf("drugsvc: rate limit wait cancelled: %w", err)
	}

	entry, tier, ok := s.catalog.lookup(name)
	if !ok {
		return domain.DrugInformation{}, "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	info := entry.Info
	if info.CanonicalName == "" {
		info.CanonicalName = name
	}
	s.cache.put(name, info)
	return info, tier, nil
}

// Class returns a drug's class, resolving through Info.
func (s *Service) Class(ctx context.Context, drugName string) (string, error) {
	info, _, err := s.Info(ctx, drugName)
	if err != nil {
		return "", err
	}
	if info.DrugClass == "" {
		return "Unknown", nil
	}
	return info.DrugClass, nil
}

// Safety returns the safety summary for a drug.
func (s *Service) Safety(ctx context.Context, drugName string) (domain.DrugSafetySummary, error) {
	info, _, err := s.Info(ctx, drugName)
	if err != nil {
		return domain.DrugSafetySummary{}, err
	}
	return Safety(info), nil
}

// CheckInteractions normalizes and checks interactions across every
// drug in names, returning the results plus the highest severity found.
func (s *Service) CheckInteractions(names []string) ([]domain.InteractionResult, domain.InteractionSeverity, error) {
	if len(names) < 2 {
		return nil, domain.SeverityNone, ErrTooFewDrugs
	}
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = normalize.DrugName(n)
	}
	results := s.Interactions(normalized)
	return results, domain.HighestSeverity(results), nil
}

// SearchType selects which field Search matches against.
type SearchType string

const (
	SearchByName        SearchType = "name"
	SearchByClass        SearchType = "class"
	SearchByIndication   SearchType = "indication"
)

// SearchResult is one Search hit.
type SearchResult struct {
	DrugName           string
	DrugClass          string
	MatchingIndication string
}

// maxSearchResults caps Search's result count.
const maxSearchResults = 10

// Search scans the catalog (and fallback tier) for drugs matching query
// under the given field, returning at most maxSearchResults hits sorted
// alphabetically by name.
func (s *Service) Search(query string, searchType SearchType) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var out []SearchResult
	seen := make(map[string]struct{})

	for name, entry := range s.catalog.entries {
		switch searchType {
		case SearchByClass:
			if strings.Contains(strings.ToLower(entry.Info.DrugClass), q) {
				out = append(out, SearchResult{DrugName: name, DrugClass: entry.Info.DrugClass})
				seen[name] = struct{}{}
			}
		case SearchByIndication:
			for _, ind := range entry.Info.Indications {
				if strings.Contains(strings.ToLower(ind), q) {
					out = append(out, SearchResult{DrugName: name, DrugClass: entry.Info.DrugClass, MatchingIndication: ind})
					seen[name] = struct{}{}
					break
				}
			}
		default:
			if strings.Contains(name, q) {
				out = append(out, SearchResult{DrugName: name, DrugClass: entry.Info.DrugClass})
				seen[name] = struct{}{}
			}
		}
	}

	for name, fb := range s.catalog.fallback {
		if _, dup := seen[name]; dup {
			continue
		}
		switch searchType {
		case SearchByClass:
			if strings.Contains(strings.ToLower(fb.DrugClass), q) {
				out = append(out, SearchResult{DrugName: name, DrugClass: fb.DrugClass})
			}
		case SearchByIndication:
			for _, ind := range fb.Indications {
				if strings.Contains(strings.ToLower(ind), q) {
					out = append(out, SearchResult{DrugName: name, DrugClass: fb.DrugClass, MatchingIndication: ind})
					break
				}
			}
		default:
			if strings.Contains(name, q) {
				out = append(out, SearchResult{DrugName: name, DrugClass: fb.DrugClass})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DrugName < out[j].DrugName })
	if len(out) > maxSearchResults {
		out = out[:maxSearchResults]
	}
	return out
}

// PACriteria is the PA-relevant extract of a drug's profile.
type PACriteria struct {
	DrugName                  string
	DrugClass                 string
	FDAApprovedIndications    []string
	Contraindications         []string
	Warnings                  []string
	MonitoringRequirements    []string
	DosingInformation         map[string]string
	RequestedIndication       string
	RequestedIndicationApproved *bool
	Recommendations           []string
}

// PACriteriaFor extracts PA-relevant criteria for a drug, optionally
// checked against a requested indication.
func (s *Service) PACriteriaFor(ctx context.Context, drugName, indication string) (PACriteria, error) {
	info, _, err := s.Info(ctx, drugName)
	if err != nil {
		return PACriteria{}, err
	}

	pa := PACriteria{
		DrugName:               info.CanonicalName,
		DrugClass:              info.DrugClass,
		FDAApprovedIndications: info.Indications,
		Contraindications:      info.Contraindications,
		Warnings:               info.Warnings,
		MonitoringRequirements: info.Monitoring,
	}

	if indication != "" {
		pa.RequestedIndication = indication
		approved := containsFold(info.Indications, indication)
		pa.RequestedIndicationApproved = &approved
	}

	pa.DosingInformation = flattenDosing(info.Dosing, indication)
	pa.Recommendations = recommendations(pa)
	return pa, nil
}

func containsFold(haystack []string, needle string) bool {
	n := strings.ToLower(needle)
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), n) {
			return true
		}
	}
	return false
}

func flattenDosing(dosing map[string]map[string]string, indication string) map[string]string {
	if indication != "" {
		for key, d := range dosing {
			if strings.Contains(strings.ToLower(key), strings.ToLower(indication)) {
				return d
			}
		}
	}
	// Fall back to the first entry in stable (sorted) order when no dosing
	// key matches the requested indication.
	keys := make([]string, 0, len(dosing))
	for k := range dosing {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return map[string]string{}
	}
	return dosing[keys[0]]
}

var highRiskContraindicationTerms = []string{"pregnancy", "renal", "hepatic", "dialysis"}

func recommendations(pa PACriteria) []string {
	var recs []string
	if pa.RequestedIndicationApproved != nil && !*pa.RequestedIndicationApproved {
		recs = append(recs, "Off-label use - ensure appropriate documentation and justification")
	}
	for _, c := range pa.Contraindications {
		lower := strings.ToLower(c)
		for _, term := range highRiskContraindicationTerms {
			if strings.Contains(lower, term) {
				recs = append(recs, "Verify patient does not have: "+c)
				break
			}
		}
	}
	if len(pa.MonitoringRequirements) > 0 {
		n := len(pa.MonitoringRequirements)
		if n > 3 {
			n = 3
		}
		recs = append(recs, "Ensure monitoring plan is in place for: "+strings.Join(pa.MonitoringRequirements[:n], ", "))
	}

	class := strings.ToLower(pa.DrugClass)
	switch {
	case strings.Contains(class, "sglt2"):
		recs = append(recs,
			"Verify eGFR is appropriate for SGLT2 inhibitor use",
			"Confirm no history of diabetic ketoacidosis")
	case strings.Contains(class, "glp-1"):
		recs = append(recs,
			"Verify no personal/family history of medullary thyroid carcinoma",
			"Document previous diabetes therapy trials if applicable")
	}
	return recs
}
