// Package policysvc is the Policy Analysis specialist service: insurer
// policy lookup, six-kind coverage-criteria evaluation, formulary search,
// alternatives, and cross-insurer policy comparison.
package policysvc

import "github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"

// Bundle is one insurer's full drug formulary.
type Bundle struct {
	Insurer       string                          `json:"insurer"`
	PolicyVersion string                          `json:"policy_version"`
	Drugs         map[string]domain.InsurerPolicy `json:"drugs"`
}

// Catalog is the in-memory policy database, indexed by insurer then by
// case-folded drug name. Read-only after construction.
type Catalog struct {
	bundles map[string]Bundle
	// defaultInsurer is used whenever a caller does not specify one, matching
	// the single-insurer deployments this catalog was originally built for.
	defaultInsurer string
}

// NewCatalog builds a Catalog from a set of loaded bundles. The first
// bundle (in the order given) becomes the default insurer used when a
// caller omits one.
func NewCatalog(bundles ...Bundle) *Catalog {
	c := &Catalog{bundles: make(map[string]Bundle, len(bundles))}
	for i, b := range bundles {
		c.bundles[b.Insurer] = b
		if i == 0 {
			c.defaultInsurer = b.Insurer
		}
	}
	return c
}

// Insurers lists every loaded insurer name.
func (c *Catalog) Insurers() []string {
	out := make([]string, 0, len(c.bundles))
	for name := range c.bundles {
		out = append(out, name)
	}
	return out
}

// DefaultInsurer returns the fallback insurer used when a caller omits one.
func (c *Catalog) DefaultInsurer() string {
	return c.defaultInsurer
}

// lookup returns the policy for drugName under insurer, case-insensitively.
// An empty insurer falls back to the default.
func (c *Catalog) lookup(insurer, drugName string) (domain.InsurerPolicy, bool) {
	if insurer == "" {
		insurer = c.defaultInsurer
	}
	bundle, ok := c.bundles[insurer]
	if !ok {
		return domain.InsurerPolicy{}, false
	}
	for name, policy := range bundle.Drugs {
		if equalFold(name, drugName) {
			policy.DrugName = name
			policy.Insurer = insurer
			if policy.PolicyVersion == "" {
				policy.PolicyVersion = bundle.PolicyVersion
			}
			return policy, true
		}
	}
	return domain.InsurerPolicy{}, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

// BundledCatalog returns the default formulary seeded for local and test
// use when no external policy bundle directory is configured.
func BundledCatalog() *Catalog {
	empagliflozin := domain.InsurerPolicy{
		DrugClass:   "SGLT2 Inhibitors",
		Status:      domain.CoverageCoveredWithPA,
		Tier:        3,
		MonthlyCost: 47.00,
		Criteria: []domain.Criterion{
			{
				ID:            "CRIT-01",
				Description:   "Patient must have diagnosis of Type 2 Diabetes OR Heart Failure",
				Kind:          domain.CriterionDiagnosis,
				Severity:      domain.SeverityCritical,
				Required:      true,
				RequiredCodes: []string{"E11", "E11.9", "I50", "I50.9"},
			},
			{
				ID:                "CRIT-02",
				Description:       "Patient must have tried and failed Metformin",
				Kind:              domain.CriterionStepTherapy,
				Severity:          domain.SeverityCritical,
				Required:          true,
				RequiredPriorDrug: "Metformin",
				DurationDays:      intPtr(90),
			},
			{
				ID:           "CRIT-03",
				Description:  "Documentation of LVEF if used for heart failure",
				Kind:         domain.CriterionLabValue,
				Severity:     domain.SeverityMinorC,
				Required:     false,
				RequiredTest: "LVEF",
			},
		},
		QuantityLimits: &domain.QuantityLimits{MaxUnitsPerFill: 30},
		Alternatives: []domain.AlternativeDrug{
			{DrugName: "Metformin", Status: domain.CoverageCovered, Tier: 1},
			{DrugName: "Glipizide", Status: domain.CoverageCovered, Tier: 2},
		},
	}

	semaglutide := domain.InsurerPolicy{
		DrugClass:   "GLP-1 Receptor Agonists",
		Status:      domain.CoverageCoveredWithPA,
		Tier:        3,
		MonthlyCost: 892.00,
		Criteria: []domain.Criterion{
			{
				ID:            "CRIT-11",
				Description:   "Patient must have Type 2 Diabetes",
				Kind:          domain.CriterionDiagnosis,
				Severity:      domain.SeverityCritical,
				Required:      true,
				RequiredCodes: []string{"E11", "E11.9"},
			},
			{
				ID:           "CRIT-12",
				Description:  "HbA1c >= 7.5% despite metformin therapy",
				Kind:         domain.CriterionLabValue,
				Severity:     domain.SeverityCritical,
				Required:     true,
				RequiredTest: "HbA1c",
				MinValue:     floatPtr(7.5),
			},
			{
				ID:                "CRIT-13",
				Description:       "Must have tried metformin and one other oral antidiabetic",
				Kind:              domain.CriterionStepTherapy,
				Severity:          domain.SeverityModerateC,
				Required:          true,
				RequiredPriorDrug: "Metformin",
			},
		},
		QuantityLimits: &domain.QuantityLimits{MaxUnitsPerFill: 4},
	}

	sotagliflozin := domain.InsurerPolicy{
		DrugClass: "SGLT1/2 Inhibitors",
		Status:    domain.CoverageNotOnFormulary,
		Alternatives: []domain.AlternativeDrug{
			{DrugName: "Empagliflozin", Status: domain.CoverageCoveredWithPA, Tier: 3},
			{DrugName: "Dapagliflozin", Status: domain.CoverageCoveredWithPA, Tier: 3},
		},
	}

	metformin := domain.InsurerPolicy{
		DrugClass:      "Biguanides",
		Status:         domain.CoverageCovered,
		Tier:           1,
		MonthlyCost:    4.00,
		QuantityLimits: &domain.QuantityLimits{MaxUnitsPerFill: 180},
	}

	return NewCatalog(Bundle{
		Insurer:       "Default Health Insurance",
		PolicyVersion: "2024.1",
		Drugs: map[string]domain.InsurerPolicy{
			"Empagliflozin": empagliflozin,
			"Semaglutide":   semaglutide,
			"Sotagliflozin": sotagliflozin,
			"Metformin":     metformin,
		},
	})
}
