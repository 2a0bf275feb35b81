package domain

// CoverageStatus is totally ordered from least to most favorable for the patient.
type CoverageStatus string

const (
	CoverageExcluded              CoverageStatus = "Excluded"
	CoverageNotCovered            CoverageStatus = "NotCovered"
	CoverageNotOnFormulary        CoverageStatus = "NotOnFormulary"
	CoverageNonPreferred          CoverageStatus = "NonPreferred"
	CoverageCoveredWithRestrictions CoverageStatus = "CoveredWithRestrictions"
	CoverageCoveredWithPA         CoverageStatus = "CoveredWithPA"
	CoverageCovered               CoverageStatus = "Covered"
)

var coverageRank = map[CoverageStatus]int{
	CoverageExcluded:                0,
	CoverageNotCovered:              1,
	CoverageNotOnFormulary:          2,
	CoverageNonPreferred:            3,
	CoverageCoveredWithRestrictions: 4,
	CoverageCoveredWithPA:           5,
	CoverageCovered:                 6,
}

// Rank returns the hierarchy position of a coverage status, used by the
// policy comparison scorer.
func (c CoverageStatus) Rank() int {
	return coverageRank[c]
}

// RequiresPA reports whether the status implies a patient-facing PA gate.
func (c CoverageStatus) RequiresPA() bool {
	return c == CoverageCoveredWithPA || c == CoverageCoveredWithRestrictions
}

// CriterionSeverity grades how much an unmet criterion matters.
type CriterionSeverity string

const (
	SeverityCritical CriterionSeverity = "critical"
	SeverityModerateC CriterionSeverity = "moderate"
	SeverityMinorC    CriterionSeverity = "minor"
)

// CriterionKind tags which handler a Criterion uses.
type CriterionKind string

const (
	CriterionDiagnosis    CriterionKind = "diagnosis"
	CriterionStepTherapy  CriterionKind = "step_therapy"
	CriterionLabValue     CriterionKind = "lab_value"
	CriterionAgeLimit     CriterionKind = "age_limit"
	CriterionQuantityLimit CriterionKind = "quantity_limit"
	CriterionProviderType CriterionKind = "provider_type"
	// CriterionCustomCEL evaluates Criterion.Expression as a CEL boolean
	// expression against patient evidence, for policy bundles that need a
	// rule beyond the six built-in kinds.
	CriterionCustomCEL CriterionKind = "custom_cel"
)

// Criterion is a single coverage rule attached to a policy. Exactly one of
// the kind-specific fields is populated, selected by Kind.
type Criterion struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Kind        CriterionKind     `json:"type"`
	Severity    CriterionSeverity `json:"severity"`
	Required    bool              `json:"required"`

	// Diagnosis
	RequiredCodes []string `json:"required_codes,omitempty"`

	// StepTherapy
	RequiredPriorDrug string `json:"required_prior_drug,omitempty"`
	DurationDays      *int   `json:"duration_days,omitempty"`

	// LabValue
	RequiredTest string   `json:"required_test,omitempty"`
	MinValue     *float64 `json:"min_value,omitempty"`
	MaxValue     *float64 `json:"max_value,omitempty"`

	// AgeLimit
	MinAge *int `json:"min_age,omitempty"`
	MaxAge *int `json:"max_age,omitempty"`

	// QuantityLimit
	MaxUnitsPerFill *int `json:"max_units_per_fill,omitempty"`

	// ProviderType
	AllowedProviderTypes []string `json:"allowed_provider_types,omitempty"`

	// CustomCEL
	Expression string `json:"expression,omitempty"`
}

// QuantityLimits is the top-level policy field that check_coverage
// synthesizes into an implicit QuantityLimit criterion.
type QuantityLimits struct {
	MaxUnitsPerFill int `json:"max_units_per_fill"`
}

// AlternativeDrug is an alternative offering listed on a policy.
type AlternativeDrug struct {
	DrugName string         `json:"drug_name"`
	Status   CoverageStatus `json:"coverage_status"`
	Tier     int            `json:"tier"`
}

// InsurerPolicy is keyed by (Insurer, DrugName).
type InsurerPolicy struct {
	Insurer        string            `json:"insurer"`
	DrugName       string            `json:"drug_name"`
	DrugClass      string            `json:"drug_class,omitempty"`
	PolicyVersion  string            `json:"policy_version"`
	Status         CoverageStatus    `json:"coverage_status"`
	Tier           int               `json:"tier"` // 1-5, 0 = unknown
	MonthlyCost    float64           `json:"monthly_cost"`
	Criteria       []Criterion       `json:"criteria"`
	QuantityLimits *QuantityLimits   `json:"quantity_limits,omitempty"`
	Alternatives   []AlternativeDrug `json:"alternatives"`
}
