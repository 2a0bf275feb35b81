package domain

// DrugInformation describes the canonical clinical profile of a drug.
type DrugInformation struct {
	CanonicalName  string            `json:"canonical_name"`
	DrugClass      string            `json:"drug_class"`
	Mechanism      string            `json:"mechanism,omitempty"`
	Indications    []string          `json:"indications"`
	Contraindications []string       `json:"contraindications"`
	Warnings       []string          `json:"warnings"`
	Monitoring     []string          `json:"monitoring_requirements"`
	// Dosing maps an indication to a dosing map with semantic keys
	// "initial", "maximum", "renal_adjustment".
	Dosing map[string]map[string]string `json:"dosing,omitempty"`
}

// SafetyProfile bands a drug's overall risk based on warning/contraindication counts.
type SafetyProfile string

const (
	SafetyMinimal  SafetyProfile = "Minimal"
	SafetyLow      SafetyProfile = "Low"
	SafetyModerate SafetyProfile = "Moderate"
	SafetyHighRisk SafetyProfile = "High Risk"
)

// DrugSafetySummary is the output of drugsvc.Service.Safety.
type DrugSafetySummary struct {
	DrugName          string        `json:"drug_name"`
	DrugClass         string        `json:"drug_class"`
	Warnings          []string      `json:"warnings"`
	Contraindications []string      `json:"contraindications"`
	Monitoring        []string      `json:"monitoring_requirements"`
	SafetyProfile     SafetyProfile `json:"safety_profile"`
}

// InteractionSeverity is totally ordered; higher is more severe.
type InteractionSeverity string

const (
	SeverityNone             InteractionSeverity = "none"
	SeverityUnknown          InteractionSeverity = "unknown"
	SeverityMinor            InteractionSeverity = "minor"
	SeverityModerate         InteractionSeverity = "moderate"
	SeverityMajor            InteractionSeverity = "major"
	SeverityContraindicated  InteractionSeverity = "contraindicated"
)

// severityLevels assigns the total order used for comparisons and aggregation.
var severityLevels = map[InteractionSeverity]int{
	SeverityNone:            0,
	SeverityUnknown:         1,
	SeverityMinor:           2,
	SeverityModerate:        3,
	SeverityMajor:           4,
	SeverityContraindicated: 5,
}

// Level returns the integer rank of a severity, 0 for unrecognized values.
func (s InteractionSeverity) Level() int {
	return severityLevels[s]
}

// DefaultManagement is the severity-indexed fallback recommendation used
// when a specific interaction record carries no management text.
var DefaultManagement = map[InteractionSeverity]string{
	SeverityContraindicated: "Avoid combination - seek alternative therapy",
	SeverityMajor:           "Use only if benefit outweighs risk - close monitoring required",
	SeverityModerate:        "Monitor therapy closely for adverse effects",
	SeverityMinor:           "Monitor therapy as appropriate",
	SeverityUnknown:         "Insufficient data - monitor therapy",
	SeverityNone:            "No special precautions needed",
}

// DrugPair is an unordered pair of (normalized, sorted) drug names.
type DrugPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewDrugPair returns a DrugPair with its members sorted so that the pair is
// stable regardless of input order.
func NewDrugPair(a, b string) DrugPair {
	if a > b {
		a, b = b, a
	}
	return DrugPair{A: a, B: b}
}

// InteractionResult is a single entry describing the interaction between a
// pair of drugs.
type InteractionResult struct {
	Pair        DrugPair            `json:"drug_pair"`
	Severity    InteractionSeverity `json:"severity"`
	Description string              `json:"description"`
	Management  string              `json:"management"`
}

// HighestSeverity returns the maximum severity across a set of interaction
// results, defaulting to SeverityNone when the set is empty.
func HighestSeverity(results []InteractionResult) InteractionSeverity {
	highest := SeverityNone
	highestLevel := 0
	for _, r := range results {
		if lvl := r.Severity.Level(); lvl > highestLevel {
			highestLevel = lvl
			highest = r.Severity
		}
	}
	return highest
}
