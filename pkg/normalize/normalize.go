// Package normalize implements the shared name- and task-name-normalization
// rule used by every specialist service: lowercase, trim, synonym
// substitution, then a single longest-match suffix strip.
package normalize

import (
	"regexp"
	"strings"
)

// drugSynonyms maps trade names and salt-form spellings to a canonical
// generic name.
var drugSynonyms = map[string]string{
	"metformin hcl":             "metformin",
	"metformin hydrochloride":   "metformin",
	"metformin er":              "metformin",
	"metformin xr":              "metformin",
	"metformin extended release": "metformin",
	"jardiance":                 "empagliflozin",
	"ozempic":                   "semaglutide",
	"wegovy":                    "semaglutide",
	"rybelsus":                  "semaglutide",
	"trulicity":                 "dulaglutide",
	"victoza":                   "liraglutide",
	"saxenda":                   "liraglutide",
}

// suffixesToStrip is ordered so the longest match is checked first; only
// the first match is removed.
var suffixesToStrip = []string{
	" hydrochloride",
	" extended release",
	" sustained release",
	" immediate release",
	" long acting",
	" hcl",
	" sodium",
	" potassium",
	" er",
	" xr",
	" sr",
	" la",
	" ir",
}

// DrugName lowercases, trims, substitutes known synonyms, and strips at
// most one trailing formulation suffix, substituting synonyms again on the
// stripped name. It is idempotent, DrugName(DrugName(x)) == DrugName(x),
// for names carrying at most one formulation suffix; a name with two
// stacked suffixes (e.g. "foo hcl er") loses only one suffix per call.
func DrugName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := drugSynonyms[n]; ok {
		return canonical
	}
	for _, suffix := range suffixesToStrip {
		if strings.HasSuffix(n, suffix) {
			n = strings.TrimSpace(strings.TrimSuffix(n, suffix))
			break
		}
	}
	if canonical, ok := drugSynonyms[n]; ok {
		return canonical
	}
	return n
}

var (
	policyTaskPattern = regexp.MustCompile(`^retrieve_insurance_policy_for_.+$`)
	criteriaTaskPattern = regexp.MustCompile(`^evaluate_if_patient_meets_pa_criteria_for_.+$`)

	taskSynonyms = map[string]string{
		"get_drug_policy":            "get_policy_for_drug",
		"lookup_policy":              "get_policy_for_drug",
		"check_pa_criteria":          "check_coverage_criteria",
		"evaluate_pa_criteria":       "check_coverage_criteria",
		"fetch_patient":              "get_patient_record",
		"lookup_patient_record":      "get_patient_record",
		"search_for_patients":        "search_patients",
		"get_drug_information":       "get_drug_info",
		"lookup_drug_info":           "get_drug_info",
		"check_interactions":         "check_drug_interactions",
		"get_pa_criteria_for_drug":   "get_pa_criteria",
	}
)

// TaskName normalizes a task name to its canonical form, including
// dynamically-named variants that encode a drug name in the task itself
// (e.g. "retrieve_insurance_policy_for_empagliflozin").
func TaskName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case policyTaskPattern.MatchString(n):
		return "get_policy_for_drug"
	case criteriaTaskPattern.MatchString(n):
		return "check_coverage_criteria"
	}
	if canonical, ok := taskSynonyms[n]; ok {
		return canonical
	}
	return n
}
