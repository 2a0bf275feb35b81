// Package drugsvc is the Drug Information specialist service:
// drug profile lookup, bidirectional interaction checking, safety
// assessment, search, and PA-relevant criteria extraction, backed by a
// bundled catalog with a CSV fallback tier.
package drugsvc

import (
	"strings"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// catalogInteraction is one directional interaction record as stored in
// the catalog, keyed by the drug bearing the record.
type catalogInteraction struct {
	WithDrug    string
	Severity    domain.InteractionSeverity
	Description string
	Management  string
}

// catalogEntry is one drug's full catalog record.
type catalogEntry struct {
	Name         string
	Info         domain.DrugInformation
	Interactions []catalogInteraction
}

// Catalog is the in-memory drug database, indexed by normalized drug
// name. It is read-only after construction; callers needing fresh data
// build a new Catalog.
type Catalog struct {
	entries  map[string]catalogEntry
	fallback map[string]FallbackEntry
}

// FallbackEntry is a reduced drug record sourced from a CSV snapshot,
// used as the fallback tier when a drug is absent from the main catalog.
type FallbackEntry struct {
	DrugClass         string
	Indications       []string
	Contraindications []string
}

// NewCatalog builds a Catalog from a set of entries and an optional
// fallback map, both keyed by normalized (lowercase) drug name.
func NewCatalog(entries map[string]catalogEntry, fallback map[string]FallbackEntry) *Catalog {
	if fallback == nil {
		fallback = map[string]FallbackEntry{}
	}
	return &Catalog{entries: entries, fallback: fallback}
}

// Lookup returns a drug's catalog entry by normalized name, the tier it
// was found in ("catalog", "fallback", or "" if not found), and whether
// it was found at all.
func (c *Catalog) lookup(normalizedName string) (catalogEntry, string, bool) {
	if e, ok := c.entries[normalizedName]; ok {
		return e, "catalog", true
	}
	for name, e := range c.entries {
		if strings.HasPrefix(name, normalizedName) || strings.HasPrefix(normalizedName, name) {
			return e, "catalog", true
		}
	}
	if fb, ok := c.fallback[normalizedName]; ok {
		return catalogEntry{
			Name: normalizedName,
			Info: domain.DrugInformation{
				CanonicalName:     normalizedName,
				DrugClass:         fb.DrugClass,
				Indications:       fb.Indications,
				Contraindications: fb.Contraindications,
			},
		}, "fallback", true
	}
	return catalogEntry{}, "", false
}

// BundledCatalog returns the catalog seeded with the same drugs the
// original mock dataset ships with, covering the SGLT2/GLP-1 class used
// throughout the worked examples plus the warfarin/aspirin interaction
// pair.
func BundledCatalog() *Catalog {
	entries := map[string]catalogEntry{
		"empagliflozin": {
			Name: "empagliflozin",
			Info: domain.DrugInformation{
				CanonicalName: "empagliflozin",
				DrugClass:     "SGLT2 inhibitor",
				Indications: []string{
					"Type 2 diabetes mellitus",
					"Heart failure with reduced ejection fraction",
					"Chronic kidney disease",
				},
				Contraindications: []string{
					"Type 1 diabetes",
					"Diabetic ketoacidosis",
					"Severe renal impairment (eGFR < 30)",
					"Dialysis",
				},
				Warnings: []string{
					"Risk of ketoacidosis",
					"Risk of genital mycotic infections",
					"Risk of volume depletion",
				},
				Monitoring: []string{"Renal function", "Blood glucose", "Signs of ketoacidosis", "Volume status"},
				Dosing: map[string]map[string]string{
					"diabetes":      {"initial": "10mg once daily", "maximum": "25mg once daily"},
					"heart_failure": {"initial": "10mg once daily"},
					"ckd":           {"initial": "10mg once daily"},
				},
			},
			Interactions: []catalogInteraction{{
				WithDrug:    "metformin",
				Severity:    domain.SeverityModerate,
				Description: "May increase risk of lactic acidosis when combined with metformin in renal impairment",
				Management:  "Monitor renal function and signs of lactic acidosis",
			}},
		},
		"semaglutide": {
			Name: "semaglutide",
			Info: domain.DrugInformation{
				CanonicalName: "semaglutide",
				DrugClass:     "GLP-1 receptor agonist",
				Indications: []string{
					"Type 2 diabetes mellitus",
					"Cardiovascular risk reduction in T2DM",
					"Chronic weight management",
				},
				Contraindications: []string{
					"Personal or family history of medullary thyroid carcinoma",
					"Multiple endocrine neoplasia syndrome type 2",
					"Pregnancy",
				},
				Warnings: []string{
					"Risk of thyroid C-cell tumors",
					"Risk of pancreatitis",
					"Risk of diabetic retinopathy complications",
					"Gastrointestinal adverse reactions",
				},
				Monitoring: []string{"Blood glucose", "HbA1c", "Signs of pancreatitis", "Diabetic retinopathy in patients with history"},
				Dosing: map[string]map[string]string{
					"diabetes_subq":      {"initial": "0.25mg weekly x 4 weeks", "maximum": "2mg weekly"},
					"weight_management": {"initial": "0.25mg weekly x 4 weeks", "maximum": "2.4mg weekly"},
				},
			},
		},
		"metformin": {
			Name: "metformin",
			Info: domain.DrugInformation{
				CanonicalName: "metformin",
				DrugClass:     "Biguanide",
				Indications: []string{
					"Type 2 diabetes mellitus",
					"Prediabetes",
					"Polycystic ovary syndrome (off-label)",
				},
				Contraindications: []string{
					"Severe renal impairment (eGFR < 30)",
					"Metabolic acidosis",
					"Diabetic ketoacidosis",
				},
				Warnings:   []string{"Risk of lactic acidosis", "Vitamin B12 deficiency with long-term use", "GI side effects common initially"},
				Monitoring: []string{"Renal function", "Vitamin B12 levels annually", "Blood glucose"},
				Dosing: map[string]map[string]string{
					"diabetes":          {"initial": "500mg twice daily", "maximum": "1000mg twice daily"},
					"extended_release": {"initial": "500-1000mg once daily with evening meal", "maximum": "2000mg daily"},
				},
			},
			Interactions: []catalogInteraction{{
				WithDrug:    "empagliflozin",
				Severity:    domain.SeverityModerate,
				Description: "May increase risk of lactic acidosis when combined with empagliflozin in renal impairment",
				Management:  "Monitor renal function and signs of lactic acidosis",
			}},
		},
		"warfarin": {
			Name: "warfarin",
			Info: domain.DrugInformation{
				CanonicalName: "warfarin",
				DrugClass:     "Vitamin K antagonist anticoagulant",
				Indications:   []string{"Atrial fibrillation", "Venous thromboembolism", "Mechanical heart valve"},
			},
			Interactions: []catalogInteraction{{
				WithDrug:    "aspirin",
				Severity:    domain.SeverityMajor,
				Description: "Increased risk of bleeding when warfarin is combined with aspirin",
				Management:  "Avoid combination if possible; if used together, monitor INR and signs of bleeding closely",
			}},
		},
		"aspirin": {
			Name: "aspirin",
			Info: domain.DrugInformation{
				CanonicalName: "aspirin",
				DrugClass:     "Salicylate / antiplatelet",
				Indications:   []string{"Cardiovascular risk reduction", "Pain relief", "Fever reduction"},
			},
			Interactions: []catalogInteraction{{
				WithDrug:    "warfarin",
				Severity:    domain.SeverityMajor,
				Description: "Increased risk of bleeding when aspirin is combined with warfarin",
				Management:  "Avoid combination if possible; if used together, monitor INR and signs of bleeding closely",
			}},
		},
	}
	return NewCatalog(entries, nil)
}
