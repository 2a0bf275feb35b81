package drugsvc

import "github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"

// AssessSafetyProfile bands a drug's safety profile from its warning and
// contraindication counts: >=5 high risk, >=3 moderate, >=1 low, else minimal.
func AssessSafetyProfile(info domain.DrugInformation) domain.SafetyProfile {
	warnings := len(info.Warnings)
	contraindications := len(info.Contraindications)

	switch {
	case contraindications >= 5 || warnings >= 5:
		return domain.SafetyHighRisk
	case contraindications >= 3 || warnings >= 3:
		return domain.SafetyModerate
	case contraindications >= 1 || warnings >= 1:
		return domain.SafetyLow
	default:
		return domain.SafetyMinimal
	}
}

// Safety builds the DrugSafetySummary for a catalog entry.
func Safety(info domain.DrugInformation) domain.DrugSafetySummary {
	return domain.DrugSafetySummary{
		DrugName:          info.CanonicalName,
		DrugClass:         info.DrugClass,
		Warnings:          info.Warnings,
		Contraindications: info.Contraindications,
		Monitoring:        info.Monitoring,
		SafetyProfile:     AssessSafetyProfile(info),
	}
}
