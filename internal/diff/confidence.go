package diff

import "math"

// CalculateConfidence rates stability from the full change list.
func CalculateConfidence(changes []Change, hasBaseline bool) Confidence {
	if !hasBaseline {
		return Confidence{
			Label:  ConfidenceUnknown,
			Score:  0,
			Reason: "Need at least two snapshots to assess stability.",
		}
	}
	if len(changes) == 0 {
		return Confidence{
			Label:  ConfidenceHigh,
			Score:  100,
			Reason: "Forecast has remained stable since the previous snapshot.",
		}
	}

	var impact float64
	for _, c := range changes {
		impact += Impact(c)
	}
	count := len(changes)
	score := math.Max(0, 100-impact*8-float64(count)*2)

	switch {
	case impact < 5 && count <= 5:
		return Confidence{
			Label:  ConfidenceHigh,
			Score:  score,
			Reason: "Only minor forecast movement since the previous snapshot.",
		}
	case impact < 14 && count <= 18:
		return Confidence{
			Label:  ConfidenceMedium,
			Score:  score,
			Reason: "Moderate forecast movement since the previous snapshot.",
		}
	}
	return Confidence{
		Label:  ConfidenceLow,
		Score:  score,
		Reason: "Large or frequent forecast revisions detected.",
	}
}
