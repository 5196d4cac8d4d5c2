package ranking

import (
	"github.com/go-playground/validator/v10"
	"github.com/jonathan/bullet-ranker/internal/types"
)

// Weight profiles per function bias. Relevance dominates everywhere; the
// profiles shift how much structure and recency matter for the field.
var weightProfiles = map[string]types.AlgorithmWeights{
	"default":    {Relevance: 0.60, Quality: 0.20, Recency: 0.20, Redundancy: 0.30},
	"technical":  {Relevance: 0.65, Quality: 0.20, Recency: 0.15, Redundancy: 0.30},
	"marketing":  {Relevance: 0.55, Quality: 0.30, Recency: 0.15, Redundancy: 0.35},
	"consulting": {Relevance: 0.60, Quality: 0.25, Recency: 0.15, Redundancy: 0.30},
	"leadership": {Relevance: 0.50, Quality: 0.25, Recency: 0.25, Redundancy: 0.25},
}

var validate = validator.New()

// WeightsFor returns the weight profile for a function bias, falling back to
// the default profile for unknown or empty biases.
func WeightsFor(functionBias string) types.AlgorithmWeights {
	if w, ok := weightProfiles[functionBias]; ok {
		return w
	}
	return weightProfiles["default"]
}

// ValidateWeights checks that every weight lies in [0, 1]. There is no
// sum-to-one constraint: the weights scale independent bonus terms.
func ValidateWeights(w types.AlgorithmWeights) error {
	return validate.Struct(w)
}

// Profiles returns the known function-bias names.
func Profiles() []string {
	names := make([]string, 0, len(weightProfiles))
	for name := range weightProfiles {
		names = append(names, name)
	}
	return names
}
