package types

// JobAnalysis represents a structured view of a single job description,
// produced once per distinct description and cached by the pipeline.
type JobAnalysis struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Embedding    []float64 `json:"embedding,omitempty"`
	Skills       []string  `json:"skills,omitempty"`
	Requirements []string  `json:"requirements,omitempty"`
	FunctionBias string    `json:"function_bias,omitempty"`
}

// Clone returns a deep copy. Cache hits hand out clones so callers can never
// mutate the cached analysis through a shared slice.
func (j *JobAnalysis) Clone() *JobAnalysis {
	out := *j
	if j.Embedding != nil {
		out.Embedding = make([]float64, len(j.Embedding))
		copy(out.Embedding, j.Embedding)
	}
	if j.Skills != nil {
		out.Skills = make([]string, len(j.Skills))
		copy(out.Skills, j.Skills)
	}
	if j.Requirements != nil {
		out.Requirements = make([]string, len(j.Requirements))
		copy(out.Requirements, j.Requirements)
	}
	return &out
}

// AlgorithmWeights is a per-function-bias profile of scoring weights. The
// weights apply to independently computed bonus terms, so there is no
// sum-to-one constraint, only the per-field range.
type AlgorithmWeights struct {
	Relevance  float64 `json:"relevance" validate:"gte=0,lte=1"`
	Quality    float64 `json:"quality" validate:"gte=0,lte=1"`
	Recency    float64 `json:"recency" validate:"gte=0,lte=1"`
	Redundancy float64 `json:"redundancy" validate:"gte=0,lte=1"`
}
