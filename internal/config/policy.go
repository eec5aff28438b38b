package config

// Strictness controls how many rules are retrieved, how the model is
// instructed and how readily violations are downgraded.
type Strictness string

// Strictness levels.
const (
	StrictnessLow    Strictness = "low"
	StrictnessMedium Strictness = "medium"
	StrictnessHigh   Strictness = "high"
)

// Valid reports whether s is one of the known levels.
func (s Strictness) Valid() bool {
	switch s {
	case StrictnessLow, StrictnessMedium, StrictnessHigh:
		return true
	}
	return false
}

// Policy holds the deterministic review knobs.
type Policy struct {
	Version    string     `yaml:"version" validate:"required"`
	Retrieval  Retrieval  `yaml:"retrieval"`
	Thresholds Thresholds `yaml:"thresholds"`
	Defaults   Defaults   `yaml:"defaults"`
}

// Retrieval holds the number of rules retrieved per strictness.
type Retrieval struct {
	KLow    int `yaml:"k_low" validate:"min=1"`
	KMedium int `yaml:"k_medium" validate:"min=1"`
	KHigh   int `yaml:"k_high" validate:"min=1"`
}

// K returns the retrieval count for s. Unknown levels use medium.
func (r Retrieval) K(s Strictness) int {
	switch s {
	case StrictnessLow:
		return r.KLow
	case StrictnessHigh:
		return r.KHigh
	default:
		return r.KMedium
	}
}

// Thresholds holds the minimum confidence a violation needs to keep its
// severity at each strictness.
type Thresholds struct {
	ViolationLow    float64 `yaml:"violation_low" validate:"min=0,max=1"`
	ViolationMedium float64 `yaml:"violation_medium" validate:"min=0,max=1"`
	ViolationHigh   float64 `yaml:"violation_high" validate:"min=0,max=1"`
}

// FallbackViolationThreshold applies to strictness values outside the known set.
const FallbackViolationThreshold = 0.75

// Violation returns the violation threshold for s.
func (t Thresholds) Violation(s Strictness) float64 {
	switch s {
	case StrictnessLow:
		return t.ViolationLow
	case StrictnessMedium:
		return t.ViolationMedium
	case StrictnessHigh:
		return t.ViolationHigh
	default:
		return FallbackViolationThreshold
	}
}

// Defaults are applied when a request leaves an option unset.
type Defaults struct {
	MinConfidence   float64 `yaml:"min_confidence" validate:"min=0,max=1"`
	MaxObservations int     `yaml:"max_observations" validate:"min=1,max=100"`
}

// DefaultPolicy returns the stock policy.
func DefaultPolicy() Policy {
	return Policy{
		Version: "1.0.0",
		Retrieval: Retrieval{
			KLow:    6,
			KMedium: 10,
			KHigh:   14,
		},
		Thresholds: Thresholds{
			ViolationLow:    0.85,
			ViolationMedium: 0.75,
			ViolationHigh:   0.70,
		},
		Defaults: Defaults{
			MinConfidence:   0.55,
			MaxObservations: 25,
		},
	}
}
