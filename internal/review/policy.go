package review

import (
	"sort"

	"github.com/dshills/csr/internal/config"
)

// Policy applies the deterministic post-processing rules to a batch of
// observations. Every step works on a copy of its input.
type Policy struct {
	cfg config.Policy
}

// NewPolicy returns a Policy over cfg.
func NewPolicy(cfg config.Policy) *Policy {
	return &Policy{cfg: cfg}
}

// Version returns the configured policy version.
func (p *Policy) Version() string { return p.cfg.Version }

// Apply runs gate, bias, dedup, sort and truncate in that order. A negative
// minConfidence or a non-positive maxObservations uses the configured default.
func (p *Policy) Apply(obs []Observation, s config.Strictness, minConfidence float64, maxObservations int) []Observation {
	if minConfidence < 0 {
		minConfidence = p.cfg.Defaults.MinConfidence
	}
	if maxObservations <= 0 {
		maxObservations = p.cfg.Defaults.MaxObservations
	}
	out := ConfidenceGate(obs, minConfidence)
	out = p.StrictnessBias(out, s)
	out = Deduplicate(out)
	SortObservations(out)
	return Truncate(out, maxObservations)
}

// ConfidenceGate keeps observations at or above minConfidence. Lower ones are
// downgraded one severity step, or dropped when already info.
func ConfidenceGate(obs []Observation, minConfidence float64) []Observation {
	out := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if o.Confidence < minConfidence {
			lower, ok := downgrade(o.Severity)
			if !ok {
				continue
			}
			o.Severity = lower
		}
		out = append(out, o)
	}
	return out
}

// StrictnessBias downgrades violations whose confidence is below the
// strictness threshold to warnings.
func (p *Policy) StrictnessBias(obs []Observation, s config.Strictness) []Observation {
	threshold := p.cfg.Thresholds.Violation(s)
	out := make([]Observation, len(obs))
	for i, o := range obs {
		if o.Severity == SeverityViolation && o.Confidence < threshold {
			o.Severity = SeverityWarning
		}
		out[i] = o
	}
	return out
}

type dedupKey struct {
	hasSpan    bool
	start, end int
	ref        string
}

// Deduplicate collapses observations sharing span and standard_ref, keeping
// the most confident one (the first on ties). Groups stay in order of first
// appearance.
func Deduplicate(obs []Observation) []Observation {
	pos := make(map[dedupKey]int, len(obs))
	out := make([]Observation, 0, len(obs))
	for _, o := range obs {
		k := dedupKey{ref: o.StandardRef}
		if o.Span != nil {
			k.hasSpan, k.start, k.end = true, o.Span.Start, o.Span.End
		}
		if i, seen := pos[k]; seen {
			if o.Confidence > out[i].Confidence {
				out[i] = o
			}
			continue
		}
		pos[k] = len(out)
		out = append(out, o)
	}
	return out
}

// SortObservations orders by severity (violation first), then confidence
// descending. Equal observations keep their relative order.
func SortObservations(obs []Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		ri, rj := SeverityRank(obs[i].Severity), SeverityRank(obs[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return obs[i].Confidence > obs[j].Confidence
	})
}

// Truncate keeps at most limit observations.
func Truncate(obs []Observation, limit int) []Observation {
	if limit >= 0 && len(obs) > limit {
		return obs[:limit]
	}
	return obs
}
