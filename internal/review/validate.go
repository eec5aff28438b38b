package review

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// defaultConfidence replaces a missing or non-numeric confidence.
const defaultConfidence = 0.5

// Validator narrows loosely typed candidates into Observations.
type Validator struct {
	newID func() string
}

// NewValidator returns a Validator. A nil idFunc uses NewObservationID.
func NewValidator(idFunc func() string) *Validator {
	if idFunc == nil {
		idFunc = NewObservationID
	}
	return &Validator{newID: idFunc}
}

// NewObservationID returns 12 random lowercase hex characters.
func NewObservationID() string {
	return shortID()
}

// NewRequestID returns a generated request id in the same 12-hex form.
func NewRequestID() string {
	return shortID()
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Validate sanitizes one candidate. Out-of-range confidence is clamped,
// unknown severity and category are coerced, and a bad span is dropped; an
// unknown standard_ref or an empty message rejects the candidate. It never
// panics.
func (v *Validator) Validate(candidate map[string]any, contentLength int, knownRefs map[string]struct{}) (obs Observation, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			obs, ok = Observation{}, false
		}
	}()
	if candidate == nil {
		return Observation{}, false
	}

	obs.Confidence = confidenceOf(candidate["confidence"])

	obs.Severity = SeverityInfo
	if s, isStr := candidate["severity"].(string); isStr {
		switch Severity(s) {
		case SeverityInfo, SeverityWarning, SeverityViolation:
			obs.Severity = Severity(s)
		}
	}

	obs.Category = CategoryOther
	if c, isStr := candidate["category"].(string); isStr {
		if _, valid := validCategories[Category(c)]; valid {
			obs.Category = Category(c)
		}
	}

	obs.Span = spanOf(candidate["span"], contentLength)

	ref, isStr := candidate["standard_ref"].(string)
	if !isStr {
		return Observation{}, false
	}
	if _, known := knownRefs[ref]; !known {
		return Observation{}, false
	}
	obs.StandardRef = ref

	msg, isStr := candidate["message"].(string)
	if !isStr || msg == "" {
		return Observation{}, false
	}
	obs.Message = msg

	obs.SuggestedFix = optionalString(candidate["suggested_fix"])
	obs.Rationale = optionalString(candidate["rationale"])
	obs.StandardExcerpt = optionalString(candidate["standard_excerpt"])

	obs.ID = v.newID()
	return obs, true
}

func confidenceOf(raw any) float64 {
	var f float64
	switch n := raw.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return defaultConfidence
		}
		// out-of-range literals come back as +-Inf and clamp below
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	default:
		return defaultConfidence
	}
	if math.IsNaN(f) {
		return defaultConfidence
	}
	return math.Max(0, math.Min(1, f))
}

// spanOf returns nil unless raw is a pair of integer literals inside the content.
func spanOf(raw any, contentLength int) *Span {
	pair, isList := raw.([]any)
	if !isList || len(pair) != 2 {
		return nil
	}
	start, ok1 := intOf(pair[0])
	end, ok2 := intOf(pair[1])
	if !ok1 || !ok2 {
		return nil
	}
	if start < 0 || start >= end || end > int64(contentLength) {
		return nil
	}
	return &Span{Start: int(start), End: int(end)}
}

func intOf(raw any) (int64, bool) {
	switch n := raw.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func optionalString(raw any) *string {
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	return &s
}

// ParseObservations extracts and validates every candidate in raw. The
// second result reports whether raw held a recognizable "observations"
// array, which separates "no issues" from "could not parse".
func (v *Validator) ParseObservations(raw string, contentLength int, knownRefs map[string]struct{}) ([]Observation, bool) {
	obj, ok := Extract(raw)
	if !ok {
		return []Observation{}, false
	}
	items, ok := obj["observations"].([]any)
	if !ok {
		return []Observation{}, false
	}
	out := make([]Observation, 0, len(items))
	for _, item := range items {
		candidate, isObj := item.(map[string]any)
		if !isObj {
			continue
		}
		if o, valid := v.Validate(candidate, contentLength, knownRefs); valid {
			out = append(out, o)
		}
	}
	return out, true
}
