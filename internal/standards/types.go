package standards

// Default values applied while loading.
const (
	DefaultSeverity = "warning"
	DefaultVersion  = "1.0"
)

// Rule is one standards rule. Rules are immutable once loaded.
type Rule struct {
	StandardRef     string   `json:"standard_ref"`
	Title           string   `json:"title"`
	Body            string   `json:"body"`
	Tags            []string `json:"tags"`
	SeverityDefault string   `json:"severity_default"`
}

// Set is a named, versioned collection of rules.
type Set struct {
	ID      string `json:"standards_set"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Rules   []Rule `json:"rules"`
}

// Info summarises a set for listings.
type Info struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Info returns the listing summary of s. Name falls back to the id.
func (s *Set) Info() Info {
	name := s.Name
	if name == "" {
		name = s.ID
	}
	return Info{ID: s.ID, Name: name, Version: s.Version}
}

// Refs returns the set of standard_ref values in rules.
func Refs(rules []Rule) map[string]struct{} {
	refs := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		refs[r.StandardRef] = struct{}{}
	}
	return refs
}
