package standards

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/dshills/csr/internal/config"
)

// Index ranks the rules of one set against content. It is built once and
// is safe for concurrent use.
type Index struct {
	rules   []Rule
	cfg     config.Retrieval
	idf     map[string]float64
	vectors []map[string]float64
}

// NewIndex builds a TF-IDF index over each rule's title, body and tags.
func NewIndex(set *Set, cfg config.Retrieval) *Index {
	idx := &Index{cfg: cfg, idf: make(map[string]float64)}
	if set == nil {
		return idx
	}
	idx.rules = set.Rules

	counts := make([]map[string]int, len(set.Rules))
	df := make(map[string]int)
	for i, r := range set.Rules {
		counts[i] = termCounts(ruleText(r))
		for term := range counts[i] {
			df[term]++
		}
	}

	n := float64(len(set.Rules))
	for term, d := range df {
		idx.idf[term] = math.Log((1+n)/(1+float64(d))) + 1
	}

	idx.vectors = make([]map[string]float64, len(set.Rules))
	for i, c := range counts {
		idx.vectors[i] = idx.weigh(c)
	}
	return idx
}

// Len returns the number of indexed rules.
func (idx *Index) Len() int { return len(idx.rules) }

// Rules returns the indexed rules in set order.
func (idx *Index) Rules() []Rule { return idx.rules }

// Retrieve returns the k best-scoring rules for content, where k depends on
// strictness and is capped at the rule count. Ties keep set order, so
// rules with no overlap still fill the result when k allows.
func (idx *Index) Retrieve(content string, strictness config.Strictness) []Rule {
	k := min(idx.cfg.K(strictness), len(idx.rules))
	if k <= 0 {
		return []Rule{}
	}

	query := idx.weigh(termCounts(content))
	scores := make([]float64, len(idx.rules))
	for i, vec := range idx.vectors {
		scores[i] = dot(query, vec)
	}

	order := make([]int, len(idx.rules))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]Rule, k)
	for i := range k {
		out[i] = idx.rules[order[i]]
	}
	return out
}

// weigh turns raw counts into an L2-normalised TF-IDF vector, dropping
// terms outside the vocabulary.
func (idx *Index) weigh(counts map[string]int) map[string]float64 {
	vec := make(map[string]float64, len(counts))
	var sum float64
	for term, c := range counts {
		w, ok := idx.idf[term]
		if !ok {
			continue
		}
		v := float64(c) * w
		vec[term] = v
		sum += v * v
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for term := range vec {
		vec[term] /= norm
	}
	return vec
}

func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var s float64
	for term, v := range a {
		s += v * b[term]
	}
	return s
}

func ruleText(r Rule) string {
	parts := []string{r.Title, r.Body}
	if len(r.Tags) > 0 {
		parts = append(parts, strings.Join(r.Tags, " "))
	}
	return strings.Join(parts, " ")
}

// termCounts counts unigrams and bigrams of text after stop-word removal.
func termCounts(text string) map[string]int {
	tokens := tokenize(text)
	counts := make(map[string]int, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if i > 0 {
			counts[tokens[i-1]+" "+tok]++
		}
	}
	return counts
}

// tokenize splits NFKC-normalised, lower-cased text into runs of letters
// and digits at least two runes long, without stop words.
func tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
