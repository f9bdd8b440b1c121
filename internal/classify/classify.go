// Package classify assigns a category to an article from its title.
package classify

import (
	"io"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/xiaot623/newsstream/internal/domain"
)

// Classifier scores titles against an immutable keyword table.
// It is safe for concurrent use.
type Classifier struct {
	rules []rule
}

// New returns a classifier over the built-in keyword table.
func New() *Classifier {
	return &Classifier{rules: cloneRules(defaultRules)}
}

// WithExtraKeywords returns a new classifier whose keyword lists are extended
// with extra. Keywords for General or unknown labels are rejected.
func (c *Classifier) WithExtraKeywords(extra map[domain.Category][]string) (*Classifier, error) {
	rules := cloneRules(c.rules)
	for category, keywords := range extra {
		if !category.Valid() {
			return nil, errors.NotValidf("keyword category %q", category)
		}
		idx := -1
		for i := range rules {
			if rules[i].category == category {
				idx = i
				break
			}
		}
		if idx < 0 {
			// General is the fallback and has no keywords.
			return nil, errors.NotValidf("keywords for %s", category)
		}
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				rules[idx].keywords = append(rules[idx].keywords, kw)
			}
		}
	}
	return &Classifier{rules: rules}, nil
}

// LoadKeywords reads a YAML document mapping category labels to extra
// keyword lists, e.g.
//
//	Technology: [quantum, semiconductor]
//	Sports: [formula one]
func LoadKeywords(r io.Reader) (map[domain.Category][]string, error) {
	var raw map[string][]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return map[domain.Category][]string{}, nil
		}
		return nil, errors.Annotate(err, "decoding keyword overlay")
	}

	out := make(map[domain.Category][]string, len(raw))
	for label, keywords := range raw {
		category, err := domain.ParseCategory(label)
		if err != nil {
			return nil, errors.Trace(err)
		}
		out[category] = append(out[category], keywords...)
	}
	return out, nil
}

// Classify returns the highest scoring category for title. A whole-word
// keyword hit scores 2, a bare substring hit scores 1. Ties keep the earlier
// category; no hits, or an empty title, yield General.
func (c *Classifier) Classify(title string) domain.Category {
	title = strings.ToLower(title)
	if strings.TrimSpace(title) == "" {
		return domain.CategoryGeneral
	}

	best := domain.CategoryGeneral
	bestScore := 0
	for _, r := range c.rules {
		score := 0
		for _, kw := range r.keywords {
			score += keywordScore(title, kw)
		}
		if score > bestScore {
			best = r.category
			bestScore = score
		}
	}
	return best
}

// Score returns the per-category scores for title, in table order.
// General is not included.
func (c *Classifier) Score(title string) []domain.CategoryCount {
	title = strings.ToLower(title)
	scores := make([]domain.CategoryCount, 0, len(c.rules))
	for _, r := range c.rules {
		score := 0
		for _, kw := range r.keywords {
			score += keywordScore(title, kw)
		}
		scores = append(scores, domain.CategoryCount{Category: r.category, Count: score})
	}
	return scores
}

// keywordScore expects both arguments lower-cased.
func keywordScore(title, kw string) int {
	if kw == "" || !strings.Contains(title, kw) {
		return 0
	}
	if title == kw ||
		strings.Contains(title, " "+kw+" ") ||
		strings.HasPrefix(title, kw+" ") ||
		strings.HasSuffix(title, " "+kw) {
		return 2
	}
	return 1
}

func cloneRules(src []rule) []rule {
	out := make([]rule, len(src))
	for i, r := range src {
		out[i] = rule{category: r.category, keywords: append([]string(nil), r.keywords...)}
	}
	return out
}
