package safety

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kidchat/kidchat-api/internal/models"
)

// TopicCategory names a class of unsafe content
type TopicCategory string

const (
	CategoryViolence   TopicCategory = "violence"
	CategorySubstances TopicCategory = "substances"
	CategoryAdult      TopicCategory = "adult"
	CategoryProfanity  TopicCategory = "profanity"
)

// Classification is the outcome of running text through a Filter.
// A zero Classification means the text passed.
type Classification struct {
	Blocked   bool
	Category  TopicCategory
	AlertType models.AlertType
	Severity  models.AlertSeverity
	Title     string
}

// Filter classifies text. Implementations must be deterministic and
// side-effect free: the same input always yields the same Classification.
type Filter interface {
	Classify(text string) Classification
}

// sensitiveRule pairs a compiled pattern with the alert it should raise.
type sensitiveRule struct {
	re        *regexp.Regexp
	alertType models.AlertType
	severity  models.AlertSeverity
	title     string
}

// KeywordFilter is the default Filter: token-boundary keyword matching per
// category plus regex rules for sensitive phrasings. Best effort by design;
// false positives err toward blocking.
type KeywordFilter struct {
	categories []categoryMatcher
	sensitive  []sensitiveRule
}

type categoryMatcher struct {
	category TopicCategory
	re       *regexp.Regexp
}

// NewKeywordFilter builds a filter from the given rule set.
func NewKeywordFilter(rules Rules) (*KeywordFilter, error) {
	f := &KeywordFilter{}

	// Deterministic category order regardless of map iteration.
	names := make([]string, 0, len(rules.Categories))
	for name := range rules.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		keywords := rules.Categories[name]
		if len(keywords) == 0 {
			continue
		}
		quoted := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			kw = strings.TrimSpace(strings.ToLower(kw))
			if kw == "" {
				continue
			}
			quoted = append(quoted, regexp.QuoteMeta(kw))
		}
		re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
		if err != nil {
			return nil, err
		}
		f.categories = append(f.categories, categoryMatcher{
			category: TopicCategory(name),
			re:       re,
		})
	}

	for _, s := range rules.Sensitive {
		re, err := regexp.Compile(`(?i)` + s.Pattern)
		if err != nil {
			return nil, err
		}
		f.sensitive = append(f.sensitive, sensitiveRule{
			re:        re,
			alertType: models.AlertType(s.Type),
			severity:  models.AlertSeverity(s.Severity),
			title:     s.Title,
		})
	}

	return f, nil
}

// NewDefaultFilter builds a filter from the built-in rule set.
func NewDefaultFilter() *KeywordFilter {
	f, err := NewKeywordFilter(DefaultRules())
	if err != nil {
		// Built-in rules are compile-time constants; a bad pattern is a bug.
		panic("safety: invalid built-in filter rules: " + err.Error())
	}
	return f
}

// Classify runs the text through sensitive rules first (they carry more
// specific alert metadata), then the category keyword lists.
func (f *KeywordFilter) Classify(text string) Classification {
	for _, rule := range f.sensitive {
		if rule.re.MatchString(text) {
			return Classification{
				Blocked:   true,
				AlertType: rule.alertType,
				Severity:  rule.severity,
				Title:     rule.title,
			}
		}
	}

	for _, cm := range f.categories {
		if cm.re.MatchString(text) {
			return Classification{
				Blocked:   true,
				Category:  cm.category,
				AlertType: models.AlertTypeBlockedTopic,
				Severity:  categorySeverity(cm.category),
				Title:     "Blocked topic: " + string(cm.category),
			}
		}
	}

	return Classification{}
}

func categorySeverity(c TopicCategory) models.AlertSeverity {
	switch c {
	case CategoryViolence, CategoryAdult:
		return models.AlertSeverityHigh
	case CategorySubstances:
		return models.AlertSeverityMedium
	default:
		return models.AlertSeverityLow
	}
}
