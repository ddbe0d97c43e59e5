package safety

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules is the declarative rule set a KeywordFilter is built from. The
// built-in set can be replaced wholesale via a YAML file so keyword curation
// does not require a deploy.
type Rules struct {
	Categories map[string][]string `yaml:"categories"`
	Sensitive  []SensitiveRule     `yaml:"sensitive"`
}

// SensitiveRule is a regex rule with the alert metadata it raises.
type SensitiveRule struct {
	Pattern  string `yaml:"pattern"`
	Type     string `yaml:"type"`
	Severity string `yaml:"severity"`
	Title    string `yaml:"title"`
}

// LoadRules reads a rule set from a YAML file.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read filter rules: %w", err)
	}
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse filter rules: %w", err)
	}
	return rules, nil
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		Categories: map[string][]string{
			string(CategoryViolence): {
				"violence", "kill", "killing", "murder", "death", "die", "dying",
				"gun", "guns", "shoot", "shooting", "weapon", "weapons", "blood",
				"knife", "stab",
			},
			string(CategorySubstances): {
				"drugs", "drug", "alcohol", "beer", "vodka", "cigarette",
				"cigarettes", "smoking", "vape", "vaping", "drunk",
			},
			string(CategoryAdult): {
				"sex", "sexual", "porn", "naked", "nude",
			},
			string(CategoryProfanity): {
				"damn", "hell", "crap", "stupid idiot", "shut up",
			},
		},
		Sensitive: []SensitiveRule{
			{
				Pattern:  `where\s+do\s+babies\s+come\s+from`,
				Type:     "sensitive_question",
				Severity: "medium",
				Title:    "Question about where babies come from",
			},
			{
				Pattern:  `why\s+do\s+(?:people|we|they)\s+die`,
				Type:     "sensitive_question",
				Severity: "medium",
				Title:    "Question about death",
			},
			{
				Pattern:  `(?:my\s+parents|mom\s+and\s+dad|my\s+mom|my\s+dad)\s+(?:are\s+)?(?:getting\s+)?(?:divorced|divorcing|separating|splitting\s+up|fighting)`,
				Type:     "sensitive_question",
				Severity: "high",
				Title:    "Worry about parents separating",
			},
			{
				Pattern:  `i(?:'m|\s+am|\s+feel)\s+(?:sad|scared|afraid|worried|lonely)`,
				Type:     "behavior",
				Severity: "medium",
				Title:    "Child expressing negative feelings",
			},
			{
				Pattern:  `(?:nobody\s+likes\s+me|i\s+have\s+no\s+friends|no\s+one\s+plays\s+with\s+me)`,
				Type:     "behavior",
				Severity: "medium",
				Title:    "Possible social isolation",
			},
			{
				Pattern:  `(?:they\s+hit\s+me|kids\s+hurt\s+me|being\s+bullied|bully|bullying)`,
				Type:     "behavior",
				Severity: "high",
				Title:    "Possible bullying or mistreatment",
			},
			{
				Pattern:  `i\s+want\s+to\s+(?:disappear|run\s+away|go\s+away\s+forever)`,
				Type:     "behavior",
				Severity: "high",
				Title:    "Child wanting to run away or disappear",
			},
			{
				Pattern:  `(?:what\s+is|how\s+does)\s+(?:sex|drugs?|smoking|alcohol)`,
				Type:     "sensitive_question",
				Severity: "medium",
				Title:    "Question about adult topics",
			},
		},
	}
}
