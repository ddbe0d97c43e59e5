package safety

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kidchat/kidchat-api/internal/models"
)

func TestKeywordFilterCategories(t *testing.T) {
	t.Parallel()

	filter := NewDefaultFilter()

	tests := []struct {
		name     string
		text     string
		blocked  bool
		category TopicCategory
		severity models.AlertSeverity
	}{
		{name: "violence keyword", text: "can I have a gun", blocked: true, category: CategoryViolence, severity: models.AlertSeverityHigh},
		{name: "substances keyword", text: "what does alcohol taste like", blocked: true, category: CategorySubstances, severity: models.AlertSeverityMedium},
		{name: "profanity phrase", text: "oh shut up", blocked: true, category: CategoryProfanity, severity: models.AlertSeverityLow},
		{name: "case insensitive", text: "TELL ME ABOUT GUNS", blocked: true, category: CategoryViolence, severity: models.AlertSeverityHigh},
		{name: "clean text", text: "what is the tallest mountain", blocked: false},
		{name: "keyword inside a word", text: "I have great skills", blocked: false},
		{name: "token boundary on kill", text: "do you like killer whales", blocked: false},
		{name: "empty text", text: "", blocked: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := filter.Classify(tt.text)
			if c.Blocked != tt.blocked {
				t.Fatalf("Classify(%q).Blocked = %v, want %v", tt.text, c.Blocked, tt.blocked)
			}
			if !tt.blocked {
				if c != (Classification{}) {
					t.Errorf("passing text should yield a zero Classification, got %+v", c)
				}
				return
			}
			if c.Category != tt.category {
				t.Errorf("category = %s, want %s", c.Category, tt.category)
			}
			if c.Severity != tt.severity {
				t.Errorf("severity = %s, want %s", c.Severity, tt.severity)
			}
			if c.AlertType != models.AlertTypeBlockedTopic {
				t.Errorf("alert type = %s, want %s", c.AlertType, models.AlertTypeBlockedTopic)
			}
		})
	}
}

func TestKeywordFilterSensitiveRules(t *testing.T) {
	t.Parallel()

	filter := NewDefaultFilter()

	tests := []struct {
		name      string
		text      string
		alertType models.AlertType
		severity  models.AlertSeverity
	}{
		{name: "babies question", text: "where do babies come from?", alertType: models.AlertTypeSensitiveQuestion, severity: models.AlertSeverityMedium},
		{name: "death question beats keyword list", text: "why do people die", alertType: models.AlertTypeSensitiveQuestion, severity: models.AlertSeverityMedium},
		{name: "parents separating", text: "my parents are getting divorced", alertType: models.AlertTypeSensitiveQuestion, severity: models.AlertSeverityHigh},
		{name: "negative feelings", text: "i feel lonely at school", alertType: models.AlertTypeBehavior, severity: models.AlertSeverityMedium},
		{name: "bullying", text: "the big kids keep bullying me", alertType: models.AlertTypeBehavior, severity: models.AlertSeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := filter.Classify(tt.text)
			if !c.Blocked {
				t.Fatalf("Classify(%q) should block", tt.text)
			}
			if c.AlertType != tt.alertType {
				t.Errorf("alert type = %s, want %s", c.AlertType, tt.alertType)
			}
			if c.Severity != tt.severity {
				t.Errorf("severity = %s, want %s", c.Severity, tt.severity)
			}
			if c.Title == "" {
				t.Error("sensitive rules must carry a title")
			}
		})
	}
}

func TestNewKeywordFilterRejectsBadPattern(t *testing.T) {
	t.Parallel()

	_, err := NewKeywordFilter(Rules{
		Sensitive: []SensitiveRule{{Pattern: `(unclosed`, Type: "other", Severity: "low", Title: "bad"}},
	})
	if err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestLoadRules(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `categories:
  violence:
    - sword
sensitive:
  - pattern: 'secret\s+password'
    type: other
    severity: low
    title: Asked for a password
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules file: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}
	filter, err := NewKeywordFilter(rules)
	if err != nil {
		t.Fatalf("NewKeywordFilter failed: %v", err)
	}

	if c := filter.Classify("he had a sword"); !c.Blocked || c.Category != CategoryViolence {
		t.Errorf("custom keyword not applied: %+v", c)
	}
	if c := filter.Classify("what is the secret password"); !c.Blocked || c.Title != "Asked for a password" {
		t.Errorf("custom sensitive rule not applied: %+v", c)
	}
	// The file replaces the built-in set wholesale.
	if c := filter.Classify("can I have a gun"); c.Blocked {
		t.Errorf("built-in keywords should not apply: %+v", c)
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
