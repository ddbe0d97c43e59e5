package validation

import (
	"testing"
)

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trims whitespace", input: "  hello  ", want: "hello"},
		{name: "strips markup characters", input: "hi <b>there</b> {x} [y]", want: "hi bthere/b x y"},
		{name: "strips backslash", input: `a\nb`, want: "anb"},
		{name: "keeps newline and tab", input: "line one\n\tline two", want: "line one\n\tline two"},
		{name: "drops other control characters", input: "abc\x00\x1bdef", want: "abcdef"},
		{name: "keeps emoji", input: "I love space 🚀", want: "I love space 🚀"},
		{name: "whitespace only", input: "   \n  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid", password: "Secret123", wantErr: false},
		{name: "too short", password: "Ab1", wantErr: true},
		{name: "no uppercase", password: "secret123", wantErr: true},
		{name: "no lowercase", password: "SECRET123", wantErr: true},
		{name: "no digit", password: "SecretPass", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestValidateChildAge(t *testing.T) {
	t.Parallel()

	for _, age := range []int{4, 8, 12} {
		if err := ValidateChildAge(age); err != nil {
			t.Errorf("ValidateChildAge(%d) = %v, want nil", age, err)
		}
	}
	for _, age := range []int{0, 3, 13, -1} {
		if err := ValidateChildAge(age); err == nil {
			t.Errorf("ValidateChildAge(%d) = nil, want error", age)
		}
	}
}

func TestChildAgeStructTag(t *testing.T) {
	t.Parallel()

	type profile struct {
		Age int `validate:"child_age"`
	}

	if err := Validate.Struct(profile{Age: 7}); err != nil {
		t.Errorf("age 7 should validate, got %v", err)
	}
	if err := Validate.Struct(profile{Age: 19}); err == nil {
		t.Error("age 19 should fail validation")
	}
}

func TestAlertEnumTags(t *testing.T) {
	t.Parallel()

	type alert struct {
		Type     string `validate:"alert_type"`
		Severity string `validate:"alert_severity"`
	}

	if err := Validate.Struct(alert{Type: "blocked_topic", Severity: "high"}); err != nil {
		t.Errorf("valid enums should validate, got %v", err)
	}
	if err := Validate.Struct(alert{Type: "surprise", Severity: "high"}); err == nil {
		t.Error("unknown alert type should fail")
	}
	if err := Validate.Struct(alert{Type: "behavior", Severity: "extreme"}); err == nil {
		t.Error("unknown severity should fail")
	}
}
