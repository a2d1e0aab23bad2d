// Package validate checks submitted form values against per-field rules.
// Rules are written as the same JSON objects the page scripts use in
// data-validation attributes.
package validate

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule names reported in FieldError.Rule.
const (
	RuleRequired  = "required"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
)

type Rules struct {
	Required       bool   `json:"required"`
	MinLength      int    `json:"minLength"`
	MaxLength      int    `json:"maxLength"`
	Pattern        string `json:"pattern"`
	PatternMessage string `json:"patternMessage"`
}

// Field is a named form input with compiled rules.
type Field struct {
	Name    string
	Rules   Rules
	pattern *regexp.Regexp
}

// NewField compiles rules for the input called name.
func NewField(name string, rules Rules) (Field, error) {
	f := Field{Name: name, Rules: rules}
	if rules.Pattern != "" {
		re, err := regexp.Compile(rules.Pattern)
		if err != nil {
			return Field{}, fmt.Errorf("field %s: invalid pattern: %w", name, err)
		}
		f.pattern = re
	}
	return f, nil
}

// ParseField reads rules from their JSON form, e.g. {"required":true,"maxLength":20}.
func ParseField(name, raw string) (Field, error) {
	var rules Rules
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &rules); err != nil {
			return Field{}, fmt.Errorf("field %s: invalid rules: %w", name, err)
		}
	}
	return NewField(name, rules)
}

// MustField is ParseField for rule sets declared at package level.
func MustField(name, raw string) Field {
	f, err := ParseField(name, raw)
	if err != nil {
		panic(err)
	}
	return f
}

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Errors collects every failed rule of a form.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Rule
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Fields maps field names to the first message reported for each.
func (e Errors) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		if _, ok := out[fe.Field]; !ok {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

// Check applies every rule to value. Length rules count characters.
// Empty optional values skip the length and pattern rules.
func (f Field) Check(value string) Errors {
	var errs Errors
	if strings.TrimSpace(value) == "" {
		if f.Rules.Required {
			errs = append(errs, FieldError{Field: f.Name, Rule: RuleRequired, Message: "This field is required."})
		}
		return errs
	}

	n := utf8.RuneCountInString(value)
	if f.Rules.MinLength > 0 && n < f.Rules.MinLength {
		errs = append(errs, FieldError{
			Field:   f.Name,
			Rule:    RuleMinLength,
			Message: fmt.Sprintf("Enter at least %d characters.", f.Rules.MinLength),
		})
	}
	if f.Rules.MaxLength > 0 && n > f.Rules.MaxLength {
		errs = append(errs, FieldError{
			Field:   f.Name,
			Rule:    RuleMaxLength,
			Message: fmt.Sprintf("Enter at most %d characters.", f.Rules.MaxLength),
		})
	}
	if f.pattern != nil && !f.pattern.MatchString(value) {
		msg := f.Rules.PatternMessage
		if msg == "" {
			msg = "The input format is invalid."
		}
		errs = append(errs, FieldError{Field: f.Name, Rule: RulePattern, Message: msg})
	}
	return errs
}

// Form validates values against fields and returns Errors, or nil when
// every field passes.
func Form(values url.Values, fields ...Field) error {
	var errs Errors
	for _, f := range fields {
		errs = append(errs, f.Check(values.Get(f.Name))...)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
