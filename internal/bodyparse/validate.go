package bodyparse

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is one aggregated validation failure. Value is the offending
// input, included so callers can echo it back without re-parsing the
// request body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

// Result is the outcome of Validate: Valid is false iff Errors is non-empty.
type Result struct {
	Valid  bool
	Errors []FieldError
}

var validate = validator.New()

// Validate checks values against schema, aggregating every violation rather
// than stopping at the first (spec §4.D: "Aggregates all errors"). Fields in
// values but absent from schema are ignored.
func Validate(values map[string]any, schema Schema) Result {
	fields := make([]string, 0, len(schema))
	for f := range schema {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var errs []FieldError
	for _, field := range fields {
		rule := schema[field]
		v, present := values[field]
		if !present || v == nil {
			if rule.required() {
				errs = append(errs, FieldError{Field: field, Message: "field is required", Value: v})
			}
			continue
		}
		errs = append(errs, validateField(field, v, rule)...)
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

func validateField(field string, v any, rule Rule) []FieldError {
	switch rule.Kind {
	case RequiredString, OptionalString:
		return validateString(field, v, rule)
	case RequiredNumber:
		return validateNumber(field, v, rule)
	case RequiredBoolean:
		if _, ok := v.(bool); !ok {
			return []FieldError{{Field: field, Message: "must be a boolean", Value: v}}
		}
	case RequiredEmail:
		return validateTag(field, v, "email", "must be a valid email")
	case RequiredURL:
		return validateTag(field, v, "url", "must be a valid url")
	case RequiredEnum:
		tag := "oneof=" + strings.Join(rule.Values, " ")
		return validateTag(field, v, tag, "must be one of: "+strings.Join(rule.Values, ", "))
	case RequiredArray:
		return validateArray(field, v, rule)
	}
	return nil
}

func validateString(field string, v any, rule Rule) []FieldError {
	s, ok := v.(string)
	if !ok {
		return []FieldError{{Field: field, Message: "must be a string", Value: v}}
	}
	var errs []FieldError
	if rule.MinLength > 0 && len(s) < rule.MinLength {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("must be at least %d characters", rule.MinLength), Value: v})
	}
	if rule.MaxLength > 0 && len(s) > rule.MaxLength {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("must be at most %d characters", rule.MaxLength), Value: v})
	}
	if rule.Pattern != "" {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil || !re.MatchString(s) {
			errs = append(errs, FieldError{Field: field, Message: "does not match required pattern", Value: v})
		}
	}
	return errs
}

func validateNumber(field string, v any, rule Rule) []FieldError {
	f, ok := asFloat(v)
	if !ok {
		return []FieldError{{Field: field, Message: "must be a number", Value: v}}
	}
	var errs []FieldError
	if rule.Integer && f != float64(int64(f)) {
		errs = append(errs, FieldError{Field: field, Message: "must be an integer", Value: v})
	}
	if rule.HasMin && f < rule.Min {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("must be >= %v", rule.Min), Value: v})
	}
	if rule.HasMax && f > rule.Max {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("must be <= %v", rule.Max), Value: v})
	}
	return errs
}

func validateArray(field string, v any, rule Rule) []FieldError {
	arr, ok := v.([]any)
	if !ok {
		return []FieldError{{Field: field, Message: "must be an array", Value: v}}
	}
	var errs []FieldError
	if rule.MinItems > 0 && len(arr) < rule.MinItems {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("must have at least %d items", rule.MinItems), Value: v})
	}
	if rule.MaxItems > 0 && len(arr) > rule.MaxItems {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("must have at most %d items", rule.MaxItems), Value: v})
	}
	if rule.ItemRule != nil {
		for i, item := range arr {
			itemField := fmt.Sprintf("%s[%d]", field, i)
			errs = append(errs, validateField(itemField, item, *rule.ItemRule)...)
		}
	}
	return errs
}

func validateTag(field string, v any, tag, message string) []FieldError {
	s, ok := v.(string)
	if !ok {
		return []FieldError{{Field: field, Message: "must be a string", Value: v}}
	}
	if err := validate.Var(s, tag); err != nil {
		return []FieldError{{Field: field, Message: message, Value: v}}
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
