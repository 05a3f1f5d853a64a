// internal/app/system/inputval/inputval.go
//
// Package inputval validates request input before it reaches a store.
// Handlers validate structs with Validate using `validate` and `label`
// tags, or call the predicate helpers directly for single values.
package inputval

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// FieldError is a single validation failure with a user-facing message.
type FieldError struct {
	Field   string
	Message string
}

// Result collects validation failures for one input struct.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any field failed validation.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first error message, or "" when validation passed.
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every error message with "; ".
func (r *Result) All() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the string fields of a struct against its `validate` tags.
// Supported rules: required, email, password, currency, role, forumcategory,
// tenantdomain, slug, objectid, min=N, max=N. The `label` tag names the field
// in error messages; the Go field name is the fallback.
//
// Rules stop at the first failure per field. Non-required rules are skipped
// for empty values so optional fields stay optional.
func Validate(input any) *Result {
	result := &Result{}

	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return result
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		rules := field.Tag.Get("validate")
		if rules == "" || field.Type.Kind() != reflect.String {
			continue
		}
		label := field.Tag.Get("label")
		if label == "" {
			label = field.Name
		}

		value := v.Field(i).String()
		if msg := checkRules(value, rules, label); msg != "" {
			result.Errors = append(result.Errors, FieldError{Field: field.Name, Message: msg})
		}
	}
	return result
}

func checkRules(value, rules, label string) string {
	trimmed := strings.TrimSpace(value)
	for _, rule := range strings.Split(rules, ",") {
		rule = strings.TrimSpace(rule)

		if rule == "required" {
			if trimmed == "" {
				return label + " is required."
			}
			continue
		}

		// Optional field left empty: nothing further to check.
		if trimmed == "" {
			continue
		}

		switch {
		case rule == "email":
			if !IsValidEmail(trimmed) {
				return "A valid email address is required."
			}
		case rule == "password":
			if !IsValidPassword(value) {
				return label + " must be at least 8 characters with upper and lower case letters, a digit, and a symbol."
			}
		case rule == "currency":
			if !IsValidCurrency(trimmed) {
				return label + " must be one of: " + strings.Join(AllowedCurrenciesList(), ", ") + "."
			}
		case rule == "role":
			if !IsValidRole(trimmed) {
				return label + " must be one of: " + strings.Join(AllowedRolesList(), ", ") + "."
			}
		case rule == "forumcategory":
			if !IsValidForumCategory(trimmed) {
				return label + " must be a recognized forum category."
			}
		case rule == "tenantdomain":
			if !IsValidTenantDomain(trimmed) {
				return label + " must be one of: " + strings.Join(AllowedTenantDomainsList(), ", ") + "."
			}
		case rule == "slug":
			if !IsValidSlug(trimmed) {
				return label + " must be 2-100 lowercase letters, numbers, and hyphens."
			}
		case rule == "objectid":
			if !IsValidObjectID(trimmed) {
				return label + " must be a valid id."
			}
		case strings.HasPrefix(rule, "min="):
			n, err := strconv.Atoi(strings.TrimPrefix(rule, "min="))
			if err == nil && len(trimmed) < n {
				return fmt.Sprintf("%s must be at least %d characters.", label, n)
			}
		case strings.HasPrefix(rule, "max="):
			n, err := strconv.Atoi(strings.TrimPrefix(rule, "max="))
			if err == nil && len(trimmed) > n {
				return fmt.Sprintf("%s must be at most %d characters.", label, n)
			}
		}
	}
	return ""
}
