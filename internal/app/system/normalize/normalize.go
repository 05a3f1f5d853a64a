// internal/app/system/normalize/normalize.go
//
// Package normalize canonicalizes request input before validation and
// storage. Every helper trims whitespace; the case rules per field are the
// single source of truth for how values are stored and compared.
package normalize

import "strings"

// Email lowercases and trims an email address. Emails are stored and looked
// up in this form, so a re-registration with different casing hits the
// unique index.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name, preserving case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role lowercases and trims a role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status lowercases and trims a status value (product status, order status).
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Category lowercases and trims a forum category.
func Category(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Domain lowercases and trims a tenant platform domain.
func Domain(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Hostname lowercases a hostname and strips any port and trailing dot, so
// "Shop.Example.COM:443" and "shop.example.com" compare equal.
func Hostname(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, ".")
}

// Currency uppercases and trims a currency code.
func Currency(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Slug lowercases and trims a tenant slug.
func Slug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a free-text query parameter, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// TenantID trims a tenant filter parameter. The literal "all" (any case)
// means no tenant filter and normalizes to "".
func TenantID(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}
