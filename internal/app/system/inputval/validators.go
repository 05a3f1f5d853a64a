// internal/app/system/inputval/validators.go
package inputval

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	slugRx  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

var allowedCurrencies = []string{"USD", "EUR", "GBP", "CAD", "AUD", "JPY"}

var allowedRoles = []string{"customer", "seller", "admin"}

var allowedForumCategories = []string{
	"general", "announcements", "support", "feature-requests",
	"bugs", "showcase", "off-topic",
}

var allowedTenantDomains = []string{"marketplace", "forum", "admin", "seller"}

// IsValidEmail checks the address has a local part, an @, and a dotted
// domain, with no whitespace. Full RFC 5322 parsing is deliberately not
// attempted; delivery is the real verifier.
func IsValidEmail(email string) bool {
	return emailRx.MatchString(strings.TrimSpace(email))
}

// IsValidPassword requires at least 8 characters with a lowercase letter, an
// uppercase letter, a digit, and a symbol.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

// PasswordStrength scores a password 0-5: one point each for length >= 8,
// length >= 12, mixed case, a digit, and a symbol. Used for signup feedback
// only; IsValidPassword is the gate.
func PasswordStrength(password string) int {
	score := 0
	if len(password) >= 8 {
		score++
	}
	if len(password) >= 12 {
		score++
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if lower && upper {
		score++
	}
	if digit {
		score++
	}
	if symbol {
		score++
	}
	return score
}

// IsValidAmount accepts finite monetary values strictly between 0 and
// 1,000,000.
func IsValidAmount(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v > 0 && v < 1_000_000
}

// IsValidStock accepts whole quantities from 0 up to but not including
// 1,000,000. The float64 parameter matches what JSON decoding hands us;
// fractional values are rejected.
func IsValidStock(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v == math.Trunc(v) && v >= 0 && v < 1_000_000
}

// IsValidCurrency reports whether code is a supported currency. Codes are
// stored uppercase; comparison is case-insensitive.
func IsValidCurrency(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range allowedCurrencies {
		if code == c {
			return true
		}
	}
	return false
}

// AllowedCurrenciesList returns the supported currency codes in display order.
func AllowedCurrenciesList() []string {
	out := make([]string, len(allowedCurrencies))
	copy(out, allowedCurrencies)
	return out
}

// IsValidRole reports whether role is one of customer, seller, or admin.
func IsValidRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, r := range allowedRoles {
		if role == r {
			return true
		}
	}
	return false
}

// AllowedRolesList returns the recognized roles in display order.
func AllowedRolesList() []string {
	out := make([]string, len(allowedRoles))
	copy(out, allowedRoles)
	return out
}

// IsValidForumCategory reports whether category is one of the built-in forum
// categories.
func IsValidForumCategory(category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	for _, c := range allowedForumCategories {
		if category == c {
			return true
		}
	}
	return false
}

// AllowedForumCategoriesList returns the built-in forum categories.
func AllowedForumCategoriesList() []string {
	out := make([]string, len(allowedForumCategories))
	copy(out, allowedForumCategories)
	return out
}

// IsValidTenantDomain reports whether domain names a supported tenant surface.
func IsValidTenantDomain(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	for _, d := range allowedTenantDomains {
		if domain == d {
			return true
		}
	}
	return false
}

// AllowedTenantDomainsList returns the supported tenant domains.
func AllowedTenantDomainsList() []string {
	out := make([]string, len(allowedTenantDomains))
	copy(out, allowedTenantDomains)
	return out
}

// IsValidSlug accepts 2-100 characters of lowercase letters, digits, and
// single interior hyphens.
func IsValidSlug(slug string) bool {
	slug = strings.TrimSpace(slug)
	if len(slug) < 2 || len(slug) > 100 {
		return false
	}
	return slugRx.MatchString(slug)
}

// IsValidObjectID reports whether id parses as a Mongo ObjectID hex string.
func IsValidObjectID(id string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	return err == nil
}

// SanitizePagination clamps page and limit to safe values: page >= 1
// (default 1), limit in [1, 100]. A zero limit means "not provided" and takes
// the default 20; an explicit negative limit clamps to 1.
func SanitizePagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit == 0:
		limit = 20
	case limit < 1:
		limit = 1
	case limit > 100:
		limit = 100
	}
	return page, limit
}

// SanitizeSearchQuery trims and caps a free-text search term at 200
// characters. Terms shorter than 2 characters after trimming come back empty;
// a one-letter search matches too much to be useful.
func SanitizeSearchQuery(q string) string {
	q = strings.TrimSpace(q)
	if len(q) > 200 {
		q = strings.TrimSpace(q[:200])
	}
	if len(q) < 2 {
		return ""
	}
	return q
}

var phoneRx = regexp.MustCompile(`^\+?[0-9][0-9\s().-]{6,19}$`)

// IsValidPhone accepts 7-20 characters of digits with optional leading + and
// common separators. Carrier-level validation is not attempted.
func IsValidPhone(phone string) bool {
	return phoneRx.MatchString(strings.TrimSpace(phone))
}

// IsValidDateRange reports whether the window is well-formed: both ends set
// and the end strictly after the start.
func IsValidDateRange(start, end time.Time) bool {
	return !start.IsZero() && !end.IsZero() && end.After(start)
}
