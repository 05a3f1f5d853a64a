package normalize

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "user@example.com"},
		{"USER@EXAMPLE.COM", "user@example.com"},
		{"  User@Example.Com  ", "user@example.com"},
		{"", ""},
		{"   ", ""},
		{"Mixed.Case@Domain.ORG", "mixed.case@domain.org"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Email(tt.input)
			if got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jane Doe", "Jane Doe"},
		{"  Jane Doe  ", "Jane Doe"},
		{"", ""},
		{"   ", ""},
		{"UPPERCASE NAME", "UPPERCASE NAME"}, // Name preserves case
		{"lowercase name", "lowercase name"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Name(tt.input)
			if got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRole(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"customer", "customer"},
		{"ADMIN", "admin"},
		{"  Seller  ", "seller"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Role(tt.input)
			if got != tt.want {
				t.Errorf("Role(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"active", "active"},
		{"ACTIVE", "active"},
		{"  Shipped  ", "shipped"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Status(tt.input)
			if got != tt.want {
				t.Errorf("Status(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"general", "general"},
		{"GENERAL", "general"},
		{"  Feature-Requests  ", "feature-requests"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Category(tt.input)
			if got != tt.want {
				t.Errorf("Category(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHostname(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"shop.example.com", "shop.example.com"},
		{"Shop.Example.COM", "shop.example.com"},
		{"shop.example.com:443", "shop.example.com"},
		{"shop.example.com.", "shop.example.com"},
		{"  shop.example.com  ", "shop.example.com"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Hostname(tt.input)
			if got != tt.want {
				t.Errorf("Hostname(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"USD", "USD"},
		{"usd", "USD"},
		{"  eur  ", "EUR"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Currency(tt.input)
			if got != tt.want {
				t.Errorf("Currency(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"acme-store", "acme-store"},
		{"Acme-Store", "acme-store"},
		{"  acme  ", "acme"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Slug(tt.input)
			if got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestQueryParam(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"search term", "search term"},
		{"  trimmed  ", "trimmed"},
		{"", ""},
		{"   ", ""},
		{"UPPERCASE", "UPPERCASE"}, // Preserves case
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := QueryParam(tt.input)
			if got != tt.want {
				t.Errorf("QueryParam(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTenantID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"507f1f77bcf86cd799439011", "507f1f77bcf86cd799439011"},
		{"  507f1f77bcf86cd799439011  ", "507f1f77bcf86cd799439011"},
		{"all", ""},     // "all" means no filter
		{"ALL", ""},     // case-insensitive
		{"  All  ", ""}, // with whitespace
		{"", ""},
		{"   ", ""},
		{"somevalue", "somevalue"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := TenantID(tt.input)
			if got != tt.want {
				t.Errorf("TenantID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
