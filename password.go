package accounts

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	hasUpper  = regexp.MustCompile(`[A-Z]`)
	hasLower  = regexp.MustCompile(`[a-z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
	hasSymbol = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// PasswordPolicy is the complexity policy applied to every new or changed
// password. The zero value is not usable; use DefaultPasswordPolicy.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
	RequireSymbol    bool
}

// DefaultPasswordPolicy mirrors common identity-store defaults: at least 6
// characters with one of each character class.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        6,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
		RequireSymbol:    true,
	}
}

// Validate checks a candidate password against the policy. It returns a
// GatewayResult whose Errors list one description per violated rule, so a
// caller can surface every problem at once.
func (p PasswordPolicy) Validate(password string) GatewayResult {
	var failures []string

	rules := []struct {
		rule validation.Rule
		desc string
	}{
		{validation.Required, "password is required"},
		{validation.Length(p.MinLength, 0), "password is too short"},
	}

	for _, r := range rules {
		if err := validation.Validate(password, r.rule); err != nil {
			failures = append(failures, r.desc)
		}
	}

	if p.RequireUppercase && !hasUpper.MatchString(password) {
		failures = append(failures, "password requires an uppercase character")
	}
	if p.RequireLowercase && !hasLower.MatchString(password) {
		failures = append(failures, "password requires a lowercase character")
	}
	if p.RequireDigit && !hasDigit.MatchString(password) {
		failures = append(failures, "password requires a digit")
	}
	if p.RequireSymbol && !hasSymbol.MatchString(password) {
		failures = append(failures, "password requires a non alphanumeric character")
	}

	return GatewayResult{
		Succeeded: len(failures) == 0,
		Errors:    failures,
	}
}
