package models

import (
	"net/url"
	"regexp"
	"strings"

	dErrors "phasegate/pkg/domain-errors"
)

var (
	einLast4Pattern = regexp.MustCompile(`^\d{4}$`)
	statePattern    = regexp.MustCompile(`^[A-Z]{2}$`)
)

const minRegistrationLength = 4

// IsSubmittable reports whether employers may submit evidence for t themselves.
func IsSubmittable(t VerificationType) bool {
	switch t {
	case TypeEINLast4, TypeSOSRegistration, TypeWebsite:
		return true
	default:
		return false
	}
}

// NormalizeSubmission validates a submitted value for t and returns the form
// stored as evidence.
//
//   - EIN_LAST4: exactly four digits
//   - SOS_REGISTRATION: "STATE|REGNUMBER", two letter state (upper-cased),
//     registration number of at least four characters
//   - WEBSITE: absolute http(s) URL with a host
func NormalizeSubmission(t VerificationType, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch t {
	case TypeEINLast4:
		if !einLast4Pattern.MatchString(value) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "EIN_LAST4 must be exactly 4 digits")
		}
		return value, nil
	case TypeSOSRegistration:
		state, reg, ok := strings.Cut(value, "|")
		if !ok {
			return "", dErrors.New(dErrors.CodeInvalidInput, "SOS_REGISTRATION must be STATE|REGNUMBER")
		}
		state = strings.ToUpper(strings.TrimSpace(state))
		reg = strings.TrimSpace(reg)
		if !statePattern.MatchString(state) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "SOS_REGISTRATION state must be two letters")
		}
		if len(reg) < minRegistrationLength {
			return "", dErrors.New(dErrors.CodeInvalidInput, "SOS_REGISTRATION number must be at least 4 characters")
		}
		return state + "|" + reg, nil
	case TypeWebsite:
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", dErrors.New(dErrors.CodeInvalidInput, "WEBSITE must be an absolute http(s) URL")
		}
		return u.String(), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "evidence cannot be submitted for "+t.String())
	}
}
