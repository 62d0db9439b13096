// Package sqlguard screens untrusted identifiers, such as attribute field
// names taken from uploaded files, for SQL injection patterns.
package sqlguard

import (
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on a name.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Name        string // The name that failed the check
}

// CheckFieldName uses libinjection to detect SQL injection patterns in a
// field name. Returns nil if the name is clean.
//
// Example:
//
//	CheckFieldName("YEAR_BUILT")            // nil
//	CheckFieldName("'; DROP TABLE sites--") // IsSQLi == true
func CheckFieldName(name string) *InjectionCheckResult {
	if strings.TrimSpace(name) == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(name)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Name:        name,
	}
}

