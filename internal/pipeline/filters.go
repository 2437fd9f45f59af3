package pipeline

import (
	"regexp"
	"time"

	"github.com/vigilsec/triage-console/api/schemas"
)

// AllApplications is the sentinel meaning "do not filter by application";
// the corresponding pipeline stage is omitted entirely, it is not a filter
// matching all values. The same sentinel applies to projects.
const AllApplications = "All"

// Review-status filter values accepted without coercion. Anything else is
// coerced to ReviewFilterNew with an audit entry.
const (
	ReviewFilterNew           = "new"
	ReviewFilterReviewed      = "reviewed"
	ReviewFilterAll           = "all"
	ReviewFilterValid         = "valid"
	ReviewFilterFalsePositive = "false_positive"
)

// identifierAllowlist admits letters, digits, period, dash, underscore,
// bang, question mark and space. Free-text fields failing it are treated as
// security-relevant rejections, not plain validation noise.
var identifierAllowlist = regexp.MustCompile(`^[a-zA-Z0-9.\-_!? ]+$`)

// ValidIdentifier reports whether s passes the permissive-text allowlist.
func ValidIdentifier(s string) bool {
	return identifierAllowlist.MatchString(s)
}

// Filters is the full set of optional, independently-validated criteria a
// caller can attach to an issue listing. Zero-value optional fields mean
// "no constraint"; Application, Project, Confidence and Severity are
// required.
type Filters struct {
	Application  string
	Project      string
	Confidence   []string
	Severity     []string
	ReviewStatus string
	VulnType     string
	Method       string
	MinDate      *time.Time
	MaxDate      *time.Time
}

// Validate checks every criterion and returns the first failure. Enum
// violations surface as ErrInvalidFilterValue; allowlist violations as
// ErrInvalidIdentifier. Nothing is queried until validation passes in full.
func (f *Filters) Validate() error {
	if len(f.Confidence) == 0 {
		return &schemas.FilterValueError{Field: "confidence", Value: "(missing)"}
	}
	for _, c := range f.Confidence {
		if !schemas.ValidConfidence(c) {
			return &schemas.FilterValueError{Field: "confidence", Value: c}
		}
	}

	if len(f.Severity) == 0 {
		return &schemas.FilterValueError{Field: "severity", Value: "(missing)"}
	}
	for _, s := range f.Severity {
		if !schemas.ValidSeverity(s) {
			return &schemas.FilterValueError{Field: "severity", Value: s}
		}
	}

	if !ValidIdentifier(f.Application) {
		return &schemas.IdentifierError{Field: "application", Value: f.Application}
	}
	if !ValidIdentifier(f.Project) {
		return &schemas.IdentifierError{Field: "project", Value: f.Project}
	}
	if f.VulnType != "" && !ValidIdentifier(f.VulnType) {
		return &schemas.IdentifierError{Field: "vulnerability type", Value: f.VulnType}
	}
	if f.Method != "" && !ValidIdentifier(f.Method) {
		return &schemas.IdentifierError{Field: "method", Value: f.Method}
	}
	return nil
}
