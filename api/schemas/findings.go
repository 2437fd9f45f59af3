package schemas

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// -- Finding Schemas --

// Confidence is the scanner's confidence rating for a static finding. The
// set of legal values is closed; anything else must be rejected before a
// query is built.
type Confidence string

// Constants defining the legal confidence ratings.
const (
	ConfidenceVulnerability Confidence = "Vulnerability"
	ConfidenceType1         Confidence = "Type 1"
	ConfidenceType2         Confidence = "Type 2"
)

// ValidConfidence reports whether c belongs to the closed confidence enum.
func ValidConfidence(c string) bool {
	switch Confidence(c) {
	case ConfidenceVulnerability, ConfidenceType1, ConfidenceType2:
		return true
	}
	return false
}

// Severity is the severity rating attached to a static finding. Like
// Confidence, the value set is closed and validated up front.
type Severity string

// Constants defining the legal severity ratings.
const (
	SeverityHigh          Severity = "High"
	SeverityMedium        Severity = "Medium"
	SeverityLow           Severity = "Low"
	SeverityInformational Severity = "Informational"
)

// ValidSeverity reports whether s belongs to the closed severity enum.
func ValidSeverity(s string) bool {
	switch Severity(s) {
	case SeverityHigh, SeverityMedium, SeverityLow, SeverityInformational:
		return true
	}
	return false
}

// ReviewStatus is an analyst's disposition for a finding.
type ReviewStatus string

// Constants for the two dispositions an analyst can record.
const (
	ReviewValid         ReviewStatus = "valid"
	ReviewFalsePositive ReviewStatus = "false_positive"
)

// Review holds the analyst metadata attached to a finding once it has been
// triaged. A valid review carries a ticket number; a false-positive review
// carries the reason instead.
type Review struct {
	Status              ReviewStatus `bson:"status" json:"status"`
	User                string       `bson:"user" json:"user"`
	Date                time.Time    `bson:"date" json:"date"`
	TicketNumber        string       `bson:"ticket_number,omitempty" json:"ticket_number,omitempty"`
	FalsePositiveReason string       `bson:"false_positive_reason,omitempty" json:"false_positive_reason,omitempty"`
}

// Finding is one raw per-scan record of a potential security issue. Findings
// are append-only: every scan run inserts new rows, and the only mutation the
// system ever performs is attaching review metadata. The document _id is the
// primary key and the implicit time index; its embedded timestamp is the only
// trusted creation-time signal.
type Finding struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// Identity fields. Two findings agreeing on all of these are the same
	// logical issue re-observed by a later scan.
	VulnType        string `bson:"vtype" json:"vtype"`
	Line            int    `bson:"ln" json:"ln"`
	Method          string `bson:"method" json:"method"`
	FilePath        string `bson:"file_path" json:"file_path"`
	Confidence      string `bson:"conf" json:"conf"`
	Severity        string `bson:"sev" json:"sev"`
	ApplicationName string `bson:"application_name" json:"application_name"`
	Caller          string `bson:"caller" json:"caller"`
	ProjectName     string `bson:"project_name" json:"project_name"`

	CWE         string    `bson:"CWE,omitempty" json:"cwe,omitempty"`
	DateScanned time.Time `bson:"date_scanned" json:"date_scanned"`

	// Detail payloads for the single-issue view.
	TaintTrace string `bson:"taint_trace,omitempty" json:"taint_trace,omitempty"`
	Code       string `bson:"code,omitempty" json:"code,omitempty"`

	// Review is nil until an analyst triages the finding.
	Review *Review `bson:"review,omitempty" json:"review,omitempty"`
}

// CreatedAt derives the creation time from the ObjectID's embedded timestamp.
func (f *Finding) CreatedAt() time.Time {
	return f.ID.Timestamp()
}

// Identity is the composite key distinguishing logically-equivalent findings
// across repeated scans. Field names mirror the grouped document's _id
// sub-document so the same type round-trips through the datastore.
type Identity struct {
	VulnType        string `bson:"vtype" json:"vtype"`
	Line            int    `bson:"ln" json:"ln"`
	Method          string `bson:"method" json:"method"`
	FilePath        string `bson:"file" json:"file"`
	Confidence      string `bson:"conf" json:"conf"`
	Severity        string `bson:"sev" json:"sev"`
	ApplicationName string `bson:"app" json:"app"`
	Caller          string `bson:"caller" json:"caller"`
	ProjectName     string `bson:"project_name" json:"project_name"`
}

// IdentityOf extracts the composite identity key from a raw finding.
func IdentityOf(f *Finding) Identity {
	return Identity{
		VulnType:        f.VulnType,
		Line:            f.Line,
		Method:          f.Method,
		FilePath:        f.FilePath,
		Confidence:      f.Confidence,
		Severity:        f.Severity,
		ApplicationName: f.ApplicationName,
		Caller:          f.Caller,
		ProjectName:     f.ProjectName,
	}
}

// LogicalIssue is the deduplicated view of every finding sharing one
// identity. It is derived, never stored. The accumulated lists keep one slot
// per raw row in row order; position 0 of ReviewStatuses is the authoritative
// current disposition.
type LogicalIssue struct {
	Identity Identity `bson:"_id" json:"identity"`

	// FirstSeen is the earliest scan date across all occurrences.
	FirstSeen time.Time `bson:"date" json:"first_seen"`
	// CanonicalID is the largest (most recent) raw _id, used as the update
	// marker when a reviewer acts on the issue.
	CanonicalID primitive.ObjectID `bson:"updateVal" json:"canonical_id"`

	ReviewStatuses       []ReviewStatus `bson:"reviewStatus" json:"review_statuses"`
	FalsePositiveReasons []string       `bson:"fpreason" json:"false_positive_reasons"`
	TicketNumbers        []string       `bson:"vreason" json:"ticket_numbers"`
	ReviewUser           string         `bson:"reviewUser,omitempty" json:"review_user,omitempty"`
	ReviewDate           time.Time      `bson:"reviewDate,omitempty" json:"review_date,omitempty"`
}

// CurrentStatus returns the issue's authoritative disposition. The boolean is
// false when the issue has never been reviewed, which is distinct from an
// explicit empty status value.
func (li *LogicalIssue) CurrentStatus() (ReviewStatus, bool) {
	if len(li.ReviewStatuses) == 0 {
		return "", false
	}
	return li.ReviewStatuses[0], true
}

// TrendDay is one calendar-day bucket of the merged trend series. The four
// counters are independent; a day with no activity in either collection is
// simply absent from the series.
type TrendDay struct {
	Day               time.Time `json:"day"`
	UnreviewedStatic  int       `json:"unreviewedStatic"`
	UnreviewedDynamic int       `json:"unreviewedDynamic"`
	ReviewedStatic    int       `json:"reviewedStatic"`
	ReviewedDynamic   int       `json:"reviewedDynamic"`
}
